package routers

import (
	"imaging-demo-service/internal/app/delivery/http/controllers"
	"imaging-demo-service/internal/app/delivery/http/middlewares"

	"github.com/go-chi/chi/v5"
)

// attachStudyRoutes mounts the study routes. The synchronous download is
// bounded by the download timeout and image streams by the client, so
// neither runs under the request timeout.
func attachStudyRoutes(
	router chi.Router,
	middlewares *middlewares.Middlewares,
	studyController *controllers.StudyController,
	imageController *controllers.ImageController,
) {
	router.Route("/{patientID}/studies", func(r chi.Router) {
		r.Use(middlewares.Authenticate)
		r.Post("/{studyID}/download", studyController.DownloadStudy)
		r.Get("/{studyID}/images/{imageID}", imageController.GetImage)

		r.Group(func(r chi.Router) {
			r.Use(middlewares.RequestTimeout)
			r.Get("/", studyController.ListStudies)
			r.Post("/{studyID}/prefetch", studyController.PrefetchStudy)
			r.Get("/{studyID}/series", studyController.ListSeries)
			r.Get("/{studyID}/series/{seriesIndex}", studyController.GetSeries)
			r.Get("/{studyID}/view", studyController.ViewStudy)
		})
	})
}
