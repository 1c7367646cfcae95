package routers

import (
	"imaging-demo-service/internal/app/delivery/http/controllers"
	"imaging-demo-service/internal/app/delivery/http/middlewares"

	"github.com/go-chi/chi/v5"
)

func attachPatientRoutes(router chi.Router, middlewares *middlewares.Middlewares, patientController *controllers.PatientController) {
	router.With(middlewares.Authenticate, middlewares.RequestTimeout).Get("/{patientID}", patientController.GetDemographics)
}
