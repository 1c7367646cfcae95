package contracts

import (
	"context"
	"imaging-demo-service/internal/app/models"
	"imaging-demo-service/internal/pkg/dto/responses"
	"imaging-demo-service/internal/pkg/fhir_dto"
	"io"
)

type StudyUsecase interface {
	ListStudies(ctx context.Context, patientID string) ([]responses.Study, error)
	DownloadStudy(ctx context.Context, patientID, studyID string) (*responses.DownloadedStudy, error)
	PrefetchStudy(ctx context.Context, patientID, studyID string) (*responses.QueuedDownload, error)
	ProcessDownloadJob(ctx context.Context, job *models.DownloadJob) error
	ListSeries(ctx context.Context, patientID, studyID string) ([]responses.Series, error)
	GetSeries(ctx context.Context, patientID, studyID string, seriesIndex int) (*responses.Series, error)
	ViewStudy(ctx context.Context, patientID, studyID string) (*responses.StudyView, error)
	OpenImage(ctx context.Context, patientID, studyID, imageID string) (io.ReadCloser, int64, error)
}

type ImagingStudyFhirClient interface {
	FindImagingStudiesByPatient(ctx context.Context, patientID string) ([]fhir_dto.ImagingStudy, error)
}

type StudyManifestRepository interface {
	FindByStudyID(ctx context.Context, patientID, studyID string) (*models.StudyManifest, error)
	Upsert(ctx context.Context, manifest *models.StudyManifest) error
}
