package contracts

import (
	"context"
	"imaging-demo-service/internal/pkg/dto/responses"
	"imaging-demo-service/internal/pkg/fhir_dto"
)

type PatientUsecase interface {
	GetDemographics(ctx context.Context, patientID string) (*responses.PatientDemographics, error)
}

type PatientFhirClient interface {
	FindPatientByID(ctx context.Context, patientID string) (*fhir_dto.Patient, error)
}
