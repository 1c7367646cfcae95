package patients

import (
	"context"
	"imaging-demo-service/internal/app/contracts"
	"imaging-demo-service/internal/pkg/constvars"
	"imaging-demo-service/internal/pkg/dto/responses"
	"imaging-demo-service/internal/pkg/fhir_dto"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	patientUsecaseInstance contracts.PatientUsecase
	oncePatientUsecase     sync.Once
)

const birthDateDisplayLayout = "01-02-2006"

type patientUsecase struct {
	PatientFhirClient contracts.PatientFhirClient
	Log               *zap.Logger
}

func NewPatientUsecase(patientFhirClient contracts.PatientFhirClient, logger *zap.Logger) contracts.PatientUsecase {
	oncePatientUsecase.Do(func() {
		patientUsecaseInstance = &patientUsecase{
			PatientFhirClient: patientFhirClient,
			Log:               logger,
		}
	})
	return patientUsecaseInstance
}

// GetDemographics returns the header line shown above the study list.
func (uc *patientUsecase) GetDemographics(ctx context.Context, patientID string) (*responses.PatientDemographics, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	uc.Log.Info("patientUsecase.GetDemographics called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingPatientIDKey, patientID),
	)

	patient, err := uc.PatientFhirClient.FindPatientByID(ctx, patientID)
	if err != nil {
		uc.Log.Error("patientUsecase.GetDemographics error fetching patient",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
		return nil, err
	}

	response := &responses.PatientDemographics{
		PatientID: patient.ID,
		Name:      displayName(patient.Name),
		BirthDate: displayBirthDate(patient.BirthDate),
		City:      displayCity(patient.Address),
	}

	uc.Log.Info("patientUsecase.GetDemographics succeeded",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingPatientIDKey, patient.ID),
	)
	return response, nil
}

// displayName joins the given names and the family name of the first name entry.
func displayName(names []fhir_dto.HumanName) string {
	if len(names) == 0 {
		return ""
	}
	name := names[0]
	parts := make([]string, 0, len(name.Given)+1)
	for _, given := range name.Given {
		if given != "" {
			parts = append(parts, given)
		}
	}
	if name.Family != "" {
		parts = append(parts, name.Family)
	}
	if len(parts) == 0 {
		return name.Text
	}
	return strings.Join(parts, " ")
}

// displayBirthDate formats a FHIR date as MM-DD-YYYY. Partial dates are kept as is.
func displayBirthDate(birthDate string) string {
	if birthDate == "" {
		return ""
	}
	parsed, err := time.Parse(time.DateOnly, birthDate)
	if err != nil {
		return birthDate
	}
	return parsed.Format(birthDateDisplayLayout)
}

func displayCity(addresses []fhir_dto.Address) string {
	if len(addresses) == 0 {
		return ""
	}
	address := addresses[0]
	switch {
	case address.City != "" && address.State != "":
		return address.City + ", " + address.State
	case address.City != "":
		return address.City
	default:
		return address.State
	}
}
