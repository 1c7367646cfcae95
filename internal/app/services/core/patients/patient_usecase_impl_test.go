package patients

import (
	"context"
	"errors"
	"imaging-demo-service/internal/pkg/fhir_dto"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockPatientFhirClient struct {
	mock.Mock
}

func (m *mockPatientFhirClient) FindPatientByID(ctx context.Context, patientID string) (*fhir_dto.Patient, error) {
	args := m.Called(ctx, patientID)
	patient, _ := args.Get(0).(*fhir_dto.Patient)
	return patient, args.Error(1)
}

func TestPatientUsecase_GetDemographics(t *testing.T) {
	ctx := context.Background()

	t.Run("formats the header fields", func(t *testing.T) {
		client := new(mockPatientFhirClient)
		client.On("FindPatientByID", ctx, "smart-1").Return(&fhir_dto.Patient{
			ID:        "smart-1",
			BirthDate: "1925-12-23",
			Name:      []fhir_dto.HumanName{{Family: "Adams", Given: []string{"Daniel", "X."}}},
			Address:   []fhir_dto.Address{{City: "Boston", State: "MA"}},
		}, nil)
		usecase := &patientUsecase{PatientFhirClient: client, Log: zap.NewNop()}

		demographics, err := usecase.GetDemographics(ctx, "smart-1")

		require.NoError(t, err)
		assert.Equal(t, "smart-1", demographics.PatientID)
		assert.Equal(t, "Daniel X. Adams", demographics.Name)
		assert.Equal(t, "12-23-1925", demographics.BirthDate)
		assert.Equal(t, "Boston, MA", demographics.City)
	})

	t.Run("missing fields stay empty", func(t *testing.T) {
		client := new(mockPatientFhirClient)
		client.On("FindPatientByID", ctx, "smart-2").Return(&fhir_dto.Patient{ID: "smart-2"}, nil)
		usecase := &patientUsecase{PatientFhirClient: client, Log: zap.NewNop()}

		demographics, err := usecase.GetDemographics(ctx, "smart-2")

		require.NoError(t, err)
		assert.Empty(t, demographics.Name)
		assert.Empty(t, demographics.BirthDate)
		assert.Empty(t, demographics.City)
	})

	t.Run("client error is returned", func(t *testing.T) {
		client := new(mockPatientFhirClient)
		client.On("FindPatientByID", ctx, "x").Return(nil, errors.New("boom"))
		usecase := &patientUsecase{PatientFhirClient: client, Log: zap.NewNop()}

		_, err := usecase.GetDemographics(ctx, "x")

		assert.Error(t, err)
	})
}

func TestDisplayHelpers(t *testing.T) {
	assert.Equal(t, "1925", displayBirthDate("1925"))
	assert.Equal(t, "01-05-2001", displayBirthDate("2001-01-05"))
	assert.Equal(t, "Boston", displayCity([]fhir_dto.Address{{City: "Boston"}}))
	assert.Equal(t, "Jane Roe", displayName([]fhir_dto.HumanName{{Text: "Jane Roe"}}))
}
