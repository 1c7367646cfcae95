package patients

import (
	"context"
	"fmt"
	"imaging-demo-service/internal/app/contracts"
	"imaging-demo-service/internal/pkg/constvars"
	"imaging-demo-service/internal/pkg/exceptions"
	"imaging-demo-service/internal/pkg/fhir_dto"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

var (
	patientFhirClientInstance contracts.PatientFhirClient
	oncePatientFhirClient     sync.Once
)

type patientFhirClient struct {
	BaseUrl string
	Fetcher contracts.AuthenticatedFetcher
	Log     *zap.Logger
}

func NewPatientFhirClient(baseUrl string, fetcher contracts.AuthenticatedFetcher, logger *zap.Logger) contracts.PatientFhirClient {
	oncePatientFhirClient.Do(func() {
		patientFhirClientInstance = newPatientFhirClient(baseUrl, fetcher, logger)
	})
	return patientFhirClientInstance
}

func newPatientFhirClient(baseUrl string, fetcher contracts.AuthenticatedFetcher, logger *zap.Logger) *patientFhirClient {
	return &patientFhirClient{
		BaseUrl: strings.TrimSuffix(baseUrl, "/") + "/" + constvars.ResourcePatient,
		Fetcher: fetcher,
		Log:     logger,
	}
}

func (c *patientFhirClient) FindPatientByID(ctx context.Context, patientID string) (*fhir_dto.Patient, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	c.Log.Info("patientFhirClient.FindPatientByID called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingPatientIDKey, patientID),
	)

	header := make(http.Header)
	header.Set(constvars.HeaderAccept, constvars.MIMEApplicationFHIRJSON)
	resp, err := c.Fetcher.Fetch(ctx, fmt.Sprintf("%s/%s", c.BaseUrl, url.PathEscape(patientID)), header)
	if err != nil {
		c.Log.Error("patientFhirClient.FindPatientByID error sending HTTP request",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
		return nil, exceptions.ErrSendHTTPRequest(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == constvars.StatusNotFound || resp.StatusCode == http.StatusGone {
		err := fmt.Errorf("patient %s answered %d", patientID, resp.StatusCode)
		c.Log.Error("patientFhirClient.FindPatientByID patient not found",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
		return nil, exceptions.ErrFHIRResourceNotFound(err, constvars.ResourcePatient)
	}

	if resp.StatusCode != constvars.StatusOK {
		fhirErr := operationOutcomeError(resp)
		c.Log.Error("patientFhirClient.FindPatientByID FHIR error",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Int(constvars.LoggingStatusCodeKey, resp.StatusCode),
			zap.Error(fhirErr),
		)
		return nil, exceptions.ErrFetchFHIRResource(fhirErr, constvars.ResourcePatient)
	}

	patientFhir := new(fhir_dto.Patient)
	err = json.NewDecoder(resp.Body).Decode(patientFhir)
	if err != nil {
		c.Log.Error("patientFhirClient.FindPatientByID error decoding response",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
		return nil, exceptions.ErrDecodeResponse(err, constvars.ResourcePatient)
	}

	c.Log.Info("patientFhirClient.FindPatientByID succeeded",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingPatientIDKey, patientFhir.ID),
	)
	return patientFhir, nil
}

// operationOutcomeError reads the first issue of an OperationOutcome body,
// falling back to the bare status code.
func operationOutcomeError(resp *http.Response) error {
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var outcome fhir_dto.OperationOutcome
	if err := json.Unmarshal(bodyBytes, &outcome); err == nil && len(outcome.Issue) > 0 {
		return fmt.Errorf("status %d: %s", resp.StatusCode, outcome.Issue[0].Diagnostics)
	}
	return fmt.Errorf("status %d", resp.StatusCode)
}
