package imaging_studies

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
	imagingStudyFhirClientInstance contracts.ImagingStudyFhirClient
	onceImagingStudyFhirClient     sync.Once
)

// maxPages stops a server that keeps returning "next" links.
const maxPages = 50

type imagingStudyFhirClient struct {
	BaseUrl string
	Fetcher contracts.AuthenticatedFetcher
	Log     *zap.Logger
}

func NewImagingStudyFhirClient(baseUrl string, fetcher contracts.AuthenticatedFetcher, logger *zap.Logger) contracts.ImagingStudyFhirClient {
	onceImagingStudyFhirClient.Do(func() {
		imagingStudyFhirClientInstance = newImagingStudyFhirClient(baseUrl, fetcher, logger)
	})
	return imagingStudyFhirClientInstance
}

func newImagingStudyFhirClient(baseUrl string, fetcher contracts.AuthenticatedFetcher, logger *zap.Logger) *imagingStudyFhirClient {
	return &imagingStudyFhirClient{
		BaseUrl: strings.TrimSuffix(baseUrl, "/") + "/" + constvars.ResourceImagingStudy,
		Fetcher: fetcher,
		Log:     logger,
	}
}

// FindImagingStudiesByPatient searches ImagingStudy?patient=<id> and follows
// the bundle's next links.
func (c *imagingStudyFhirClient) FindImagingStudiesByPatient(ctx context.Context, patientID string) ([]fhir_dto.ImagingStudy, error) {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	c.Log.Info("imagingStudyFhirClient.FindImagingStudiesByPatient called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingPatientIDKey, patientID),
	)

	query := url.Values{}
	query.Set(constvars.FhirSearchParamPatient, patientID)
	pageURL := fmt.Sprintf("%s?%s", c.BaseUrl, query.Encode())

	studies := []fhir_dto.ImagingStudy{}
	for page := 0; pageURL != "" && page < maxPages; page++ {
		bundle, err := c.fetchBundle(ctx, pageURL)
		if err != nil {
			c.Log.Error("imagingStudyFhirClient.FindImagingStudiesByPatient error fetching bundle",
				zap.String(constvars.LoggingRequestIDKey, requestID),
				zap.String(constvars.LoggingURIKey, pageURL),
				zap.Error(err),
			)
			return nil, err
		}

		for _, entry := range bundle.Entry {
			var study fhir_dto.ImagingStudy
			err := json.Unmarshal(entry.Resource, &study)
			if err != nil {
				c.Log.Error("imagingStudyFhirClient.FindImagingStudiesByPatient error unmarshaling entry",
					zap.String(constvars.LoggingRequestIDKey, requestID),
					zap.Error(err),
				)
				return nil, exceptions.ErrDecodeResponse(err, constvars.ResourceImagingStudy)
			}
			// search bundles may carry OperationOutcome or included resources
			if study.ResourceType != constvars.ResourceImagingStudy {
				continue
			}
			studies = append(studies, study)
		}
		pageURL = bundle.NextURL()
	}

	c.Log.Info("imagingStudyFhirClient.FindImagingStudiesByPatient succeeded",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.Int(constvars.LoggingStudiesCountKey, len(studies)),
	)
	return studies, nil
}

func (c *imagingStudyFhirClient) fetchBundle(ctx context.Context, pageURL string) (*fhir_dto.FHIRBundle, error) {
	header := make(http.Header)
	header.Set(constvars.HeaderAccept, constvars.MIMEApplicationFHIRJSON)
	resp, err := c.Fetcher.Fetch(ctx, pageURL, header)
	if err != nil {
		return nil, exceptions.ErrSendHTTPRequest(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != constvars.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		var outcome fhir_dto.OperationOutcome
		fhirErr := fmt.Errorf("status %d", resp.StatusCode)
		if json.Unmarshal(bodyBytes, &outcome) == nil && len(outcome.Issue) > 0 {
			fhirErr = fmt.Errorf("status %d: %s", resp.StatusCode, outcome.Issue[0].Diagnostics)
		}
		return nil, exceptions.ErrFetchFHIRResource(fhirErr, constvars.ResourceImagingStudy)
	}

	bundle := new(fhir_dto.FHIRBundle)
	err = json.NewDecoder(resp.Body).Decode(bundle)
	if err != nil {
		return nil, exceptions.ErrDecodeResponse(err, constvars.ResourceBundle)
	}
	return bundle, nil
}
