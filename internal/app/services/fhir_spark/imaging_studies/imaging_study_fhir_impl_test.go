package imaging_studies

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type plainFetcher struct{}

func (plainFetcher) Fetch(ctx context.Context, uri string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, err
	}
	req.Header = header
	return http.DefaultClient.Do(req)
}

func TestImagingStudyFhirClient_FindImagingStudiesByPatient(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `{"resourceType":"Bundle","type":"searchset","entry":[
				{"resource":{"resourceType":"ImagingStudy","id":"b","uid":"urn:oid:2.2"}}]}`)
			return
		}
		assert.Equal(t, "/fhir/ImagingStudy", r.URL.Path)
		assert.Equal(t, "smart-1", r.URL.Query().Get("patient"))
		fmt.Fprintf(w, `{"resourceType":"Bundle","type":"searchset",
			"link":[{"relation":"self","url":"x"},{"relation":"next","url":"%s/fhir/ImagingStudy?patient=smart-1&page=2"}],
			"entry":[
				{"resource":{"resourceType":"ImagingStudy","id":"a","uid":"urn:oid:1.1",
					"contained":[{"resourceType":"Endpoint","id":"e","address":"http://pacs/1.1"}],
					"endpoint":[{"reference":"#e"}],"numberOfSeries":2}},
				{"resource":{"resourceType":"OperationOutcome","issue":[]}}]}`, server.URL)
	}))
	defer server.Close()

	client := newImagingStudyFhirClient(server.URL+"/fhir", plainFetcher{}, zap.NewNop())

	studies, err := client.FindImagingStudiesByPatient(context.Background(), "smart-1")

	require.NoError(t, err)
	require.Len(t, studies, 2)
	assert.Equal(t, "a", studies[0].ID)
	assert.Equal(t, 2, studies[0].NumberOfSeries)
	assert.Equal(t, "http://pacs/1.1", studies[0].Contained[0].Address)
	assert.Equal(t, "b", studies[1].ID)
}

func TestImagingStudyFhirClient_UpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := newImagingStudyFhirClient(server.URL, plainFetcher{}, zap.NewNop())

	studies, err := client.FindImagingStudiesByPatient(context.Background(), "smart-1")

	assert.Nil(t, studies)
	assert.Error(t, err)
}
