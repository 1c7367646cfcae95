package patients

import (
	"context"
	"errors"
	"imaging-demo-service/internal/pkg/constvars"
	"imaging-demo-service/internal/pkg/exceptions"
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

func TestPatientFhirClient_FindPatientByID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/fhir/Patient/smart-1288992":
			assert.Equal(t, constvars.MIMEApplicationFHIRJSON, r.Header.Get(constvars.HeaderAccept))
			w.Write([]byte(`{"resourceType":"Patient","id":"smart-1288992","birthDate":"1925-12-23",
				"name":[{"family":"Adams","given":["Daniel","X."]}],
				"address":[{"city":"Boston","state":"MA"}]}`))
		case "/fhir/Patient/missing":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`{"resourceType":"OperationOutcome","issue":[{"severity":"error","diagnostics":"database offline"}]}`))
		}
	}))
	defer server.Close()

	client := newPatientFhirClient(server.URL+"/fhir/", plainFetcher{}, zap.NewNop())

	t.Run("found", func(t *testing.T) {
		patient, err := client.FindPatientByID(context.Background(), "smart-1288992")

		require.NoError(t, err)
		assert.Equal(t, "smart-1288992", patient.ID)
		assert.Equal(t, "1925-12-23", patient.BirthDate)
		require.Len(t, patient.Name, 1)
		assert.Equal(t, []string{"Daniel", "X."}, patient.Name[0].Given)
		assert.Equal(t, "Boston", patient.Address[0].City)
	})

	t.Run("not found maps to 404", func(t *testing.T) {
		_, err := client.FindPatientByID(context.Background(), "missing")

		var customErr *exceptions.CustomError
		require.True(t, errors.As(err, &customErr))
		assert.Equal(t, constvars.StatusNotFound, customErr.StatusCode)
	})

	t.Run("server error carries the outcome diagnostics", func(t *testing.T) {
		_, err := client.FindPatientByID(context.Background(), "broken")

		var customErr *exceptions.CustomError
		require.True(t, errors.As(err, &customErr))
		assert.Equal(t, constvars.StatusBadGateway, customErr.StatusCode)
		assert.Contains(t, customErr.DevMessage, "database offline")
	})
}
