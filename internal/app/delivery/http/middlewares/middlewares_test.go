package middlewares

import (
	"imaging-demo-service/internal/app/config"
	"imaging-demo-service/internal/pkg/constvars"
	"imaging-demo-service/internal/pkg/utils"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestMiddlewares() *Middlewares {
	return NewMiddlewares(zap.NewNop(), &config.InternalConfig{
		App: config.App{RequestTimeoutInSeconds: 5},
	})
}

func signedToken(t *testing.T, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString([]byte("secret"))
	require.NoError(t, err)
	return signed
}

func TestAuthenticate(t *testing.T) {
	m := newTestMiddlewares()

	var seenToken string
	handler := m.Authenticate(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenToken = utils.BearerTokenFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	valid := signedToken(t, time.Now().Add(time.Hour))
	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantToken  string
	}{
		{"missing header", "", http.StatusUnauthorized, ""},
		{"not a bearer", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, ""},
		{"empty bearer", "Bearer   ", http.StatusUnauthorized, ""},
		{"opaque token", "Bearer opaque-123", http.StatusOK, "opaque-123"},
		{"lower case scheme", "bearer opaque-123", http.StatusOK, "opaque-123"},
		{"valid jwt", "Bearer " + valid, http.StatusOK, valid},
		{"expired jwt", "Bearer " + signedToken(t, time.Now().Add(-time.Hour)), http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seenToken = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(constvars.HeaderAuthorization, tt.header)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantToken, seenToken)
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	m := newTestMiddlewares()

	var seen string
	var fromClient bool
	handler := m.RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = utils.RequestIDFromContext(r.Context())
		fromClient, _ = r.Context().Value(constvars.CONTEXT_IS_CLIENT_REQUEST_ID_KEY).(bool)
	}))

	t.Run("client id is kept", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(constvars.HeaderXRequestID, "client-1")
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, req)

		assert.Equal(t, "client-1", seen)
		assert.True(t, fromClient)
		assert.Equal(t, "client-1", rr.Header().Get(constvars.HeaderXRequestID))
	})

	t.Run("id is generated", func(t *testing.T) {
		rr := httptest.NewRecorder()

		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.NotEmpty(t, seen)
		assert.False(t, fromClient)
		assert.Equal(t, seen, rr.Header().Get(constvars.HeaderXRequestID))
	})
}

func TestErrorHandler_RecoversPanic(t *testing.T) {
	m := newTestMiddlewares()
	handler := m.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), `"success":false`)
}

func TestRequestTimeout(t *testing.T) {
	m := newTestMiddlewares()
	handler := m.RequestTimeout(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		deadline, ok := r.Context().Deadline()
		assert.True(t, ok)
		assert.WithinDuration(t, time.Now().Add(5*time.Second), deadline, time.Second)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
