package middlewares

import (
	"context"
	"imaging-demo-service/internal/pkg/constvars"
	"imaging-demo-service/internal/pkg/exceptions"
	"imaging-demo-service/internal/pkg/utils"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Authenticate requires a bearer token and stores it in the request context
// so it can be forwarded to the FHIR and imaging servers. The upstream
// servers validate the token; here a JWT is only checked for expiry and
// opaque tokens pass as is.
func (m *Middlewares) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := utils.RequestIDFromContext(r.Context())

		authHeader := r.Header.Get(constvars.HeaderAuthorization)
		if len(authHeader) < len(constvars.AuthorizationBearerPrefix) ||
			!strings.EqualFold(authHeader[:len(constvars.AuthorizationBearerPrefix)], constvars.AuthorizationBearerPrefix) {
			m.Log.Warn("Middlewares.Authenticate bearer token missing",
				zap.String(constvars.LoggingRequestIDKey, requestID),
				zap.String(constvars.LoggingEndpointKey, r.URL.Path),
			)
			utils.BuildErrorResponse(m.Log, w, exceptions.ErrTokenMissing(nil))
			return
		}

		token := strings.TrimSpace(authHeader[len(constvars.AuthorizationBearerPrefix):])
		if token == "" {
			utils.BuildErrorResponse(m.Log, w, exceptions.ErrTokenMissing(nil))
			return
		}

		if utils.IsExpiredJWT(token, time.Now()) {
			m.Log.Warn("Middlewares.Authenticate bearer token expired",
				zap.String(constvars.LoggingRequestIDKey, requestID),
			)
			utils.BuildErrorResponse(m.Log, w, exceptions.ErrTokenExpired(nil))
			return
		}

		ctx := context.WithValue(r.Context(), constvars.CONTEXT_BEARER_TOKEN_KEY, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
