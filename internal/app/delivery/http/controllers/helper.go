package controllers

import (
	"imaging-demo-service/internal/pkg/constvars"
	"imaging-demo-service/internal/pkg/exceptions"
	"imaging-demo-service/internal/pkg/utils"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// requestID returns the request id or writes the error response when the
// request id middleware did not run.
func requestIDFromRequest(log *zap.Logger, w http.ResponseWriter, r *http.Request) (string, bool) {
	requestID := utils.RequestIDFromContext(r.Context())
	if requestID == "" {
		log.Error("Request ID missing from context",
			zap.String(constvars.LoggingEndpointKey, r.URL.Path),
			zap.String(constvars.LoggingMethodKey, r.Method),
			zap.String(constvars.LoggingRemoteAddrKey, r.RemoteAddr),
		)
		utils.BuildErrorResponse(log, w, exceptions.ErrMissingRequestID(nil))
		return "", false
	}
	return requestID, true
}

func urlParam(log *zap.Logger, w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	value := chi.URLParam(r, name)
	if value == "" {
		utils.BuildErrorResponse(log, w, exceptions.ErrURLParamValidation(nil, name))
		return "", false
	}
	return value, true
}
