package utils

import (
	"context"
	"imaging-demo-service/internal/pkg/constvars"
)

// RequestIDFromContext returns the request id stored by the request id middleware, or "".
func RequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	return requestID
}

func BearerTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(constvars.CONTEXT_BEARER_TOKEN_KEY).(string)
	return token
}
