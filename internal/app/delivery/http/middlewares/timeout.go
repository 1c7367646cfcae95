package middlewares

import (
	"context"
	"net/http"
	"time"
)

// RequestTimeout bounds the request context with the configured timeout.
// Routes that run their own deadline are mounted without it.
func (m *Middlewares) RequestTimeout(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		timeout := time.Duration(m.InternalConfig.App.RequestTimeoutInSeconds) * time.Second
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
