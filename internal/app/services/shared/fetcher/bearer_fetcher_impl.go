package fetcher

import (
	"context"
	"imaging-demo-service/internal/app/contracts"
	"imaging-demo-service/internal/pkg/constvars"
	"imaging-demo-service/internal/pkg/exceptions"
	"imaging-demo-service/internal/pkg/utils"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type bearerFetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	Log     *zap.Logger
}

// NewBearerFetcher returns a fetcher that paces outbound requests with limiter
// and forwards the caller's bearer token and request id.
func NewBearerFetcher(client *http.Client, limiter *rate.Limiter, logger *zap.Logger) contracts.AuthenticatedFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 0)
	}
	return &bearerFetcher{
		client:  client,
		limiter: limiter,
		Log:     logger,
	}
}

func (f *bearerFetcher) Fetch(ctx context.Context, uri string, header http.Header) (*http.Response, error) {
	requestID := utils.RequestIDFromContext(ctx)
	f.Log.Debug("bearerFetcher.Fetch called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingURIKey, uri),
	)

	err := f.limiter.Wait(ctx)
	if err != nil {
		f.Log.Error("bearerFetcher.Fetch error waiting for rate limiter",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
		return nil, exceptions.ErrServerDeadlineExceeded(err)
	}

	req, err := http.NewRequestWithContext(ctx, constvars.MethodGet, uri, nil)
	if err != nil {
		f.Log.Error("bearerFetcher.Fetch error creating HTTP request",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Error(err),
		)
		return nil, exceptions.ErrCreateHTTPRequest(err)
	}
	for name, values := range header {
		for _, value := range values {
			req.Header.Add(name, value)
		}
	}
	if token := utils.BearerTokenFromContext(ctx); token != "" {
		req.Header.Set(constvars.HeaderAuthorization, constvars.AuthorizationBearerPrefix+token)
	}
	if requestID != "" {
		req.Header.Set(constvars.HeaderXRequestID, requestID)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.Log.Error("bearerFetcher.Fetch error sending HTTP request",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.String(constvars.LoggingURIKey, uri),
			zap.Error(err),
		)
		return nil, exceptions.ErrSendHTTPRequest(err)
	}

	f.Log.Debug("bearerFetcher.Fetch succeeded",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.Int(constvars.LoggingStatusCodeKey, resp.StatusCode),
	)
	return resp, nil
}
