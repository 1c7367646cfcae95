package dicom

import (
	"context"
	"fmt"
	"imaging-demo-service/internal/pkg/constvars"
	"imaging-demo-service/internal/pkg/utils"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Fetcher issues an authenticated GET against the imaging server.
// Implementations attach the bearer token and may add their own headers.
type Fetcher interface {
	Fetch(ctx context.Context, uri string, header http.Header) (*http.Response, error)
}

// RetryPolicy bounds how long a study endpoint answering 503 is waited for.
// MaxRetries counts the retries after the first attempt.
type RetryPolicy struct {
	Delay      time.Duration
	MaxRetries int
}

type MultipartFetcher struct {
	fetcher Fetcher
	policy  RetryPolicy
	Log     *zap.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewMultipartFetcher(fetcher Fetcher, policy RetryPolicy, logger *zap.Logger) *MultipartFetcher {
	if policy.MaxRetries < 0 {
		policy.MaxRetries = 0
	}
	return &MultipartFetcher{
		fetcher: fetcher,
		policy:  policy,
		Log:     logger,
		sleep:   sleepContext,
	}
}

// FetchMultipart requests the whole study as multipart/related DICOM. While
// the server answers 503 the request is repeated after the policy delay; any
// other response is returned untouched and the caller owns its body.
func (f *MultipartFetcher) FetchMultipart(ctx context.Context, uri string) (*http.Response, error) {
	requestID := utils.RequestIDFromContext(ctx)
	f.Log.Info("MultipartFetcher.FetchMultipart called",
		zap.String(constvars.LoggingRequestIDKey, requestID),
		zap.String(constvars.LoggingURIKey, uri),
	)

	header := make(http.Header)
	header.Set(constvars.HeaderAccept, constvars.MIMEMultipartRelatedDICOM)

	for attempt := 0; ; attempt++ {
		resp, err := f.fetcher.Fetch(ctx, uri, header.Clone())
		if err != nil {
			f.Log.Error("MultipartFetcher.FetchMultipart error fetching study",
				zap.String(constvars.LoggingRequestIDKey, requestID),
				zap.Int(constvars.LoggingAttemptKey, attempt),
				zap.Error(err),
			)
			return nil, err
		}

		if resp.StatusCode != constvars.StatusServiceUnavailable {
			f.Log.Info("MultipartFetcher.FetchMultipart succeeded",
				zap.String(constvars.LoggingRequestIDKey, requestID),
				zap.Int(constvars.LoggingStatusCodeKey, resp.StatusCode),
				zap.Int(constvars.LoggingAttemptKey, attempt),
			)
			return resp, nil
		}
		drainAndClose(resp.Body)

		if attempt >= f.policy.MaxRetries {
			f.Log.Error("MultipartFetcher.FetchMultipart retries exhausted",
				zap.String(constvars.LoggingRequestIDKey, requestID),
				zap.String(constvars.LoggingURIKey, uri),
				zap.Int(constvars.LoggingAttemptKey, attempt),
			)
			return nil, fmt.Errorf("%w: %d attempts for %s", ErrRetriesExhausted, attempt+1, uri)
		}

		f.Log.Warn("MultipartFetcher.FetchMultipart study not ready, retrying",
			zap.String(constvars.LoggingRequestIDKey, requestID),
			zap.Int(constvars.LoggingAttemptKey, attempt),
			zap.Duration(constvars.LoggingDurationKey, f.policy.Delay),
		)
		if err := f.sleep(ctx, f.policy.Delay); err != nil {
			return nil, err
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func drainAndClose(body io.ReadCloser) {
	if body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
