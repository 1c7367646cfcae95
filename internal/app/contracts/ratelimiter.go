package contracts

import (
	"context"
	"time"
)

type ResourceLimiter interface {
	Allow(ctx context.Context, group, resource string, window time.Duration, quota int) (allowed bool, retryAfter time.Duration, err error)
}
