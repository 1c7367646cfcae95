package ratelimiter

import (
	"context"
	"fmt"
	"imaging-demo-service/internal/app/contracts"
	"imaging-demo-service/internal/pkg/constvars"
	"strings"
	"time"

	"go.uber.org/zap"
)

// resourceLimiter is a fixed-window counter stored in redis, shared by every
// instance of the service. The counter key expires with its window.
type resourceLimiter struct {
	RedisRepository contracts.RedisRepository
	Log             *zap.Logger
	now             func() time.Time
}

func NewResourceLimiter(redisRepository contracts.RedisRepository, logger *zap.Logger) contracts.ResourceLimiter {
	return &resourceLimiter{
		RedisRepository: redisRepository,
		Log:             logger,
		now:             time.Now,
	}
}

// Allow counts one request for resource in the current window of group. A
// quota of zero or less disables the limit. When the quota is exceeded it
// reports the time left until the next window.
func (l *resourceLimiter) Allow(ctx context.Context, group, resource string, window time.Duration, quota int) (bool, time.Duration, error) {
	if quota <= 0 {
		return true, 0, nil
	}
	if window < time.Second {
		window = time.Minute
	}

	windowSecs := int64(window / time.Second)
	now := l.now().UTC()
	windowID := now.Unix() / windowSecs
	key := fmt.Sprintf("rate_limit:%s:%s:%d",
		strings.ToLower(strings.TrimSpace(group)),
		strings.TrimSpace(resource),
		windowID,
	)

	count, err := l.RedisRepository.IncrementWithTTL(ctx, key, window+time.Second)
	if err != nil {
		l.Log.Error("resourceLimiter.Allow increment failed",
			zap.String(constvars.LoggingRequestIDKey, requestID(ctx)),
			zap.String(constvars.LoggingRedisKey, key),
			zap.Error(err),
		)
		return false, 0, err
	}

	if count > quota {
		nextWindow := time.Unix((windowID+1)*windowSecs, 0)
		return false, nextWindow.Sub(now), nil
	}
	return true, 0, nil
}

func requestID(ctx context.Context) string {
	requestID, _ := ctx.Value(constvars.CONTEXT_REQUEST_ID_KEY).(string)
	return requestID
}
