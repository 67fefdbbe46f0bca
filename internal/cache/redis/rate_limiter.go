package redis

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cardexlabs/arbscan/internal/domain"
)

//go:embed scripts/sliding_window.lua
var slidingWindowSrc string

var slidingWindow = redis.NewScript(slidingWindowSrc)

// RateLimiter implements domain.RateLimiter with a Redis-backed sliding
// window. Counting and admission happen in one Lua script so concurrent
// callers cannot race past the limit. The feed layer budgets venue API calls
// with it, the HTTP layer throttles clients.
type RateLimiter struct {
	rdb *redis.Client
}

// NewRateLimiter creates a RateLimiter backed by the given Client.
func NewRateLimiter(c *Client) *RateLimiter {
	return &RateLimiter{rdb: c.Underlying()}
}

// Allow reports whether one more request under key fits inside the window.
// An admitted request is counted immediately.
func (rl *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	admitted, err := slidingWindow.Run(ctx, rl.rdb,
		[]string{"ratelimit:" + key},
		time.Now().UnixMilli(), window.Milliseconds(), limit,
	).Int64()
	if err != nil {
		return false, fmt.Errorf("redis: rate limit %s: %w", key, err)
	}
	return admitted == 1, nil
}

var _ domain.RateLimiter = (*RateLimiter)(nil)
