package ratelimit

import (
	"context"
	"time"
)

// RateLimiter decides whether a request identified by key may proceed.
type RateLimiter interface {
	Allow(ctx context.Context, key string) (*Info, error)
}

// Info describes the limiter state after a check.
type Info struct {
	// Limit is the maximum number of requests allowed in the window
	Limit int
	// Remaining is the number of requests remaining in the current window
	Remaining int
	// ResetAt is when the window resets
	ResetAt time.Time
	// Allowed indicates whether the request should be allowed
	Allowed bool
}
