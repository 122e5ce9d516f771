// Package ratelimit bounds outbound request rates against the external
// market-data API. The limiter is an explicit value handed to the client at
// construction, so runs stay independently testable.
package ratelimit

import (
	"context"

	"golang.org/x/time/rate"
)

// Limiter wraps a token-bucket limiter for one API key's request budget.
type Limiter struct {
	limiter *rate.Limiter
}

// PerMinute creates a limiter allowing n requests per minute with a burst of
// one. The Alpha Vantage free tier allows 5 requests per minute.
func PerMinute(n int) *Limiter {
	if n <= 0 {
		return Unlimited()
	}
	return &Limiter{limiter: rate.NewLimiter(rate.Limit(float64(n)/60.0), 1)}
}

// Unlimited creates a limiter that never blocks. Used in tests.
func Unlimited() *Limiter {
	return &Limiter{limiter: rate.NewLimiter(rate.Inf, 1)}
}

// Wait blocks until the limiter permits a request or the context is done.
func (l *Limiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Allow reports whether a request may happen now without waiting.
func (l *Limiter) Allow() bool {
	return l.limiter.Allow()
}
