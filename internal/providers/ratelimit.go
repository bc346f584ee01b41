package providers

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter is a token bucket limiting requests per second. A nil
// *RateLimiter never blocks.
type RateLimiter struct {
	limiter *rate.Limiter

	totalConsumed atomic.Int64
	totalWaitedNs atomic.Int64
}

// RateLimiterStatus reports current limiter state.
type RateLimiterStatus struct {
	RequestsPerSecond float64       `json:"requests_per_second"`
	Burst             int           `json:"burst"`
	TokensAvailable   float64       `json:"tokens_available"`
	TotalConsumed     int64         `json:"total_consumed"`
	TotalWaited       time.Duration `json:"total_waited"`
}

// NewRateLimiter creates a limiter allowing rps requests per second with a
// burst of one second's worth of requests. rps <= 0 returns nil (unlimited).
func NewRateLimiter(rps float64) *RateLimiter {
	if rps <= 0 {
		return nil
	}
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

// Wait blocks until a token is available or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return ctx.Err()
	}
	start := time.Now()
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	r.totalConsumed.Add(1)
	r.totalWaitedNs.Add(int64(time.Since(start)))
	return nil
}

// Status returns the current limiter state.
func (r *RateLimiter) Status() RateLimiterStatus {
	if r == nil {
		return RateLimiterStatus{}
	}
	return RateLimiterStatus{
		RequestsPerSecond: float64(r.limiter.Limit()),
		Burst:             r.limiter.Burst(),
		TokensAvailable:   r.limiter.Tokens(),
		TotalConsumed:     r.totalConsumed.Load(),
		TotalWaited:       time.Duration(r.totalWaitedNs.Load()),
	}
}
