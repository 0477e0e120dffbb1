package inference

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// defaultBackoff is used when a 429 carries no usable Retry-After header.
const defaultBackoff = 5 * time.Second

// rateLimiter throttles model server requests with a token bucket and
// backs off after the server answers 429.
type rateLimiter struct {
	mu      sync.Mutex
	limiter *rate.Limiter
	retryAt time.Time
}

// newRateLimiter returns a limiter allowing rps sustained requests per
// second with the given burst. A non-positive rps disables the bucket but
// keeps 429 backoff.
func newRateLimiter(rps float64, burst int) *rateLimiter {
	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}
	return &rateLimiter{
		limiter: rate.NewLimiter(limit, max(burst, 1)),
	}
}

// Wait blocks until a request can be made without exceeding the rate limit.
// It also respects any backoff period set by recordRetryAfter.
func (r *rateLimiter) Wait(ctx context.Context) error {
	r.mu.Lock()
	retryAt := r.retryAt
	r.mu.Unlock()

	if wait := time.Until(retryAt); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}

	return r.limiter.Wait(ctx)
}

// recordRetryAfter sets a backoff period from a Retry-After header value
// given in seconds.
func (r *rateLimiter) recordRetryAfter(header string) {
	backoff := defaultBackoff
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		backoff = time.Duration(secs) * time.Second
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.retryAt = time.Now().Add(backoff)
}
