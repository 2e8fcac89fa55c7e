package api

import (
	"sync"

	"golang.org/x/time/rate"
)

// maxTrackedStores bounds the limiter map; it is cleared once reached.
const maxTrackedStores = 10000

// RateLimiter keeps one token bucket per store.
type RateLimiter struct {
	mu                sync.Mutex
	limiters          map[string]*rate.Limiter
	requestsPerSecond int
	burstSize         int
}

// NewRateLimiter creates a limiter. A non-positive rate disables limiting.
func NewRateLimiter(requestsPerSecond, burst int) *RateLimiter {
	if burst < 1 {
		burst = requestsPerSecond
	}
	return &RateLimiter{
		limiters:          make(map[string]*rate.Limiter),
		requestsPerSecond: requestsPerSecond,
		burstSize:         burst,
	}
}

func (rl *RateLimiter) Allow(store string) bool {
	allowed, _ := rl.Take(store)
	return allowed
}

// Take consumes a token for store and reports the whole tokens left.
func (rl *RateLimiter) Take(store string) (allowed bool, remaining int) {
	if rl.requestsPerSecond <= 0 {
		return true, rl.burstSize
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if len(rl.limiters) >= maxTrackedStores {
		rl.limiters = make(map[string]*rate.Limiter)
	}

	limiter, exists := rl.limiters[store]
	if !exists {
		limiter = rate.NewLimiter(rate.Limit(rl.requestsPerSecond), rl.burstSize)
		rl.limiters[store] = limiter
	}

	allowed = limiter.Allow()
	remaining = int(limiter.Tokens())
	if remaining < 0 {
		remaining = 0
	}
	return allowed, remaining
}
