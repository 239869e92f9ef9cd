package datafetcher

import (
	"context"
	"sync"
	"time"

	"market-scanner/config"
)

// RateLimiter enforces per-provider request quotas over a trailing window.
// Admission is pessimistic: a slot is recorded the moment it is granted, so a
// burst of concurrent callers can never exceed the quota even if some of
// their requests later fail.
type RateLimiter struct {
	mu     sync.Mutex
	limits map[string]config.RateLimit
	calls  map[string][]time.Time
	now    func() time.Time
}

// NewRateLimiter builds a limiter from the configured provider limits. An
// unknown provider falls back to the "default" entry when present, otherwise
// it is unlimited.
func NewRateLimiter(limits map[string]config.RateLimit) *RateLimiter {
	return &RateLimiter{
		limits: limits,
		calls:  make(map[string][]time.Time),
		now:    time.Now,
	}
}

// Wait blocks until the provider has a free slot in its trailing window, then
// records the slot and returns. It returns early with ctx.Err() when the
// context is cancelled while waiting.
func (r *RateLimiter) Wait(ctx context.Context, provider string) error {
	limit, ok := r.limitFor(provider)
	if !ok {
		return nil
	}

	for {
		r.mu.Lock()
		now := r.now()
		cutoff := now.Add(-limit.Window)
		recent := r.calls[provider]
		for len(recent) > 0 && !recent[0].After(cutoff) {
			recent = recent[1:]
		}
		if len(recent) < limit.MaxRequests {
			r.calls[provider] = append(recent, now)
			r.mu.Unlock()
			return nil
		}
		wait := recent[0].Sub(cutoff)
		r.calls[provider] = recent
		r.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// Used reports how many slots the provider has consumed in its current
// window.
func (r *RateLimiter) Used(provider string) int {
	limit, ok := r.limitFor(provider)
	if !ok {
		return 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-limit.Window)
	n := 0
	for _, t := range r.calls[provider] {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}

func (r *RateLimiter) limitFor(provider string) (config.RateLimit, bool) {
	if l, ok := r.limits[provider]; ok {
		return l, true
	}
	if l, ok := r.limits["default"]; ok {
		return l, true
	}
	return config.RateLimit{}, false
}
