package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// ipLimiter tracks request timestamps per client IP over a trailing window.
type ipLimiter struct {
	mu       sync.Mutex
	requests map[string][]time.Time
	max      int
	window   time.Duration
}

func newIPLimiter(max int, window time.Duration) *ipLimiter {
	l := &ipLimiter{
		requests: make(map[string][]time.Time),
		max:      max,
		window:   window,
	}
	go l.startCleanup()
	return l
}

func (l *ipLimiter) allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-l.window)
	recent := l.requests[ip]
	for len(recent) > 0 && !recent[0].After(cutoff) {
		recent = recent[1:]
	}
	if len(recent) >= l.max {
		l.requests[ip] = recent
		return false
	}
	l.requests[ip] = append(recent, now)
	return true
}

func (l *ipLimiter) startCleanup() {
	ticker := time.NewTicker(10 * time.Minute)
	for range ticker.C {
		l.mu.Lock()
		cutoff := time.Now().Add(-l.window)
		for ip, times := range l.requests {
			if len(times) == 0 || !times[len(times)-1].After(cutoff) {
				delete(l.requests, ip)
			}
		}
		l.mu.Unlock()
	}
}

// RateLimit caps requests per client IP on the routes it wraps. Scans are
// expensive, so the default is deliberately low.
func RateLimit(max int, window time.Duration) gin.HandlerFunc {
	limiter := newIPLimiter(max, window)
	return func(c *gin.Context) {
		if !limiter.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests, slow down",
			})
			return
		}
		c.Next()
	}
}
