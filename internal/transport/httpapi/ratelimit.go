package httpapi

import (
	"sync"
	"time"
)

// RateLimiter is a time-windowed request counter keyed by client identity.
// It is injected into the server rather than held as package state, so
// handlers stay testable and multiple instances do not share counters.
type RateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	now    func() time.Time
	// per-client request timestamps inside the current window
	hits map[string][]time.Time
}

// NewRateLimiter allows up to max requests per client within window.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		window: window,
		max:    max,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
	}
}

// Allow records a request for clientID and reports whether it is within the
// limit. Expired entries are pruned on each call, so idle clients cost
// nothing after one window.
func (l *RateLimiter) Allow(clientID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	recent := l.hits[clientID][:0]
	for _, t := range l.hits[clientID] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= l.max {
		l.hits[clientID] = recent
		return false
	}

	l.hits[clientID] = append(recent, now)
	return true
}
