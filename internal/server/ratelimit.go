package server

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// RateLimiter is a sliding-window limiter keyed by client. It is created
// once per process and injected into the server; nothing is global.
type RateLimiter struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	hits map[string][]time.Time
}

// NewRateLimiter allows max calls per key within any window. A max below 1
// disables limiting.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		max:    max,
		window: window,
		now:    time.Now,
		hits:   make(map[string][]time.Time),
	}
}

// Allow records a call for key and reports whether it is within the limit.
// Rejected calls are not recorded.
func (l *RateLimiter) Allow(key string) bool {
	if l == nil || l.max < 1 {
		return true
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.recent(l.hits[key], now)
	if len(kept) >= l.max {
		l.hits[key] = kept
		return false
	}
	l.hits[key] = append(kept, now)
	return true
}

// recent drops the calls older than the window. Calls are appended in
// time order, so the survivors are a suffix.
func (l *RateLimiter) recent(calls []time.Time, now time.Time) []time.Time {
	i := 0
	for i < len(calls) && now.Sub(calls[i]) > l.window {
		i++
	}
	return calls[i:]
}

// Prune forgets keys with no call inside the window and returns how many
// were removed.
func (l *RateLimiter) Prune() int {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, calls := range l.hits {
		kept := l.recent(calls, now)
		if len(kept) == 0 {
			delete(l.hits, key)
			removed++
			continue
		}
		l.hits[key] = kept
	}
	return removed
}

// Len returns the number of tracked keys.
func (l *RateLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.hits)
}

// Run prunes every interval until ctx is done.
func (l *RateLimiter) Run(ctx context.Context, interval time.Duration, log zerolog.Logger) {
	if interval <= 0 {
		interval = l.window
	}
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Prune(); n > 0 {
				log.Debug().Int("purged", n).Int("remaining", l.Len()).Msg("rate limiter pruned")
			}
		}
	}
}
