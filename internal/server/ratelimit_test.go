package server

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newLimiter(max int, window time.Duration) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := NewRateLimiter(max, window)
	l.now = clock.Now
	return l, clock
}

func TestRateLimiterWindow(t *testing.T) {
	l, clock := newLimiter(3, 10*time.Second)

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("a"), "call %d", i)
		clock.Advance(time.Second)
	}
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))

	// The first call leaves the window after 10s.
	clock.Advance(8 * time.Second)
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
}

func TestRateLimiterRejectedCallsAreNotCounted(t *testing.T) {
	l, clock := newLimiter(1, 10*time.Second)
	assert.True(t, l.Allow("a"))
	for i := 0; i < 5; i++ {
		clock.Advance(time.Second)
		assert.False(t, l.Allow("a"))
	}
	clock.Advance(6 * time.Second)
	assert.True(t, l.Allow("a"))
}

func TestRateLimiterDisabled(t *testing.T) {
	var nilLimiter *RateLimiter
	assert.True(t, nilLimiter.Allow("a"))

	l := NewRateLimiter(0, time.Second)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("a"))
	}
}

func TestRateLimiterPrune(t *testing.T) {
	l, clock := newLimiter(5, 10*time.Second)
	l.Allow("old")
	clock.Advance(6 * time.Second)
	l.Allow("new")
	assert.Equal(t, 2, l.Len())

	clock.Advance(5 * time.Second)
	assert.Equal(t, 1, l.Prune())
	assert.Equal(t, 1, l.Len())

	clock.Advance(time.Minute)
	assert.Equal(t, 1, l.Prune())
	assert.Equal(t, 0, l.Len())
}

func TestRateLimiterRunStops(t *testing.T) {
	l := NewRateLimiter(1, time.Millisecond)
	l.Allow("a")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx, time.Millisecond, zerolog.Nop())
		close(done)
	}()

	assert.Eventually(t, func() bool { return l.Len() == 0 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("janitor did not stop")
	}
}

func TestRateLimiterConcurrent(t *testing.T) {
	l := NewRateLimiter(50, time.Minute)
	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("same") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, allowed)
}
