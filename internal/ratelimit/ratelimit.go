// Package ratelimit provides per-client sliding-window admission control.
// Abusive traffic is gated here before any upstream gateway call is made.
package ratelimit

import (
	"log"
	"sync"
	"time"
)

// window tracks one client key's current window.
type window struct {
	start time.Time
	count int
}

// Limiter admits at most `limit` requests per client key within a sliding
// window. Instances are independent: the service runs a strict one for the
// status endpoint and a looser one for payment creation.
type Limiter struct {
	mu      sync.Mutex
	windows map[string]*window

	limit      int
	windowSize time.Duration

	sweepDone chan struct{}
	sweepOnce sync.Once
}

// New creates a Limiter with the given policy.
func New(limit int, windowSize time.Duration) *Limiter {
	return &Limiter{
		windows:    make(map[string]*window),
		limit:      limit,
		windowSize: windowSize,
		sweepDone:  make(chan struct{}),
	}
}

// Allow records a request for the client key and reports whether it is
// admitted. The read-increment-compare sequence runs under the mutex
// because keys are shared across concurrent requests.
func (l *Limiter) Allow(clientKey string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, exists := l.windows[clientKey]
	if !exists || now.Sub(w.start) > l.windowSize {
		w = &window{start: now}
		l.windows[clientKey] = w
	}

	w.count++
	return w.count <= l.limit
}

// StartSweeper launches a background goroutine that periodically evicts
// windows that have fully elapsed. Without this, every client IP ever
// seen would stay in memory forever.
func (l *Limiter) StartSweeper(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				l.sweep()
			case <-l.sweepDone:
				return
			}
		}
	}()
}

// Stop terminates the sweeper goroutine.
func (l *Limiter) Stop() {
	l.sweepOnce.Do(func() { close(l.sweepDone) })
}

// sweep drops every window older than the window size.
func (l *Limiter) sweep() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	evicted := 0
	for key, w := range l.windows {
		if now.Sub(w.start) > l.windowSize {
			delete(l.windows, key)
			evicted++
		}
	}

	if evicted > 0 {
		log.Printf("rate limiter evicted %d expired client windows", evicted)
	}
}
