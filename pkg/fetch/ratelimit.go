package fetch

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// RateLimiter spaces requests to the same host
type RateLimiter struct {
	last         map[string]time.Time // host -> last request attempt
	mu           sync.Mutex
	defaultDelay time.Duration
	log          *logrus.Entry
}

// NewRateLimiter creates a RateLimiter falling back to defaultDelay
func NewRateLimiter(defaultDelay time.Duration, log *logrus.Entry) *RateLimiter {
	return &RateLimiter{
		last:         make(map[string]time.Time),
		defaultDelay: defaultDelay,
		log:          log,
	}
}

// ApplyDelay waits until minDelay (+/- 10% jitter) has passed since the last request to host.
// Returns early when ctx is done.
func (rl *RateLimiter) ApplyDelay(ctx context.Context, host string, minDelay time.Duration) {
	if minDelay <= 0 {
		minDelay = rl.defaultDelay
	}
	if minDelay <= 0 {
		return
	}

	rl.mu.Lock()
	lastReq, seen := rl.last[host]
	rl.mu.Unlock()
	if !seen {
		return
	}

	elapsed := time.Since(lastReq)
	wait := minDelay - elapsed
	if wait <= 0 {
		return
	}
	if spread := int64(wait) / 5; spread > 0 {
		wait += time.Duration(rand.Int63n(spread)) - wait/10
	}
	if wait <= 0 {
		return
	}

	rl.log.WithFields(logrus.Fields{
		"host": host, "sleep": wait, "required_delay": minDelay, "elapsed": elapsed,
	}).Debug("Rate limit applying sleep")

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}

// UpdateLastRequestTime records now as the last request time for host.
// Call it after each request attempt.
func (rl *RateLimiter) UpdateLastRequestTime(host string) {
	rl.mu.Lock()
	rl.last[host] = time.Now()
	rl.mu.Unlock()
}
