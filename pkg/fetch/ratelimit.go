package fetch

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// RateLimiter enforces a minimum delay between requests to the same host and
// an optional global requests-per-second cap across all hosts
type RateLimiter struct {
	hostLastRequest   map[string]time.Time // hostname -> last request attempt time
	hostLastRequestMu sync.Mutex
	defaultDelay      time.Duration
	global            *rate.Limiter // nil when no global cap is configured
	log               *logrus.Entry
}

// NewRateLimiter creates a RateLimiter. requestsPerSecond <= 0 disables the global cap.
func NewRateLimiter(defaultDelay time.Duration, requestsPerSecond float64, log *logrus.Entry) *RateLimiter {
	rl := &RateLimiter{
		hostLastRequest: make(map[string]time.Time),
		defaultDelay:    defaultDelay,
		log:             log.WithField("component", "rate_limiter"),
	}
	if requestsPerSecond > 0 {
		burst := int(requestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		rl.global = rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
	}
	return rl
}

// Wait blocks until a request to host is allowed by both the per-host delay and
// the global cap. It does not record the request; call UpdateLastRequestTime after it.
func (rl *RateLimiter) Wait(ctx context.Context, host string) error {
	if err := rl.ApplyDelay(ctx, host, rl.defaultDelay); err != nil {
		return err
	}
	if rl.global != nil {
		return rl.global.Wait(ctx)
	}
	return nil
}

// ApplyDelay sleeps while less than minDelay (+/-10% jitter) has passed since
// the last request to host. Returns ctx.Err() if the context ends first.
func (rl *RateLimiter) ApplyDelay(ctx context.Context, host string, minDelay time.Duration) error {
	if minDelay <= 0 {
		minDelay = rl.defaultDelay
	}
	if minDelay <= 0 {
		return ctx.Err()
	}
	host = strings.ToLower(host)

	rl.hostLastRequestMu.Lock()
	lastReqTime, exists := rl.hostLastRequest[host]
	rl.hostLastRequestMu.Unlock()
	if !exists {
		return ctx.Err()
	}

	elapsed := time.Since(lastReqTime)
	if elapsed >= minDelay {
		return ctx.Err()
	}
	sleepDuration := minDelay - elapsed
	if jitterRange := int64(sleepDuration) / 5; jitterRange > 0 {
		sleepDuration += time.Duration(rand.Int63n(jitterRange)) - sleepDuration/10
	}
	if sleepDuration <= 0 {
		return ctx.Err()
	}

	rl.log.WithFields(logrus.Fields{
		"host": host, "sleep": sleepDuration, "required_delay": minDelay, "elapsed": elapsed,
	}).Debug("Rate limit applying sleep")

	timer := time.NewTimer(sleepDuration)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpdateLastRequestTime records now as the last request attempt to host
func (rl *RateLimiter) UpdateLastRequestTime(host string) {
	rl.hostLastRequestMu.Lock()
	rl.hostLastRequest[strings.ToLower(host)] = time.Now()
	rl.hostLastRequestMu.Unlock()
}
