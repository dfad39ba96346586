// Package ratelimit paces the queries a provider issues and slows down when
// the provider signals throttling.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Config controls one provider's pacing.
type Config struct {
	Delay    time.Duration // initial gap between queries
	Step     time.Duration // added to the gap on every throttle
	MaxDelay time.Duration // ceiling for the gap
	Pause    time.Duration // extra wait after a throttle
	MaxPause time.Duration // ceiling for a server-requested Retry-After
}

// DefaultConfig returns the pacing used when a provider sets nothing.
func DefaultConfig() Config {
	return Config{
		Delay:    time.Second,
		Step:     500 * time.Millisecond,
		MaxDelay: 3 * time.Second,
		Pause:    5 * time.Second,
		MaxPause: time.Minute,
	}
}

// Throttle enforces a minimum gap between requests to one provider. The gap
// grows each time the provider throttles, bounded by MaxDelay.
type Throttle struct {
	mu          sync.Mutex
	cfg         Config
	delay       time.Duration
	limiter     *rate.Limiter
	pausedUntil time.Time
}

// NewThrottle creates a throttle starting at cfg.Delay. A zero delay means
// no pacing until the first throttle.
func NewThrottle(cfg Config) *Throttle {
	if cfg.MaxDelay < cfg.Delay {
		cfg.MaxDelay = cfg.Delay
	}
	if cfg.MaxPause <= 0 {
		cfg.MaxPause = DefaultConfig().MaxPause
	}
	if cfg.MaxPause < cfg.Pause {
		cfg.MaxPause = cfg.Pause
	}
	return &Throttle{
		cfg:     cfg,
		delay:   cfg.Delay,
		limiter: rate.NewLimiter(every(cfg.Delay), 1),
	}
}

// Wait blocks until the next request may be sent.
func (t *Throttle) Wait(ctx context.Context) error {
	t.mu.Lock()
	pause := time.Until(t.pausedUntil)
	t.mu.Unlock()

	if pause > 0 {
		timer := time.NewTimer(pause)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return fmt.Errorf("throttle pause: %w", ctx.Err())
		case <-timer.C:
		}
	}

	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("throttle wait: %w", err)
	}
	return nil
}

// Throttled records a throttling signal. The next Wait pauses for the larger
// of Pause and retryAfter, capped at MaxPause, and the gap grows by Step. It
// returns the new gap.
func (t *Throttle) Throttled(retryAfter time.Duration) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.delay = min(t.delay+t.cfg.Step, t.cfg.MaxDelay)
	t.limiter.SetLimit(every(t.delay))
	t.pausedUntil = time.Now().Add(t.pauseFor(retryAfter))
	return t.delay
}

func (t *Throttle) pauseFor(retryAfter time.Duration) time.Duration {
	return min(max(t.cfg.Pause, retryAfter), t.cfg.MaxPause)
}

// Delay returns the current gap between requests.
func (t *Throttle) Delay() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.delay
}

func every(d time.Duration) rate.Limit {
	if d <= 0 {
		return rate.Inf
	}
	return rate.Every(d)
}
