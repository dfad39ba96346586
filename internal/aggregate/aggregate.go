// Package aggregate fans a search out to every configured provider and
// merges what comes back.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/amishk599/jobscout/internal/adapter"
	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/ratelimit"
)

// FailureDeadline is recorded for providers still running when the context
// ends.
const FailureDeadline = "deadline exceeded"

// Result is the union of one SearchAll call.
type Result struct {
	Postings []model.ScoredPosting
	Counts   map[string]int    // eligible postings per provider
	Raw      int               // postings seen before classification
	Failures map[string]string // provider -> last failure
}

// Coordinator runs providers concurrently. Each provider's queries run
// sequentially, paced by its own throttle.
type Coordinator struct {
	providers []adapter.Provider
	pacing    map[string]ratelimit.Config
	failures  adapter.FailureRecorder
	logger    *slog.Logger
}

// New creates a coordinator over providers in registration order. Providers
// missing from pacing use ratelimit.DefaultConfig. failures may be nil.
func New(providers []adapter.Provider, pacing map[string]ratelimit.Config, failures adapter.FailureRecorder, logger *slog.Logger) *Coordinator {
	if failures == nil {
		failures = nopRecorder{}
	}
	return &Coordinator{
		providers: providers,
		pacing:    pacing,
		failures:  failures,
		logger:    logger,
	}
}

type nopRecorder struct{}

func (nopRecorder) ProviderFailure(string, string) {}

// Configured returns the providers that can run, in registration order. A
// provider whose IsConfigured panics is left out.
func (c *Coordinator) Configured() []adapter.Provider {
	var active []adapter.Provider
	for i, p := range c.providers {
		if c.isConfigured(i, p) {
			active = append(active, p)
		}
	}
	return active
}

func (c *Coordinator) isConfigured(index int, p adapter.Provider) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			name := c.providerName(index, p)
			c.failures.ProviderFailure(name, "panic")
			c.logger.Error("provider configuration check panicked", "provider", name, "panic", r)
			ok = false
		}
	}()
	return p.IsConfigured()
}

// providerName returns p.Name, or a positional label when Name panics.
func (c *Coordinator) providerName(index int, p adapter.Provider) (name string) {
	defer func() {
		if r := recover(); r != nil {
			name = fmt.Sprintf("provider-%d", index)
			c.logger.Error("provider name panicked", "provider", name, "panic", r)
		}
	}()
	return p.Name()
}

type taskResult struct {
	index    int
	postings []model.ScoredPosting
	raw      int
	failure  string
}

// SearchAll queries every configured provider and returns the union.
//
// A provider that panics contributes nothing and gets a failure entry; its
// siblings are unaffected. When ctx ends before every provider reports, the
// stragglers are abandoned with a count of 0 and FailureDeadline.
func (c *Coordinator) SearchAll(ctx context.Context) Result {
	res := Result{
		Counts:   make(map[string]int),
		Failures: make(map[string]string),
	}

	active := c.Configured()
	if len(active) == 0 {
		c.logger.Warn("no providers configured")
		return res
	}

	names := make([]string, len(active))
	for i, p := range active {
		names[i] = c.providerName(i, p)
	}

	start := time.Now()
	ch := make(chan taskResult, len(active))
	for i, p := range active {
		go c.run(ctx, i, names[i], p, ch)
	}

	results := make([]*taskResult, len(active))
	pending := len(active)
wait:
	for pending > 0 {
		select {
		case r := <-ch:
			results[r.index] = &r
			pending--
		case <-ctx.Done():
			break wait
		}
	}
	// Keep anything that arrived alongside the deadline.
drain:
	for pending > 0 {
		select {
		case r := <-ch:
			results[r.index] = &r
			pending--
		default:
			break drain
		}
	}

	for i, name := range names {
		r := results[i]
		if r == nil {
			res.Counts[name] = 0
			res.Failures[name] = FailureDeadline
			c.failures.ProviderFailure(name, "timeout")
			c.logger.Warn("provider abandoned at deadline", "provider", name)
			continue
		}
		res.Counts[name] = len(r.postings)
		res.Raw += r.raw
		res.Postings = append(res.Postings, r.postings...)
		if r.failure != "" {
			res.Failures[name] = r.failure
		}
	}

	c.logger.Info("aggregated search complete",
		"providers", len(active),
		"raw", res.Raw,
		"eligible", len(res.Postings),
		"failures", len(res.Failures),
		"duration", time.Since(start).Round(time.Millisecond).String(),
	)
	return res
}

// run executes one provider's queries and always reports exactly once.
func (c *Coordinator) run(ctx context.Context, index int, name string, p adapter.Provider, ch chan<- taskResult) {
	out := taskResult{index: index}

	defer func() {
		if r := recover(); r != nil {
			c.failures.ProviderFailure(name, "panic")
			c.logger.Error("provider panicked", "provider", name, "panic", r)
			ch <- taskResult{index: index, failure: fmt.Sprintf("panic: %v", r)}
		}
	}()

	throttle := ratelimit.NewThrottle(c.pacingFor(name))
	for _, query := range p.Queries() {
		if err := throttle.Wait(ctx); err != nil {
			out.failure = FailureDeadline
			break
		}

		sr, err := p.Search(ctx, query)
		if err != nil {
			out.failure = c.handleError(name, query, err, throttle)
			continue
		}
		out.raw += sr.Raw
		out.postings = append(out.postings, sr.Postings...)
	}

	c.logger.Debug("provider finished",
		"provider", name,
		"raw", out.raw,
		"eligible", len(out.postings),
	)
	ch <- out
}

// handleError backs off on throttling and returns the failure label to record.
func (c *Coordinator) handleError(name, query string, err error, throttle *ratelimit.Throttle) string {
	if errors.Is(err, model.ErrThrottled) {
		var retryAfter time.Duration
		var httpErr *model.HTTPError
		if errors.As(err, &httpErr) {
			retryAfter = httpErr.RetryAfter
		}
		delay := throttle.Throttled(retryAfter)
		c.failures.ProviderFailure(name, "throttled")
		c.logger.Warn("provider throttled, backing off",
			"provider", name,
			"query", query,
			"delay", delay.String(),
			"retry_after", retryAfter.String(),
		)
		return "throttled"
	}

	kind := model.ErrorKind(err)
	c.failures.ProviderFailure(name, kind)
	c.logger.Warn("provider query failed", "provider", name, "query", query, "error", err)
	return kind
}

func (c *Coordinator) pacingFor(name string) ratelimit.Config {
	if cfg, ok := c.pacing[name]; ok {
		return cfg
	}
	return ratelimit.DefaultConfig()
}
