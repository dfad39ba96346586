// Package retry provides an http.RoundTripper that retries transient
// failures with exponential backoff and jitter.
package retry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"time"
)

// Transport retries network errors and 5xx responses. 429 is returned
// untouched so the caller's pacing logic sees it.
type Transport struct {
	base       http.RoundTripper
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// New wraps base with retry logic. maxRetries is the number of additional
// attempts after the first failure; baseDelay doubles on each retry.
// A nil base selects http.DefaultTransport.
func New(base http.RoundTripper, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{
		base:       base,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
	}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	// A consumed body cannot be replayed.
	replayable := req.Body == nil || req.Body == http.NoBody || req.GetBody != nil

	resp, err := t.base.RoundTrip(req)
	for attempt := 1; attempt <= t.maxRetries && replayable && shouldRetry(req.Context(), resp, err); attempt++ {
		delay := t.backoffDelay(attempt, resp)
		t.logger.Warn("retrying after transient error",
			"host", req.URL.Host,
			"attempt", attempt,
			"max_retries", t.maxRetries,
			"delay", delay,
			"status", statusOf(resp),
			"error", err,
		)
		if resp != nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
		}

		select {
		case <-req.Context().Done():
			return nil, fmt.Errorf("retry cancelled: %w", req.Context().Err())
		case <-time.After(delay):
		}

		next := req
		if req.GetBody != nil {
			body, gerr := req.GetBody()
			if gerr != nil {
				return nil, fmt.Errorf("rewinding request body: %w", gerr)
			}
			next = req.Clone(req.Context())
			next.Body = body
		}
		resp, err = t.base.RoundTrip(next)
	}
	return resp, err
}

// shouldRetry reports whether the outcome of one attempt is transient.
func shouldRetry(ctx context.Context, resp *http.Response, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	if err != nil {
		return true
	}
	return resp.StatusCode >= 500
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
// A Retry-After header on the failed response takes precedence.
func (t *Transport) backoffDelay(attempt int, resp *http.Response) time.Duration {
	if resp != nil {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}

	delay := t.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	jitter := float64(delay) * 0.3
	delay = time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
	if delay < 0 {
		delay = 0
	}
	return delay
}

func statusOf(resp *http.Response) int {
	if resp == nil {
		return 0
	}
	return resp.StatusCode
}
