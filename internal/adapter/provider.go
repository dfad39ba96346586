package adapter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/amishk599/jobscout/internal/model"
)

// Provider queries one external job search API. Search returns only
// eligible postings.
//
// Ordinary failures (timeouts, non-2xx, bad payloads) are logged, reported to
// the FailureRecorder and surface as an empty result with a nil error. The
// only error a Provider returns is a throttling signal, matched by
// errors.Is(err, model.ErrThrottled), so the caller can back off.
type Provider interface {
	Name() string
	IsConfigured() bool
	Queries() []string
	Search(ctx context.Context, query string) (model.SearchResult, error)
}

// Scorer turns a mapped posting into a scored one.
type Scorer interface {
	Score(p model.RawPosting) model.ScoredPosting
}

// FailureRecorder receives a label for every recovered provider failure.
type FailureRecorder interface {
	ProviderFailure(provider, kind string)
}

type nopRecorder struct{}

func (nopRecorder) ProviderFailure(string, string) {}

// Deps bundles the collaborators every adapter needs.
type Deps struct {
	Client   *http.Client
	Scorer   Scorer
	Failures FailureRecorder // optional
	Logger   *slog.Logger
}

type base struct {
	name     string
	client   *http.Client
	scorer   Scorer
	failures FailureRecorder
	logger   *slog.Logger
}

func newBase(name string, deps Deps) base {
	failures := deps.Failures
	if failures == nil {
		failures = nopRecorder{}
	}
	client := deps.Client
	if client == nil {
		client = http.DefaultClient
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return base{
		name:     name,
		client:   client,
		scorer:   deps.Scorer,
		failures: failures,
		logger:   logger,
	}
}

// fail applies the error contract for a failed query.
func (b *base) fail(query string, err error) (model.SearchResult, error) {
	if errors.Is(err, model.ErrThrottled) {
		return model.SearchResult{}, fmt.Errorf("%s search %q: %w", b.name, query, err)
	}

	kind := model.ErrorKind(err)
	b.failures.ProviderFailure(b.name, kind)
	b.logger.Warn("provider search failed",
		"provider", b.name,
		"query", query,
		"kind", kind,
		"error", err,
	)
	return model.SearchResult{}, nil
}

// keep scores raw postings and drops the ineligible ones.
func (b *base) keep(raw []model.RawPosting) model.SearchResult {
	result := model.SearchResult{Raw: len(raw)}
	for _, p := range raw {
		sp := b.scorer.Score(p)
		if !sp.Eligible {
			continue
		}
		result.Postings = append(result.Postings, sp)
	}
	b.logger.Debug("provider results mapped",
		"provider", b.name,
		"raw", result.Raw,
		"eligible", len(result.Postings),
	)
	return result
}
