// Package scan runs one ingestion cycle: search every provider, merge the
// results into the job store and report what was new.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/amishk599/jobscout/internal/aggregate"
	"github.com/amishk599/jobscout/internal/dedup"
	"github.com/amishk599/jobscout/internal/model"
)

const (
	// DefaultFuzzyWindow bounds how many stored jobs fuzzy matching compares
	// against.
	DefaultFuzzyWindow = 500

	// DefaultMergeTimeout bounds the store phase of a scan.
	DefaultMergeTimeout = 2 * time.Minute
)

// Searcher fans a search out to the providers.
type Searcher interface {
	SearchAll(ctx context.Context) aggregate.Result
}

// OutcomeRecorder receives every finished scan, e.g. for metrics.
type OutcomeRecorder interface {
	ScanFinished(o model.ScanOutcome)
}

// Deps bundles the collaborators of a Service.
type Deps struct {
	Searcher Searcher
	Store    model.JobStore
	Notifier model.Notifier  // optional
	Metrics  OutcomeRecorder // optional
	Detector *dedup.Detector // used only when fuzzy merge is on
	Logger   *slog.Logger
}

// Options tune a scan.
type Options struct {
	Fuzzy       bool // also drop postings that fuzzily match a recent job
	FuzzyWindow int  // recent jobs loaded for fuzzy matching

	// SearchTimeout bounds the provider fan-out on top of any deadline ctx
	// already carries. Zero means ctx alone.
	SearchTimeout time.Duration
	// MergeTimeout bounds storing the results. The merge does not inherit
	// ctx's deadline or cancellation.
	MergeTimeout time.Duration
}

// Service runs scans. At most one RunScan may be in flight at a time; the
// store's exists-check and insert are not atomic together.
type Service struct {
	searcher Searcher
	store    model.JobStore
	notifier model.Notifier
	metrics  OutcomeRecorder
	detector *dedup.Detector
	opts     Options
	logger   *slog.Logger
	now      func() time.Time
}

// NewService creates a scan service.
func NewService(deps Deps, opts Options) *Service {
	if opts.FuzzyWindow <= 0 {
		opts.FuzzyWindow = DefaultFuzzyWindow
	}
	if opts.MergeTimeout <= 0 {
		opts.MergeTimeout = DefaultMergeTimeout
	}
	detector := deps.Detector
	if detector == nil {
		detector = dedup.New(dedup.DefaultThresholds(), nil)
	}
	return &Service{
		searcher: deps.Searcher,
		store:    deps.Store,
		notifier: deps.Notifier,
		metrics:  deps.Metrics,
		detector: detector,
		opts:     opts,
		logger:   deps.Logger,
		now:      time.Now,
	}
}

// RunScan executes one ingestion cycle.
//
// Provider failures never fail a scan; they appear in the outcome's
// Failures. A store error does: the outcome is recorded as failed and the
// error returned. Jobs inserted before the error stay inserted.
//
// ctx ending during the search abandons the providers still running, and
// whatever the finished ones returned is still merged and stored.
func (s *Service) RunScan(ctx context.Context) (model.ScanOutcome, error) {
	outcome := model.ScanOutcome{
		ID:        uuid.NewString(),
		StartedAt: s.now().UTC(),
		Status:    model.ScanRunning,
	}
	logger := s.logger.With("scan_id", outcome.ID)

	if err := s.store.RecordScanOutcome(ctx, outcome); err != nil {
		return s.fail(ctx, logger, outcome, fmt.Errorf("recording scan start: %w", err))
	}
	logger.Info("scan started")

	res := s.search(ctx)
	outcome.Found = res.Raw
	outcome.Eligible = len(res.Postings)
	outcome.ProviderCounts = res.Counts
	outcome.Failures = res.Failures

	mergeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.MergeTimeout)
	defer cancel()

	newJobs, err := s.merge(mergeCtx, logger, res.Postings)
	outcome.New = len(newJobs)
	if err != nil {
		return s.fail(mergeCtx, logger, outcome, err)
	}

	completed := s.now().UTC()
	outcome.CompletedAt = &completed
	outcome.Status = model.ScanCompleted
	if err := s.store.RecordScanOutcome(mergeCtx, outcome); err != nil {
		return s.fail(mergeCtx, logger, outcome, fmt.Errorf("recording scan completion: %w", err))
	}
	if s.metrics != nil {
		s.metrics.ScanFinished(outcome)
	}

	if len(newJobs) > 0 && s.notifier != nil {
		if err := s.notifier.Notify(newJobs); err != nil {
			logger.Warn("notifying new jobs failed", "new", len(newJobs), "error", err)
		}
	}

	logger.Info("scan complete",
		"found", outcome.Found,
		"eligible", outcome.Eligible,
		"new", outcome.New,
		"failures", len(outcome.Failures),
		"duration", completed.Sub(outcome.StartedAt).Round(time.Millisecond).String(),
	)
	return outcome, nil
}

func (s *Service) search(ctx context.Context) aggregate.Result {
	if s.opts.SearchTimeout <= 0 {
		return s.searcher.SearchAll(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, s.opts.SearchTimeout)
	defer cancel()
	return s.searcher.SearchAll(ctx)
}

// fail records the outcome as failed and returns err. Recording uses a
// context detached from cancellation so a cancelled scan still leaves a row.
func (s *Service) fail(ctx context.Context, logger *slog.Logger, outcome model.ScanOutcome, err error) (model.ScanOutcome, error) {
	completed := s.now().UTC()
	outcome.CompletedAt = &completed
	outcome.Status = model.ScanFailed
	outcome.Error = err.Error()

	if rerr := s.store.RecordScanOutcome(context.WithoutCancel(ctx), outcome); rerr != nil {
		logger.Error("recording failed scan", "error", rerr)
	}
	if s.metrics != nil {
		s.metrics.ScanFinished(outcome)
	}
	logger.Error("scan failed", "new", outcome.New, "error", err)
	return outcome, err
}

// merge inserts the postings that are not already stored and returns the
// inserted jobs in input order.
func (s *Service) merge(ctx context.Context, logger *slog.Logger, postings []model.ScoredPosting) ([]model.Job, error) {
	var (
		inserted []model.Job
		seen     = make(map[string]struct{}, len(postings))
		window   []dedup.Posting
		loaded   bool
	)

	for _, p := range postings {
		if p.URL == "" {
			continue
		}
		if _, dup := seen[p.URL]; dup {
			continue
		}
		seen[p.URL] = struct{}{}

		found, err := s.store.FindByURL(ctx, p.URL)
		if err != nil {
			return inserted, fmt.Errorf("checking url: %w", err)
		}
		if found {
			continue
		}

		if p.Title != "" && p.Company != "" {
			found, err := s.store.FindByTitleCompany(ctx, p.Title, p.Company)
			if err != nil {
				return inserted, fmt.Errorf("checking title and company: %w", err)
			}
			if found {
				continue
			}
		}

		candidate := dedup.Posting{Title: p.Title, Company: p.Company, Location: p.Location}
		if s.opts.Fuzzy {
			if !loaded {
				if window, err = s.loadWindow(ctx); err != nil {
					return inserted, err
				}
				loaded = true
			}
			if m, ok := s.detector.FindBestMatch(candidate, window); ok {
				logger.Debug("skipping fuzzy duplicate",
					"url", p.URL,
					"matches", window[m.Index].Title+" @ "+window[m.Index].Company,
					"confidence", m.Confidence,
				)
				continue
			}
		}

		job, err := s.store.Insert(ctx, p)
		if err != nil {
			return inserted, fmt.Errorf("inserting posting: %w", err)
		}
		inserted = append(inserted, job)
		if s.opts.Fuzzy {
			window = append(window, candidate)
		}
	}
	return inserted, nil
}

// loadWindow returns recent stored jobs as fuzzy-match candidates. Stores
// that cannot list jobs contribute nothing.
func (s *Service) loadWindow(ctx context.Context) ([]dedup.Posting, error) {
	src, ok := s.store.(model.CandidateSource)
	if !ok {
		return nil, nil
	}
	jobs, err := src.RecentJobs(ctx, s.opts.FuzzyWindow)
	if err != nil {
		return nil, fmt.Errorf("loading fuzzy match window: %w", err)
	}
	window := make([]dedup.Posting, 0, len(jobs))
	for _, j := range jobs {
		window = append(window, dedup.Posting{Title: j.Title, Company: j.Company, Location: j.Location})
	}
	return window, nil
}
