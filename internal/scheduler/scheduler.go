// Package scheduler triggers scans and store maintenance on cron schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/amishk599/jobscout/internal/model"
)

const (
	DefaultScanSpec    = "0 6 * * mon,wed,sat"
	DefaultCleanupSpec = "0 3 * * *"

	scanLockKey = "jobscout:scan"
)

// ErrLocked is returned when another process holds the scan lock.
var ErrLocked = errors.New("scan already running elsewhere")

// Scanner runs one ingestion cycle.
type Scanner interface {
	RunScan(ctx context.Context) (model.ScanOutcome, error)
}

// Maintainer prunes and ages stored jobs.
type Maintainer interface {
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
	MarkStale(ctx context.Context, olderThan time.Duration) (int64, error)
	Stats(ctx context.Context) (model.StoreStats, error)
}

// StatsSink receives store totals after every scan and cleanup.
type StatsSink interface {
	StoreStats(st model.StoreStats)
}

// Locker guards scans across processes.
type Locker interface {
	TryAcquire(ctx context.Context, key string, ttl time.Duration) (release func(context.Context) error, acquired bool, err error)
}

// Config holds the schedules and maintenance windows.
type Config struct {
	ScanSpec    string
	CleanupSpec string
	ScanTimeout time.Duration
	LockTTL     time.Duration // defaults to ScanTimeout
	Retention   time.Duration // jobs older than this are deleted
	StaleAfter  time.Duration // new jobs older than this become stale
	RunOnStart  bool
}

// Scheduler owns the cron loop.
type Scheduler struct {
	cron    *cron.Cron
	cfg     Config
	scanner Scanner
	maint   Maintainer
	locker  Locker
	stats   StatsSink
	logger  *slog.Logger
	ctx     context.Context
	scanID  cron.EntryID
}

// New validates the cron specs and registers both jobs. locker may be nil.
func New(cfg Config, scanner Scanner, maint Maintainer, locker Locker, logger *slog.Logger) (*Scheduler, error) {
	if cfg.ScanSpec == "" {
		cfg.ScanSpec = DefaultScanSpec
	}
	if cfg.CleanupSpec == "" {
		cfg.CleanupSpec = DefaultCleanupSpec
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = 10 * time.Minute
	}
	if cfg.LockTTL < cfg.ScanTimeout {
		cfg.LockTTL = cfg.ScanTimeout
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 30 * 24 * time.Hour
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 7 * 24 * time.Hour
	}

	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		cfg:     cfg,
		scanner: scanner,
		maint:   maint,
		locker:  locker,
		logger:  logger,
		ctx:     context.Background(),
	}

	id, err := s.cron.AddFunc(cfg.ScanSpec, func() { s.scanJob() })
	if err != nil {
		return nil, fmt.Errorf("scan schedule %q: %w", cfg.ScanSpec, err)
	}
	s.scanID = id
	if _, err := s.cron.AddFunc(cfg.CleanupSpec, func() { s.cleanupJob() }); err != nil {
		return nil, fmt.Errorf("cleanup schedule %q: %w", cfg.CleanupSpec, err)
	}
	return s, nil
}

// Run starts the cron loop and blocks until ctx is cancelled. Running jobs
// are allowed to finish before it returns.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	s.logger.Info("starting scheduler",
		"scan", s.cfg.ScanSpec,
		"cleanup", s.cfg.CleanupSpec,
	)

	s.cron.Start()
	if s.cfg.RunOnStart {
		// The wrapped job shares SkipIfStillRunning with scheduled runs.
		go s.cron.Entry(s.scanID).WrappedJob.Run()
	}

	<-ctx.Done()
	s.logger.Info("shutting down scheduler")
	<-s.cron.Stop().Done()
	return nil
}

// ReportStatsTo publishes store totals to sink after each scan and cleanup.
func (s *Scheduler) ReportStatsTo(sink StatsSink) {
	s.stats = sink
}

// Next returns the next scheduled scan time after now.
func (s *Scheduler) Next() time.Time {
	sched, err := cron.ParseStandard(s.cfg.ScanSpec)
	if err != nil {
		return time.Time{}
	}
	return sched.Next(time.Now().UTC())
}

func (s *Scheduler) scanJob() {
	if _, err := s.RunScan(s.ctx); err != nil {
		if errors.Is(err, ErrLocked) {
			s.logger.Info("skipping scan, lock held elsewhere")
			return
		}
		s.logger.Error("scheduled scan failed", "error", err)
	}
}

func (s *Scheduler) cleanupJob() {
	if err := s.RunCleanup(s.ctx); err != nil {
		s.logger.Error("scheduled cleanup failed", "error", err)
	}
}

// RunScan runs one scan bounded by ScanTimeout, holding the scan lock for up
// to LockTTL when a locker is configured.
func (s *Scheduler) RunScan(ctx context.Context) (model.ScanOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ScanTimeout)
	defer cancel()

	if s.locker != nil {
		release, ok, err := s.locker.TryAcquire(ctx, scanLockKey, s.cfg.LockTTL)
		if err != nil {
			return model.ScanOutcome{}, err
		}
		if !ok {
			return model.ScanOutcome{}, ErrLocked
		}
		defer func() {
			if err := release(context.WithoutCancel(ctx)); err != nil {
				s.logger.Warn("releasing scan lock", "error", err)
			}
		}()
	}

	outcome, err := s.scanner.RunScan(ctx)
	s.reportStats(context.WithoutCancel(ctx))
	return outcome, err
}

// RunCleanup deletes jobs past retention and marks aging new jobs stale.
func (s *Scheduler) RunCleanup(ctx context.Context) error {
	deleted, err := s.maint.Cleanup(ctx, s.cfg.Retention)
	if err != nil {
		return fmt.Errorf("cleanup: %w", err)
	}
	stale, err := s.maint.MarkStale(ctx, s.cfg.StaleAfter)
	if err != nil {
		return fmt.Errorf("mark stale: %w", err)
	}
	s.logger.Info("cleanup complete", "deleted", deleted, "marked_stale", stale)
	s.reportStats(ctx)
	return nil
}

func (s *Scheduler) reportStats(ctx context.Context) {
	if s.stats == nil {
		return
	}
	st, err := s.maint.Stats(ctx)
	if err != nil {
		s.logger.Warn("reading store stats", "error", err)
		return
	}
	s.stats.StoreStats(st)
}

// cronLogger routes robfig/cron's logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
