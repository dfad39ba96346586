package main

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"slices"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/amishk599/jobscout/internal/adapter"
	"github.com/amishk599/jobscout/internal/aggregate"
	"github.com/amishk599/jobscout/internal/classify"
	"github.com/amishk599/jobscout/internal/config"
	"github.com/amishk599/jobscout/internal/dedup"
	"github.com/amishk599/jobscout/internal/lock"
	"github.com/amishk599/jobscout/internal/metrics"
	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/scan"
	"github.com/amishk599/jobscout/internal/scheduler"
	"github.com/amishk599/jobscout/internal/store"
)

// pipeline is the wired scan path shared by start, scan, check and cleanup.
type pipeline struct {
	cfg         *config.Config
	store       store.Store
	registry    *prometheus.Registry
	recorder    *metrics.Recorder
	coordinator *aggregate.Coordinator
	service     *scan.Service
	locker      *lock.RedisLocker // nil unless lock.redis_url is set
	logger      *slog.Logger
}

func newPipeline(ctx context.Context, cfg *config.Config, st store.Store, n model.Notifier, logger *slog.Logger) (*pipeline, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewRecorder(registry)

	deps := adapter.Deps{
		Scorer:   classify.New(classify.DefaultTables(), cfg.Scoring),
		Failures: recorder,
		Logger:   logger,
	}
	providers := buildProviders(cfg, deps, func(provider string) *http.Client {
		return newHTTPClient(cfg, recorder.InstrumentTransport(provider, nil), logger)
	})
	coordinator := aggregate.New(providers, cfg.Pacing(), recorder, logger)

	service := scan.NewService(scan.Deps{
		Searcher: coordinator,
		Store:    st,
		Notifier: n,
		Metrics:  recorder,
		Detector: dedup.New(cfg.Dedup.Thresholds(), cfg.Dedup.Normalizer()),
		Logger:   logger,
	}, scan.Options{
		Fuzzy:         cfg.Dedup.Fuzzy,
		FuzzyWindow:   cfg.Dedup.FuzzyWindow,
		SearchTimeout: cfg.Schedule.ScanTimeout,
	})

	p := &pipeline{
		cfg:         cfg,
		store:       st,
		registry:    registry,
		recorder:    recorder,
		coordinator: coordinator,
		service:     service,
		logger:      logger,
	}

	if cfg.Lock.RedisURL != "" {
		locker, err := lock.NewRedisLocker(ctx, cfg.Lock.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("scan lock: %w", err)
		}
		p.locker = locker
		logger.Info("scan lock enabled")
	}

	for _, prov := range providers {
		logger.Info("registered provider",
			"name", prov.Name(),
			"configured", prov.IsConfigured(),
			"queries", len(prov.Queries()),
		)
	}
	return p, nil
}

func (p *pipeline) scheduler() (*scheduler.Scheduler, error) {
	var locker scheduler.Locker
	if p.locker != nil {
		locker = p.locker
	}
	sched, err := scheduler.New(scheduler.Config{
		ScanSpec:    p.cfg.Schedule.ScanCron,
		CleanupSpec: p.cfg.Schedule.CleanupCron,
		ScanTimeout: p.cfg.Schedule.ScanTimeout,
		LockTTL:     p.cfg.Schedule.ScanTimeout + scan.DefaultMergeTimeout,
		Retention:   p.cfg.Store.Retention,
		StaleAfter:  p.cfg.Store.StaleAfter,
		RunOnStart:  p.cfg.Schedule.RunOnStart,
	}, p.service, p.store, locker, p.logger)
	if err != nil {
		return nil, err
	}
	sched.ReportStatsTo(p.recorder)
	return sched, nil
}

func (p *pipeline) Close() {
	if p.locker != nil {
		if err := p.locker.Close(); err != nil {
			p.logger.Warn("closing redis client", "error", err)
		}
	}
}

func printOutcome(o model.ScanOutcome) {
	fmt.Printf("scan %s: %s\n", o.ID, o.Status)
	fmt.Printf("  found %d, eligible %d, new %d\n", o.Found, o.Eligible, o.New)
	for _, name := range slices.Sorted(maps.Keys(o.ProviderCounts)) {
		line := fmt.Sprintf("  %-12s %d", name, o.ProviderCounts[name])
		if msg, ok := o.Failures[name]; ok {
			line += "  (" + msg + ")"
		}
		fmt.Println(line)
	}
	if o.Error != "" {
		fmt.Printf("  error: %s\n", o.Error)
	}
}
