package scan

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/amishk599/jobscout/internal/adapter"
	"github.com/amishk599/jobscout/internal/aggregate"
	"github.com/amishk599/jobscout/internal/model"
	"github.com/amishk599/jobscout/internal/ratelimit"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSearcher struct {
	res aggregate.Result
}

func (f *fakeSearcher) SearchAll(context.Context) aggregate.Result { return f.res }

// memStore is an in-memory JobStore and CandidateSource. Like a real store
// it refuses work on an ended context.
type memStore struct {
	mu            sync.Mutex
	jobs          []model.Job
	outcomes      []model.ScanOutcome
	titleChecks   int
	failInsertURL string
	failRecord    bool
}

func (m *memStore) FindByURL(ctx context.Context, url string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.URL == url {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) FindByTitleCompany(ctx context.Context, title, company string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.titleChecks++
	for _, j := range m.jobs {
		if j.Title == title && j.Company == company {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) Insert(ctx context.Context, p model.ScoredPosting) (model.Job, error) {
	if err := ctx.Err(); err != nil {
		return model.Job{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.URL == m.failInsertURL {
		return model.Job{}, errors.New("disk full")
	}
	job := model.JobFromPosting(p)
	job.ID = int64(len(m.jobs) + 1)
	m.jobs = append(m.jobs, job)
	return job, nil
}

func (m *memStore) RecordScanOutcome(ctx context.Context, o model.ScanOutcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failRecord {
		return errors.New("database is locked")
	}
	m.outcomes = append(m.outcomes, o)
	return nil
}

func (m *memStore) RecentJobs(_ context.Context, limit int) ([]model.Job, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.Job, 0, limit)
	for i := len(m.jobs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.jobs[i])
	}
	return out, nil
}

type fakeNotifier struct {
	got []model.Job
	err error
}

func (f *fakeNotifier) Notify(jobs []model.Job) error {
	f.got = append(f.got, jobs...)
	return f.err
}

type fakeMetrics struct {
	outcomes []model.ScanOutcome
}

func (f *fakeMetrics) ScanFinished(o model.ScanOutcome) { f.outcomes = append(f.outcomes, o) }

func sp(title, company, location, url string) model.ScoredPosting {
	return model.ScoredPosting{
		RawPosting: model.RawPosting{Title: title, Company: company, Location: location, URL: url, Source: "test"},
		Score:      30,
		Eligible:   true,
	}
}

func result(postings ...model.ScoredPosting) aggregate.Result {
	return aggregate.Result{
		Postings: postings,
		Counts:   map[string]int{"test": len(postings)},
		Raw:      len(postings) * 3,
		Failures: map[string]string{"adzuna": "throttled"},
	}
}

func TestRunScan_MergeRules(t *testing.T) {
	store := &memStore{jobs: []model.Job{
		{ID: 1, Title: "Stored", Company: "Acme", URL: "https://stored.example"},
		{ID: 2, Title: "IAM Analyst", Company: "Globex", URL: "https://other.example"},
	}}
	notifier := &fakeNotifier{}
	metrics := &fakeMetrics{}

	svc := NewService(Deps{
		Searcher: &fakeSearcher{res: result(
			sp("No URL", "Acme", "", ""),
			sp("Fresh", "Acme", "Austin, TX", "https://fresh.example"),
			sp("Fresh again", "Acme", "Austin, TX", "https://fresh.example"),
			sp("Stored", "Acme", "", "https://stored.example"),
			sp("IAM Analyst", "Globex", "", "https://repost.example"),
			sp("No Company", "", "", "https://nocompany.example"),
		)},
		Store:    store,
		Notifier: notifier,
		Metrics:  metrics,
		Logger:   discardLogger(),
	}, Options{})

	outcome, err := svc.RunScan(context.Background())
	if err != nil {
		t.Fatalf("RunScan: %v", err)
	}

	if outcome.Status != model.ScanCompleted || outcome.CompletedAt == nil {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
	if outcome.New != 2 {
		t.Errorf("New = %d, want 2", outcome.New)
	}
	if outcome.Eligible != 6 || outcome.Found != 18 {
		t.Errorf("Eligible/Found = %d/%d, want 6/18", outcome.Eligible, outcome.Found)
	}
	if outcome.Failures["adzuna"] != "throttled" || outcome.ProviderCounts["test"] != 6 {
		t.Errorf("aggregate details not carried: %+v", outcome)
	}

	var urls []string
	for _, j := range notifier.got {
		urls = append(urls, j.URL)
	}
	if len(urls) != 2 || urls[0] != "https://fresh.example" || urls[1] != "https://nocompany.example" {
		t.Errorf("notified = %v", urls)
	}

	// Title+company is checked only when both are present, once per
	// posting that survives the url check: Fresh and the repost.
	if store.titleChecks != 2 {
		t.Errorf("titleChecks = %d, want 2", store.titleChecks)
	}

	if len(store.outcomes) != 2 {
		t.Fatalf("expected running and completed records, got %d", len(store.outcomes))
	}
	if store.outcomes[0].Status != model.ScanRunning || store.outcomes[0].ID != outcome.ID {
		t.Errorf("first record = %+v", store.outcomes[0])
	}
	if store.outcomes[1].Status != model.ScanCompleted {
		t.Errorf("second record = %+v", store.outcomes[1])
	}
	if len(metrics.outcomes) != 1 || metrics.outcomes[0].New != 2 {
		t.Errorf("metrics = %+v", metrics.outcomes)
	}
}

func TestRunScan_InsertErrorFailsScan(t *testing.T) {
	store := &memStore{failInsertURL: "https://b.example"}
	notifier := &fakeNotifier{}
	metrics := &fakeMetrics{}

	svc := NewService(Deps{
		Searcher: &fakeSearcher{res: result(
			sp("A", "Acme", "", "https://a.example"),
			sp("B", "Acme", "", "https://b.example"),
			sp("C", "Acme", "", "https://c.example"),
		)},
		Store:    store,
		Notifier: notifier,
		Metrics:  metrics,
		Logger:   discardLogger(),
	}, Options{})

	outcome, err := svc.RunScan(context.Background())
	if err == nil {
		t.Fatal("expected error from failing insert")
	}
	if outcome.Status != model.ScanFailed || outcome.Error == "" || outcome.CompletedAt == nil {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
	if outcome.New != 1 {
		t.Errorf("New = %d, want 1", outcome.New)
	}
	if len(store.jobs) != 1 || store.jobs[0].URL != "https://a.example" {
		t.Errorf("expected the earlier insert to stay, got %+v", store.jobs)
	}
	last := store.outcomes[len(store.outcomes)-1]
	if last.Status != model.ScanFailed {
		t.Errorf("recorded status = %q, want failed", last.Status)
	}
	if len(notifier.got) != 0 {
		t.Error("failed scan should not notify")
	}
	if len(metrics.outcomes) != 1 || metrics.outcomes[0].Status != model.ScanFailed {
		t.Errorf("metrics = %+v", metrics.outcomes)
	}
}

func TestRunScan_RecordStartErrorFailsScan(t *testing.T) {
	store := &memStore{failRecord: true}
	svc := NewService(Deps{
		Searcher: &fakeSearcher{res: result(sp("A", "Acme", "", "https://a.example"))},
		Store:    store,
		Logger:   discardLogger(),
	}, Options{})

	outcome, err := svc.RunScan(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if outcome.Status != model.ScanFailed {
		t.Errorf("Status = %q, want failed", outcome.Status)
	}
	if len(store.jobs) != 0 {
		t.Error("nothing should be inserted when the scan cannot be recorded")
	}
}

func TestRunScan_NotifierFailureDoesNotFailScan(t *testing.T) {
	svc := NewService(Deps{
		Searcher: &fakeSearcher{res: result(sp("A", "Acme", "", "https://a.example"))},
		Store:    &memStore{},
		Notifier: &fakeNotifier{err: errors.New("webhook down")},
		Logger:   discardLogger(),
	}, Options{})

	outcome, err := svc.RunScan(context.Background())
	if err != nil {
		t.Fatalf("RunScan: %v", err)
	}
	if outcome.Status != model.ScanCompleted || outcome.New != 1 {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
}

func TestRunScan_FuzzyMerge(t *testing.T) {
	postings := []model.ScoredPosting{
		// Same job as the stored one under a different company suffix and city alias.
		sp("IAM Analyst", "Acme", "NYC", "https://jsearch.example/1"),
		sp("Okta Administrator", "Globex Corp", "Remote", "https://adzuna.example/2"),
		// Same as the previous posting, seen through another provider.
		sp("Okta Administrator", "Globex Corporation", "Remote", "https://remoteok.example/3"),
		sp("SOC Analyst", "Initech", "Denver, CO", "https://adzuna.example/4"),
	}
	stored := []model.Job{{ID: 1, Title: "IAM Analyst", Company: "Acme Inc", Location: "New York, NY", URL: "https://stored.example"}}

	tests := []struct {
		name    string
		fuzzy   bool
		wantNew int
	}{
		{"off", false, 4},
		{"on", true, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memStore{jobs: append([]model.Job(nil), stored...)}
			svc := NewService(Deps{
				Searcher: &fakeSearcher{res: result(postings...)},
				Store:    store,
				Logger:   discardLogger(),
			}, Options{Fuzzy: tt.fuzzy})

			outcome, err := svc.RunScan(context.Background())
			if err != nil {
				t.Fatalf("RunScan: %v", err)
			}
			if outcome.New != tt.wantNew {
				t.Errorf("New = %d, want %d", outcome.New, tt.wantNew)
			}
		})
	}
}

func TestRunScan_EmptySearch(t *testing.T) {
	notifier := &fakeNotifier{}
	svc := NewService(Deps{
		Searcher: &fakeSearcher{res: aggregate.Result{}},
		Store:    &memStore{},
		Notifier: notifier,
		Logger:   discardLogger(),
	}, Options{})

	outcome, err := svc.RunScan(context.Background())
	if err != nil {
		t.Fatalf("RunScan: %v", err)
	}
	if outcome.New != 0 || outcome.Status != model.ScanCompleted {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
	if notifier.got != nil {
		t.Error("expected no notification without new jobs")
	}
}

type stubProvider struct {
	name   string
	search func(ctx context.Context) (model.SearchResult, error)
}

func (p *stubProvider) Name() string       { return p.name }
func (p *stubProvider) IsConfigured() bool { return true }
func (p *stubProvider) Queries() []string  { return []string{"iam"} }
func (p *stubProvider) Search(ctx context.Context, _ string) (model.SearchResult, error) {
	return p.search(ctx)
}

func TestRunScan_DeadlineKeepsFinishedProviders(t *testing.T) {
	tests := []struct {
		name          string
		callerTimeout time.Duration
		searchTimeout time.Duration
	}{
		{"caller deadline", 100 * time.Millisecond, 0},
		{"search timeout", 0, 100 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			release := make(chan struct{})
			defer close(release)

			fast := &stubProvider{name: "fast", search: func(context.Context) (model.SearchResult, error) {
				return model.SearchResult{Raw: 1, Postings: []model.ScoredPosting{
					sp("IAM Analyst", "Acme", "Remote", "https://fast.example/1"),
				}}, nil
			}}
			slow := &stubProvider{name: "slow", search: func(context.Context) (model.SearchResult, error) {
				<-release
				return model.SearchResult{}, nil
			}}
			coordinator := aggregate.New(
				[]adapter.Provider{fast, slow},
				map[string]ratelimit.Config{"fast": {}, "slow": {}},
				nil,
				discardLogger(),
			)

			store := &memStore{}
			notifier := &fakeNotifier{}
			svc := NewService(Deps{
				Searcher: coordinator,
				Store:    store,
				Notifier: notifier,
				Logger:   discardLogger(),
			}, Options{SearchTimeout: tt.searchTimeout})

			ctx := context.Background()
			if tt.callerTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, tt.callerTimeout)
				defer cancel()
			}

			outcome, err := svc.RunScan(ctx)
			if err != nil {
				t.Fatalf("RunScan: %v", err)
			}
			if outcome.Status != model.ScanCompleted || outcome.New != 1 {
				t.Errorf("outcome = %+v, want completed with 1 new", outcome)
			}
			if outcome.Failures["slow"] != aggregate.FailureDeadline || outcome.ProviderCounts["fast"] != 1 {
				t.Errorf("counts = %v failures = %v", outcome.ProviderCounts, outcome.Failures)
			}
			if len(store.jobs) != 1 || store.jobs[0].URL != "https://fast.example/1" {
				t.Errorf("stored = %+v, want the fast provider's posting", store.jobs)
			}
			if last := store.outcomes[len(store.outcomes)-1]; last.Status != model.ScanCompleted {
				t.Errorf("recorded status = %q, want completed", last.Status)
			}
			if len(notifier.got) != 1 {
				t.Errorf("notified %d jobs, want 1", len(notifier.got))
			}
		})
	}
}
