package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/amishk599/jobscout/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(dbPath, time.Minute)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func posting(title, company, url string) model.ScoredPosting {
	salary := 85000.0
	return model.ScoredPosting{
		RawPosting: model.RawPosting{
			Title:     title,
			Company:   company,
			Location:  "Austin, TX",
			URL:       url,
			Source:    "jsearch",
			SalaryMin: &salary,
		},
		Score:    40,
		Eligible: true,
	}
}

func TestInsertThenFind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, err := s.Insert(ctx, posting("IAM Analyst", "Acme", "https://a.example/1"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if job.ID == 0 {
		t.Error("expected a database id")
	}
	if job.Status != model.StatusNew {
		t.Errorf("Status = %q, want new", job.Status)
	}

	found, err := s.FindByURL(ctx, "https://a.example/1")
	if err != nil {
		t.Fatalf("FindByURL: %v", err)
	}
	if !found {
		t.Error("expected FindByURL to find inserted job")
	}

	found, err = s.FindByTitleCompany(ctx, "IAM Analyst", "Acme")
	if err != nil {
		t.Fatalf("FindByTitleCompany: %v", err)
	}
	if !found {
		t.Error("expected FindByTitleCompany to find inserted job")
	}
}

func TestFindUnknownReturnsFalse(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if found, err := s.FindByURL(ctx, "https://nope.example"); err != nil || found {
		t.Errorf("FindByURL = (%v, %v), want (false, nil)", found, err)
	}
	if found, err := s.FindByTitleCompany(ctx, "IAM Analyst", "Acme"); err != nil || found {
		t.Errorf("FindByTitleCompany = (%v, %v), want (false, nil)", found, err)
	}
}

func TestInsertDuplicateURLFails(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.Insert(ctx, posting("A", "X", "https://dup.example")); err != nil {
		t.Fatalf("first Insert: %v", err)
	}
	if _, err := s.Insert(ctx, posting("B", "Y", "https://dup.example")); err == nil {
		t.Error("expected unique constraint error on duplicate url")
	}
}

func TestRecentJobs_NewestFirstWithNullableFields(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)
	for i, url := range []string{"https://a.example/1", "https://a.example/2", "https://a.example/3"} {
		s.now = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		p := posting("Title "+url, "Acme", url)
		if i == 2 {
			p.SalaryMin = nil
			posted := base.Add(-24 * time.Hour)
			p.PostedAt = &posted
		}
		if _, err := s.Insert(ctx, p); err != nil {
			t.Fatalf("Insert: %v", err)
		}
	}

	jobs, err := s.RecentJobs(ctx, 2)
	if err != nil {
		t.Fatalf("RecentJobs: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d", len(jobs))
	}
	if jobs[0].URL != "https://a.example/3" || jobs[1].URL != "https://a.example/2" {
		t.Errorf("unexpected order: %s, %s", jobs[0].URL, jobs[1].URL)
	}
	if jobs[0].SalaryMin != nil {
		t.Errorf("SalaryMin = %v, want nil", *jobs[0].SalaryMin)
	}
	if jobs[0].PostedAt == nil || !jobs[0].PostedAt.Equal(base.Add(-24*time.Hour)) {
		t.Errorf("PostedAt = %v", jobs[0].PostedAt)
	}
	if jobs[1].SalaryMin == nil || *jobs[1].SalaryMin != 85000 {
		t.Errorf("SalaryMin = %v, want 85000", jobs[1].SalaryMin)
	}
	if !jobs[1].CreatedAt.Equal(base.Add(time.Hour)) {
		t.Errorf("CreatedAt = %v", jobs[1].CreatedAt)
	}
}

func TestCleanupRemovesOldKeepsFresh(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 3, 0, 0, 0, time.UTC)

	s.now = func() time.Time { return now.Add(-31 * 24 * time.Hour) }
	if _, err := s.Insert(ctx, posting("Old", "Acme", "https://old.example")); err != nil {
		t.Fatalf("Insert old: %v", err)
	}
	s.now = func() time.Time { return now.Add(-time.Hour) }
	if _, err := s.Insert(ctx, posting("Fresh", "Acme", "https://fresh.example")); err != nil {
		t.Fatalf("Insert fresh: %v", err)
	}

	s.now = func() time.Time { return now }
	n, err := s.Cleanup(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("Cleanup: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}

	if found, _ := s.FindByURL(ctx, "https://old.example"); found {
		t.Error("expected old job to be cleaned up")
	}
	if found, _ := s.FindByURL(ctx, "https://fresh.example"); !found {
		t.Error("expected fresh job to survive cleanup")
	}
}

func TestMarkStaleOnlyTouchesNewJobs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 10, 19, 3, 0, 0, 0, time.UTC)

	s.now = func() time.Time { return now.Add(-10 * 24 * time.Hour) }
	oldNew, _ := s.Insert(ctx, posting("A", "Acme", "https://a.example"))
	oldSaved, _ := s.Insert(ctx, posting("B", "Acme", "https://b.example"))
	s.now = func() time.Time { return now.Add(-time.Hour) }
	if _, err := s.Insert(ctx, posting("C", "Acme", "https://c.example")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.UpdateStatus(ctx, oldSaved.ID, model.StatusSaved); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	s.now = func() time.Time { return now }
	n, err := s.MarkStale(ctx, 7*24*time.Hour)
	if err != nil {
		t.Fatalf("MarkStale: %v", err)
	}
	if n != 1 {
		t.Errorf("marked = %d, want 1", n)
	}

	jobs, err := s.RecentJobs(ctx, 10)
	if err != nil {
		t.Fatalf("RecentJobs: %v", err)
	}
	status := make(map[int64]model.JobStatus)
	for _, j := range jobs {
		status[j.ID] = j.Status
	}
	if status[oldNew.ID] != model.StatusStale {
		t.Errorf("old new job status = %q, want stale", status[oldNew.ID])
	}
	if status[oldSaved.ID] != model.StatusSaved {
		t.Errorf("saved job status = %q, want saved", status[oldSaved.ID])
	}
}

func TestUpdateStatus_Errors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.UpdateStatus(ctx, 1, "archived"); err == nil {
		t.Error("expected error for invalid status")
	}
	if err := s.UpdateStatus(ctx, 999, model.StatusSaved); err == nil {
		t.Error("expected error for unknown job")
	}
}

func TestUpdateNotes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	job, err := s.Insert(ctx, posting("A", "Acme", "https://a.example"))
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if job.Notes != "" {
		t.Errorf("new job Notes = %q, want empty", job.Notes)
	}

	if err := s.UpdateNotes(ctx, job.ID, "recruiter call friday"); err != nil {
		t.Fatalf("UpdateNotes: %v", err)
	}
	if err := s.UpdateStatus(ctx, job.ID, model.StatusApplied); err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	jobs, err := s.RecentJobs(ctx, 1)
	if err != nil {
		t.Fatalf("RecentJobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Notes != "recruiter call friday" || jobs[0].Status != model.StatusApplied {
		t.Errorf("RecentJobs = %+v", jobs)
	}

	if err := s.UpdateNotes(ctx, job.ID, ""); err != nil {
		t.Fatalf("clearing notes: %v", err)
	}
	jobs, _ = s.RecentJobs(ctx, 1)
	if jobs[0].Notes != "" {
		t.Errorf("Notes after clear = %q", jobs[0].Notes)
	}

	if err := s.UpdateNotes(ctx, 999, "x"); err == nil {
		t.Error("expected error for unknown job")
	}
}

func TestNewSQLiteStore_AddsNotesColumn(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "old.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	_, err = db.Exec(`CREATE TABLE jobs (
		id INTEGER PRIMARY KEY AUTOINCREMENT, title TEXT NOT NULL, company TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '', description TEXT NOT NULL DEFAULT '', url TEXT NOT NULL UNIQUE,
		source TEXT NOT NULL, score REAL NOT NULL DEFAULT 0, salary_min REAL, salary_max REAL,
		employment_type TEXT NOT NULL DEFAULT '', posted_at TEXT, status TEXT NOT NULL DEFAULT 'new',
		created_at TEXT NOT NULL)`)
	if err != nil {
		t.Fatal(err)
	}
	_, err = db.Exec(`INSERT INTO jobs (title, url, source, created_at)
		VALUES ('Old', 'https://old.example', 'remoteok', '2026-01-02T03:04:05.000000000Z')`)
	if err != nil {
		t.Fatal(err)
	}
	db.Close()

	s, err := NewSQLiteStore(dbPath, time.Minute)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.UpdateNotes(ctx, 1, "kept"); err != nil {
		t.Fatalf("UpdateNotes: %v", err)
	}
	jobs, err := s.RecentJobs(ctx, 5)
	if err != nil {
		t.Fatalf("RecentJobs: %v", err)
	}
	if len(jobs) != 1 || jobs[0].Title != "Old" || jobs[0].Notes != "kept" {
		t.Errorf("RecentJobs = %+v", jobs)
	}
}

func TestStats_CachedUntilWrite(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, _ := s.Insert(ctx, posting("A", "Acme", "https://a.example"))
	p := posting("B", "Acme", "https://b.example")
	p.Location = "Remote"
	b, _ := s.Insert(ctx, p)
	c, _ := s.Insert(ctx, posting("C", "Acme", "https://c.example"))
	if err := s.UpdateStatus(ctx, a.ID, model.StatusSaved); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateStatus(ctx, b.ID, model.StatusApplied); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateStatus(ctx, c.ID, model.StatusHidden); err != nil {
		t.Fatal(err)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := model.StoreStats{Total: 2, NewThisWeek: 2, Saved: 1, Applied: 1, Hidden: 1, Locations: 2}
	if st != want {
		t.Errorf("Stats = %+v, want %+v", st, want)
	}

	// Bypass the store so the cache is not invalidated.
	if _, err := s.db.Exec("DELETE FROM jobs"); err != nil {
		t.Fatal(err)
	}
	if st, _ := s.Stats(ctx); st != want {
		t.Errorf("expected cached stats, got %+v", st)
	}

	if _, err := s.Insert(ctx, posting("D", "Acme", "https://d.example")); err != nil {
		t.Fatal(err)
	}
	st, err = s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Total != 1 {
		t.Errorf("expected recomputed stats after insert, got %+v", st)
	}
}

func TestRecordScanOutcome_UpsertAndLatest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	latest, err := s.LatestScan(ctx)
	if err != nil {
		t.Fatalf("LatestScan: %v", err)
	}
	if latest != nil {
		t.Fatalf("expected no scan yet, got %+v", latest)
	}

	started := time.Date(2026, 10, 19, 6, 0, 0, 0, time.UTC)
	o := model.ScanOutcome{ID: "scan-1", StartedAt: started, Status: model.ScanRunning}
	if err := s.RecordScanOutcome(ctx, o); err != nil {
		t.Fatalf("RecordScanOutcome running: %v", err)
	}

	done := started.Add(2 * time.Minute)
	o.CompletedAt = &done
	o.Found, o.Eligible, o.New = 120, 14, 5
	o.ProviderCounts = map[string]int{"jsearch": 9, "remoteok": 5}
	o.Failures = map[string]string{"adzuna": "throttled"}
	o.Status = model.ScanCompleted
	if err := s.RecordScanOutcome(ctx, o); err != nil {
		t.Fatalf("RecordScanOutcome completed: %v", err)
	}

	latest, err = s.LatestScan(ctx)
	if err != nil {
		t.Fatalf("LatestScan: %v", err)
	}
	if latest == nil {
		t.Fatal("expected a scan")
	}
	if latest.Status != model.ScanCompleted || latest.New != 5 || latest.Found != 120 {
		t.Errorf("unexpected outcome: %+v", latest)
	}
	if latest.CompletedAt == nil || !latest.CompletedAt.Equal(done) {
		t.Errorf("CompletedAt = %v, want %v", latest.CompletedAt, done)
	}
	if latest.ProviderCounts["jsearch"] != 9 || latest.Failures["adzuna"] != "throttled" {
		t.Errorf("maps not round-tripped: %+v", latest)
	}

	var rows int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM scan_runs").Scan(&rows); err != nil {
		t.Fatal(err)
	}
	if rows != 1 {
		t.Errorf("expected upsert to keep one row, got %d", rows)
	}
}
