package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/amishk599/jobscout/internal/model"
)

var _ Store = (*SQLiteStore)(nil)

// Fixed-width UTC timestamps compare correctly as text.
const sqliteTime = "2006-01-02T15:04:05.000000000Z"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS jobs (
	id              INTEGER PRIMARY KEY AUTOINCREMENT,
	title           TEXT NOT NULL,
	company         TEXT NOT NULL DEFAULT '',
	location        TEXT NOT NULL DEFAULT '',
	description     TEXT NOT NULL DEFAULT '',
	url             TEXT NOT NULL UNIQUE,
	source          TEXT NOT NULL,
	score           REAL NOT NULL DEFAULT 0,
	salary_min      REAL,
	salary_max      REAL,
	employment_type TEXT NOT NULL DEFAULT '',
	posted_at       TEXT,
	status          TEXT NOT NULL DEFAULT 'new',
	notes           TEXT NOT NULL DEFAULT '',
	created_at      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_jobs_title_company ON jobs (title, company);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs (created_at);

CREATE TABLE IF NOT EXISTS scan_runs (
	id              TEXT PRIMARY KEY,
	started_at      TEXT NOT NULL,
	completed_at    TEXT,
	found           INTEGER NOT NULL DEFAULT 0,
	eligible        INTEGER NOT NULL DEFAULT 0,
	new_jobs        INTEGER NOT NULL DEFAULT 0,
	provider_counts TEXT NOT NULL DEFAULT '{}',
	failures        TEXT NOT NULL DEFAULT '{}',
	status          TEXT NOT NULL,
	error           TEXT NOT NULL DEFAULT ''
);`

const jobColumns = `id, title, company, location, description, url, source, score,
	salary_min, salary_max, employment_type, posted_at, status, notes, created_at`

// SQLiteStore keeps jobs and scan runs in a SQLite database.
type SQLiteStore struct {
	db    *sql.DB
	stats *StatsCache
	now   func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the schema exists. Stats are cached for statsTTL.
func NewSQLiteStore(dbPath string, statsTTL time.Duration) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One writer at a time; avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	if err := addSQLiteNotesColumn(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, stats: NewStatsCache(statsTTL), now: time.Now}, nil
}

// addSQLiteNotesColumn upgrades databases created before jobs had notes.
func addSQLiteNotesColumn(db *sql.DB) error {
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM pragma_table_info('jobs') WHERE name = 'notes'").Scan(&n)
	if err != nil {
		return fmt.Errorf("inspecting jobs table: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := db.Exec("ALTER TABLE jobs ADD COLUMN notes TEXT NOT NULL DEFAULT ''"); err != nil {
		return fmt.Errorf("adding notes column: %w", err)
	}
	return nil
}

// FindByURL reports whether a job with this URL is stored.
func (s *SQLiteStore) FindByURL(ctx context.Context, url string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM jobs WHERE url = ?", url).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("finding job by url %s: %w", url, err)
	}
	return true, nil
}

// FindByTitleCompany reports whether a job with exactly this title and
// company is stored.
func (s *SQLiteStore) FindByTitleCompany(ctx context.Context, title, company string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		"SELECT 1 FROM jobs WHERE title = ? AND company = ? LIMIT 1", title, company,
	).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("finding job by title and company: %w", err)
	}
	return true, nil
}

// Insert stores a new job with status new.
func (s *SQLiteStore) Insert(ctx context.Context, p model.ScoredPosting) (model.Job, error) {
	job := model.JobFromPosting(p)
	job.CreatedAt = s.now().UTC()

	res, err := s.db.ExecContext(ctx, `INSERT INTO jobs
		(title, company, location, description, url, source, score,
		 salary_min, salary_max, employment_type, posted_at, status, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.Title, job.Company, job.Location, job.Description, job.URL, job.Source, job.Score,
		job.SalaryMin, job.SalaryMax, job.EmploymentType, formatNullTime(job.PostedAt),
		string(job.Status), job.CreatedAt.Format(sqliteTime),
	)
	if err != nil {
		return model.Job{}, fmt.Errorf("inserting job %s: %w", job.URL, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Job{}, fmt.Errorf("reading inserted id: %w", err)
	}
	job.ID = id
	s.stats.Invalidate()
	return job, nil
}

// RecordScanOutcome inserts or updates the scan run keyed by o.ID.
func (s *SQLiteStore) RecordScanOutcome(ctx context.Context, o model.ScanOutcome) error {
	counts, err := encodeMap(o.ProviderCounts)
	if err != nil {
		return err
	}
	failures, err := encodeMap(o.Failures)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `INSERT INTO scan_runs
		(id, started_at, completed_at, found, eligible, new_jobs, provider_counts, failures, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			completed_at = excluded.completed_at,
			found = excluded.found,
			eligible = excluded.eligible,
			new_jobs = excluded.new_jobs,
			provider_counts = excluded.provider_counts,
			failures = excluded.failures,
			status = excluded.status,
			error = excluded.error`,
		o.ID, o.StartedAt.UTC().Format(sqliteTime), formatNullTime(o.CompletedAt),
		o.Found, o.Eligible, o.New, counts, failures, string(o.Status), o.Error,
	)
	if err != nil {
		return fmt.Errorf("recording scan %s: %w", o.ID, err)
	}
	return nil
}

// RecentJobs returns up to limit jobs, newest first.
func (s *SQLiteStore) RecentJobs(ctx context.Context, limit int) ([]model.Job, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+jobColumns+" FROM jobs ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		job, err := scanSQLiteJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recent jobs: %w", err)
	}
	return jobs, nil
}

// Cleanup deletes jobs created before now-olderThan.
func (s *SQLiteStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().UTC().Add(-olderThan).Format(sqliteTime)
	res, err := s.db.ExecContext(ctx, "DELETE FROM jobs WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleaning up jobs older than %v: %w", olderThan, err)
	}
	n, _ := res.RowsAffected()
	s.stats.Invalidate()
	return n, nil
}

// MarkStale moves jobs still in status new to stale once they are older
// than olderThan. Saved, applied and hidden jobs are left alone.
func (s *SQLiteStore) MarkStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().UTC().Add(-olderThan).Format(sqliteTime)
	res, err := s.db.ExecContext(ctx,
		"UPDATE jobs SET status = ? WHERE status = ? AND created_at < ?",
		string(model.StatusStale), string(model.StatusNew), cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("marking jobs stale: %w", err)
	}
	n, _ := res.RowsAffected()
	s.stats.Invalidate()
	return n, nil
}

// UpdateStatus changes one job's status.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id int64, status model.JobStatus) error {
	if !ValidStatus(status) {
		return fmt.Errorf("invalid job status %q", status)
	}
	res, err := s.db.ExecContext(ctx, "UPDATE jobs SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return fmt.Errorf("updating job %d status: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job %d not found", id)
	}
	s.stats.Invalidate()
	return nil
}

// UpdateNotes replaces one job's free-text notes. An empty string clears them.
func (s *SQLiteStore) UpdateNotes(ctx context.Context, id int64, notes string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE jobs SET notes = ? WHERE id = ?", notes, id)
	if err != nil {
		return fmt.Errorf("updating job %d notes: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("job %d not found", id)
	}
	return nil
}

// Stats returns dashboard counts, served from the cache while it is fresh.
// Hidden jobs are excluded from the totals.
func (s *SQLiteStore) Stats(ctx context.Context) (model.StoreStats, error) {
	if st, ok := s.stats.Get(); ok {
		return st, nil
	}

	weekAgo := s.now().UTC().Add(-7 * 24 * time.Hour).Format(sqliteTime)
	var st model.StoreStats
	err := s.db.QueryRowContext(ctx, `SELECT
		COUNT(CASE WHEN status != 'hidden' THEN 1 END),
		COUNT(CASE WHEN status != 'hidden' AND created_at >= ? THEN 1 END),
		COUNT(CASE WHEN status = 'saved' THEN 1 END),
		COUNT(CASE WHEN status = 'applied' THEN 1 END),
		COUNT(CASE WHEN status = 'hidden' THEN 1 END),
		COUNT(DISTINCT NULLIF(location, ''))
		FROM jobs`, weekAgo,
	).Scan(&st.Total, &st.NewThisWeek, &st.Saved, &st.Applied, &st.Hidden, &st.Locations)
	if err != nil {
		return model.StoreStats{}, fmt.Errorf("computing stats: %w", err)
	}

	s.stats.Set(st)
	return st, nil
}

// LatestScan returns the most recently started scan, or nil if none ran.
func (s *SQLiteStore) LatestScan(ctx context.Context) (*model.ScanOutcome, error) {
	var (
		o                model.ScanOutcome
		started, status  string
		completed        sql.NullString
		counts, failures string
	)
	err := s.db.QueryRowContext(ctx, `SELECT id, started_at, completed_at, found, eligible, new_jobs,
		provider_counts, failures, status, error
		FROM scan_runs ORDER BY started_at DESC LIMIT 1`,
	).Scan(&o.ID, &started, &completed, &o.Found, &o.Eligible, &o.New, &counts, &failures, &status, &o.Error)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest scan: %w", err)
	}

	if o.StartedAt, err = time.Parse(sqliteTime, started); err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}
	if o.CompletedAt, err = parseNullTime(completed); err != nil {
		return nil, fmt.Errorf("parsing completed_at: %w", err)
	}
	if o.ProviderCounts, err = decodeMap[int](counts); err != nil {
		return nil, err
	}
	if o.Failures, err = decodeMap[string](failures); err != nil {
		return nil, err
	}
	o.Status = model.ScanStatus(status)
	return &o, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanSQLiteJob(rows *sql.Rows) (model.Job, error) {
	var (
		job                  model.Job
		salaryMin, salaryMax sql.NullFloat64
		posted               sql.NullString
		status, created      string
	)
	if err := rows.Scan(&job.ID, &job.Title, &job.Company, &job.Location, &job.Description,
		&job.URL, &job.Source, &job.Score, &salaryMin, &salaryMax, &job.EmploymentType,
		&posted, &status, &job.Notes, &created); err != nil {
		return model.Job{}, fmt.Errorf("scanning job: %w", err)
	}

	if salaryMin.Valid {
		job.SalaryMin = &salaryMin.Float64
	}
	if salaryMax.Valid {
		job.SalaryMax = &salaryMax.Float64
	}
	var err error
	if job.PostedAt, err = parseNullTime(posted); err != nil {
		return model.Job{}, fmt.Errorf("parsing posted_at: %w", err)
	}
	if job.CreatedAt, err = time.Parse(sqliteTime, created); err != nil {
		return model.Job{}, fmt.Errorf("parsing created_at: %w", err)
	}
	job.Status = model.JobStatus(status)
	return job, nil
}

func formatNullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(sqliteTime)
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(sqliteTime, s.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
