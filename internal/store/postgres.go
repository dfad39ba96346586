package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/amishk599/jobscout/internal/model"
)

var _ Store = (*PostgresStore)(nil)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS jobs (
	id              BIGSERIAL PRIMARY KEY,
	title           TEXT NOT NULL,
	company         TEXT NOT NULL DEFAULT '',
	location        TEXT NOT NULL DEFAULT '',
	description     TEXT NOT NULL DEFAULT '',
	url             TEXT NOT NULL UNIQUE,
	source          TEXT NOT NULL,
	score           DOUBLE PRECISION NOT NULL DEFAULT 0,
	salary_min      DOUBLE PRECISION,
	salary_max      DOUBLE PRECISION,
	employment_type TEXT NOT NULL DEFAULT '',
	posted_at       TIMESTAMPTZ,
	status          TEXT NOT NULL DEFAULT 'new',
	notes           TEXT NOT NULL DEFAULT '',
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
ALTER TABLE jobs ADD COLUMN IF NOT EXISTS notes TEXT NOT NULL DEFAULT '';
CREATE INDEX IF NOT EXISTS idx_jobs_title_company ON jobs (title, company);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs (created_at);

CREATE TABLE IF NOT EXISTS scan_runs (
	id              TEXT PRIMARY KEY,
	started_at      TIMESTAMPTZ NOT NULL,
	completed_at    TIMESTAMPTZ,
	found           INTEGER NOT NULL DEFAULT 0,
	eligible        INTEGER NOT NULL DEFAULT 0,
	new_jobs        INTEGER NOT NULL DEFAULT 0,
	provider_counts JSONB NOT NULL DEFAULT '{}',
	failures        JSONB NOT NULL DEFAULT '{}',
	status          TEXT NOT NULL,
	error           TEXT NOT NULL DEFAULT ''
);`

// PostgresStore keeps jobs and scan runs in PostgreSQL.
type PostgresStore struct {
	pool  *pgxpool.Pool
	stats *StatsCache
	now   func() time.Time
}

// NewPostgresStore connects to databaseURL, verifies the connection and
// ensures the schema exists.
func NewPostgresStore(ctx context.Context, databaseURL string, statsTTL time.Duration) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping failed: %w", err)
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &PostgresStore{pool: pool, stats: NewStatsCache(statsTTL), now: time.Now}, nil
}

func (s *PostgresStore) FindByURL(ctx context.Context, url string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM jobs WHERE url = $1)", url).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("finding job by url %s: %w", url, err)
	}
	return exists, nil
}

func (s *PostgresStore) FindByTitleCompany(ctx context.Context, title, company string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM jobs WHERE title = $1 AND company = $2)", title, company,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("finding job by title and company: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Insert(ctx context.Context, p model.ScoredPosting) (model.Job, error) {
	job := model.JobFromPosting(p)
	job.CreatedAt = s.now().UTC()

	err := s.pool.QueryRow(ctx, `INSERT INTO jobs
		(title, company, location, description, url, source, score,
		 salary_min, salary_max, employment_type, posted_at, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		job.Title, job.Company, job.Location, job.Description, job.URL, job.Source, job.Score,
		job.SalaryMin, job.SalaryMax, job.EmploymentType, job.PostedAt,
		string(job.Status), job.CreatedAt,
	).Scan(&job.ID)
	if err != nil {
		return model.Job{}, fmt.Errorf("inserting job %s: %w", job.URL, err)
	}
	s.stats.Invalidate()
	return job, nil
}

func (s *PostgresStore) RecordScanOutcome(ctx context.Context, o model.ScanOutcome) error {
	counts, err := encodeMap(o.ProviderCounts)
	if err != nil {
		return err
	}
	failures, err := encodeMap(o.Failures)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `INSERT INTO scan_runs
		(id, started_at, completed_at, found, eligible, new_jobs, provider_counts, failures, status, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8::jsonb, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			completed_at = EXCLUDED.completed_at,
			found = EXCLUDED.found,
			eligible = EXCLUDED.eligible,
			new_jobs = EXCLUDED.new_jobs,
			provider_counts = EXCLUDED.provider_counts,
			failures = EXCLUDED.failures,
			status = EXCLUDED.status,
			error = EXCLUDED.error`,
		o.ID, o.StartedAt.UTC(), o.CompletedAt, o.Found, o.Eligible, o.New,
		counts, failures, string(o.Status), o.Error,
	)
	if err != nil {
		return fmt.Errorf("recording scan %s: %w", o.ID, err)
	}
	return nil
}

func (s *PostgresStore) RecentJobs(ctx context.Context, limit int) ([]model.Job, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+jobColumns+" FROM jobs ORDER BY created_at DESC, id DESC LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("querying recent jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		var (
			job    model.Job
			status string
		)
		if err := rows.Scan(&job.ID, &job.Title, &job.Company, &job.Location, &job.Description,
			&job.URL, &job.Source, &job.Score, &job.SalaryMin, &job.SalaryMax, &job.EmploymentType,
			&job.PostedAt, &status, &job.Notes, &job.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		job.Status = model.JobStatus(status)
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating recent jobs: %w", err)
	}
	return jobs, nil
}

func (s *PostgresStore) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx, "DELETE FROM jobs WHERE created_at < $1", s.now().UTC().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("cleaning up jobs older than %v: %w", olderThan, err)
	}
	s.stats.Invalidate()
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) MarkStale(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		"UPDATE jobs SET status = $1 WHERE status = $2 AND created_at < $3",
		string(model.StatusStale), string(model.StatusNew), s.now().UTC().Add(-olderThan),
	)
	if err != nil {
		return 0, fmt.Errorf("marking jobs stale: %w", err)
	}
	s.stats.Invalidate()
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id int64, status model.JobStatus) error {
	if !ValidStatus(status) {
		return fmt.Errorf("invalid job status %q", status)
	}
	tag, err := s.pool.Exec(ctx, "UPDATE jobs SET status = $1 WHERE id = $2", string(status), id)
	if err != nil {
		return fmt.Errorf("updating job %d status: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %d not found", id)
	}
	s.stats.Invalidate()
	return nil
}

func (s *PostgresStore) UpdateNotes(ctx context.Context, id int64, notes string) error {
	tag, err := s.pool.Exec(ctx, "UPDATE jobs SET notes = $1 WHERE id = $2", notes, id)
	if err != nil {
		return fmt.Errorf("updating job %d notes: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %d not found", id)
	}
	return nil
}

func (s *PostgresStore) Stats(ctx context.Context) (model.StoreStats, error) {
	if st, ok := s.stats.Get(); ok {
		return st, nil
	}

	var st model.StoreStats
	err := s.pool.QueryRow(ctx, `SELECT
		COUNT(*) FILTER (WHERE status <> 'hidden'),
		COUNT(*) FILTER (WHERE status <> 'hidden' AND created_at >= $1),
		COUNT(*) FILTER (WHERE status = 'saved'),
		COUNT(*) FILTER (WHERE status = 'applied'),
		COUNT(*) FILTER (WHERE status = 'hidden'),
		COUNT(DISTINCT NULLIF(location, ''))
		FROM jobs`, s.now().UTC().Add(-7*24*time.Hour),
	).Scan(&st.Total, &st.NewThisWeek, &st.Saved, &st.Applied, &st.Hidden, &st.Locations)
	if err != nil {
		return model.StoreStats{}, fmt.Errorf("computing stats: %w", err)
	}

	s.stats.Set(st)
	return st, nil
}

func (s *PostgresStore) LatestScan(ctx context.Context) (*model.ScanOutcome, error) {
	var (
		o                model.ScanOutcome
		status           string
		counts, failures string
	)
	err := s.pool.QueryRow(ctx, `SELECT id, started_at, completed_at, found, eligible, new_jobs,
		provider_counts::text, failures::text, status, error
		FROM scan_runs ORDER BY started_at DESC LIMIT 1`,
	).Scan(&o.ID, &o.StartedAt, &o.CompletedAt, &o.Found, &o.Eligible, &o.New, &counts, &failures, &status, &o.Error)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying latest scan: %w", err)
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

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
