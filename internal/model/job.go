package model

import (
	"context"
	"time"
)

// RawPosting is a job posting as mapped from a single provider record.
// URL is the system-wide identity key: two postings with the same URL are
// always the same job.
type RawPosting struct {
	Title          string
	Company        string
	Location       string
	Description    string // provider-truncated snippet
	URL            string
	Source         string     // provider name
	SalaryMin      *float64   // nullable
	SalaryMax      *float64   // nullable
	EmploymentType string     // e.g. FULLTIME, permanent
	PostedAt       *time.Time // nullable (not all providers send it)
	Tags           []string   // remoteok only
}

// ScoredPosting is a RawPosting after classification. Values are never
// mutated once built by an adapter.
type ScoredPosting struct {
	RawPosting
	Score    float64
	Eligible bool
	Reasons  []string // matched scoring signals, e.g. "platform:okta"
}

// SearchResult is what a provider returns for one query: the number of raw
// records it saw and the eligible postings it kept.
type SearchResult struct {
	Raw      int
	Postings []ScoredPosting
}

// JobStatus is the lifecycle state of a persisted job.
type JobStatus string

const (
	StatusNew     JobStatus = "new"
	StatusSaved   JobStatus = "saved"
	StatusApplied JobStatus = "applied"
	StatusHidden  JobStatus = "hidden"
	StatusStale   JobStatus = "stale"
)

// Job is a persisted posting as returned by a JobStore.
type Job struct {
	ID             int64
	Title          string
	Company        string
	Location       string
	Description    string
	URL            string
	Source         string
	Score          float64
	SalaryMin      *float64
	SalaryMax      *float64
	EmploymentType string
	PostedAt       *time.Time
	Status         JobStatus
	Notes          string
	CreatedAt      time.Time
}

// JobFromPosting builds the record a store inserts for a new posting.
func JobFromPosting(p ScoredPosting) Job {
	return Job{
		Title:          p.Title,
		Company:        p.Company,
		Location:       p.Location,
		Description:    p.Description,
		URL:            p.URL,
		Source:         p.Source,
		Score:          p.Score,
		SalaryMin:      p.SalaryMin,
		SalaryMax:      p.SalaryMax,
		EmploymentType: p.EmploymentType,
		PostedAt:       p.PostedAt,
		Status:         StatusNew,
	}
}

// ScanStatus is the completion state of a scan.
type ScanStatus string

const (
	ScanRunning   ScanStatus = "running"
	ScanCompleted ScanStatus = "completed"
	ScanFailed    ScanStatus = "failed"
)

// ScanOutcome summarises one ingestion cycle. It is recorded once when the
// scan starts and once more when it completes or fails.
type ScanOutcome struct {
	ID             string
	StartedAt      time.Time
	CompletedAt    *time.Time
	Found          int               // raw records seen, before classification
	Eligible       int               // postings that passed the classifier
	New            int               // postings inserted
	ProviderCounts map[string]int    // eligible postings per provider
	Failures       map[string]string // provider name -> error description
	Status         ScanStatus
	Error          string
}

// StoreStats is a dashboard summary of the job store.
type StoreStats struct {
	Total       int
	NewThisWeek int
	Saved       int
	Applied     int
	Hidden      int
	Locations   int // distinct non-empty locations
}

// JobStore is the persistence boundary of the merge step. Exists-checks and
// inserts are not atomic together; callers must not run two scans at once.
type JobStore interface {
	FindByURL(ctx context.Context, url string) (bool, error)
	FindByTitleCompany(ctx context.Context, title, company string) (bool, error)
	Insert(ctx context.Context, p ScoredPosting) (Job, error)
	RecordScanOutcome(ctx context.Context, o ScanOutcome) error
}

// CandidateSource is implemented by stores that can supply a bounded window
// of recent jobs for fuzzy duplicate matching.
type CandidateSource interface {
	RecentJobs(ctx context.Context, limit int) ([]Job, error)
}

// Notifier sends notifications for newly stored jobs.
type Notifier interface {
	Notify(jobs []Job) error
}
