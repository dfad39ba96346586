package store

import (
	"context"
	"time"

	"github.com/amishk599/jobscout/internal/model"
)

var _ Store = (*NopStore)(nil)

// NopStore is a no-op store used by check runs. Nothing is ever found, so
// every posting looks new, and nothing is persisted.
type NopStore struct{}

func NewNopStore() *NopStore { return &NopStore{} }

func (s *NopStore) FindByURL(context.Context, string) (bool, error) { return false, nil }
func (s *NopStore) FindByTitleCompany(context.Context, string, string) (bool, error) {
	return false, nil
}
func (s *NopStore) Insert(_ context.Context, p model.ScoredPosting) (model.Job, error) {
	job := model.JobFromPosting(p)
	job.CreatedAt = time.Now().UTC()
	return job, nil
}
func (s *NopStore) RecordScanOutcome(context.Context, model.ScanOutcome) error { return nil }
func (s *NopStore) RecentJobs(context.Context, int) ([]model.Job, error)       { return nil, nil }
func (s *NopStore) Cleanup(context.Context, time.Duration) (int64, error)      { return 0, nil }
func (s *NopStore) MarkStale(context.Context, time.Duration) (int64, error)    { return 0, nil }
func (s *NopStore) Stats(context.Context) (model.StoreStats, error)            { return model.StoreStats{}, nil }
func (s *NopStore) LatestScan(context.Context) (*model.ScanOutcome, error)     { return nil, nil }
func (s *NopStore) UpdateStatus(context.Context, int64, model.JobStatus) error { return nil }
func (s *NopStore) UpdateNotes(context.Context, int64, string) error           { return nil }
func (s *NopStore) Close() error                                               { return nil }
