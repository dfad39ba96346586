// Package store persists jobs and scan outcomes.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amishk599/jobscout/internal/model"
)

// Store is the full persistence surface used by the CLI and scheduler.
type Store interface {
	model.JobStore
	model.CandidateSource
	Cleanup(ctx context.Context, olderThan time.Duration) (int64, error)
	MarkStale(ctx context.Context, olderThan time.Duration) (int64, error)
	Stats(ctx context.Context) (model.StoreStats, error)
	LatestScan(ctx context.Context) (*model.ScanOutcome, error)
	UpdateStatus(ctx context.Context, id int64, status model.JobStatus) error
	UpdateNotes(ctx context.Context, id int64, notes string) error
	Close() error
}

// ValidStatus reports whether s is a known job status.
func ValidStatus(s model.JobStatus) bool {
	switch s {
	case model.StatusNew, model.StatusSaved, model.StatusApplied, model.StatusHidden, model.StatusStale:
		return true
	}
	return false
}

func encodeMap[V any](m map[string]V) (string, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encoding map: %w", err)
	}
	return string(b), nil
}

func decodeMap[V any](s string) (map[string]V, error) {
	m := make(map[string]V)
	if s == "" {
		return m, nil
	}
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil, fmt.Errorf("decoding map: %w", err)
	}
	return m, nil
}
