package store

import (
	"testing"
	"time"

	"github.com/amishk599/jobscout/internal/model"
)

func TestStatsCache(t *testing.T) {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	c := NewStatsCache(5 * time.Minute)
	c.now = func() time.Time { return now }

	if _, ok := c.Get(); ok {
		t.Fatal("expected empty cache to miss")
	}

	want := model.StoreStats{Total: 3}
	c.Set(want)
	if got, ok := c.Get(); !ok || got != want {
		t.Fatalf("Get = (%+v, %v), want hit", got, ok)
	}

	now = now.Add(5 * time.Minute)
	if _, ok := c.Get(); ok {
		t.Error("expected entry to expire at ttl")
	}

	c.Set(want)
	c.Invalidate()
	if _, ok := c.Get(); ok {
		t.Error("expected miss after Invalidate")
	}
}

func TestStatsCache_ZeroTTLDisables(t *testing.T) {
	c := NewStatsCache(0)
	c.Set(model.StoreStats{Total: 1})
	if _, ok := c.Get(); ok {
		t.Error("expected zero ttl to disable caching")
	}
}
