package notifier

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amishk599/jobscout/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T { return &v }

func sampleJob(title, company string) model.Job {
	return model.Job{
		ID:       123,
		Company:  company,
		Title:    title,
		Location: "Remote, US",
		URL:      "https://example.com/apply",
		Score:    48,
		PostedAt: ptr(time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)),
		Source:   "jsearch",
	}
}

func newTestNotifier(srv *httptest.Server) *SlackNotifier {
	n := NewSlackNotifier(srv.URL, srv.Client(), discardLogger())
	n.pause = 0
	return n
}

func TestSlackNotifier_EmptyJobs(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	n := newTestNotifier(srv)
	if err := n.Notify(nil); err != nil {
		t.Errorf("Notify(nil) = %v, want nil", err)
	}
	if c := calls.Load(); c != 0 {
		t.Errorf("expected 0 HTTP calls, got %d", c)
	}
}

func TestSlackNotifier_SingleJob(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
	}))
	defer srv.Close()

	job := sampleJob("IAM Analyst", "Acme Corp")
	job.SalaryMin = ptr(70000.0)
	job.SalaryMax = ptr(90000.0)
	if err := newTestNotifier(srv).Notify([]model.Job{job}); err != nil {
		t.Fatalf("Notify() = %v, want nil", err)
	}

	var payload slackPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}

	// header, section, context, divider
	if len(payload.Blocks) != 4 {
		t.Fatalf("expected 4 blocks, got %d", len(payload.Blocks))
	}
	if payload.Blocks[0].Text.Text != "1 new job" || payload.Text != "1 new job" {
		t.Errorf("heading = %q", payload.Blocks[0].Text.Text)
	}

	section := payload.Blocks[1]
	want := "*IAM Analyst*\nAcme Corp · Remote, US · $70k-$90k"
	if section.Text.Text != want {
		t.Errorf("section text = %q, want %q", section.Text.Text, want)
	}
	if section.Accessory == nil || section.Accessory.URL != "https://example.com/apply" {
		t.Errorf("accessory = %+v", section.Accessory)
	}

	ctxText := payload.Blocks[2].Elements[0].Text
	if !strings.HasPrefix(ctxText, "Score 48 | jsearch | ") {
		t.Errorf("context = %q", ctxText)
	}
	if payload.Blocks[3].Type != "divider" {
		t.Errorf("last block = %q, want divider", payload.Blocks[3].Type)
	}
}

func TestSlackNotifier_Batches(t *testing.T) {
	var calls atomic.Int32
	var headings []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		var p slackPayload
		json.NewDecoder(r.Body).Decode(&p)
		headings = append(headings, p.Text)
	}))
	defer srv.Close()

	var jobs []model.Job
	for i := range 23 {
		jobs = append(jobs, sampleJob(fmt.Sprintf("Analyst %d", i), "Acme"))
	}
	if err := newTestNotifier(srv).Notify(jobs); err != nil {
		t.Fatalf("Notify() = %v, want nil", err)
	}
	if c := calls.Load(); c != 3 {
		t.Fatalf("expected 3 messages, got %d", c)
	}
	want := []string{"23 new jobs (1-10)", "23 new jobs (11-20)", "23 new jobs (21-23)"}
	for i, h := range headings {
		if h != want[i] {
			t.Errorf("message %d heading = %q, want %q", i, h, want[i])
		}
	}
}

func TestSlackNotifier_AllFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	if err := newTestNotifier(srv).Notify([]model.Job{sampleJob("A", "X")}); err == nil {
		t.Error("expected error when all messages fail, got nil")
	}
}

func TestSlackNotifier_PartialFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
		}
	}))
	defer srv.Close()

	var jobs []model.Job
	for range 12 {
		jobs = append(jobs, sampleJob("Okta Admin", "B"))
	}
	if err := newTestNotifier(srv).Notify(jobs); err != nil {
		t.Errorf("expected nil (partial success), got %v", err)
	}
}

func TestSlackNotifier_RateLimited(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
		}
	}))
	defer srv.Close()

	if err := newTestNotifier(srv).Notify([]model.Job{sampleJob("Rate Limited", "Test")}); err != nil {
		t.Fatalf("expected nil after retry, got %v", err)
	}
	if c := calls.Load(); c != 2 {
		t.Errorf("expected 2 HTTP calls (initial + retry), got %d", c)
	}
}

func TestFormatSalary(t *testing.T) {
	tests := []struct {
		lo, hi *float64
		want   string
	}{
		{nil, nil, ""},
		{ptr(60000.0), nil, "$60k+"},
		{nil, ptr(120000.0), "up to $120k"},
		{ptr(65500.0), ptr(80000.0), "$66k-$80k"},
	}
	for _, tt := range tests {
		if got := formatSalary(tt.lo, tt.hi); got != tt.want {
			t.Errorf("formatSalary() = %q, want %q", got, tt.want)
		}
	}
}

func TestPostedText_Nil(t *testing.T) {
	if got := postedText(nil); got != "Just detected" {
		t.Errorf("postedText(nil) = %q", got)
	}
}

func TestSendTestMessage(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	if err := SendTestMessage(newTestNotifier(srv)); err != nil {
		t.Fatalf("SendTestMessage() = %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected one message, got %d", calls.Load())
	}
}
