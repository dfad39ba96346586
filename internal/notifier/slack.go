package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobscout/internal/model"
)

var _ model.Notifier = (*SlackNotifier)(nil)

// slackBatchSize keeps each message well under Slack's 50-block limit.
const slackBatchSize = 10

// SlackNotifier posts new jobs to a Slack channel via an Incoming Webhook,
// grouped into digest messages of up to ten jobs.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logger     *slog.Logger
	pause      time.Duration // between messages
}

func NewSlackNotifier(webhookURL string, httpClient *http.Client, logger *slog.Logger) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		httpClient: httpClient,
		logger:     logger,
		pause:      500 * time.Millisecond,
	}
}

// Notify sends the jobs in batches. It returns an error only if every batch
// fails; individual failures are logged.
func (s *SlackNotifier) Notify(jobs []model.Job) error {
	if len(jobs) == 0 {
		return nil
	}

	var batches [][]model.Job
	for start := 0; start < len(jobs); start += slackBatchSize {
		end := min(start+slackBatchSize, len(jobs))
		batches = append(batches, jobs[start:end])
	}

	failures := 0
	for i, batch := range batches {
		if i > 0 && s.pause > 0 {
			time.Sleep(s.pause)
		}
		payload := buildPayload(batch, i*slackBatchSize, len(jobs))
		if err := s.send(payload); err != nil {
			s.logger.Error("slack notification failed", "batch", i+1, "jobs", len(batch), "error", err)
			failures++
		}
	}

	if failures == len(batches) {
		return fmt.Errorf("all %d slack messages failed", failures)
	}
	s.logger.Info("slack notifications complete", "jobs", len(jobs), "messages", len(batches), "failed", failures)
	return nil
}

func (s *SlackNotifier) send(payload slackPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	status, retryAfter, err := s.post(body)
	if err != nil {
		return err
	}
	if status == http.StatusTooManyRequests {
		s.logger.Warn("slack rate limited, retrying", "retry_after", retryAfter)
		time.Sleep(retryAfter)

		status, _, err = s.post(body)
		if err != nil {
			return fmt.Errorf("retry: %w", err)
		}
		if status != http.StatusOK {
			return fmt.Errorf("slack returned %d on retry", status)
		}
		return nil
	}
	if status != http.StatusOK {
		return fmt.Errorf("slack returned %d", status)
	}
	return nil
}

func (s *SlackNotifier) post(body []byte) (int, time.Duration, error) {
	resp, err := s.httpClient.Post(s.webhookURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, 0, fmt.Errorf("post to slack: %w", err)
	}
	defer resp.Body.Close()

	secs, _ := strconv.Atoi(resp.Header.Get("Retry-After"))
	if secs <= 0 {
		secs = 1
	}
	return resp.StatusCode, time.Duration(secs) * time.Second, nil
}

// Block Kit payload types.

type slackPayload struct {
	Text   string       `json:"text"` // notification fallback
	Blocks []slackBlock `json:"blocks"`
}

type slackBlock struct {
	Type      string        `json:"type"`
	Text      *slackText    `json:"text,omitempty"`
	Elements  []slackText   `json:"elements,omitempty"`
	Accessory *slackElement `json:"accessory,omitempty"`
}

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackElement struct {
	Type string    `json:"type"`
	Text slackText `json:"text"`
	URL  string    `json:"url"`
}

// SendTestMessage sends a dummy job through n to verify the integration.
func SendTestMessage(n model.Notifier) error {
	now := time.Now()
	salary := 85000.0
	return n.Notify([]model.Job{{
		Title:     "IAM Analyst (test notification)",
		Company:   "jobscout",
		Location:  "Remote",
		URL:       "https://example.com/jobscout-test",
		Source:    "test",
		Score:     42,
		SalaryMin: &salary,
		PostedAt:  &now,
		Status:    model.StatusNew,
		CreatedAt: now,
	}})
}

func buildPayload(jobs []model.Job, offset, total int) slackPayload {
	heading := fmt.Sprintf("%d new job", total)
	if total != 1 {
		heading += "s"
	}
	if total > len(jobs) {
		heading += fmt.Sprintf(" (%d-%d)", offset+1, offset+len(jobs))
	}

	blocks := []slackBlock{{
		Type: "header",
		Text: &slackText{Type: "plain_text", Text: heading},
	}}
	for _, j := range jobs {
		blocks = append(blocks,
			slackBlock{
				Type: "section",
				Text: &slackText{Type: "mrkdwn", Text: jobText(j)},
				Accessory: &slackElement{
					Type: "button",
					Text: slackText{Type: "plain_text", Text: "Apply"},
					URL:  j.URL,
				},
			},
			slackBlock{
				Type: "context",
				Elements: []slackText{
					{Type: "mrkdwn", Text: fmt.Sprintf("Score %.0f | %s | %s", j.Score, j.Source, postedText(j.PostedAt))},
				},
			},
		)
	}
	blocks = append(blocks, slackBlock{Type: "divider"})

	return slackPayload{Text: heading, Blocks: blocks}
}

func jobText(j model.Job) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*\n%s", j.Title, j.Company)
	if j.Location != "" {
		b.WriteString(" · " + j.Location)
	}
	if s := formatSalary(j.SalaryMin, j.SalaryMax); s != "" {
		b.WriteString(" · " + s)
	}
	return b.String()
}

func postedText(t *time.Time) string {
	if t == nil {
		return "Just detected"
	}
	if pst, err := time.LoadLocation("America/Los_Angeles"); err == nil {
		return t.In(pst).Format("Jan 2, 3:04 PM MST")
	}
	return t.UTC().Format("Jan 2, 15:04 MST")
}

func formatSalary(lo, hi *float64) string {
	k := func(v float64) string { return fmt.Sprintf("$%.0fk", v/1000) }
	switch {
	case lo != nil && hi != nil:
		return k(*lo) + "-" + k(*hi)
	case lo != nil:
		return k(*lo) + "+"
	case hi != nil:
		return "up to " + k(*hi)
	}
	return ""
}
