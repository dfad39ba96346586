package audit

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/amishk599/jobscout/internal/model"
)

func posting(title string, score float64, posted *time.Time) model.ScoredPosting {
	return model.ScoredPosting{
		RawPosting: model.RawPosting{
			Title:    title,
			Company:  "Acme",
			Location: "Remote",
			URL:      "https://example.com/" + title,
			PostedAt: posted,
		},
		Score:    score,
		Eligible: true,
		Reasons:  []string{"platform:okta", "level:junior"},
	}
}

func TestSortByScore(t *testing.T) {
	older := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	newer := older.Add(48 * time.Hour)
	ps := []model.ScoredPosting{
		posting("low", 20, nil),
		posting("tie-old", 50, &older),
		posting("tie-undated", 50, nil),
		posting("tie-new", 50, &newer),
		posting("top", 80, nil),
	}
	sortByScore(ps)

	want := []string{"top", "tie-new", "tie-old", "tie-undated", "low"}
	for i, p := range ps {
		if p.Title != want[i] {
			t.Errorf("position %d = %q, want %q", i, p.Title, want[i])
		}
	}
}

func TestRenderPostings(t *testing.T) {
	if got := renderPostings(nil, 0, true); got != "  (no postings)" {
		t.Errorf("empty render = %q", got)
	}

	out := renderPostings([]model.ScoredPosting{posting("IAM Analyst", 62, nil), posting("Okta Admin", 40, nil)}, 1, true)
	lines := strings.Split(out, "\n")
	if len(lines) != 5 {
		t.Fatalf("expected 5 lines, got %d: %q", len(lines), out)
	}
	if !strings.HasPrefix(lines[0], "  ") || !strings.HasPrefix(lines[3], "> ") {
		t.Errorf("cursor marker misplaced:\n%s", out)
	}
	if !strings.Contains(out, "IAM Analyst") || !strings.Contains(out, "Acme · Remote") {
		t.Errorf("missing posting fields:\n%s", out)
	}
}

func TestReviewModel_Navigation(t *testing.T) {
	all := []model.ScoredPosting{posting("a", 30, nil), posting("b", 60, nil)}
	fresh := []model.ScoredPosting{posting("b", 60, nil)}

	var m tea.Model = newReviewModel(all, fresh)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	rm := m.(reviewModel)
	if rm.view != viewDetail {
		t.Fatal("expected detail view after enter")
	}
	// sorted by score: b then a
	if rm.detail.Title != "a" {
		t.Errorf("detail = %q, want a", rm.detail.Title)
	}
	if !strings.Contains(rm.renderDetail(), "platform:okta") {
		t.Error("detail should list the scoring signals")
	}

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	rm = m.(reviewModel)
	if rm.view != viewList || rm.activePane != 1 {
		t.Errorf("expected list view on second pane, got view=%v pane=%d", rm.view, rm.activePane)
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	if cmd == nil {
		t.Error("expected quit command")
	}
}

func TestLoader_DeliversResult(t *testing.T) {
	want := []model.ScoredPosting{posting("x", 10, nil)}
	m := newLoader("jsearch", func(ctx context.Context) ([]model.ScoredPosting, error) {
		return want, nil
	}, time.Second)

	msg := m.doSearch()()
	next, _ := m.Update(msg)
	lm := next.(loaderModel)
	if !lm.done || len(lm.result) != 1 || lm.err != nil {
		t.Errorf("unexpected loader state: %+v", lm)
	}
}

func TestLoader_CtrlC(t *testing.T) {
	m := newLoader("jsearch", nil, time.Second)
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if err := next.(loaderModel).err; !errors.Is(err, ErrCancelled) {
		t.Errorf("err = %v, want ErrCancelled", err)
	}
}

func TestPicker_Choose(t *testing.T) {
	var m tea.Model = pickerModel{options: []ProviderOption{{"jsearch", 4}, {"adzuna", 3}}, chosen: -1}
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if got := m.(pickerModel).chosen; got != 1 {
		t.Errorf("chosen = %d, want 1", got)
	}
	if !strings.Contains(m.View(), "adzuna (3 queries)") {
		t.Errorf("view missing option:\n%s", m.View())
	}
}

func TestWordWrap(t *testing.T) {
	got := wordWrap("manage okta sso and mfa rollout", 12)
	want := "manage okta\nsso and mfa\nrollout"
	if got != want {
		t.Errorf("wordWrap() = %q, want %q", got, want)
	}
}
