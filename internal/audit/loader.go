package audit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobscout/internal/model"
)

// ErrCancelled is returned by RunLoader when the user aborts the search.
var ErrCancelled = errors.New("cancelled")

// SearchFunc runs every query of one provider and returns the union.
type SearchFunc func(ctx context.Context) ([]model.ScoredPosting, error)

type searchDoneMsg struct {
	postings []model.ScoredPosting
	err      error
}

type loaderModel struct {
	provider string
	search   SearchFunc
	timeout  time.Duration
	spinner  spinner.Model
	result   []model.ScoredPosting
	err      error
	done     bool
}

func newLoader(provider string, search SearchFunc, timeout time.Duration) loaderModel {
	s := spinner.New(spinner.WithSpinner(spinner.Dot))
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("33"))
	return loaderModel{
		provider: provider,
		search:   search,
		timeout:  timeout,
		spinner:  s,
	}
}

func (m loaderModel) Init() tea.Cmd {
	return tea.Batch(m.doSearch(), m.spinner.Tick)
}

func (m loaderModel) doSearch() tea.Cmd {
	search, timeout := m.search, m.timeout
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		postings, err := search(ctx)
		return searchDoneMsg{postings: postings, err: err}
	}
}

func (m loaderModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case searchDoneMsg:
		m.result = msg.postings
		m.err = msg.err
		m.done = true
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.done = true
			m.err = ErrCancelled
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m loaderModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf("%s Searching %s...\n", m.spinner.View(), m.provider)
}

// RunLoader shows a spinner while search runs. It renders inline.
func RunLoader(provider string, search SearchFunc, timeout time.Duration) ([]model.ScoredPosting, error) {
	p := tea.NewProgram(newLoader(provider, search, timeout))
	result, err := p.Run()
	if err != nil {
		return nil, err
	}
	final := result.(loaderModel)
	return final.result, final.err
}
