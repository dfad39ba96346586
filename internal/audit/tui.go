package audit

import (
	"fmt"
	"os/exec"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/jobscout/internal/model"
)

var pst = time.FixedZone("PST", -8*60*60)

// Lines per posting in the list view (title + subtitle + blank separator).
const itemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

var (
	activeBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("39"))

	inactiveBorderStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("240"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1)

	activeHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("39"))

	inactiveHeaderStyle = headerStyle.
				Foreground(lipgloss.Color("240"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	titleStyle = lipgloss.NewStyle().
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))

	detailLabelStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Width(12)

	detailTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				MarginBottom(1)

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	reasonStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("114"))

	bodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))
)

type reviewModel struct {
	all        []model.ScoredPosting
	fresh      []model.ScoredPosting // not yet in the store
	panes      [2]viewport.Model
	cursors    [2]int
	activePane int
	width      int
	height     int
	ready      bool

	view     viewState
	detail   model.ScoredPosting
	detailVP viewport.Model

	wantQuit bool
}

func newReviewModel(all, fresh []model.ScoredPosting) reviewModel {
	sortByScore(all)
	sortByScore(fresh)
	return reviewModel{all: all, fresh: fresh}
}

func (m reviewModel) Init() tea.Cmd {
	return nil
}

func (m reviewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		if m.view == viewDetail {
			m.detailVP.Width = m.width - 4
			m.detailVP.Height = m.height - 4
			m.detailVP.SetContent(m.renderDetail())
		}
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetail(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m reviewModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "b":
		return m, tea.Quit
	case "tab", "left", "right":
		m.activePane = 1 - m.activePane
		m.recalcContent()
		return m, nil
	case "up", "k":
		m.moveCursor(-1)
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		return m, nil
	case "enter":
		list := m.list(m.activePane)
		if len(list) == 0 {
			return m, nil
		}
		m.view = viewDetail
		m.detail = list[m.cursors[m.activePane]]
		m.detailVP = viewport.New(m.width-4, m.height-4)
		m.detailVP.SetContent(m.renderDetail())
		return m, nil
	}

	var cmd tea.Cmd
	m.panes[m.activePane], cmd = m.panes[m.activePane].Update(msg)
	return m, cmd
}

func (m reviewModel) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.wantQuit = true
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "o":
		openURL(m.detail.URL)
		return m, nil
	}

	var cmd tea.Cmd
	m.detailVP, cmd = m.detailVP.Update(msg)
	return m, cmd
}

func (m *reviewModel) list(pane int) []model.ScoredPosting {
	if pane == 0 {
		return m.all
	}
	return m.fresh
}

func (m *reviewModel) moveCursor(delta int) {
	p := m.activePane
	m.cursors[p] = clamp(m.cursors[p]+delta, 0, max(len(m.list(p))-1, 0))
	m.recalcContent()

	vp := &m.panes[p]
	top := m.cursors[p] * itemHeight
	bottom := top + itemHeight - 1
	if top < vp.YOffset {
		vp.SetYOffset(top)
	} else if bottom >= vp.YOffset+vp.Height {
		vp.SetYOffset(bottom - vp.Height + 1)
	}
}

func (m *reviewModel) recalcLayout() {
	// 2 border chars per pane + 1 gap between panes.
	paneWidth := max((m.width-5)/2, 20)
	// header + border top/bottom + status bar
	paneHeight := max(m.height-4, 5)

	if !m.ready {
		m.panes[0] = viewport.New(paneWidth, paneHeight)
		m.panes[1] = viewport.New(paneWidth, paneHeight)
		m.ready = true
	} else {
		for i := range m.panes {
			m.panes[i].Width = paneWidth
			m.panes[i].Height = paneHeight
		}
	}
	m.recalcContent()
}

func (m *reviewModel) recalcContent() {
	for p := range m.panes {
		m.panes[p].SetContent(renderPostings(m.list(p), m.cursors[p], m.activePane == p))
	}
}

func (m reviewModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	if m.view == viewDetail {
		title := detailTitleStyle.Render("Posting")
		content := activeBorderStyle.Width(m.width - 2).Render(m.detailVP.View())
		status := statusBarStyle.Width(m.width).Render(" o open URL  esc/backspace back  ↑/↓ scroll  q quit")
		return title + "\n" + content + "\n" + status
	}
	return m.viewList()
}

func (m reviewModel) viewList() string {
	paneWidth := m.panes[0].Width
	labels := [2]string{
		fmt.Sprintf(" Eligible (%d)", len(m.all)),
		fmt.Sprintf(" Not yet stored (%d)", len(m.fresh)),
	}

	var headers, panes [2]string
	for p := range m.panes {
		header, border := inactiveHeaderStyle, inactiveBorderStyle
		if p == m.activePane {
			header, border = activeHeaderStyle, activeBorderStyle
		}
		headers[p] = lipgloss.NewStyle().Width(paneWidth + 2).Render(header.Render(labels[p]))
		panes[p] = border.Width(paneWidth).Render(m.panes[p].View())
	}

	headerRow := lipgloss.JoinHorizontal(lipgloss.Top, headers[0], " ", headers[1])
	paneRow := lipgloss.JoinHorizontal(lipgloss.Top, panes[0], " ", panes[1])

	statusText := fmt.Sprintf(" %d eligible | %d new    ←/→/Tab switch  ↑/↓ cursor  Enter detail  Esc back  q quit",
		len(m.all), len(m.fresh))
	status := statusBarStyle.Width(m.width).Render(statusText)

	return headerRow + "\n" + paneRow + "\n" + status
}

func (m reviewModel) renderDetail() string {
	p := m.detail
	var b strings.Builder

	field := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(detailLabelStyle.Render(label))
		b.WriteString(value)
		b.WriteByte('\n')
	}

	field("Title", p.Title)
	field("Company", p.Company)
	field("Location", p.Location)
	field("Source", p.Source)
	field("Score", fmt.Sprintf("%.0f", p.Score))
	field("Type", p.EmploymentType)
	field("Salary", salaryRange(p.SalaryMin, p.SalaryMax))
	if p.PostedAt != nil {
		field("Posted", p.PostedAt.In(pst).Format("2006-01-02 15:04 MST"))
	}
	if len(p.Tags) > 0 {
		field("Tags", strings.Join(p.Tags, ", "))
	}
	b.WriteByte('\n')
	field("URL", p.URL)

	wrapWidth := max(m.width-8, 20)
	divider := func(label string) string {
		return dividerStyle.Render(label + strings.Repeat("─", max(wrapWidth-len(label), 3)))
	}

	if len(p.Reasons) > 0 {
		b.WriteString("\n" + divider("── Signals ") + "\n\n")
		for _, r := range p.Reasons {
			b.WriteString(reasonStyle.Render("  • "+r) + "\n")
		}
	}
	if p.Description != "" {
		b.WriteString("\n" + divider("── Description ") + "\n\n")
		b.WriteString(bodyStyle.Render(wordWrap(p.Description, wrapWidth)) + "\n")
	}
	return b.String()
}

func renderPostings(postings []model.ScoredPosting, cursor int, active bool) string {
	if len(postings) == 0 {
		return "  (no postings)"
	}

	var b strings.Builder
	for i, p := range postings {
		ts, ss, prefix := titleStyle, subtitleStyle, "  "
		if active && i == cursor {
			ts, ss, prefix = selectedTitleStyle, selectedSubtitleStyle, "> "
		}

		b.WriteString(prefix)
		b.WriteString(ts.Render(fmt.Sprintf("%3.0f  %s", p.Score, p.Title)))
		b.WriteByte('\n')

		b.WriteString(prefix)
		b.WriteString(ss.Render(fmt.Sprintf("     %s · %s", p.Company, p.Location)))
		b.WriteByte('\n')

		if i < len(postings)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// sortByScore orders postings by descending score, newest first on ties.
func sortByScore(postings []model.ScoredPosting) {
	sort.SliceStable(postings, func(i, j int) bool {
		a, b := postings[i], postings[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.PostedAt == nil || b.PostedAt == nil {
			return a.PostedAt != nil
		}
		return a.PostedAt.After(*b.PostedAt)
	})
}

func salaryRange(lo, hi *float64) string {
	switch {
	case lo != nil && hi != nil:
		return fmt.Sprintf("$%.0f - $%.0f", *lo, *hi)
	case lo != nil:
		return fmt.Sprintf("from $%.0f", *lo)
	case hi != nil:
		return fmt.Sprintf("up to $%.0f", *hi)
	}
	return ""
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// RunReviewTUI launches the split-pane review of one provider's postings.
// fresh is the subset of all not yet in the store. It returns wantQuit=true
// if the user pressed q, false if they pressed esc to go back to the picker.
func RunReviewTUI(all, fresh []model.ScoredPosting) (bool, error) {
	p := tea.NewProgram(newReviewModel(all, fresh), tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return false, err
	}
	return result.(reviewModel).wantQuit, nil
}
