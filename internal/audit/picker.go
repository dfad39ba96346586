package audit

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	pickerTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39")).
				Padding(1, 0, 1, 2)

	pickerItemStyle = lipgloss.NewStyle().
			Padding(0, 0, 0, 4)

	pickerSelectedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("39")).
				Bold(true).
				Padding(0, 0, 0, 2)

	pickerHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Padding(1, 0, 0, 2)
)

// ProviderOption is one row of the provider picker.
type ProviderOption struct {
	Name    string
	Queries int
}

type pickerModel struct {
	options []ProviderOption
	cursor  int
	chosen  int // -1 = no choice yet, -2 = quit
}

func (m pickerModel) Init() tea.Cmd {
	return nil
}

func (m pickerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch key.String() {
	case "q", "ctrl+c", "esc":
		m.chosen = -2
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.options)-1 {
			m.cursor++
		}
	case "enter":
		m.chosen = m.cursor
		return m, tea.Quit
	}
	return m, nil
}

func (m pickerModel) View() string {
	s := pickerTitleStyle.Render("Review: select a provider") + "\n"
	for i, o := range m.options {
		label := fmt.Sprintf("%s (%d queries)", o.Name, o.Queries)
		if i == m.cursor {
			s += pickerSelectedStyle.Render("> "+label) + "\n"
		} else {
			s += pickerItemStyle.Render(label) + "\n"
		}
	}
	s += pickerHintStyle.Render("↑/↓/j/k navigate  enter select  q quit")
	return s
}

// RunProviderPicker shows an interactive provider selector. It returns the
// index of the chosen option, or -1 if the user quit.
func RunProviderPicker(options []ProviderOption) (int, error) {
	p := tea.NewProgram(pickerModel{options: options, chosen: -1})
	result, err := p.Run()
	if err != nil {
		return -1, err
	}
	final := result.(pickerModel)
	if final.chosen < 0 {
		return -1, nil
	}
	return final.chosen, nil
}
