// Package viewer shows a decoded memory image in a scrollable
// full-screen view. It is strictly read only.
package viewer

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/v2/viewport"
	tea "github.com/charmbracelet/bubbletea/v2"
	"github.com/charmbracelet/lipgloss/v2"

	"wrangle/internal/memimg"
	"wrangle/internal/ui/colorize"
)

type model struct {
	viewport viewport.Model
	title    string
	lines    int
	width    int
	height   int
}

func newModel(title string, img *memimg.Image) model {
	vp := viewport.New()
	vp.SetWidth(80)
	vp.SetHeight(24)

	lines := img.DumpLines()
	vp.SetContent(strings.Join(colorize.Dump(lines), "\n"))

	return model{
		viewport: vp,
		title:    title,
		lines:    len(lines),
		width:    80,
		height:   24,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Width != m.width || msg.Height != m.height {
			m.width = msg.Width
			m.height = msg.Height
			m.viewport.SetWidth(msg.Width)
			m.viewport.SetHeight(msg.Height - 2)
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "g":
			m.viewport.GotoTop()
			return m, nil
		case "G":
			m.viewport.GotoBottom()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m model) View() string {
	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("99")).
		Padding(0, 1)

	menuStyle := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Foreground(lipgloss.Color("252")).
		Padding(0, 1).
		Width(m.width)

	header := titleStyle.Render(fmt.Sprintf("%s (%d lines)", m.title, m.lines))
	menu := " ↑/↓: scroll • g/G: top/bottom • Q: quit "

	return header + "\n" + m.viewport.View() + "\n" + menuStyle.Render(menu)
}

// Run opens the viewer for img and blocks until the user quits.
func Run(ctx context.Context, title string, img *memimg.Image) error {
	program := tea.NewProgram(
		newModel(title, img),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("viewer error: %v", err)
	}
	return nil
}
