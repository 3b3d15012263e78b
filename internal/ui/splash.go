package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// SplashModel is the TUI model for the splash screen
type SplashModel struct {
	width  int
	height int
	done   bool
}

type splashTimeoutMsg struct{}

func waitForTimeout(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg {
		return splashTimeoutMsg{}
	})
}

func (m SplashModel) Init() tea.Cmd {
	return waitForTimeout(1500 * time.Millisecond)
}

func (m SplashModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg, splashTimeoutMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m SplashModel) View() string {
	if m.done {
		return ""
	}

	layout := NewLayout(m.width, m.height)
	height := layout.ViewportHeight - 4

	lines := []string{
		RenderAccent("INFERNO"),
		RenderNormal("zber realitných inzerátov"),
	}

	var b strings.Builder
	top := (height - len(lines)) / 2
	for i := 0; i < height; i++ {
		if j := i - top; j >= 0 && j < len(lines) {
			b.WriteString(CenterText(lines[j], layout.InnerWidth))
		}
		b.WriteString("\n")
	}

	return BorderStyle.Width(layout.InnerWidth).Render(b.String())
}

// CenterText centers text within width using its display width
func CenterText(text string, width int) string {
	w := StringWidth(text)
	if w >= width {
		return text
	}
	return strings.Repeat(" ", (width-w)/2) + text
}

// ShowSplash displays the splash screen briefly
func ShowSplash() {
	model := SplashModel{width: DefaultWidth, height: DefaultHeight}
	_, _ = tea.NewProgram(model, tea.WithAltScreen()).Run()

	// Clear screen before continuing
	fmt.Print("\033[2J\033[H")
}
