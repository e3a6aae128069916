package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/pithecene-io/toolproxy/cli/reader"
)

// topCodes is how many error codes the analyze view lists.
const topCodes = 10

// AnalyzeModel is a Bubble Tea model for the telemetry summary.
type AnalyzeModel struct {
	data     *reader.AnalyzeResponse
	width    int
	height   int
	quitting bool
}

// NewAnalyzeModel creates a new analyze model. data must be a
// *reader.AnalyzeResponse; anything else renders an error message.
func NewAnalyzeModel(data any) AnalyzeModel {
	resp, _ := data.(*reader.AnalyzeResponse)
	return AnalyzeModel{data: resp}
}

// Init implements tea.Model.
func (m AnalyzeModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m AnalyzeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m AnalyzeModel) View() string {
	if m.quitting {
		return ""
	}
	if m.data == nil {
		return "Invalid data type for " + ViewAnalyze
	}

	s := m.data.Summary
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Telemetry Summary"))
	b.WriteString("\n")
	b.WriteString(LabelStyle.Render("Storage:") + " " + ValueStyle.Render(m.data.StoragePath))
	b.WriteString("\n\n")

	boxes := []string{
		renderStatBox("Runs", fmt.Sprintf("%d", s.Runs), highlightColor),
		renderStatBox("Succeeded", fmt.Sprintf("%d", s.Succeeded), successColor),
		renderStatBox("Failed", fmt.Sprintf("%d", s.Failed), errorColor),
		renderStatBox("Avg ms", fmt.Sprintf("%.0f", s.Duration.AvgMs), warningColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...))
	b.WriteString("\n\n")

	b.WriteString(field("Success rate:", RateStyle(m.data.SuccessRate).Render(fmt.Sprintf("%.1f%%", m.data.SuccessRate*100))))
	b.WriteString(field("Duration:", fmt.Sprintf("min %d ms, max %d ms", s.Duration.MinMs, s.Duration.MaxMs)))
	if s.LatestVersion != nil {
		v := s.LatestVersion
		b.WriteString(field("Version:", fmt.Sprintf("%s (%s %s)", v.Version, v.VersionHash, v.BuildDate)))
	}
	if s.FirstSeen != "" {
		b.WriteString(field("Window:", s.FirstSeen+" .. "+s.LastSeen))
	}

	b.WriteString("\n")
	b.WriteString(TitleStyle.Render("Top Error Codes"))
	b.WriteString("\n")
	codes := s.TopErrorCodes(topCodes)
	if len(codes) == 0 {
		b.WriteString(SuccessStyle.Render("none recorded"))
		b.WriteString("\n")
	}
	for _, c := range codes {
		b.WriteString(field(ErrorStyle.Render(c.Code), fmt.Sprintf("%d", c.Count)))
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return BoxStyle.Render(b.String()) + "\n" + help
}

func field(label, value string) string {
	return LabelStyle.Render(label) + " " + ValueStyle.Render(value) + "\n"
}

func renderStatBox(label, value string, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(value)
	labelStr := StatLabelStyle.Render(label)

	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr))
}
