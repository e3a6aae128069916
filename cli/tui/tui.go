package tui

import (
	"fmt"
	"slices"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

// View types with TUI support.
const (
	ViewAnalyze = "telemetry_analyze"
	ViewList    = "telemetry_list"
)

// Run starts the TUI for viewType.
// Returns an error if the view type doesn't support TUI.
func Run(viewType string, data any) error {
	var model tea.Model
	switch viewType {
	case ViewAnalyze:
		model = NewAnalyzeModel(data)
	case ViewList:
		model = NewListModel(data)
	default:
		return fmt.Errorf("TUI mode is not supported for %s", viewType)
	}

	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// IsTUISupported returns true if the view type supports TUI mode.
func IsTUISupported(viewType string) bool {
	return slices.Contains(SupportedTUIViews(), viewType)
}

// SupportedTUIViews returns a list of view types that support TUI.
func SupportedTUIViews() []string {
	return []string{ViewAnalyze, ViewList}
}

// keyMap defines key bindings.
type keyMap struct {
	Quit key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
