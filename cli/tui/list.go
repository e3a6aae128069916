package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/pithecene-io/toolproxy/cli/reader"
)

// ListModel is a scrollable table of telemetry records.
type ListModel struct {
	table    table.Model
	count    int
	valid    bool
	quitting bool
}

var listColumns = []table.Column{
	{Title: "Timestamp", Width: 30},
	{Title: "Kind", Width: 14},
	{Title: "Program", Width: 14},
	{Title: "Exit", Width: 5},
	{Title: "ms", Width: 8},
	{Title: "Detail", Width: 40},
}

// NewListModel creates a list model. data must be a []reader.ListItem.
func NewListModel(data any) ListModel {
	items, ok := data.([]reader.ListItem)

	t := table.New(
		table.WithColumns(listColumns),
		table.WithRows(ListRows(items)),
		table.WithFocused(true),
		table.WithHeight(20),
	)
	return ListModel{table: t, count: len(items), valid: ok}
}

// ListRows converts items into table rows.
func ListRows(items []reader.ListItem) []table.Row {
	rows := make([]table.Row, 0, len(items))
	for _, it := range items {
		var exit, ms, detail string
		if it.ExitCode != nil {
			exit = fmt.Sprintf("%d", *it.ExitCode)
		}
		if it.DurationMs != nil {
			ms = fmt.Sprintf("%d", *it.DurationMs)
		}
		if it.Version != "" {
			detail = it.Version + " " + it.VersionHash
		} else {
			detail = strings.Join(it.Errors, " ")
		}
		rows = append(rows, table.Row{it.Timestamp, it.Kind, it.Program, exit, ms, detail})
	}
	return rows
}

// Init implements tea.Model.
func (m ListModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m ListModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		if msg.Height > 6 {
			m.table.SetHeight(msg.Height - 6)
		}
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m ListModel) View() string {
	if m.quitting {
		return ""
	}
	if !m.valid {
		return "Invalid data type for " + ViewList
	}

	title := TitleStyle.Render(fmt.Sprintf("Telemetry Records (%d)", m.count))
	help := HelpStyle.Render("Arrows to scroll, q or Ctrl+C to quit")
	return title + "\n" + m.table.View() + "\n" + help
}
