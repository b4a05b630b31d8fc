// Package tui provides an interactive viewer for tabulated results.
package tui

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/taxtab/internal/aggregate"
	"github.com/Veraticus/taxtab/internal/report"
)

const minColumnWidth = 8

// Model is the bubbletea model for browsing one or more tables.
type Model struct {
	help     help.Model
	keys     KeyMap
	theme    Theme
	tables   []*aggregate.Table
	views    []table.Model
	active   int
	width    int
	height   int
	showInfo bool
}

// NewModel builds a viewer over tables.
func NewModel(tables []*aggregate.Table, theme Theme) Model {
	m := Model{
		help:   help.New(),
		keys:   DefaultKeyMap(),
		theme:  theme,
		tables: tables,
		width:  100,
		height: 24,
	}
	for _, t := range tables {
		m.views = append(m.views, newTableView(t, theme))
	}
	if len(m.views) > 0 {
		m.views[0].Focus()
	}
	return m
}

func newTableView(t *aggregate.Table, theme Theme) table.Model {
	cells := report.Cells(t)
	header := cells[0]

	widths := make([]int, len(header))
	for _, row := range cells {
		for i, cell := range row {
			widths[i] = max(widths[i], len(cell), minColumnWidth)
		}
	}

	columns := make([]table.Column, len(header))
	for i, h := range header {
		columns[i] = table.Column{Title: h, Width: widths[i]}
	}

	rows := make([]table.Row, 0, len(cells)-1)
	for _, row := range cells[1:] {
		r := make(table.Row, len(row))
		for i, cell := range row {
			if i == 0 {
				r[i] = cell
				continue
			}
			r[i] = fmt.Sprintf("%*s", widths[i], cell)
		}
		rows = append(rows, r)
	}

	tv := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(min(len(rows)+1, 20)),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.Border).
		BorderBottom(true).
		Bold(true)
	s.Selected = theme.Selected
	tv.SetStyles(s)
	return tv
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		for i := range m.views {
			m.views[i].SetHeight(max(3, min(len(m.tables[i].Rows)+2, msg.Height-8)))
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Detail):
			m.showInfo = !m.showInfo
			return m, nil
		case key.Matches(msg, m.keys.NextTab):
			m.switchTo((m.active + 1) % max(len(m.views), 1))
			return m, nil
		case key.Matches(msg, m.keys.PrevTab):
			m.switchTo((m.active - 1 + len(m.views)) % max(len(m.views), 1))
			return m, nil
		}
	}

	if len(m.views) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	m.views[m.active], cmd = m.views[m.active].Update(msg)
	return m, cmd
}

func (m *Model) switchTo(i int) {
	if len(m.views) == 0 {
		return
	}
	m.views[m.active].Blur()
	m.active = i
	m.views[m.active].Focus()
}

// Active returns the index of the table being shown.
func (m Model) Active() int {
	return m.active
}

// SelectedRow returns the table row under the cursor.
func (m Model) SelectedRow() (aggregate.Row, bool) {
	if len(m.views) == 0 {
		return aggregate.Row{}, false
	}
	lines := m.tables[m.active].Lines()
	cursor := m.views[m.active].Cursor()
	if cursor < 0 || cursor >= len(lines) {
		return aggregate.Row{}, false
	}
	return lines[cursor], true
}

// View implements tea.Model.
func (m Model) View() string {
	if len(m.tables) == 0 {
		return m.theme.Status.Render("no tables to show") + "\n"
	}

	var b strings.Builder
	if len(m.tables) > 1 {
		tabs := make([]string, len(m.tables))
		for i, t := range m.tables {
			name := t.Title
			if name == "" {
				name = t.Scheme
			}
			style := m.theme.Tab
			if i == m.active {
				style = m.theme.ActiveTab
			}
			tabs[i] = style.Render(name)
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
		b.WriteString("\n\n")
	}

	t := m.tables[m.active]
	if t.Title != "" {
		b.WriteString(m.theme.Title.Render(t.Title))
		b.WriteString("\n")
	}
	if t.Subtitle != "" {
		b.WriteString(m.theme.Subtitle.Render(t.Subtitle))
		b.WriteString("\n")
	}
	b.WriteString(m.views[m.active].View())
	b.WriteString("\n")

	if m.showInfo {
		if row, ok := m.SelectedRow(); ok {
			b.WriteString(m.theme.Detail.Render(m.detail(t, row)))
			b.WriteString("\n")
		}
	}

	b.WriteString(m.theme.Status.Render(fmt.Sprintf("scheme %s on %s, %d records", t.Scheme, t.Key, t.Records)))
	b.WriteString("\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}

// detail shows the selected row at full precision.
func (m Model) detail(t *aggregate.Table, row aggregate.Row) string {
	lines := []string{m.theme.Title.Render(row.Label)}
	for i, v := range row.Values(t.HasRatio) {
		text := report.NaNText
		if !math.IsNaN(v) {
			text = strconv.FormatFloat(v, 'g', -1, 64)
		}
		lines = append(lines, fmt.Sprintf("%-12s %s", t.Columns[i].Name, text))
	}
	return strings.Join(lines, "\n")
}
