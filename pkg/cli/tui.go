package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/m-mizutani/dagstat/pkg/domain/model"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")).
			MarginBottom(1)

	tabStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("241"))

	activeTabStyle = tabStyle.
			Bold(true).
			Foreground(lipgloss.Color("99")).
			Underline(true)

	tableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("99")).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(lipgloss.Color("240"))

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)
)

// terminal colors per state for row styling
var stateRowColors = map[model.TaskState]lipgloss.Color{
	model.TaskStateSuccess:        lipgloss.Color("10"),
	model.TaskStateFailed:         lipgloss.Color("9"),
	model.TaskStateUpstreamFailed: lipgloss.Color("13"),
	model.TaskStateSkipped:        lipgloss.Color("11"),
	model.TaskStateRunning:        lipgloss.Color("12"),
	model.TaskStateUpForRetry:     lipgloss.Color("214"),
}

const maxCellWidth = 32

// TUIModel browses the tables of a finished report
type TUIModel struct {
	report *model.Report
	tables []*model.Table
	active int
	offset int
	width  int
	height int
}

func NewTUIModel(report *model.Report) *TUIModel {
	return &TUIModel{
		report: report,
		tables: []*model.Table{
			model.NewSummaryTable(report.Summary),
			model.NewDagRunTable(report.DagRuns),
			model.NewTaskInstanceTable(report.Records),
		},
	}
}

func (m *TUIModel) Init() tea.Cmd {
	return tea.EnterAltScreen
}

func (m *TUIModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "tab", "right", "l":
			m.active = (m.active + 1) % len(m.tables)
			m.offset = 0
		case "shift+tab", "left", "h":
			m.active = (m.active + len(m.tables) - 1) % len(m.tables)
			m.offset = 0
		case "down", "j":
			if m.offset < len(m.tables[m.active].Rows)-1 {
				m.offset++
			}
		case "up", "k":
			if m.offset > 0 {
				m.offset--
			}
		case "pgdown", " ":
			m.offset = min(m.offset+m.pageRows(), max(len(m.tables[m.active].Rows)-1, 0))
		case "pgup":
			m.offset = max(m.offset-m.pageRows(), 0)
		case "home", "g":
			m.offset = 0
		}
	}

	return m, nil
}

// pageRows is the number of table rows fitting under the header, tabs and status line
func (m *TUIModel) pageRows() int {
	if m.height <= 10 {
		return 5
	}
	return m.height - 10
}

func (m *TUIModel) View() string {
	if m.width == 0 {
		return ""
	}

	header := headerStyle.Render(fmt.Sprintf("📊 %s | %s (%s)",
		m.report.DagID, m.report.Window.String(), m.report.Period))

	var tabs []string
	for i, t := range m.tables {
		label := fmt.Sprintf("%s (%d)", t.Name, len(t.Rows))
		if i == m.active {
			tabs = append(tabs, activeTabStyle.Render(label))
		} else {
			tabs = append(tabs, tabStyle.Render(label))
		}
	}

	status := fmt.Sprintf("Rows %d-%d of %d | tab: switch | ↑/↓: scroll | q: quit",
		min(m.offset+1, len(m.tables[m.active].Rows)),
		min(m.offset+m.pageRows(), len(m.tables[m.active].Rows)),
		len(m.tables[m.active].Rows))

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		lipgloss.JoinHorizontal(lipgloss.Top, tabs...),
		"",
		m.renderTable(m.tables[m.active]),
		statusStyle.Render(status))
}

func (m *TUIModel) renderTable(t *model.Table) string {
	if len(t.Rows) == 0 {
		return "No rows"
	}

	widths := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		widths[i] = len(c.Name)
	}
	for i := range t.Rows {
		for j, cell := range t.Record(i) {
			widths[j] = min(max(widths[j], len(cell)), maxCellWidth)
		}
	}

	stateCol := -1
	for i, c := range t.Columns {
		if c.Name == "state" {
			stateCol = i
		}
	}

	rows := []string{tableHeaderStyle.Render(formatRow(t.Header(), widths))}

	end := min(m.offset+m.pageRows(), len(t.Rows))
	for i := m.offset; i < end; i++ {
		record := t.Record(i)
		style := lipgloss.NewStyle()
		if stateCol >= 0 {
			if c, ok := stateRowColors[model.TaskState(record[stateCol])]; ok {
				style = style.Foreground(c)
			}
		}
		rows = append(rows, style.Render(formatRow(record, widths)))
	}

	return lipgloss.JoinVertical(lipgloss.Left, rows...)
}

func formatRow(cells []string, widths []int) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		if len(cell) > widths[i] {
			cell = cell[:widths[i]-3] + "..."
		}
		parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
	}
	return strings.Join(parts, " ")
}

// RunTUI blocks until the user quits the browser
func RunTUI(report *model.Report) error {
	_, err := tea.NewProgram(NewTUIModel(report)).Run()
	return err
}
