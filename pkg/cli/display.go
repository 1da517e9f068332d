package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/alexeyco/simpletable"
	"github.com/fatih/color"
	"github.com/m-mizutani/dagstat/pkg/domain/model"
)

var colorAttributes = map[string]color.Attribute{
	"black":   color.FgBlack,
	"red":     color.FgRed,
	"green":   color.FgGreen,
	"yellow":  color.FgYellow,
	"blue":    color.FgBlue,
	"magenta": color.FgMagenta,
	"cyan":    color.FgCyan,
	"white":   color.FgWhite,
	"gray":    color.FgHiBlack,
	"orange":  color.FgHiYellow,
	"purple":  color.FgHiMagenta,
}

var defaultStateColors = map[model.TaskState]string{
	model.TaskStateSuccess:         "green",
	model.TaskStateFailed:          "red",
	model.TaskStateSkipped:         "yellow",
	model.TaskStateRunning:         "blue",
	model.TaskStateQueued:          "gray",
	model.TaskStateScheduled:       "cyan",
	model.TaskStateUpForRetry:      "orange",
	model.TaskStateUpForReschedule: "cyan",
	model.TaskStateUpstreamFailed:  "purple",
	model.TaskStateRestarting:      "magenta",
	model.TaskStateDeferred:        "cyan",
	model.TaskStateRemoved:         "gray",
	model.TaskStateUnknown:         "white",
}

// Presenter prints a report to the console: a colored statistics block
// followed by the summary table and, optionally, the runs without skips.
type Presenter struct {
	out    io.Writer
	colors map[model.TaskState]*color.Color
}

func NewPresenter(out io.Writer, cfg model.DisplayConfig) *Presenter {
	colors := make(map[model.TaskState]*color.Color, len(defaultStateColors))
	for state, name := range defaultStateColors {
		colors[state] = color.New(colorAttributes[name])
	}
	for name, colorName := range cfg.StateColors {
		state, ok := model.ParseTaskState(name)
		if !ok {
			continue
		}
		if attr, ok := colorAttributes[strings.ToLower(colorName)]; ok {
			colors[state] = color.New(attr)
		}
	}

	return &Presenter{out: out, colors: colors}
}

func (p *Presenter) stateColor(state model.TaskState) *color.Color {
	if c, ok := p.colors[state]; ok {
		return c
	}
	return color.New(color.Reset)
}

func (p *Presenter) Render(report *model.Report, showNoSkippedOnly bool) {
	bold := color.New(color.Bold)

	fmt.Fprintln(p.out)
	bold.Fprintf(p.out, "DAG %s | %s (%s)\n", report.DagID, report.Window.String(), report.Period)

	p.renderStatistics(report)

	fmt.Fprintln(p.out)
	bold.Fprintln(p.out, "Task state summary")
	if len(report.Summary) == 0 {
		fmt.Fprintln(p.out, "No task instances match the selected states")
	} else {
		fmt.Fprintln(p.out, RenderTable(model.NewSummaryTable(report.Summary)))
	}

	if showNoSkippedOnly {
		fmt.Fprintln(p.out)
		clean := report.CleanRuns()
		bold.Fprintf(p.out, "DAG runs without skipped tasks (%d of %d)\n", len(clean), len(report.DagRuns))
		if len(clean) > 0 {
			fmt.Fprintln(p.out, RenderTable(model.NewDagRunTable(clean)))
		}
	}

	if len(report.Exports) > 0 {
		fmt.Fprintln(p.out)
		for _, dst := range report.Exports {
			color.New(color.FgCyan).Fprintf(p.out, "Exported: %s\n", dst)
		}
	}
}

func (p *Presenter) renderStatistics(report *model.Report) {
	stats := report.Statistics
	if stats == nil {
		return
	}

	fmt.Fprintf(p.out, "Task instances: %d | DAG runs: %d | Tasks: %d\n",
		stats.TotalTasks, stats.UniqueDagRuns, stats.UniqueTaskIDs)
	if report.Dropped > 0 {
		color.New(color.FgYellow).Fprintf(p.out, "Dropped records without task_id: %d\n", report.Dropped)
	}

	for _, sc := range stats.StateBreakdown {
		p.stateColor(sc.State).Fprintf(p.out, "  %-18s %6d  %6.1f%%\n", sc.State, sc.Count, sc.Percentage)
	}
}

// RenderTable formats a model table with numeric columns right aligned.
func RenderTable(t *model.Table) string {
	table := simpletable.New()

	header := make([]*simpletable.Cell, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = &simpletable.Cell{Align: simpletable.AlignCenter, Text: c.Name}
	}
	table.Header = &simpletable.Header{Cells: header}

	for i := range t.Rows {
		record := t.Record(i)
		row := make([]*simpletable.Cell, len(record))
		for j, text := range record {
			align := simpletable.AlignLeft
			switch t.Columns[j].Type {
			case model.ColumnInt, model.ColumnFloat, model.ColumnDuration:
				align = simpletable.AlignRight
			}
			if text == "" {
				text = "-"
			}
			row[j] = &simpletable.Cell{Align: align, Text: text}
		}
		table.Body.Cells = append(table.Body.Cells, row)
	}

	table.SetStyle(simpletable.StyleCompactLite)
	return table.String()
}
