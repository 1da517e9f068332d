package model

import (
	"strconv"
	"time"
)

type ColumnType int

const (
	ColumnString ColumnType = iota
	ColumnInt
	ColumnFloat
	ColumnTime
	ColumnDuration
)

type Column struct {
	Name string
	Type ColumnType
}

// Table is the typed tabular form consumed by presenters and exporters.
// A nil cell is a null value.
type Table struct {
	Name    string
	Columns []Column
	Rows    [][]any
}

func (t *Table) Header() []string {
	header := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = c.Name
	}
	return header
}

// Record formats row i as strings, one per column. Nulls become "".
func (t *Table) Record(i int) []string {
	row := t.Rows[i]
	record := make([]string, len(row))
	for j, cell := range row {
		record[j] = FormatCell(cell)
	}
	return record
}

// FormatCell renders a cell value. Durations are written in seconds.
func FormatCell(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case TaskState:
		return string(v)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', 2, 64)
	case time.Time:
		return v.Format(time.RFC3339)
	case *time.Time:
		if v == nil {
			return ""
		}
		return v.Format(time.RFC3339)
	case time.Duration:
		return strconv.FormatFloat(v.Seconds(), 'f', 3, 64)
	case *time.Duration:
		if v == nil {
			return ""
		}
		return strconv.FormatFloat(v.Seconds(), 'f', 3, 64)
	default:
		return ""
	}
}

func NewTaskInstanceTable(records []*TaskInstance) *Table {
	t := &Table{
		Name: "task_instances",
		Columns: []Column{
			{Name: "dag_id", Type: ColumnString},
			{Name: "dag_run_id", Type: ColumnString},
			{Name: "run_type", Type: ColumnString},
			{Name: "logical_date", Type: ColumnTime},
			{Name: "dag_state", Type: ColumnString},
			{Name: "task_id", Type: ColumnString},
			{Name: "state", Type: ColumnString},
			{Name: "start_date", Type: ColumnTime},
			{Name: "end_date", Type: ColumnTime},
			{Name: "duration_seconds", Type: ColumnDuration},
			{Name: "try_number", Type: ColumnInt},
			{Name: "max_tries", Type: ColumnInt},
			{Name: "operator", Type: ColumnString},
			{Name: "priority_weight", Type: ColumnInt},
		},
	}

	for _, r := range records {
		t.Rows = append(t.Rows, []any{
			r.DagID,
			r.DagRunID,
			r.RunType,
			nullTime(r.LogicalDate),
			r.DagState,
			r.TaskID,
			r.State,
			nullTime(r.StartDate),
			nullTime(r.EndDate),
			nullDuration(r.Duration),
			r.TryNumber,
			r.MaxTries,
			r.Operator,
			r.PriorityWeight,
		})
	}
	return t
}

func NewSummaryTable(rows []*SummaryRow) *Table {
	t := &Table{
		Name: "summary",
		Columns: []Column{
			{Name: "task_id", Type: ColumnString},
			{Name: "state", Type: ColumnString},
			{Name: "count", Type: ColumnInt},
			{Name: "percentage", Type: ColumnFloat},
			{Name: "mean_duration_seconds", Type: ColumnDuration},
		},
	}

	for _, r := range rows {
		t.Rows = append(t.Rows, []any{
			r.TaskID,
			r.State,
			r.Count,
			r.Percentage,
			nullDuration(r.MeanDuration),
		})
	}
	return t
}

func NewDagRunTable(runs []*DagRunSummary) *Table {
	t := &Table{
		Name: "dag_runs",
		Columns: []Column{
			{Name: "dag_run_id", Type: ColumnString},
			{Name: "run_type", Type: ColumnString},
			{Name: "logical_date", Type: ColumnTime},
			{Name: "dag_state", Type: ColumnString},
			{Name: "success_tasks", Type: ColumnInt},
			{Name: "failed_tasks", Type: ColumnInt},
			{Name: "skipped_tasks", Type: ColumnInt},
			{Name: "total_tasks", Type: ColumnInt},
			{Name: "total_duration_seconds", Type: ColumnDuration},
		},
	}

	for _, r := range runs {
		t.Rows = append(t.Rows, []any{
			r.DagRunID,
			r.RunType,
			nullTime(r.LogicalDate),
			r.DagState,
			r.SuccessTasks,
			r.FailedTasks,
			r.SkippedTasks,
			r.TotalTasks,
			r.TotalDuration,
		})
	}
	return t
}

// nullTime and nullDuration keep a nil pointer as an untyped nil cell.
func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullDuration(d *time.Duration) any {
	if d == nil {
		return nil
	}
	return *d
}
