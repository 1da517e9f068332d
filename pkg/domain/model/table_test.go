package model_test

import (
	"testing"
	"time"

	"github.com/m-mizutani/dagstat/pkg/domain/model"
	"github.com/m-mizutani/gt"
)

func TestSummaryTable(t *testing.T) {
	mean := 1500 * time.Millisecond
	table := model.NewSummaryTable([]*model.SummaryRow{
		{TaskID: "extract", State: model.TaskStateSuccess, Count: 2, Percentage: 200.0 / 3, MeanDuration: &mean},
		{TaskID: "extract", State: model.TaskStateFailed, Count: 1, Percentage: 100.0 / 3},
	})

	gt.Equal(t, table.Header(), []string{"task_id", "state", "count", "percentage", "mean_duration_seconds"})
	gt.Equal(t, len(table.Rows), 2)
	gt.Equal(t, table.Record(0), []string{"extract", "success", "2", "66.67", "1.500"})
	gt.Equal(t, table.Record(1), []string{"extract", "failed", "1", "33.33", ""})
}

func TestTaskInstanceTable(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)
	d := end.Sub(start)

	table := model.NewTaskInstanceTable([]*model.TaskInstance{
		{
			DagID:     "etl",
			DagRunID:  "scheduled__2024-05-01",
			RunType:   "scheduled",
			TaskID:    "load",
			State:     model.TaskStateSuccess,
			StartDate: &start,
			EndDate:   &end,
			Duration:  &d,
			TryNumber: 1,
		},
	})

	record := table.Record(0)
	gt.Equal(t, len(record), len(table.Columns))
	gt.Equal(t, record[0], "etl")
	gt.Equal(t, record[3], "")
	gt.Equal(t, record[6], "success")
	gt.Equal(t, record[7], "2024-05-01T10:00:00Z")
	gt.Equal(t, record[9], "90.000")
	gt.Equal(t, record[10], "1")
}

func TestReportCleanRuns(t *testing.T) {
	report := &model.Report{
		DagRuns: []*model.DagRunSummary{
			{DagRunID: "a", SkippedTasks: 0, SuccessTasks: 3, TotalTasks: 4},
			{DagRunID: "b", SkippedTasks: 1, TotalTasks: 4},
			{DagRunID: "c", SkippedTasks: 0, TotalTasks: 0},
		},
	}

	runs := report.CleanRuns()
	gt.Equal(t, len(runs), 2)
	gt.Equal(t, runs[0].DagRunID, "a")
	gt.Equal(t, runs[0].SuccessRate(), 75.0)
	gt.Equal(t, runs[1].SuccessRate(), 0.0)
}
