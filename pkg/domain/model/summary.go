package model

import "time"

// SummaryRow aggregates the task instances of one task in one state.
// Percentage is relative to all instances of the task, in [0, 100].
type SummaryRow struct {
	TaskID       string
	State        TaskState
	Count        int
	Percentage   float64
	MeanDuration *time.Duration
}

type StateCount struct {
	State      TaskState
	Count      int
	Percentage float64
}

type Statistics struct {
	TotalTasks     int
	UniqueDagRuns  int
	UniqueTaskIDs  int
	StateBreakdown []StateCount
}

// DagRunSummary counts the task states of a single DAG run.
type DagRunSummary struct {
	DagRunID      string
	RunType       string
	LogicalDate   *time.Time
	DagState      string
	SuccessTasks  int
	FailedTasks   int
	SkippedTasks  int
	TotalTasks    int
	TotalDuration time.Duration
}

func (s *DagRunSummary) SuccessRate() float64 {
	if s.TotalTasks == 0 {
		return 0
	}
	return float64(s.SuccessTasks) / float64(s.TotalTasks) * 100
}
