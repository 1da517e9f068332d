package model

import "time"

// PipelineConfig is the resolved, validated input of one report run.
type PipelineConfig struct {
	DagID             string
	Period            string
	Window            TimeWindow
	States            []TaskState
	ShowNoSkippedOnly bool
}

// Report is everything one pipeline invocation produced.
type Report struct {
	ID          string
	DagID       string
	Period      string
	Window      TimeWindow
	GeneratedAt time.Time

	Records    []*TaskInstance
	Dropped    int
	Summary    []*SummaryRow
	Statistics *Statistics
	DagRuns    []*DagRunSummary

	// Exports lists destinations written by exporters
	Exports []string
}

// CleanRuns returns the DAG runs that have no skipped task, keeping order.
func (r *Report) CleanRuns() []*DagRunSummary {
	var runs []*DagRunSummary
	for _, run := range r.DagRuns {
		if run.SkippedTasks == 0 {
			runs = append(runs, run)
		}
	}
	return runs
}
