package usecase

import (
	"sort"

	"github.com/m-mizutani/dagstat/pkg/domain/model"
)

// BuildStatistics counts task instances, DAG runs and task ids, and breaks
// the instances down by state (most frequent first).
func BuildStatistics(records []*model.TaskInstance) *model.Statistics {
	stats := &model.Statistics{
		TotalTasks: len(records),
	}
	if len(records) == 0 {
		return stats
	}

	runs := make(map[string]struct{})
	tasks := make(map[string]struct{})
	counts := make(map[model.TaskState]int)
	for _, r := range records {
		runs[r.DagRunID] = struct{}{}
		tasks[r.TaskID] = struct{}{}
		counts[r.State]++
	}
	stats.UniqueDagRuns = len(runs)
	stats.UniqueTaskIDs = len(tasks)

	for state, count := range counts {
		stats.StateBreakdown = append(stats.StateBreakdown, model.StateCount{
			State:      state,
			Count:      count,
			Percentage: percentage(count, len(records)),
		})
	}
	sort.Slice(stats.StateBreakdown, func(i, j int) bool {
		a, b := stats.StateBreakdown[i], stats.StateBreakdown[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.State.Order() < b.State.Order()
	})

	return stats
}

// SummarizeDagRuns builds one summary per DAG run, newest logical date first.
// Runs without a logical date sort last.
func SummarizeDagRuns(records []*model.TaskInstance) []*model.DagRunSummary {
	byRun := make(map[string]*model.DagRunSummary)
	for _, r := range records {
		run, ok := byRun[r.DagRunID]
		if !ok {
			run = &model.DagRunSummary{
				DagRunID:    r.DagRunID,
				RunType:     r.RunType,
				LogicalDate: r.LogicalDate,
				DagState:    r.DagState,
			}
			byRun[r.DagRunID] = run
		}

		run.TotalTasks++
		switch r.State {
		case model.TaskStateSuccess:
			run.SuccessTasks++
		case model.TaskStateFailed:
			run.FailedTasks++
		case model.TaskStateSkipped:
			run.SkippedTasks++
		}
		if r.Duration != nil {
			run.TotalDuration += *r.Duration
		}
	}

	runs := make([]*model.DagRunSummary, 0, len(byRun))
	for _, run := range byRun {
		runs = append(runs, run)
	}
	sort.Slice(runs, func(i, j int) bool {
		a, b := runs[i].LogicalDate, runs[j].LogicalDate
		switch {
		case a != nil && b != nil && !a.Equal(*b):
			return a.After(*b)
		case a != nil && b == nil:
			return true
		case a == nil && b != nil:
			return false
		}
		return runs[i].DagRunID > runs[j].DagRunID
	})

	return runs
}
