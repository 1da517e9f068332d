package usecase

import (
	"sort"
	"time"

	"github.com/m-mizutani/dagstat/pkg/domain/model"
)

type groupKey struct {
	taskID string
	state  model.TaskState
}

type groupAcc struct {
	count         int
	durationSum   time.Duration
	durationCount int
}

// Aggregate groups records by (task, state). Percentages are relative to all
// records of the task, including states filtered out of the result. Groups
// whose state is not in states are omitted; an empty states list keeps all.
// Output is sorted by task id, then state enumeration order.
func Aggregate(records []*model.TaskInstance, states []model.TaskState) []*model.SummaryRow {
	var filter map[model.TaskState]bool
	if len(states) > 0 {
		filter = make(map[model.TaskState]bool, len(states))
		for _, s := range states {
			filter[s] = true
		}
	}

	totals := make(map[string]int)
	groups := make(map[groupKey]*groupAcc)

	for _, r := range records {
		totals[r.TaskID]++

		if filter != nil && !filter[r.State] {
			continue
		}

		key := groupKey{taskID: r.TaskID, state: r.State}
		acc, ok := groups[key]
		if !ok {
			acc = &groupAcc{}
			groups[key] = acc
		}
		acc.count++
		if r.Duration != nil {
			acc.durationSum += *r.Duration
			acc.durationCount++
		}
	}

	rows := make([]*model.SummaryRow, 0, len(groups))
	for key, acc := range groups {
		row := &model.SummaryRow{
			TaskID:     key.taskID,
			State:      key.state,
			Count:      acc.count,
			Percentage: percentage(acc.count, totals[key.taskID]),
		}
		if acc.durationCount > 0 {
			mean := acc.durationSum / time.Duration(acc.durationCount)
			row.MeanDuration = &mean
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TaskID != rows[j].TaskID {
			return rows[i].TaskID < rows[j].TaskID
		}
		return rows[i].State.Order() < rows[j].State.Order()
	})

	return rows
}

func percentage(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}
