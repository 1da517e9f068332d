package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/dagstat/pkg/domain"
	"github.com/m-mizutani/dagstat/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

// Normalize converts raw task instances into canonical rows. Records without
// a task id are dropped and counted; every other record yields exactly one row.
func Normalize(ctx context.Context, raws []*model.RawTaskInstance) *model.NormalizeResult {
	logger := ctxlog.From(ctx)

	result := &model.NormalizeResult{
		Records: make([]*model.TaskInstance, 0, len(raws)),
	}

	for i, raw := range raws {
		record, err := normalizeRecord(raw)
		if err != nil {
			result.Dropped++
			logger.Debug("dropped task instance",
				slog.Int("index", i),
				slog.String("error", err.Error()),
			)
			continue
		}
		result.Records = append(result.Records, record)
	}

	if result.Dropped > 0 {
		logger.Warn("dropped task instances without task_id",
			slog.Int("dropped", result.Dropped),
			slog.Int("total", len(raws)),
		)
	}

	return result
}

func normalizeRecord(raw *model.RawTaskInstance) (*model.TaskInstance, error) {
	if raw == nil {
		return nil, domain.ErrSchema.Wrap(goerr.New("nil record"))
	}
	if raw.TaskID == nil || strings.TrimSpace(*raw.TaskID) == "" {
		return nil, domain.ErrSchema.Wrap(goerr.New("task_id is missing"),
			goerr.V("dag_run_id", raw.DagRunID),
		)
	}

	record := &model.TaskInstance{
		DagID:          raw.DagID,
		DagRunID:       raw.DagRunID,
		RunType:        raw.RunType,
		LogicalDate:    parseTimestamp(raw.LogicalDate),
		DagState:       raw.DagState,
		TaskID:         strings.TrimSpace(*raw.TaskID),
		State:          normalizeState(raw.State),
		StartDate:      parseTimestamp(raw.StartDate),
		EndDate:        parseTimestamp(raw.EndDate),
		TryNumber:      derefInt(raw.TryNumber),
		MaxTries:       derefInt(raw.MaxTries),
		PriorityWeight: derefInt(raw.PriorityWeight),
	}
	if raw.Operator != nil {
		record.Operator = *raw.Operator
	}

	if record.StartDate != nil && record.EndDate != nil {
		d := record.EndDate.Sub(*record.StartDate)
		if d >= 0 {
			record.Duration = &d
		}
	}

	return record, nil
}

func normalizeState(s *string) model.TaskState {
	if s == nil {
		return model.TaskStateUnknown
	}
	state, ok := model.ParseTaskState(*s)
	if !ok {
		return model.TaskStateUnknown
	}
	return state
}

// parseTimestamp accepts the timestamp layouts seen across Airflow versions.
// Values without a zone are read as UTC. Empty or unparsable values are nil.
func parseTimestamp(s *string) *time.Time {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	t, err := dateparse.ParseIn(strings.TrimSpace(*s), time.UTC)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

func derefInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
