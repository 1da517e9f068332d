package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/m-mizutani/dagstat/pkg/domain/model"
	"github.com/m-mizutani/dagstat/pkg/usecase"
	"github.com/m-mizutani/gt"
)

func ptr[T any](v T) *T { return &v }

func TestNormalize(t *testing.T) {
	ctx := context.Background()

	t.Run("converts fields and computes duration", func(t *testing.T) {
		result := usecase.Normalize(ctx, []*model.RawTaskInstance{
			{
				DagID:          "etl",
				DagRunID:       "run_1",
				RunType:        "scheduled",
				LogicalDate:    ptr("2024-05-01T00:00:00+00:00"),
				DagState:       "success",
				TaskID:         ptr(" extract "),
				State:          ptr("SUCCESS"),
				StartDate:      ptr("2024-05-01T00:00:01.500000+00:00"),
				EndDate:        ptr("2024-05-01T00:00:04+00:00"),
				TryNumber:      ptr(2),
				MaxTries:       ptr(3),
				Operator:       ptr("PythonOperator"),
				PriorityWeight: ptr(5),
			},
		})

		gt.Equal(t, result.Dropped, 0)
		gt.Equal(t, len(result.Records), 1)

		r := result.Records[0]
		gt.Equal(t, r.TaskID, "extract")
		gt.Equal(t, r.State, model.TaskStateSuccess)
		gt.True(t, r.LogicalDate.Equal(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))
		gt.Equal(t, *r.Duration, 2500*time.Millisecond)
		gt.Equal(t, r.TryNumber, 2)
		gt.Equal(t, r.MaxTries, 3)
		gt.Equal(t, r.Operator, "PythonOperator")
		gt.Equal(t, r.PriorityWeight, 5)
	})

	t.Run("missing start yields null duration", func(t *testing.T) {
		result := usecase.Normalize(ctx, []*model.RawTaskInstance{
			{DagRunID: "run_1", TaskID: ptr("load"), State: ptr("failed"), EndDate: ptr("2024-05-01T00:00:04Z")},
		})
		gt.Equal(t, len(result.Records), 1)
		gt.V(t, result.Records[0].StartDate).Nil()
		gt.V(t, result.Records[0].EndDate).NotNil()
		gt.V(t, result.Records[0].Duration).Nil()
	})

	t.Run("end before start yields null duration", func(t *testing.T) {
		result := usecase.Normalize(ctx, []*model.RawTaskInstance{
			{
				DagRunID:  "run_1",
				TaskID:    ptr("load"),
				StartDate: ptr("2024-05-01T00:00:10Z"),
				EndDate:   ptr("2024-05-01T00:00:04Z"),
			},
		})
		gt.V(t, result.Records[0].Duration).Nil()
	})

	t.Run("null or unrecognized state becomes unknown", func(t *testing.T) {
		result := usecase.Normalize(ctx, []*model.RawTaskInstance{
			{DagRunID: "run_1", TaskID: ptr("a")},
			{DagRunID: "run_1", TaskID: ptr("b"), State: ptr("exploded")},
			{DagRunID: "run_1", TaskID: ptr("c"), State: ptr("up_for_retry")},
		})
		gt.Equal(t, len(result.Records), 3)
		gt.Equal(t, result.Records[0].State, model.TaskStateUnknown)
		gt.Equal(t, result.Records[1].State, model.TaskStateUnknown)
		gt.Equal(t, result.Records[2].State, model.TaskStateUpForRetry)
	})

	t.Run("records without task id are dropped and counted", func(t *testing.T) {
		raws := []*model.RawTaskInstance{
			{DagRunID: "run_1", TaskID: ptr("a"), State: ptr("success")},
			{DagRunID: "run_1", State: ptr("success")},
			{DagRunID: "run_1", TaskID: ptr("  "), State: ptr("failed")},
			nil,
		}
		result := usecase.Normalize(ctx, raws)
		gt.Equal(t, len(result.Records), 1)
		gt.Equal(t, result.Dropped, 3)
		gt.Equal(t, len(result.Records)+result.Dropped, len(raws))
	})

	t.Run("empty input", func(t *testing.T) {
		result := usecase.Normalize(ctx, nil)
		gt.Equal(t, len(result.Records), 0)
		gt.Equal(t, result.Dropped, 0)
	})
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 5, 1, 10, 30, 0, 0, time.UTC)

	testCases := []struct {
		name  string
		input *string
		want  *time.Time
	}{
		{name: "RFC3339 with Z", input: ptr("2024-05-01T10:30:00Z"), want: &want},
		{name: "offset", input: ptr("2024-05-01T12:30:00+02:00"), want: &want},
		{name: "no zone is UTC", input: ptr("2024-05-01 10:30:00"), want: &want},
		{name: "nil", input: nil, want: nil},
		{name: "empty", input: ptr(""), want: nil},
		{name: "garbage", input: ptr("not a date"), want: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := usecase.ParseTimestamp(tc.input)
			if tc.want == nil {
				gt.V(t, got).Nil()
				return
			}
			gt.V(t, got).NotNil()
			gt.True(t, got.Equal(*tc.want))
			gt.Equal(t, got.Location(), time.UTC)
		})
	}
}
