package model_test

import (
	"testing"

	"github.com/m-mizutani/dagstat/pkg/domain/model"
	"github.com/m-mizutani/gt"
)

func TestParseTaskState(t *testing.T) {
	t.Run("known labels", func(t *testing.T) {
		for _, state := range model.AllTaskStates() {
			got, ok := model.ParseTaskState(string(state))
			gt.True(t, ok)
			gt.Equal(t, got, state)
		}
	})

	t.Run("case and whitespace are ignored", func(t *testing.T) {
		got, ok := model.ParseTaskState("  UPSTREAM_FAILED ")
		gt.True(t, ok)
		gt.Equal(t, got, model.TaskStateUpstreamFailed)
	})

	t.Run("unrecognized label", func(t *testing.T) {
		_, ok := model.ParseTaskState("none")
		gt.False(t, ok)
	})
}

func TestTaskStateOrder(t *testing.T) {
	gt.Equal(t, model.TaskStateSuccess.Order(), 0)
	gt.True(t, model.TaskStateFailed.Order() < model.TaskStateUnknown.Order())
	gt.Equal(t, model.TaskState("bogus").Order(), len(model.AllTaskStates()))
}
