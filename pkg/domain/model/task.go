package model

import (
	"strings"
	"time"
)

type TaskState string

const (
	TaskStateSuccess         TaskState = "success"
	TaskStateFailed          TaskState = "failed"
	TaskStateSkipped         TaskState = "skipped"
	TaskStateRunning         TaskState = "running"
	TaskStateQueued          TaskState = "queued"
	TaskStateScheduled       TaskState = "scheduled"
	TaskStateUpForRetry      TaskState = "up_for_retry"
	TaskStateUpForReschedule TaskState = "up_for_reschedule"
	TaskStateUpstreamFailed  TaskState = "upstream_failed"
	TaskStateRestarting      TaskState = "restarting"
	TaskStateDeferred        TaskState = "deferred"
	TaskStateRemoved         TaskState = "removed"
	TaskStateUnknown         TaskState = "unknown"
)

// taskStates is the enumeration order used for sorting and display.
var taskStates = []TaskState{
	TaskStateSuccess,
	TaskStateFailed,
	TaskStateSkipped,
	TaskStateRunning,
	TaskStateQueued,
	TaskStateScheduled,
	TaskStateUpForRetry,
	TaskStateUpForReschedule,
	TaskStateUpstreamFailed,
	TaskStateRestarting,
	TaskStateDeferred,
	TaskStateRemoved,
	TaskStateUnknown,
}

// AllTaskStates returns every state including the unknown sentinel, in enumeration order.
func AllTaskStates() []TaskState {
	states := make([]TaskState, len(taskStates))
	copy(states, taskStates)
	return states
}

// ParseTaskState maps an Airflow state label to a TaskState. Labels are
// matched case-insensitively; anything unrecognized reports false.
func ParseTaskState(s string) (TaskState, bool) {
	label := TaskState(strings.ToLower(strings.TrimSpace(s)))
	for _, state := range taskStates {
		if state == label {
			return state, true
		}
	}
	return "", false
}

// Order returns the position of s in the enumeration; unlisted states sort last.
func (s TaskState) Order() int {
	for i, state := range taskStates {
		if state == s {
			return i
		}
	}
	return len(taskStates)
}

// RawTaskInstance is one task instance as returned by the Airflow API, merged
// with the fields of the DAG run it belongs to. Pointer fields are nil when
// the API omitted them or sent null.
type RawTaskInstance struct {
	DagID          string
	DagRunID       string
	RunType        string
	LogicalDate    *string
	DagState       string
	TaskID         *string
	State          *string
	StartDate      *string
	EndDate        *string
	TryNumber      *int
	MaxTries       *int
	Operator       *string
	PriorityWeight *int
}

// TaskInstance is a normalized task instance row.
type TaskInstance struct {
	DagID          string
	DagRunID       string
	RunType        string
	LogicalDate    *time.Time
	DagState       string
	TaskID         string
	State          TaskState
	StartDate      *time.Time
	EndDate        *time.Time
	Duration       *time.Duration
	TryNumber      int
	MaxTries       int
	Operator       string
	PriorityWeight int
}

type NormalizeResult struct {
	Records []*TaskInstance
	Dropped int
}
