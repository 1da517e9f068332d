package interfaces

import (
	"context"

	"github.com/m-mizutani/dagstat/pkg/domain/model"
)

// AirflowClient fetches task instances of every DAG run whose logical date falls in window.
type AirflowClient interface {
	FetchTaskInstances(ctx context.Context, dagID string, window model.TimeWindow) ([]*model.RawTaskInstance, error)
}
