package interfaces

import (
	"github.com/m-mizutani/dagstat/pkg/domain/model"
)

// Display reports pipeline progress while the report is being built
type Display interface {
	ShowFetching(dagID string, window model.TimeWindow)
	ShowFetched(records, dropped int)
	Stop()
}
