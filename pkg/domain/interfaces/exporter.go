package interfaces

import (
	"context"

	"github.com/m-mizutani/dagstat/pkg/domain/model"
)

// Exporter writes a finished report somewhere outside the process.
// Export returns the destinations it wrote to (file paths, table names).
type Exporter interface {
	Name() string
	Export(ctx context.Context, report *model.Report) ([]string, error)
}
