package usecase

import (
	"database/sql"
	"time"

	"github.com/m-mizutani/dagstat/pkg/domain/model"
	"github.com/prometheus/client_golang/prometheus"
)

// Export for testing
var (
	ParseTimestamp   = parseTimestamp
	SanitizeFileName = sanitizeFileName
	ClickHouseDSN    = clickHouseDSN
	MaskWebhookURL   = maskWebhookURL
)

// ConfigService exports for testing
type ConfigService = configService

// Export configService methods for testing
func (c *configService) FindConfigInDirectory(dir string) string {
	return c.findConfigInDirectory(dir)
}

func NewClickHouseExporterWithDB(db *sql.DB, cfg model.ClickHouseConfig, now time.Time) *ClickHouseExporter {
	x := newClickHouseExporter(db, cfg)
	x.now = func() time.Time { return now }
	return x
}

func BuildMetricsRegistry(report *model.Report) *prometheus.Registry {
	return buildMetricsRegistry(report)
}

func (u *PipelineUseCase) SetNow(now time.Time) {
	u.now = func() time.Time { return now }
}
