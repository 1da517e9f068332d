package usecase

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	_ "github.com/ClickHouse/clickhouse-go" // registers the "clickhouse" driver
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/dagstat/pkg/domain"
	"github.com/m-mizutani/dagstat/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

const defaultClickHouseTimeout = 10 * time.Second

// ClickHouseExporter appends summary rows of each report to a MergeTree table.
type ClickHouseExporter struct {
	db       *sql.DB
	database string
	table    string
	now      func() time.Time
}

func NewClickHouseExporter(cfg model.ClickHouseConfig) (*ClickHouseExporter, error) {
	db, err := sql.Open("clickhouse", clickHouseDSN(cfg))
	if err != nil {
		return nil, domain.ErrConfiguration.Wrap(err, goerr.V("host", cfg.Host))
	}
	return newClickHouseExporter(db, cfg), nil
}

func newClickHouseExporter(db *sql.DB, cfg model.ClickHouseConfig) *ClickHouseExporter {
	return &ClickHouseExporter{
		db:       db,
		database: cfg.Database,
		table:    cfg.Table,
		now:      time.Now,
	}
}

func clickHouseDSN(cfg model.ClickHouseConfig) string {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultClickHouseTimeout
	}
	seconds := strconv.Itoa(int(timeout / time.Second))

	dsn := url.URL{
		Scheme: "tcp",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
	}
	values := url.Values{
		"username":      []string{cfg.Username},
		"password":      []string{cfg.Password},
		"database":      []string{cfg.Database},
		"secure":        []string{strconv.FormatBool(cfg.Secure)},
		"skip_verify":   []string{strconv.FormatBool(cfg.SkipVerify)},
		"read_timeout":  []string{seconds},
		"write_timeout": []string{seconds},
	}
	dsn.RawQuery = values.Encode()
	return dsn.String()
}

func (x *ClickHouseExporter) Name() string { return "clickhouse" }

func (x *ClickHouseExporter) tableName() string {
	return x.database + "." + x.table
}

func (x *ClickHouseExporter) createTableSQL() string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	report_id String,
	dag_id String,
	window_start DateTime,
	window_end DateTime,
	task_id String,
	state LowCardinality(String),
	count UInt64,
	percentage Float64,
	mean_duration_seconds Nullable(Float64),
	exported_at DateTime
) ENGINE = MergeTree() ORDER BY (dag_id, window_end, task_id, state)`, x.tableName())
}

func (x *ClickHouseExporter) insertSQL() string {
	return fmt.Sprintf(`INSERT INTO %s (report_id, dag_id, window_start, window_end, task_id, state, count, percentage, mean_duration_seconds, exported_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, x.tableName())
}

// Export creates the table when missing and inserts every summary row in a
// single batch.
func (x *ClickHouseExporter) Export(ctx context.Context, report *model.Report) ([]string, error) {
	logger := ctxlog.From(ctx)

	if _, err := x.db.ExecContext(ctx, x.createTableSQL()); err != nil {
		return nil, domain.ErrExport.Wrap(err, goerr.V("table", x.tableName()))
	}

	if len(report.Summary) == 0 {
		logger.Debug("no summary rows to export", slog.String("table", x.tableName()))
		return []string{x.tableName()}, nil
	}

	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, domain.ErrExport.Wrap(err, goerr.V("table", x.tableName()))
	}

	stmt, err := tx.PrepareContext(ctx, x.insertSQL())
	if err != nil {
		_ = tx.Rollback()
		return nil, domain.ErrExport.Wrap(err, goerr.V("table", x.tableName()))
	}
	defer stmt.Close()

	exportedAt := x.now().UTC()
	for _, row := range report.Summary {
		var mean any
		if row.MeanDuration != nil {
			mean = row.MeanDuration.Seconds()
		}

		if _, err := stmt.ExecContext(ctx,
			report.ID,
			report.DagID,
			report.Window.Start,
			report.Window.End,
			row.TaskID,
			string(row.State),
			uint64(row.Count),
			row.Percentage,
			mean,
			exportedAt,
		); err != nil {
			_ = tx.Rollback()
			return nil, domain.ErrExport.Wrap(err,
				goerr.V("table", x.tableName()),
				goerr.V("task_id", row.TaskID),
			)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, domain.ErrExport.Wrap(err, goerr.V("table", x.tableName()))
	}

	logger.Info("exported summary to clickhouse",
		slog.String("table", x.tableName()),
		slog.Int("rows", len(report.Summary)),
	)
	return []string{x.tableName()}, nil
}

func (x *ClickHouseExporter) Close() error {
	return x.db.Close()
}
