package usecase

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/dagstat/pkg/domain"
	"github.com/m-mizutani/dagstat/pkg/domain/interfaces"
	"github.com/m-mizutani/dagstat/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

type CSVExporter struct {
	outputDir   string
	saveData    bool
	saveSummary bool
}

func NewCSVExporter(cfg model.ExportConfig) interfaces.Exporter {
	return &CSVExporter{
		outputDir:   cfg.OutputDir,
		saveData:    cfg.SaveData,
		saveSummary: cfg.SaveSummary,
	}
}

func (x *CSVExporter) Name() string { return "csv" }

// Export writes the task instance table and/or the summary table as CSV files
// into the output directory.
func (x *CSVExporter) Export(ctx context.Context, report *model.Report) ([]string, error) {
	logger := ctxlog.From(ctx)
	dagID := sanitizeFileName(report.DagID)
	period := sanitizeFileName(report.Period)

	var written []string

	if x.saveData {
		name := fmt.Sprintf("airflow_tasks_%s_%s_%d_records.csv", dagID, period, len(report.Records))
		path := filepath.Join(x.outputDir, name)
		if err := writeTableFile(path, model.NewTaskInstanceTable(report.Records)); err != nil {
			return written, err
		}
		logger.Info("saved task instances", slog.String("path", path))
		written = append(written, path)
	}

	if x.saveSummary {
		name := fmt.Sprintf("airflow_summary_%s_%s.csv", dagID, period)
		path := filepath.Join(x.outputDir, name)
		if err := writeTableFile(path, model.NewSummaryTable(report.Summary)); err != nil {
			return written, err
		}
		logger.Info("saved summary", slog.String("path", path))
		written = append(written, path)
	}

	return written, nil
}

func writeTableFile(path string, table *model.Table) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return domain.ErrExport.Wrap(err, goerr.V("path", path))
	}

	f, err := os.Create(path) // #nosec G304
	if err != nil {
		return domain.ErrExport.Wrap(err, goerr.V("path", path))
	}
	defer f.Close()

	if err := WriteTable(f, table); err != nil {
		return goerr.Wrap(err, "failed to write csv", goerr.V("path", path))
	}
	return f.Close()
}

// WriteTable writes a header line followed by one line per row.
func WriteTable(w io.Writer, table *model.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(table.Header()); err != nil {
		return domain.ErrExport.Wrap(err, goerr.V("table", table.Name))
	}
	for i := range table.Rows {
		if err := cw.Write(table.Record(i)); err != nil {
			return domain.ErrExport.Wrap(err, goerr.V("table", table.Name), goerr.V("row", i))
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return domain.ErrExport.Wrap(err, goerr.V("table", table.Name))
	}
	return nil
}

func sanitizeFileName(s string) string {
	s = unsafeFileChars.ReplaceAllString(s, "_")
	if s == "" {
		return "unknown"
	}
	return s
}
