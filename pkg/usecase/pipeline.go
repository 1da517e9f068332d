package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/dagstat/pkg/domain/interfaces"
	"github.com/m-mizutani/dagstat/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
)

type PipelineUseCase struct {
	airflow   interfaces.AirflowClient
	exporters []interfaces.Exporter
	display   interfaces.Display
	config    *model.PipelineConfig
	now       func() time.Time
}

type PipelineUseCaseOptions struct {
	Airflow   interfaces.AirflowClient
	Exporters []interfaces.Exporter
	Display   interfaces.Display
	Config    *model.PipelineConfig
}

func NewPipelineUseCase(opts PipelineUseCaseOptions) *PipelineUseCase {
	return &PipelineUseCase{
		airflow:   opts.Airflow,
		exporters: opts.Exporters,
		display:   opts.Display,
		config:    opts.Config,
		now:       time.Now,
	}
}

// Execute runs fetch, normalize and aggregate once and hands the report to
// every exporter. A fetch failure aborts with no report. Exporter failures do
// not stop other exporters; they are joined and returned with the report.
func (u *PipelineUseCase) Execute(ctx context.Context) (*model.Report, error) {
	logger := ctxlog.From(ctx)
	cfg := u.config

	logger.Debug("starting pipeline",
		slog.String("dag_id", cfg.DagID),
		slog.String("period", cfg.Period),
		slog.String("window", cfg.Window.String()),
		slog.Any("states", cfg.States),
	)

	if u.display != nil {
		u.display.ShowFetching(cfg.DagID, cfg.Window)
	}

	raws, err := u.airflow.FetchTaskInstances(ctx, cfg.DagID, cfg.Window)
	if u.display != nil && err != nil {
		u.display.Stop()
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to fetch task instances", goerr.V("dag_id", cfg.DagID))
	}

	normalized := Normalize(ctx, raws)
	if u.display != nil {
		u.display.ShowFetched(len(normalized.Records), normalized.Dropped)
		u.display.Stop()
	}

	report := &model.Report{
		ID:          uuid.NewString(),
		DagID:       cfg.DagID,
		Period:      cfg.Period,
		Window:      cfg.Window,
		GeneratedAt: u.now().UTC(),
		Records:     normalized.Records,
		Dropped:     normalized.Dropped,
		Summary:     Aggregate(normalized.Records, cfg.States),
		Statistics:  BuildStatistics(normalized.Records),
		DagRuns:     SummarizeDagRuns(normalized.Records),
	}

	if len(report.Records) == 0 {
		logger.Warn("no task instances found in window",
			slog.String("dag_id", cfg.DagID),
			slog.String("window", cfg.Window.String()),
		)
	}

	var errs []error
	for _, exporter := range u.exporters {
		written, err := exporter.Export(ctx, report)
		report.Exports = append(report.Exports, written...)
		if err != nil {
			logger.Error("export failed",
				slog.String("exporter", exporter.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, goerr.Wrap(err, "export failed", goerr.V("exporter", exporter.Name())))
		}
	}

	return report, errors.Join(errs...)
}
