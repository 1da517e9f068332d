package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/dagstat/pkg/domain"
	"github.com/m-mizutani/dagstat/pkg/domain/interfaces"
	"github.com/m-mizutani/dagstat/pkg/domain/model"
	"github.com/m-mizutani/dagstat/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

func newLogger(cmd *cli.Command) *slog.Logger {
	logLevel := slog.LevelWarn
	if cmd.Bool("debug") {
		logLevel = slog.LevelDebug
	} else if cmd.Bool("verbose") {
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
}

func RunReport(ctx context.Context, cmd *cli.Command) error {
	logger := newLogger(cmd)
	ctx = ctxlog.With(ctx, logger)

	flags := NewConfig(cmd)
	configService := usecase.NewConfigService()

	if cmd.Bool("init") {
		return runInit(configService, flags.ConfigPath, cmd.Bool("force"))
	}

	currentDir, err := os.Getwd()
	if err != nil {
		return domain.ErrConfiguration.Wrap(err)
	}

	cfg, path, err := loadConfig(configService, flags.ConfigPath, currentDir)
	if err != nil {
		return err
	}
	if path != "" {
		logger.Debug("loaded config", slog.String("path", path))
	}

	flags.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return domain.ErrConfiguration.Wrap(err)
	}

	pipelineConfig, err := ToPipelineConfig(cfg, time.Now())
	if err != nil {
		return domain.ErrConfiguration.Wrap(err)
	}

	exporters, closeExporters, err := buildExporters(cfg.Export)
	if err != nil {
		return err
	}
	defer closeExporters()

	airflow := usecase.NewAirflowClient(usecase.AirflowClientOptions{
		BaseURL:    cfg.Airflow.URL,
		APIVersion: cfg.Airflow.APIVersion,
		PageSize:   cfg.Airflow.PageSize,
		Auth:       usecase.NewAuthService(cfg.Airflow),
	})

	var display interfaces.Display = noopDisplay{}
	if isTerminal(os.Stderr) {
		display = NewInlineDisplayManager(os.Stderr)
	}

	pipeline := usecase.NewPipelineUseCase(usecase.PipelineUseCaseOptions{
		Airflow:   airflow,
		Exporters: exporters,
		Display:   display,
		Config:    pipelineConfig,
	})

	report, err := pipeline.Execute(ctx)
	if report == nil {
		return err
	}
	exportErr := err

	if flags.Interactive {
		if err := RunTUI(report); err != nil {
			return errors.Join(goerr.Wrap(err, "interactive display failed"), exportErr)
		}
	} else {
		NewPresenter(os.Stdout, cfg.Display).Render(report, pipelineConfig.ShowNoSkippedOnly)
	}

	return exportErr
}

// buildExporters returns the exporters enabled in cfg and a function closing
// the ones holding connections.
func buildExporters(cfg model.ExportConfig) ([]interfaces.Exporter, func(), error) {
	var exporters []interfaces.Exporter
	var closers []io.Closer

	if cfg.SaveData || cfg.SaveSummary {
		exporters = append(exporters, usecase.NewCSVExporter(cfg))
	}
	if cfg.MetricsTextfile != "" {
		exporters = append(exporters, usecase.NewMetricsExporter(cfg.MetricsTextfile))
	}
	if cfg.Slack.WebhookURL != "" {
		exporters = append(exporters, usecase.NewSlackExporter(cfg.Slack))
	}
	if cfg.ClickHouse.Enabled {
		ch, err := usecase.NewClickHouseExporter(cfg.ClickHouse)
		if err != nil {
			return nil, nil, err
		}
		exporters = append(exporters, ch)
		closers = append(closers, ch)
	}

	return exporters, func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}, nil
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
