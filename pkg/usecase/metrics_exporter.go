package usecase

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/dagstat/pkg/domain"
	"github.com/m-mizutani/dagstat/pkg/domain/interfaces"
	"github.com/m-mizutani/dagstat/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsExporter writes report gauges in the text exposition format for the
// node_exporter textfile collector.
type MetricsExporter struct {
	path string
}

func NewMetricsExporter(path string) interfaces.Exporter {
	return &MetricsExporter{path: path}
}

func (x *MetricsExporter) Name() string { return "metrics" }

func (x *MetricsExporter) Export(ctx context.Context, report *model.Report) ([]string, error) {
	registry := buildMetricsRegistry(report)

	if err := os.MkdirAll(filepath.Dir(x.path), 0750); err != nil {
		return nil, domain.ErrExport.Wrap(err, goerr.V("path", x.path))
	}
	if err := prometheus.WriteToTextfile(x.path, registry); err != nil {
		return nil, domain.ErrExport.Wrap(err, goerr.V("path", x.path))
	}

	ctxlog.From(ctx).Info("wrote metrics textfile", slog.String("path", x.path))
	return []string{x.path}, nil
}

// buildMetricsRegistry uses a fresh registry per report so series of tasks
// absent from this window are not carried over.
func buildMetricsRegistry(report *model.Report) *prometheus.Registry {
	registry := prometheus.NewRegistry()
	labels := []string{"dag_id", "task_id", "state"}

	instances := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dagstat_task_instances",
		Help: "Number of task instances per task and state in the report window",
	}, labels)
	share := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dagstat_task_state_percentage",
		Help: "Share of the task's instances in the state, 0-100",
	}, labels)
	meanDuration := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dagstat_task_mean_duration_seconds",
		Help: "Mean duration of task instances with both start and end time",
	}, labels)
	dropped := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dagstat_dropped_records",
		Help: "Task instances dropped during normalization",
	}, []string{"dag_id"})
	dagRuns := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dagstat_dag_runs",
		Help: "DAG runs in the report window",
	}, []string{"dag_id"})
	windowEnd := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dagstat_report_window_end_timestamp_seconds",
		Help: "End of the report window as a unix timestamp",
	}, []string{"dag_id"})

	registry.MustRegister(instances, share, meanDuration, dropped, dagRuns, windowEnd)

	for _, row := range report.Summary {
		values := []string{report.DagID, row.TaskID, string(row.State)}
		instances.WithLabelValues(values...).Set(float64(row.Count))
		share.WithLabelValues(values...).Set(row.Percentage)
		if row.MeanDuration != nil {
			meanDuration.WithLabelValues(values...).Set(row.MeanDuration.Seconds())
		}
	}
	dropped.WithLabelValues(report.DagID).Set(float64(report.Dropped))
	dagRuns.WithLabelValues(report.DagID).Set(float64(len(report.DagRuns)))
	windowEnd.WithLabelValues(report.DagID).Set(float64(report.Window.End.Unix()))

	return registry
}
