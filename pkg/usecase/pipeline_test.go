package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/dagstat/pkg/domain"
	"github.com/m-mizutani/dagstat/pkg/domain/interfaces"
	"github.com/m-mizutani/dagstat/pkg/domain/model"
	"github.com/m-mizutani/dagstat/pkg/usecase"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/gt"
)

type mockAirflowClient struct {
	raws   []*model.RawTaskInstance
	err    error
	dagID  string
	window model.TimeWindow
}

func (m *mockAirflowClient) FetchTaskInstances(ctx context.Context, dagID string, window model.TimeWindow) ([]*model.RawTaskInstance, error) {
	m.dagID = dagID
	m.window = window
	return m.raws, m.err
}

type mockExporter struct {
	name     string
	written  []string
	err      error
	received *model.Report
}

func (m *mockExporter) Name() string { return m.name }

func (m *mockExporter) Export(ctx context.Context, report *model.Report) ([]string, error) {
	m.received = report
	return m.written, m.err
}

type mockDisplay struct {
	fetching bool
	records  int
	dropped  int
	stopped  bool
}

func (m *mockDisplay) ShowFetching(dagID string, window model.TimeWindow) { m.fetching = true }
func (m *mockDisplay) ShowFetched(records, dropped int) {
	m.records = records
	m.dropped = dropped
}
func (m *mockDisplay) Stop() { m.stopped = true }

func pipelineConfig(t *testing.T, states ...model.TaskState) *model.PipelineConfig {
	return &model.PipelineConfig{
		DagID:  "etl",
		Period: "1d",
		Window: testWindow(t),
		States: states,
	}
}

func TestPipelineUseCase(t *testing.T) {
	raws := []*model.RawTaskInstance{
		{DagID: "etl", DagRunID: "run_1", LogicalDate: ptr("2024-05-01T01:00:00Z"), TaskID: ptr("extract"), State: ptr("success"),
			StartDate: ptr("2024-05-01T01:00:00Z"), EndDate: ptr("2024-05-01T01:00:10Z")},
		{DagID: "etl", DagRunID: "run_1", LogicalDate: ptr("2024-05-01T01:00:00Z"), TaskID: ptr("load"), State: ptr("failed")},
		{DagID: "etl", DagRunID: "run_2", LogicalDate: ptr("2024-05-01T02:00:00Z"), TaskID: ptr("extract"), State: ptr("success"),
			StartDate: ptr("2024-05-01T02:00:00Z"), EndDate: ptr("2024-05-01T02:00:20Z")},
		{DagID: "etl", DagRunID: "run_2", LogicalDate: ptr("2024-05-01T02:00:00Z"), TaskID: nil, State: ptr("success")},
	}

	t.Run("builds report and runs exporters", func(t *testing.T) {
		airflow := &mockAirflowClient{raws: raws}
		csv := &mockExporter{name: "csv", written: []string{"/tmp/a.csv"}}
		metrics := &mockExporter{name: "metrics", written: []string{"/tmp/a.prom"}}
		display := &mockDisplay{}
		now := time.Date(2024, 5, 2, 0, 0, 1, 0, time.UTC)

		uc := usecase.NewPipelineUseCase(usecase.PipelineUseCaseOptions{
			Airflow:   airflow,
			Exporters: []interfaces.Exporter{csv, metrics},
			Display:   display,
			Config:    pipelineConfig(t),
		})
		uc.SetNow(now)

		report, err := uc.Execute(context.Background())
		gt.NoError(t, err)
		gt.Equal(t, airflow.dagID, "etl")
		gt.True(t, airflow.window.Start.Equal(testWindow(t).Start))
		gt.True(t, airflow.window.End.Equal(testWindow(t).End))

		gt.NotEqual(t, report.ID, "")
		gt.True(t, report.GeneratedAt.Equal(now))
		gt.Equal(t, len(report.Records), 3)
		gt.Equal(t, report.Dropped, 1)
		gt.Equal(t, len(report.Summary), 2)
		gt.Equal(t, report.Summary[0].TaskID, "extract")
		gt.Equal(t, report.Summary[0].Count, 2)
		gt.Equal(t, *report.Summary[0].MeanDuration, 15*time.Second)
		gt.Equal(t, report.Summary[1].TaskID, "load")
		gt.Equal(t, report.Statistics.UniqueDagRuns, 2)
		gt.Equal(t, len(report.DagRuns), 2)
		gt.Equal(t, report.DagRuns[0].DagRunID, "run_2")
		gt.Equal(t, report.Exports, []string{"/tmp/a.csv", "/tmp/a.prom"})

		gt.True(t, csv.received == report)
		gt.True(t, metrics.received == report)

		gt.True(t, display.fetching)
		gt.True(t, display.stopped)
		gt.Equal(t, display.records, 3)
		gt.Equal(t, display.dropped, 1)
	})

	t.Run("state filter limits summary but not statistics", func(t *testing.T) {
		uc := usecase.NewPipelineUseCase(usecase.PipelineUseCaseOptions{
			Airflow: &mockAirflowClient{raws: raws},
			Config:  pipelineConfig(t, model.TaskStateFailed),
		})

		report, err := uc.Execute(context.Background())
		gt.NoError(t, err)
		gt.Equal(t, len(report.Summary), 1)
		gt.Equal(t, report.Summary[0].TaskID, "load")
		gt.Equal(t, report.Statistics.TotalTasks, 3)
	})

	t.Run("empty fetch yields empty report", func(t *testing.T) {
		exporter := &mockExporter{name: "csv"}
		uc := usecase.NewPipelineUseCase(usecase.PipelineUseCaseOptions{
			Airflow:   &mockAirflowClient{},
			Exporters: []interfaces.Exporter{exporter},
			Config:    pipelineConfig(t),
		})

		report, err := uc.Execute(context.Background())
		gt.NoError(t, err)
		gt.Equal(t, len(report.Records), 0)
		gt.Equal(t, len(report.Summary), 0)
		gt.Equal(t, report.Statistics.TotalTasks, 0)
		gt.V(t, exporter.received).NotNil()
	})

	t.Run("fetch failure aborts without report", func(t *testing.T) {
		exporter := &mockExporter{name: "csv"}
		display := &mockDisplay{}
		uc := usecase.NewPipelineUseCase(usecase.PipelineUseCaseOptions{
			Airflow:   &mockAirflowClient{err: domain.ErrAuthentication.Wrap(goerr.New("401"))},
			Exporters: []interfaces.Exporter{exporter},
			Display:   display,
			Config:    pipelineConfig(t),
		})

		report, err := uc.Execute(context.Background())
		gt.Error(t, err)
		gt.True(t, errors.Is(err, domain.ErrAuthentication))
		gt.V(t, report).Nil()
		gt.V(t, exporter.received).Nil()
		gt.True(t, display.stopped)
	})

	t.Run("export failure does not stop other exporters", func(t *testing.T) {
		failing := &mockExporter{name: "clickhouse", err: domain.ErrExport.Wrap(goerr.New("down"))}
		csv := &mockExporter{name: "csv", written: []string{"/tmp/a.csv"}}
		uc := usecase.NewPipelineUseCase(usecase.PipelineUseCaseOptions{
			Airflow:   &mockAirflowClient{raws: raws},
			Exporters: []interfaces.Exporter{failing, csv},
			Config:    pipelineConfig(t),
		})

		report, err := uc.Execute(context.Background())
		gt.Error(t, err)
		gt.True(t, errors.Is(err, domain.ErrExport))
		gt.V(t, report).NotNil()
		gt.V(t, csv.received).NotNil()
		gt.Equal(t, report.Exports, []string{"/tmp/a.csv"})
	})
}
