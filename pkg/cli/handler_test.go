package cli_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/m-mizutani/dagstat/pkg/cli"
	"github.com/m-mizutani/dagstat/pkg/domain"
	"github.com/m-mizutani/gt"
)

func newFakeAirflow(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v2/dags/etl/dagRuns", func(w http.ResponseWriter, r *http.Request) {
		gt.Equal(t, r.Header.Get("Authorization"), "Bearer test-token")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"dag_runs": []map[string]any{
				{"dag_run_id": "run_1", "run_type": "scheduled", "logical_date": r.URL.Query().Get("logical_date_lte"), "state": "failed"},
			},
			"total_entries": 1,
		})
	})
	mux.HandleFunc("GET /api/v2/dags/etl/dagRuns/run_1/taskInstances", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"task_instances": []map[string]any{
				{"task_id": "extract", "state": "success", "start_date": "2024-05-01T00:00:00Z", "end_date": "2024-05-01T00:00:02Z"},
				{"task_id": "extract", "state": "success"},
				{"task_id": "extract", "state": "failed"},
				{"state": "success"},
			},
			"total_entries": 4,
		})
	})
	return httptest.NewServer(mux)
}

func writeConfig(t *testing.T, dir, airflowURL string) string {
	path := filepath.Join(dir, "dagstat.yml")
	content := fmt.Sprintf(`airflow:
  url: %s
  dag_id: etl
  token: test-token
analysis:
  time_period: 1d
export:
  output_dir: %s
  save_summary: true
  metrics_textfile: %s
`, airflowURL, dir, filepath.Join(dir, "dagstat.prom"))
	gt.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestRunReport(t *testing.T) {
	srv := newFakeAirflow(t)
	defer srv.Close()

	t.Run("fetches, aggregates and exports", func(t *testing.T) {
		dir := t.TempDir()
		configPath := writeConfig(t, dir, srv.URL)

		err := cli.NewCommand().Run(context.Background(), []string{"dagstat", "--config", configPath})
		gt.NoError(t, err)

		summary, err := os.ReadFile(filepath.Join(dir, "airflow_summary_etl_1d.csv"))
		gt.NoError(t, err)
		gt.Equal(t, string(summary), "task_id,state,count,percentage,mean_duration_seconds\n"+
			"extract,success,2,66.67,2.000\n"+
			"extract,failed,1,33.33,\n")

		metrics, err := os.ReadFile(filepath.Join(dir, "dagstat.prom"))
		gt.NoError(t, err)
		gt.True(t, strings.Contains(string(metrics), `dagstat_dropped_records{dag_id="etl"} 1`))
	})

	t.Run("flags override the config file", func(t *testing.T) {
		dir := t.TempDir()
		configPath := writeConfig(t, dir, srv.URL)

		err := cli.NewCommand().Run(context.Background(), []string{
			"dagstat", "--config", configPath, "--task-states", "failed", "--time-period", "2d",
		})
		gt.NoError(t, err)

		summary, err := os.ReadFile(filepath.Join(dir, "airflow_summary_etl_2d.csv"))
		gt.NoError(t, err)
		gt.Equal(t, string(summary), "task_id,state,count,percentage,mean_duration_seconds\n"+
			"extract,failed,1,33.33,\n")
	})

	t.Run("environment overrides the config file", func(t *testing.T) {
		dir := t.TempDir()
		configPath := writeConfig(t, dir, srv.URL)
		t.Setenv("DAG_ID", "missing")

		err := cli.NewCommand().Run(context.Background(), []string{"dagstat", "--config", configPath})
		gt.Error(t, err)
		gt.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("invalid configuration", func(t *testing.T) {
		dir := t.TempDir()
		configPath := writeConfig(t, dir, srv.URL)

		err := cli.NewCommand().Run(context.Background(), []string{
			"dagstat", "--config", configPath, "--task-states", "exploded",
		})
		gt.Error(t, err)
		gt.True(t, errors.Is(err, domain.ErrConfiguration))
	})

	t.Run("missing config file", func(t *testing.T) {
		err := cli.NewCommand().Run(context.Background(), []string{
			"dagstat", "--config", filepath.Join(t.TempDir(), "none.yml"),
		})
		gt.True(t, errors.Is(err, domain.ErrConfiguration))
	})
}

func TestRunInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config", "dagstat.yml")

	err := cli.NewCommand().Run(context.Background(), []string{"dagstat", "--init", "--config", path})
	gt.NoError(t, err)

	content, err := os.ReadFile(path)
	gt.NoError(t, err)
	gt.True(t, strings.Contains(string(content), "airflow:"))

	err = cli.NewCommand().Run(context.Background(), []string{"dagstat", "--init", "--config", path})
	gt.Error(t, err)

	err = cli.NewCommand().Run(context.Background(), []string{"dagstat", "--init", "--force", "--config", path})
	gt.NoError(t, err)
}
