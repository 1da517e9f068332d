package usecase

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/m-mizutani/dagstat/pkg/domain"
	"github.com/m-mizutani/dagstat/pkg/domain/interfaces"
	"github.com/m-mizutani/dagstat/pkg/domain/model"
	"github.com/m-mizutani/goerr/v2"
	"gopkg.in/yaml.v3"
)

// directory config files, in priority order
var configFileNames = []string{".dagstat.yml", ".dagstat.yaml"}

// only the braced form is expanded; a bare $ is literal
var envReferencePattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

func expandEnvReferences(s string) string {
	return envReferencePattern.ReplaceAllStringFunc(s, func(ref string) string {
		return os.Getenv(envReferencePattern.FindStringSubmatch(ref)[1])
	})
}

type configService struct {
	homeDir string
}

func NewConfigService() interfaces.ConfigService {
	homeDir, _ := os.UserHomeDir()
	return &configService{homeDir: homeDir}
}

func (c *configService) GetDefaultPath() string {
	return filepath.Join(c.homeDir, ".config", "dagstat", "config.yml")
}

// Load reads a YAML config file, expanding ${VAR} references, and applies
// defaults. Validation is left to the caller so flags can override first.
func (c *configService) Load(path string) (*model.Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is chosen by the user
	if err != nil {
		return nil, domain.ErrConfiguration.Wrap(err, goerr.V("path", path))
	}

	var config model.Config
	if err := yaml.Unmarshal([]byte(expandEnvReferences(string(data))), &config); err != nil {
		return nil, domain.ErrConfiguration.Wrap(err, goerr.V("path", path))
	}
	config.SetDefaults()

	return &config, nil
}

// LoadDefault loads the user config file; a missing file yields defaults and
// an empty path.
func (c *configService) LoadDefault() (*model.Config, string, error) {
	path := c.GetDefaultPath()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return emptyConfig(), "", nil
	}

	config, err := c.Load(path)
	return config, path, err
}

// LoadFromDirectory loads the first of .dagstat.yml and .dagstat.yaml found in
// dir. The path is returned even when loading fails.
func (c *configService) LoadFromDirectory(dir string) (*model.Config, string, error) {
	path := c.findConfigInDirectory(dir)
	if path == "" {
		return emptyConfig(), "", nil
	}

	config, err := c.Load(path)
	return config, path, err
}

func (c *configService) findConfigInDirectory(dir string) string {
	for _, name := range configFileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path
		}
	}
	return ""
}

func emptyConfig() *model.Config {
	config := &model.Config{}
	config.SetDefaults()
	return config
}

func (c *configService) GenerateTemplate() string {
	return `# dagstat configuration
airflow:
  # Airflow webserver URL (overridden by AIRFLOW_URL)
  url: http://localhost:8080
  # DAG to analyze (overridden by DAG_ID)
  dag_id: example_dag
  # v2 for Airflow 3, v1 for Airflow 2
  api_version: v2
  # Credentials: either username/password or a bearer token
  # username: ${AIRFLOW_USERNAME}
  # password: ${AIRFLOW_PASSWORD}
  # token: ${AIRFLOW_TOKEN}
  request_timeout: 30s
  page_size: 100

analysis:
  # 5m, 15m, 30m, 1h, 6h, 12h, 1d, 2d, 7d, 14d, 1mo or "last 7 days"
  # (overridden by TIME_PERIOD)
  time_period: 1h
  # Absolute window instead of time_period
  # start: 2024-05-01T00:00:00Z
  # end: 2024-05-02T00:00:00Z
  # States to report on; empty means all (overridden by TASK_STATES)
  # Available: success, failed, skipped, running, queued, scheduled,
  #            up_for_retry, up_for_reschedule, upstream_failed,
  #            restarting, deferred, removed, unknown
  task_states: []
  # List DAG runs that have no skipped task
  show_no_skipped_only: true
  max_window: 744h

export:
  output_dir: /tmp
  # Write normalized task instances to CSV
  save_data: false
  # Write the per task/state summary to CSV
  save_summary: false
  # Write summary gauges for the node_exporter textfile collector
  # metrics_textfile: /var/lib/node_exporter/dagstat.prom
  clickhouse:
    enabled: false
    host: localhost
    port: 9000
    database: default
    table: airflow_task_summary
    # username: default
    # password: ${CLICKHOUSE_PASSWORD}
    secure: false
  # Post a digest to a Slack incoming webhook
  # slack:
  #   webhook_url: ${SLACK_WEBHOOK_URL}
  #   message: "DAG *{{.DagID}}*: {{.Failed}} failed of {{.Total}} ({{.Period}})"

display:
  state_colors:
    success: green
    failed: red
    skipped: yellow
    running: blue
    queued: white
    up_for_retry: magenta
`
}

func (c *configService) SaveTemplate(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return domain.ErrConfiguration.Wrap(goerr.New("config file already exists, use --force to overwrite"),
				goerr.V("path", path),
			)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return domain.ErrConfiguration.Wrap(err, goerr.V("path", path))
	}

	if err := os.WriteFile(path, []byte(c.GenerateTemplate()), 0600); err != nil {
		return domain.ErrConfiguration.Wrap(err, goerr.V("path", path))
	}

	return nil
}
