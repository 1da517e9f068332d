package model

import (
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultAPIVersion     = "v2"
	DefaultRequestTimeout = 30 * time.Second
	DefaultPageSize       = 100
	MaxPageSize           = 1000
	DefaultTimePeriod     = "1h"
	DefaultMaxWindow      = 31 * 24 * time.Hour
	DefaultOutputDir      = "/tmp"

	DefaultClickHousePort     = 9000
	DefaultClickHouseDatabase = "default"
	DefaultClickHouseTable    = "airflow_task_summary"

	DefaultSlackMessage = "Airflow DAG *{{.DagID}}* ({{.Period}}): {{.Failed}} failed of {{.Total}} task instances in {{.DagRuns}} runs"
)

// Config represents the application configuration
type Config struct {
	Airflow  AirflowConfig  `yaml:"airflow"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Export   ExportConfig   `yaml:"export"`
	Display  DisplayConfig  `yaml:"display,omitempty"`
}

type AirflowConfig struct {
	URL            string        `yaml:"url"`
	DagID          string        `yaml:"dag_id"`
	APIVersion     string        `yaml:"api_version,omitempty"` // "v1" (Airflow 2) or "v2" (Airflow 3)
	Username       string        `yaml:"username,omitempty"`
	Password       string        `yaml:"password,omitempty"`
	Token          string        `yaml:"token,omitempty"`
	RequestTimeout time.Duration `yaml:"request_timeout,omitempty"`
	PageSize       int           `yaml:"page_size,omitempty"`
}

type AnalysisConfig struct {
	TimePeriod        string        `yaml:"time_period,omitempty"`
	Start             string        `yaml:"start,omitempty"`
	End               string        `yaml:"end,omitempty"`
	TaskStates        []string      `yaml:"task_states,omitempty"` // empty means all states
	ShowNoSkippedOnly bool          `yaml:"show_no_skipped_only,omitempty"`
	MaxWindow         time.Duration `yaml:"max_window,omitempty"`
}

type ExportConfig struct {
	OutputDir       string           `yaml:"output_dir,omitempty"`
	SaveData        bool             `yaml:"save_data,omitempty"`
	SaveSummary     bool             `yaml:"save_summary,omitempty"`
	MetricsTextfile string           `yaml:"metrics_textfile,omitempty"`
	ClickHouse      ClickHouseConfig `yaml:"clickhouse,omitempty"`
	Slack           SlackConfig      `yaml:"slack,omitempty"`
}

type ClickHouseConfig struct {
	Enabled    bool          `yaml:"enabled"`
	Host       string        `yaml:"host,omitempty"`
	Port       int           `yaml:"port,omitempty"`
	Database   string        `yaml:"database,omitempty"`
	Table      string        `yaml:"table,omitempty"`
	Username   string        `yaml:"username,omitempty"`
	Password   string        `yaml:"password,omitempty"`
	Secure     bool          `yaml:"secure,omitempty"`
	SkipVerify bool          `yaml:"skip_verify,omitempty"`
	Timeout    time.Duration `yaml:"timeout,omitempty"`
}

// DisplayConfig maps task states to terminal color names (green, red, ...)
type DisplayConfig struct {
	StateColors map[string]string `yaml:"state_colors,omitempty"`
}

// SetDefaults fills unset optional fields.
func (c *Config) SetDefaults() {
	if c.Airflow.APIVersion == "" {
		c.Airflow.APIVersion = DefaultAPIVersion
	}
	if c.Airflow.RequestTimeout == 0 {
		c.Airflow.RequestTimeout = DefaultRequestTimeout
	}
	if c.Airflow.PageSize == 0 {
		c.Airflow.PageSize = DefaultPageSize
	}
	if c.Analysis.TimePeriod == "" && c.Analysis.Start == "" {
		c.Analysis.TimePeriod = DefaultTimePeriod
	}
	if c.Analysis.MaxWindow == 0 {
		c.Analysis.MaxWindow = DefaultMaxWindow
	}
	if c.Export.OutputDir == "" {
		c.Export.OutputDir = DefaultOutputDir
	}
	if c.Export.ClickHouse.Port == 0 {
		c.Export.ClickHouse.Port = DefaultClickHousePort
	}
	if c.Export.ClickHouse.Database == "" {
		c.Export.ClickHouse.Database = DefaultClickHouseDatabase
	}
	if c.Export.ClickHouse.Table == "" {
		c.Export.ClickHouse.Table = DefaultClickHouseTable
	}
	if c.Export.Slack.WebhookURL != "" && c.Export.Slack.Message == "" {
		c.Export.Slack.Message = DefaultSlackMessage
	}
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks required fields and that the analysis window can be resolved.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Airflow.DagID) == "" {
		return goerr.New("DAG_ID is required and cannot be empty")
	}
	if c.Airflow.URL == "" {
		return goerr.New("AIRFLOW_URL is required and cannot be empty")
	}
	u, err := url.Parse(c.Airflow.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return goerr.New("AIRFLOW_URL must be an http(s) URL", goerr.V("url", c.Airflow.URL))
	}
	if c.Airflow.APIVersion != "v1" && c.Airflow.APIVersion != "v2" {
		return goerr.New("api_version must be v1 or v2", goerr.V("api_version", c.Airflow.APIVersion))
	}
	if c.Airflow.PageSize < 1 || c.Airflow.PageSize > MaxPageSize {
		return goerr.New("page_size out of range", goerr.V("page_size", c.Airflow.PageSize), goerr.V("max", MaxPageSize))
	}
	if c.Airflow.RequestTimeout < 0 {
		return goerr.New("request_timeout cannot be negative")
	}
	if c.Airflow.Password != "" && c.Airflow.Username == "" {
		return goerr.New("password is set without username")
	}

	if _, err := c.States(); err != nil {
		return err
	}
	window, err := c.Window(time.Now())
	if err != nil {
		return err
	}
	if window.Duration() > c.Analysis.MaxWindow {
		return goerr.New("time window exceeds max_window",
			goerr.V("window", window.Duration().String()),
			goerr.V("max_window", c.Analysis.MaxWindow.String()),
		)
	}

	if ch := c.Export.ClickHouse; ch.Enabled {
		if ch.Host == "" {
			return goerr.New("clickhouse export requires host")
		}
		if !identifierPattern.MatchString(ch.Database) || !identifierPattern.MatchString(ch.Table) {
			return goerr.New("clickhouse database and table must be plain identifiers",
				goerr.V("database", ch.Database),
				goerr.V("table", ch.Table),
			)
		}
	}

	if webhook := c.Export.Slack.WebhookURL; webhook != "" {
		u, err := url.Parse(webhook)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return goerr.New("slack webhook_url must be an http(s) URL")
		}
	}

	return nil
}

// States returns the configured task states, or every state when none is configured.
func (c *Config) States() ([]TaskState, error) {
	if len(c.Analysis.TaskStates) == 0 {
		return AllTaskStates(), nil
	}

	states := make([]TaskState, 0, len(c.Analysis.TaskStates))
	for _, s := range c.Analysis.TaskStates {
		state, ok := ParseTaskState(s)
		if !ok {
			return nil, goerr.New("invalid task state", goerr.V("state", s))
		}
		states = append(states, state)
	}
	return states, nil
}

// Window resolves the analysis window relative to now. Absolute start/end
// take precedence over time_period; a missing end means now.
func (c *Config) Window(now time.Time) (TimeWindow, error) {
	if c.Analysis.Start == "" {
		if c.Analysis.End != "" {
			return TimeWindow{}, goerr.New("analysis end requires start")
		}
		d, err := ParseTimePeriod(c.Analysis.TimePeriod)
		if err != nil {
			return TimeWindow{}, err
		}
		return LastWindow(now, d)
	}

	start, err := dateparse.ParseIn(c.Analysis.Start, time.UTC)
	if err != nil {
		return TimeWindow{}, goerr.Wrap(err, "invalid analysis start", goerr.V("start", c.Analysis.Start))
	}
	end := now
	if c.Analysis.End != "" {
		end, err = dateparse.ParseIn(c.Analysis.End, time.UTC)
		if err != nil {
			return TimeWindow{}, goerr.Wrap(err, "invalid analysis end", goerr.V("end", c.Analysis.End))
		}
	}
	return NewTimeWindow(start, end)
}

// PeriodLabel names the window in file names and headings.
func (c *Config) PeriodLabel() string {
	if c.Analysis.Start != "" {
		return "custom"
	}
	return strings.ReplaceAll(strings.TrimSpace(c.Analysis.TimePeriod), " ", "_")
}
