package cli

import (
	"strings"
	"time"

	"github.com/m-mizutani/dagstat/pkg/domain/model"
	"github.com/urfave/cli/v3"
)

// Config holds command line values that override the config file.
// Empty fields leave the file value unchanged.
type Config struct {
	ConfigPath  string
	DagID       string
	AirflowURL  string
	TimePeriod  string
	TaskStates  string
	OutputDir   string
	Interactive bool
}

func NewConfig(cmd *cli.Command) *Config {
	return &Config{
		ConfigPath:  cmd.String("config"),
		DagID:       cmd.String("dag-id"),
		AirflowURL:  cmd.String("airflow-url"),
		TimePeriod:  cmd.String("time-period"),
		TaskStates:  cmd.String("task-states"),
		OutputDir:   cmd.String("output-dir"),
		Interactive: cmd.Bool("interactive"),
	}
}

// Apply overwrites file values with the ones given on the command line or
// through the environment. A time period replaces any absolute window.
func (c *Config) Apply(cfg *model.Config) {
	if c.DagID != "" {
		cfg.Airflow.DagID = c.DagID
	}
	if c.AirflowURL != "" {
		cfg.Airflow.URL = c.AirflowURL
	}
	if c.TimePeriod != "" {
		cfg.Analysis.TimePeriod = c.TimePeriod
		cfg.Analysis.Start = ""
		cfg.Analysis.End = ""
	}
	if c.TaskStates != "" {
		cfg.Analysis.TaskStates = splitStates(c.TaskStates)
	}
	if c.OutputDir != "" {
		cfg.Export.OutputDir = c.OutputDir
	}
}

func splitStates(s string) []string {
	var states []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			states = append(states, part)
		}
	}
	return states
}

// ToPipelineConfig resolves a validated config into the pipeline input.
func ToPipelineConfig(cfg *model.Config, now time.Time) (*model.PipelineConfig, error) {
	window, err := cfg.Window(now)
	if err != nil {
		return nil, err
	}
	states, err := cfg.States()
	if err != nil {
		return nil, err
	}

	return &model.PipelineConfig{
		DagID:             cfg.Airflow.DagID,
		Period:            cfg.PeriodLabel(),
		Window:            window,
		States:            states,
		ShowNoSkippedOnly: cfg.Analysis.ShowNoSkippedOnly,
	}, nil
}

func DefineFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Config file path (default: ./.dagstat.yml, then ~/.config/dagstat/config.yml)",
		},
		&cli.StringFlag{
			Name:    "dag-id",
			Aliases: []string{"d"},
			Usage:   "DAG to analyze",
			Sources: cli.EnvVars("DAG_ID"),
		},
		&cli.StringFlag{
			Name:    "airflow-url",
			Aliases: []string{"u"},
			Usage:   "Airflow webserver URL",
			Sources: cli.EnvVars("AIRFLOW_URL"),
		},
		&cli.StringFlag{
			Name:    "time-period",
			Aliases: []string{"p"},
			Usage:   "Window ending now, e.g. 1h, 7d, 1mo or \"last 3 days\"",
			Sources: cli.EnvVars("TIME_PERIOD"),
		},
		&cli.StringFlag{
			Name:    "task-states",
			Aliases: []string{"s"},
			Usage:   "Comma separated task states to report on (default: all)",
			Sources: cli.EnvVars("TASK_STATES"),
		},
		&cli.StringFlag{
			Name:    "output-dir",
			Aliases: []string{"o"},
			Usage:   "Directory for CSV exports",
		},
		&cli.BoolFlag{
			Name:    "interactive",
			Aliases: []string{"i"},
			Usage:   "Browse the report in an interactive terminal UI",
		},
		&cli.BoolFlag{
			Name:  "init",
			Usage: "Write a config template to --config (or the user config path) and exit",
		},
		&cli.BoolFlag{
			Name:    "force",
			Aliases: []string{"f"},
			Usage:   "Overwrite an existing file with --init",
		},
	}
}
