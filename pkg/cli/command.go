package cli

import (
	"github.com/urfave/cli/v3"
)

func NewCommand() *cli.Command {
	flags := append(DefineFlags(),
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug logging",
			Value: false,
		},
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable verbose logging",
			Value: false,
		},
	)

	return &cli.Command{
		Name:    "dagstat",
		Usage:   "Airflow task instance status report",
		Version: "0.1.0",
		Description: `dagstat fetches the task instances of one Airflow DAG over a time window and
reports how many ended in each state, per task, with percentages and mean durations.

Settings come from ./.dagstat.yml (or ~/.config/dagstat/config.yml) and can be
overridden with DAG_ID, AIRFLOW_URL, TIME_PERIOD and TASK_STATES.
Use --init to write a config template.`,
		Flags:  flags,
		Action: RunReport,
	}
}
