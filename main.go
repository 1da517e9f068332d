package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/m-mizutani/dagstat/pkg/cli"
	"github.com/m-mizutani/dagstat/pkg/domain"
	"github.com/m-mizutani/goerr/v2"
)

const (
	exitFailure       = 1
	exitConfiguration = 2
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app := cli.NewCommand()
	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		var goErr *goerr.Error
		if errors.As(err, &goErr) {
			for k, v := range goErr.Values() {
				fmt.Fprintf(os.Stderr, "  %s: %v\n", k, v)
			}
		}

		if errors.Is(err, domain.ErrConfiguration) {
			os.Exit(exitConfiguration)
		}
		os.Exit(exitFailure)
	}
}
