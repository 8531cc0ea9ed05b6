// Package main provides the sqllineage command.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/leapstack-labs/sqllineage/internal/cli"
	"github.com/leapstack-labs/sqllineage/internal/cli/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		stop()
		var exitErr *commands.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
