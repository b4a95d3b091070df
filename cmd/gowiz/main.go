package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/willibrandon/gowiz/cmd/gowiz/cli"
	"github.com/willibrandon/gowiz/cmd/gowiz/commands"
)

// Version information (set via ldflags during build)
var (
	version = "0.0.0-dev"
	commit  = "unknown"
	date    = "unknown"
	builtBy = "unknown"
)

func main() {
	cli.Version = version
	cli.Commit = commit
	cli.Date = date
	cli.BuiltBy = builtBy

	cli.SetupVersion()

	cli.AddCommand(commands.NewVersionCommand(cli.Console))
	cli.AddCommand(commands.NewResolveCommand(cli.Console))
	cli.AddCommand(commands.NewListCommand(cli.Console))

	// Cancellation stops the running resolution
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		if !commands.IsReported(err) {
			cli.Console.Error("%v", err)
		}
		stop()
		os.Exit(1)
	}
}
