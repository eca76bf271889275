// Package main provides the entry point for the dispatchd CLI.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/atlantishq/dispatchd/cmd/dispatchd/commands"
	"github.com/charmbracelet/log"
)

// Version information set by goreleaser
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	app := commands.New(version, commit, date)
	if err := app.Run(ctx, os.Args); err != nil {
		log.Error("command failed", "error", err)
		os.Exit(1)
	}
}
