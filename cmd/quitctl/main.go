package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/digkill/QuitCoachAPI/pkg/logger"
)

// runContext is handed to every command's Run method.
type runContext struct {
	log *slog.Logger
}

var CLI struct {
	LogLevel string `help:"Log level (debug, info, warn, error)." default:"warn" env:"LOG_LEVEL"`

	Migrate    MigrateCmd    `cmd:"" help:"Create or upgrade the database schema."`
	SeedBadges SeedBadgesCmd `cmd:"" name:"seed-badges" help:"Insert the default badge catalogue."`
	Preview    PreviewCmd    `cmd:"" help:"Show the stages a baseline would produce."`
	Sweep      SweepCmd      `cmd:"" help:"Mark elapsed stages without records as skipped, once."`
	Token      TokenCmd      `cmd:"" help:"Issue a signed access token for local testing."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("quitctl"),
		kong.Description("Operator tool for the quit coach backend"),
		kong.UsageOnError(),
	)

	err := ctx.Run(&runContext{log: logger.New(logger.Options{Level: CLI.LogLevel})})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
