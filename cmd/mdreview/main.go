package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"mdreview/api/internal/commands"
	"mdreview/api/internal/logging"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var logCloser func()
	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "mdreview",
		Usage:     "Request and run reviews of markdown documents",
		UsageText: "mdreview [global options] command [command options]",
		Description: `mdreview turns a markdown document into a shareable review. Reviewers
comment on blocks and approve, reject or request changes; agents wait for the
decision and reply to threads.

Run 'mdreview mcp' to expose the same workflow to coding agents.`,
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "base-url",
				Usage:       "mdreview API base URL",
				Sources:     cli.EnvVars("MDREVIEW_BASE_URL"),
				Value:       commands.DefaultBaseURL,
				Destination: &flags.BaseURL,
			},
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("MDREVIEW_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file",
				Sources:     cli.EnvVars("MDREVIEW_LOG_FILE"),
				Value:       commands.DefaultLogFile(),
				Destination: &flags.LogFile,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, closer, err := logging.New(flags.LogLevel, flags.LogFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			logging.SetGlobal(logger)
			logCloser = closer
			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	app = commands.NewRequestCmd(flags).Register(app)
	app = commands.NewStatusCmd(flags).Register(app)
	app = commands.NewWaitCmd(flags).Register(app)
	app = commands.NewThreadCmd(flags).Register(app)
	app = commands.NewDecideCmd(flags).Register(app)
	app = commands.NewExportCmd(flags).Register(app)
	app = commands.NewSearchCmd(flags).Register(app)
	app = commands.NewReviewCmd(flags).Register(app)
	app = commands.NewMCPCmd(flags).Register(app)

	exitCode := 0
	if err := app.Run(ctx, os.Args); err != nil {
		if !errors.Is(err, commands.ErrStillPending) {
			log.Error().Err(err).Msg("command failed")
			fmt.Fprintln(os.Stderr, err.Error())
		}
		exitCode = 1
	}
	os.Exit(exitCode)
}
