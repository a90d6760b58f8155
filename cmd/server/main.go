package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/saransh1220/notification-service/internal/shared/infrastructure/config"
	"github.com/urfave/cli/v3"
)

var version = "dev"

// app carries what the Before hook resolves for the subcommands.
type app struct {
	cfg    config.Config
	logger *slog.Logger
}

func newApp(stdout io.Writer) *cli.Command {
	a := &app{}

	return &cli.Command{
		Name:      "notifd",
		Usage:     "Notification store with a Redis read cache",
		UsageText: "notifd [global options] command [command options]",
		Version:   version,
		Writer:    stdout,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error)",
				Sources: cli.EnvVars("LOG_LEVEL"),
				Value:   "info",
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, err := newLogger(c.String("log-level"), os.Stdout)
			if err != nil {
				return ctx, err
			}
			slog.SetDefault(logger)
			a.logger = logger
			a.cfg = config.Load()
			return ctx, nil
		},
		Commands: []*cli.Command{
			a.serveCmd(),
			a.consumeCmd(),
			a.migrateCmd(),
			a.tokenCmd(),
		},
	}
}

func newLogger(level string, w io.Writer) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})), nil
}

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		log.Fatalf("notifd: %v", err)
	}
}
