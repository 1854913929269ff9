package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v3"
)

const version = "0.1.0"

func newLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("failed to parse log level: %w", err)
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger(), nil
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:    "resolvergen",
		Usage:   "generate TypeScript resolver files from a modular GraphQL schema",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file (default: the first of .resolvergen.yml, resolvergen.yml, .resolvergen.yaml, resolvergen.yaml)",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "log level (debug, info, warn, error)",
				Sources: cli.EnvVars("RESOLVERGEN_LOG_LEVEL"),
				Value:   "info",
			},
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "regenerate whenever a schema or mapper file changes",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			logger, err := newLogger(c.String("log-level"))
			if err != nil {
				return err
			}

			if c.Bool("watch") {
				return runWatch(ctx, c.String("config"), logger)
			}
			return run(ctx, c.String("config"), logger)
		},
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newCommand().Run(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
