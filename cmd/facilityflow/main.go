// Package main provides the facilityflow command line tool for checking and
// dry-running booking workflows without a server.
package main

import (
	"context"
	"os"

	"github.com/residentdesk/facilityflow/pkg/log"
	cli "github.com/urfave/cli/v3"
)

func main() {
	err := newCommand().Run(context.Background(), os.Args)
	if err != nil {
		log.WithModule("cli").Error("facilityflow failed", "error", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:                  "facilityflow",
		Usage:                 "Validate, dry-run and scaffold booking workflows",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Before: func(ctx context.Context, command *cli.Command) (context.Context, error) {
			log.Setup(command.String("log-level"))

			return ctx, nil
		},
		Commands: []*cli.Command{
			NewValidateCommand(),
			NewRunCommand(),
			NewTemplatesCommand(),
		},
	}
}
