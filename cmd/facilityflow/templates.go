package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/residentdesk/facilityflow/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

var errUnknownTemplate = errors.New("unknown template")

func NewTemplatesCommand() *cli.Command {
	return &cli.Command{
		Name:    "templates",
		Aliases: []string{"t"},
		Usage:   "Inspect the built-in workflow templates",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List the built-in templates",
				Action: func(_ context.Context, command *cli.Command) error {
					out := command.Root().Writer

					for _, template := range workflow.Templates() {
						_, _ = fmt.Fprintf(out, "%-16s %s\n", template.ID, template.Name)
						_, _ = fmt.Fprintf(out, "%-16s %s\n", "", template.Description)
					}

					return nil
				},
			},
			{
				Name:      "export",
				Aliases:   []string{"e"},
				Usage:     "Print a workflow document built from a template",
				ArgsUsage: "<template-id>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "created-by",
						Usage: "Author recorded on the exported workflow",
						Value: "cli",
					},
				},
				Action: func(_ context.Context, command *cli.Command) error {
					id := command.Args().First()

					template, ok := workflow.TemplateByID(id)
					if !ok {
						return fmt.Errorf("%w: %q", errUnknownTemplate, id)
					}

					encoder := json.NewEncoder(command.Root().Writer)
					encoder.SetIndent("", "  ")

					return encoder.Encode(template.Instantiate(command.String("created-by"), time.Now().UTC()))
				},
			},
		},
	}
}
