package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/residentdesk/facilityflow/pkg/cmd"
	"github.com/residentdesk/facilityflow/pkg/models"
	"github.com/residentdesk/facilityflow/pkg/schema"
	"github.com/residentdesk/facilityflow/pkg/services"
	cli "github.com/urfave/cli/v3"
)

var errInvalidWorkflows = errors.New("invalid workflows found")

func NewValidateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Aliases:   []string{"v"},
		Usage:     "Validate workflow documents, or every stored workflow when no file is given",
		ArgsUsage: "[workflow.json ...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Workflow persistence URL checked when no file is given",
				Value:   "file://./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := slog.With("module", "facilityflow", "action", "validate")
			out := command.Root().Writer

			files := command.Args().Slice()
			if len(files) > 0 {
				return validateFiles(out, files, logger)
			}

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.Error("Failed to close persistence", "error", err)
				}
			}()

			service := services.NewWorkflow(persistence, logger)

			workflows, err := service.List(ctx)
			if err != nil {
				return err
			}

			invalid := 0

			for _, wf := range workflows {
				if err := service.Validate(wf); err != nil {
					invalid++

					_, _ = fmt.Fprintf(out, "INVALID %s (%s): %v\n", wf.Name, wf.ID, err)

					continue
				}

				_, _ = fmt.Fprintf(out, "OK      %s (%s)\n", wf.Name, wf.ID)
			}

			_, _ = fmt.Fprintf(out, "\n%d workflows checked, %d invalid\n", len(workflows), invalid)

			if invalid > 0 {
				return fmt.Errorf("%w: %d of %d", errInvalidWorkflows, invalid, len(workflows))
			}

			return nil
		},
	}
}

func validateFiles(out io.Writer, files []string, logger *slog.Logger) error {
	service := services.NewWorkflow(nil, logger)
	invalid := 0

	for _, path := range files {
		_, err := loadWorkflow(path, service)
		if err != nil {
			invalid++

			_, _ = fmt.Fprintf(out, "INVALID %s: %v\n", path, err)

			continue
		}

		_, _ = fmt.Fprintf(out, "OK      %s\n", path)
	}

	if invalid > 0 {
		return fmt.Errorf("%w: %d of %d", errInvalidWorkflows, invalid, len(files))
	}

	return nil
}

// loadWorkflow reads a workflow document and applies the same checks the
// API applies before saving it.
func loadWorkflow(path string, service *services.Workflow) (*models.Workflow, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workflow: %w", err)
	}

	err = schema.ValidateWorkflow(body)
	if err != nil {
		return nil, err
	}

	var wf models.Workflow

	err = json.Unmarshal(body, &wf)
	if err != nil {
		return nil, fmt.Errorf("failed to decode workflow: %w", err)
	}

	err = service.Validate(&wf)
	if err != nil {
		return nil, err
	}

	return &wf, nil
}
