package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/residentdesk/facilityflow/pkg/bookings"
	"github.com/residentdesk/facilityflow/pkg/models"
	"github.com/residentdesk/facilityflow/pkg/services"
	"github.com/residentdesk/facilityflow/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

// dryRun is what the run command prints.
type dryRun struct {
	Booking   *models.Booking           `json:"booking"`
	Execution *models.WorkflowExecution `json:"execution"`
}

func NewRunCommand() *cli.Command {
	return &cli.Command{
		Name:    "run",
		Aliases: []string{"r"},
		Usage:   "Execute a workflow document against a throwaway booking and print the result",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "workflow",
				Aliases:  []string{"w"},
				Usage:    "Path to the workflow document",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "booking",
				Aliases: []string{"b"},
				Usage:   "Path to a booking JSON document; built from the flags below when omitted",
			},
			&cli.StringFlag{
				Name:  "facility",
				Usage: "Facility of the generated booking",
				Value: "Clubhouse",
			},
			&cli.StringFlag{
				Name:  "user",
				Usage: "Resident name of the generated booking",
				Value: "Resident",
			},
			&cli.StringFlag{
				Name:  "email",
				Usage: "Resident email of the generated booking",
			},
			&cli.DurationFlag{
				Name:  "duration",
				Usage: "Length of the generated booking",
				Value: 2 * time.Hour,
			},
			&cli.IntFlag{
				Name:  "max-iterations",
				Usage: "Maximum nodes visited by the execution",
				Value: workflow.DefaultMaxIterations,
			},
			&cli.StringFlag{
				Name:  "branch-mode",
				Usage: "Condition branching (first-edge, evaluate)",
				Value: string(workflow.BranchFirstEdge),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			logger := slog.With("module", "facilityflow", "action", "run")

			branchMode, err := workflow.ParseBranchMode(command.String("branch-mode"))
			if err != nil {
				return err
			}

			wf, err := loadWorkflow(command.String("workflow"), services.NewWorkflow(nil, logger))
			if err != nil {
				return err
			}

			booking, err := loadBooking(command)
			if err != nil {
				return err
			}

			store := bookings.NewStore()

			booking, err = store.Create(ctx, booking)
			if err != nil {
				return fmt.Errorf("invalid booking: %w", err)
			}

			engine := workflow.NewEngine(logger,
				workflow.WithMaxIterations(command.Int("max-iterations")),
				workflow.WithBranchMode(branchMode),
			)

			execution := engine.Execute(ctx, wf, booking, store, nil)

			final, err := store.BookingByID(ctx, booking.ID)
			if err != nil {
				return err
			}

			encoder := json.NewEncoder(command.Root().Writer)
			encoder.SetIndent("", "  ")

			return encoder.Encode(dryRun{Booking: final, Execution: execution})
		},
	}
}

func loadBooking(command *cli.Command) (*models.Booking, error) {
	if path := command.String("booking"); path != "" {
		body, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read booking: %w", err)
		}

		var booking models.Booking

		err = json.Unmarshal(body, &booking)
		if err != nil {
			return nil, fmt.Errorf("failed to decode booking: %w", err)
		}

		return &booking, nil
	}

	start := time.Now().UTC().Truncate(time.Hour).Add(24 * time.Hour)

	return &models.Booking{
		Facility: command.String("facility"),
		User: models.BookingUser{
			Name:  command.String("user"),
			Email: command.String("email"),
		},
		StartTime: start,
		EndTime:   start.Add(command.Duration("duration")),
	}, nil
}
