package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/residentdesk/facilityflow/pkg/cmd"
	"github.com/residentdesk/facilityflow/pkg/log"
	"github.com/residentdesk/facilityflow/pkg/otelhelper"
	"github.com/residentdesk/facilityflow/pkg/workflow"
	cli "github.com/urfave/cli/v3"
)

const defaultPort = 9091

func main() {
	logger := log.WithModule("api")

	command := &cli.Command{
		Name:                  "facilityflow-api",
		Usage:                 "Serve booking workflows over HTTP",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("PORT"),
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Workflow persistence URL (file://<dir> or postgres://...)",
				Value:   "file://./data",
				Sources: cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (gochannel, kafka)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringSliceFlag{
				Name:    "kafka-brokers",
				Usage:   "Kafka brokers when the event bus is kafka",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "execution-store-url",
				Usage:   "Execution history store (memory:// or redis://...)",
				Value:   "memory://",
				Sources: cli.EnvVars("EXECUTION_STORE_URL"),
			},
			&cli.DurationFlag{
				Name:    "execution-retention",
				Usage:   "Drop finished executions older than this; 0 keeps everything",
				Value:   7 * 24 * time.Hour,
				Sources: cli.EnvVars("EXECUTION_RETENTION"),
			},
			&cli.StringFlag{
				Name:    "retention-schedule",
				Usage:   "Cron schedule of the execution retention sweep",
				Value:   "@hourly",
				Sources: cli.EnvVars("EXECUTION_RETENTION_SCHEDULE"),
			},
			&cli.IntFlag{
				Name:    "max-iterations",
				Usage:   "Maximum nodes visited by one execution",
				Value:   workflow.DefaultMaxIterations,
				Sources: cli.EnvVars("MAX_ITERATIONS"),
			},
			&cli.DurationFlag{
				Name:    "step-delay",
				Usage:   "Pause between nodes so live views can follow an execution",
				Value:   0,
				Sources: cli.EnvVars("STEP_DELAY"),
			},
			&cli.StringFlag{
				Name:    "branch-mode",
				Usage:   "Condition branching (first-edge, evaluate)",
				Value:   string(workflow.BranchFirstEdge),
				Sources: cli.EnvVars("BRANCH_MODE"),
			},
			&cli.BoolFlag{
				Name:    "async-triggers",
				Usage:   "Dispatch workflow triggers from the event bus instead of inline",
				Sources: cli.EnvVars("ASYNC_TRIGGERS"),
			},
			&cli.BoolFlag{
				Name:    "otel",
				Usage:   "Export traces over OTLP/HTTP",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing facilityflow API")

			branchMode, err := workflow.ParseBranchMode(command.String("branch-mode"))
			if err != nil {
				return err
			}

			engineOpts := []workflow.Option{
				workflow.WithMaxIterations(command.Int("max-iterations")),
				workflow.WithStepDelay(command.Duration("step-delay")),
				workflow.WithBranchMode(branchMode),
			}

			if command.Bool("otel") {
				tracer, shutdown, err := otelhelper.NewTracer(ctx, "facilityflow-api")
				if err != nil {
					return fmt.Errorf("failed to initialize tracer: %w", err)
				}

				defer func() {
					if err := shutdown(context.Background()); err != nil {
						logger.ErrorContext(ctx, "Failed to shutdown tracer provider", "error", err)
					}
				}()

				engineOpts = append(engineOpts, workflow.WithTracer(tracer))
			}

			persistence, err := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			executionStore, err := cmd.NewExecutionStore(ctx, logger, command.String("execution-store-url"))
			if err != nil {
				return err
			}

			defer func() {
				if err := executionStore.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close execution store", "error", err)
				}
			}()

			eventBus, err := cmd.NewEventBus(command.String("event-bus"), command.StringSlice("kafka-brokers"), logger)
			if err != nil {
				return err
			}

			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			api := NewAPI(
				logger,
				persistence,
				executionStore,
				eventBus,
				workflow.NewEngine(logger, engineOpts...),
				command.Bool("async-triggers"),
			)

			err = api.Listen(ctx)
			if err != nil {
				return fmt.Errorf("failed to subscribe to booking events: %w", err)
			}

			if retention := command.Duration("execution-retention"); retention > 0 {
				sweeper, err := newRetentionSweeper(ctx, api.executionService,
					command.String("retention-schedule"), retention, logger)
				if err != nil {
					return err
				}

				sweeper.Start()
				defer sweeper.Stop()
			}

			return api.Start(command.Int("port"))
		},
	}

	err := command.Run(context.Background(), os.Args)
	if err != nil {
		logger.Error("facilityflow-api stopped", "error", err)
		os.Exit(1)
	}
}
