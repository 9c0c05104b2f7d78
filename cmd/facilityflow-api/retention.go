package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/residentdesk/facilityflow/pkg/services"
	"github.com/robfig/cron/v3"
)

// newRetentionSweeper schedules a prune of execution history older than
// retention. The caller starts and stops the returned scheduler.
func newRetentionSweeper(
	ctx context.Context,
	executionService *services.Executions,
	schedule string,
	retention time.Duration,
	logger *slog.Logger,
) (*cron.Cron, error) {
	if retention <= 0 {
		return nil, fmt.Errorf("retention must be positive, got %s", retention)
	}

	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DefaultLogger),
		cron.Recover(cron.DefaultLogger),
	))

	_, err := c.AddFunc(schedule, func() {
		removed, err := executionService.Prune(ctx, retention)
		if err != nil {
			logger.ErrorContext(ctx, "Execution retention sweep failed", "error", err)

			return
		}

		logger.DebugContext(ctx, "Execution retention sweep finished", "removed", removed)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid retention schedule %q: %w", schedule, err)
	}

	return c, nil
}
