package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/residentdesk/facilityflow/pkg/executions"
	"github.com/residentdesk/facilityflow/pkg/executions/memory"
	"github.com/residentdesk/facilityflow/pkg/executions/redis"
)

// NewExecutionStore selects where execution history lives: "memory://" (the
// default) or a "redis://" URL.
func NewExecutionStore(ctx context.Context, logger *slog.Logger, storeURL string) (executions.Store, error) {
	provider, _ := parseProvider(storeURL, "memory")

	switch provider {
	case "memory":
		return memory.NewStore(), nil
	case "redis", "rediss":
		store, err := redis.NewStore(ctx, logger, storeURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open redis execution store: %w", err)
		}

		return store, nil
	default:
		return nil, fmt.Errorf("%w: execution store %q", ErrUnsupportedProvider, provider)
	}
}
