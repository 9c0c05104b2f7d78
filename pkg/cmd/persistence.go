package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/residentdesk/facilityflow/pkg/persistence"
	"github.com/residentdesk/facilityflow/pkg/persistence/file"
	"github.com/residentdesk/facilityflow/pkg/persistence/postgresql"
)

// NewPersistence selects the workflow store from the URL scheme. URLs without
// a recognised scheme are treated as a directory for file persistence.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (persistence.Persistence, error) {
	provider, location := parseProvider(databaseURL, "file")

	switch provider {
	case "postgres", "postgresql":
		store, err := postgresql.NewPersistence(ctx, logger.With("module", "postgresql"), databaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres persistence: %w", err)
		}

		return store, nil
	case "file":
		return file.NewPersistence(location), nil
	default:
		return nil, fmt.Errorf("%w: persistence %q", ErrUnsupportedProvider, provider)
	}
}

// parseProvider splits "scheme://rest". Bare values get fallback as scheme.
func parseProvider(url, fallback string) (string, string) {
	provider, rest, found := strings.Cut(url, "://")
	if !found {
		return fallback, url
	}

	return strings.ToLower(provider), rest
}
