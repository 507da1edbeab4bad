package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/clearway/clearway/pkg/config"
	"github.com/clearway/clearway/pkg/dispatch"
)

// NewDispatcher selects the team queue dispatcher. A redis:// URL enables the
// shared queue; an empty URL keeps dispatches in process memory.
func NewDispatcher(ctx context.Context, logger *slog.Logger, redisURL string, cfg *config.Config) dispatch.Dispatcher {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		d, err := dispatch.NewRedisDispatcher(ctx, redisURL, cfg.Orchestrator.DispatchTimeout, logger)
		if err != nil {
			panic(fmt.Errorf("failed to create redis dispatcher: %w", err))
		}

		return d
	}

	return dispatch.NewMemoryDispatcher()
}
