package cmd

import (
	"fmt"
	"log/slog"

	"github.com/clearway/clearway/pkg/compliance"
	"github.com/clearway/clearway/pkg/config"
)

// NewComplianceRegistry builds the framework registry: built-in rulesets plus
// any deployment-specific frameworks from the config file.
func NewComplianceRegistry(logger *slog.Logger, cfg *config.Config) *compliance.Registry {
	registry := compliance.NewRegistry(logger)

	if cfg.FrameworksFile != "" {
		if err := registry.LoadFile(cfg.FrameworksFile); err != nil {
			panic(fmt.Errorf("failed to load frameworks file: %w", err))
		}
	}

	return registry
}
