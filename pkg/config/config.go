// Package config provides configuration loading for the evaluation and
// orchestration engine. Configuration is loaded once at startup and treated as
// immutable for the process lifetime.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/clearway/clearway/pkg/models"
)

// RiskWeights are the factor weights of the risk scorer. They must sum to 1.0.
type RiskWeights struct {
	DataSensitivity       float64 `yaml:"data_sensitivity"`
	IntegrationComplexity float64 `yaml:"integration_complexity"`
	RegulatoryScope       float64 `yaml:"regulatory_scope"`
	BusinessImpact        float64 `yaml:"business_impact"`
}

// RiskConfig bounds the normalization of raw scoring inputs.
type RiskConfig struct {
	Weights               RiskWeights `yaml:"weights"`
	IntegrationSaturation int         `yaml:"integration_saturation"`
	FrameworkSaturation   int         `yaml:"framework_saturation"`
	CostCap               float64     `yaml:"cost_cap"`
}

// ApprovalConfig holds the routing thresholds. The 0.3/0.7 split is the
// default, not a constant; deployments may tune the bands.
type ApprovalConfig struct {
	AutoApproveBelow    float64 `yaml:"auto_approve_below"`
	EnhancedReviewAbove float64 `yaml:"enhanced_review_above"`
	ExecutiveCostAbove  float64 `yaml:"executive_cost_above"`
}

// TaskGraphConfig controls track inclusion and extra template edges.
type TaskGraphConfig struct {
	FinanceCostAbove float64        `yaml:"finance_cost_above"`
	TemplateEdges    []TemplateEdge `yaml:"template_edges"`
}

// TemplateEdge declares an explicit cross-track dependency: every task of
// track From must complete before tasks of track To start.
type TemplateEdge struct {
	From models.Track `yaml:"from"`
	To   models.Track `yaml:"to"`
}

// OrchestratorConfig tunes dispatch, retries and SLA clocks.
type OrchestratorConfig struct {
	MaxRetries          int                        `yaml:"max_retries"`
	RetryBackoffBase    time.Duration              `yaml:"retry_backoff_base"`
	DispatchTimeout     time.Duration              `yaml:"dispatch_timeout"`
	DispatchConcurrency int                        `yaml:"dispatch_concurrency"`
	SLASweepSchedule    string                     `yaml:"sla_sweep_schedule"`
	SLADurations        map[models.Priority]string `yaml:"sla_durations"`
}

// Config is the full engine configuration.
type Config struct {
	Risk           RiskConfig         `yaml:"risk"`
	Approval       ApprovalConfig     `yaml:"approval"`
	TaskGraph      TaskGraphConfig    `yaml:"task_graph"`
	Orchestrator   OrchestratorConfig `yaml:"orchestrator"`
	FrameworksFile string             `yaml:"frameworks_file"`
}

// Default returns the configuration used when no file is provided.
func Default() *Config {
	return &Config{
		Risk: RiskConfig{
			Weights: RiskWeights{
				DataSensitivity:       0.40,
				IntegrationComplexity: 0.25,
				RegulatoryScope:       0.20,
				BusinessImpact:        0.15,
			},
			IntegrationSaturation: 8,
			FrameworkSaturation:   4,
			CostCap:               500_000,
		},
		Approval: ApprovalConfig{
			AutoApproveBelow:    0.3,
			EnhancedReviewAbove: 0.7,
			ExecutiveCostAbove:  250_000,
		},
		TaskGraph: TaskGraphConfig{
			FinanceCostAbove: 50_000,
		},
		Orchestrator: OrchestratorConfig{
			MaxRetries:          3,
			RetryBackoffBase:    30 * time.Second,
			DispatchTimeout:     10 * time.Second,
			DispatchConcurrency: 8,
			SLASweepSchedule:    "@every 1m",
			SLADurations: map[models.Priority]string{
				models.PriorityCritical: "4h",
				models.PriorityHigh:     "24h",
				models.PriorityMedium:   "72h",
				models.PriorityLow:      "168h",
			},
		},
	}
}

// Load reads a YAML configuration file and overlays it on the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadOrDefault loads the configuration file when a path is given, otherwise
// falls back to the defaults.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	return Load(path)
}

const weightSumTolerance = 1e-9

// Validate rejects configurations that would break scoring or routing invariants.
func (c *Config) Validate() error {
	w := c.Risk.Weights

	sum := w.DataSensitivity + w.IntegrationComplexity + w.RegulatoryScope + w.BusinessImpact
	if sum < 1.0-weightSumTolerance || sum > 1.0+weightSumTolerance {
		return fmt.Errorf("risk weights must sum to 1.0, got %v", sum)
	}

	if c.Approval.AutoApproveBelow < 0 || c.Approval.EnhancedReviewAbove > 1 ||
		c.Approval.AutoApproveBelow > c.Approval.EnhancedReviewAbove {
		return fmt.Errorf("approval thresholds out of order: %v / %v",
			c.Approval.AutoApproveBelow, c.Approval.EnhancedReviewAbove)
	}

	if c.Orchestrator.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative, got %d", c.Orchestrator.MaxRetries)
	}

	for priority, raw := range c.Orchestrator.SLADurations {
		if _, err := time.ParseDuration(raw); err != nil {
			return fmt.Errorf("invalid SLA duration for priority %s: %w", priority, err)
		}
	}

	return nil
}

// SLAFor resolves the SLA clock duration for a priority. Unknown priorities
// fall back to the low band.
func (c *Config) SLAFor(priority models.Priority) time.Duration {
	raw, ok := c.Orchestrator.SLADurations[priority]
	if !ok {
		raw = c.Orchestrator.SLADurations[models.PriorityLow]
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return 168 * time.Hour
	}

	return d
}
