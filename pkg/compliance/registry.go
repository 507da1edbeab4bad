package compliance

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/clearway/clearway/pkg/models"
)

// ErrUnknownFramework indicates a requested framework is not registered. This
// is a configuration mismatch and is surfaced to the operator.
var ErrUnknownFramework = errors.New("unknown compliance framework")

// Registry holds the known frameworks. It is populated at startup and
// read-only afterwards.
type Registry struct {
	logger     *slog.Logger
	frameworks map[string]Framework
	order      []string
}

// NewRegistry creates a registry pre-loaded with the built-in frameworks.
func NewRegistry(logger *slog.Logger) *Registry {
	r := &Registry{
		logger:     logger,
		frameworks: make(map[string]Framework),
	}

	for _, fw := range BuiltinFrameworks() {
		r.Register(fw)
	}

	return r
}

// Register adds or replaces a framework by name.
func (r *Registry) Register(fw Framework) {
	if _, exists := r.frameworks[fw.Name]; !exists {
		r.order = append(r.order, fw.Name)
	}

	r.frameworks[fw.Name] = fw
}

// Get resolves a framework by name.
func (r *Registry) Get(name string) (Framework, error) {
	fw, ok := r.frameworks[name]
	if !ok {
		return Framework{}, fmt.Errorf("%w: %q", ErrUnknownFramework, name)
	}

	return fw, nil
}

// Names returns the registered framework names in registration order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)

	return names
}

// frameworkFile is the YAML shape of a registry config file.
type frameworkFile struct {
	Frameworks []frameworkConfig `yaml:"frameworks" json:"frameworks"`
}

type frameworkConfig struct {
	Name  string       `yaml:"name"  json:"name"`
	Rules []ruleConfig `yaml:"rules" json:"rules"`
}

type ruleConfig struct {
	Name           string `yaml:"name"           json:"name"`
	Field          string `yaml:"field"          json:"field"`
	Kind           string `yaml:"kind"           json:"kind"`
	Severity       string `yaml:"severity"       json:"severity"`
	Message        string `yaml:"message"        json:"message"`
	Recommendation string `yaml:"recommendation" json:"recommendation"`
}

// frameworkSchema validates a decoded registry config file before any
// framework is registered.
var frameworkSchema = map[string]any{
	"type":     "object",
	"required": []any{"frameworks"},
	"properties": map[string]any{
		"frameworks": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []any{"name", "rules"},
				"properties": map[string]any{
					"name": map[string]any{"type": "string", "minLength": 1},
					"rules": map[string]any{
						"type":     "array",
						"minItems": 1,
						"items": map[string]any{
							"type":     "object",
							"required": []any{"name", "field"},
							"properties": map[string]any{
								"name":  map[string]any{"type": "string", "minLength": 1},
								"field": map[string]any{"type": "string", "minLength": 1},
								"kind": map[string]any{
									"type": "string",
									"enum": []any{"flag", "present"},
								},
								"severity": map[string]any{
									"type": "string",
									"enum": []any{"low", "medium", "high", "critical"},
								},
								"message":        map[string]any{"type": "string"},
								"recommendation": map[string]any{"type": "string"},
							},
						},
					},
				},
			},
		},
	},
}

// LoadFile registers additional frameworks from a YAML config file. The file
// is validated against the registry JSON schema first.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read frameworks file %s: %w", path, err)
	}

	var file frameworkFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse frameworks file %s: %w", path, err)
	}

	if err := validateFrameworkFile(&file); err != nil {
		return fmt.Errorf("invalid frameworks file %s: %w", path, err)
	}

	for _, fc := range file.Frameworks {
		r.Register(buildFramework(fc))
		r.logger.Info("Registered compliance framework from config",
			"framework", fc.Name, "rules", len(fc.Rules))
	}

	return nil
}

func validateFrameworkFile(file *frameworkFile) error {
	// Re-shape through generic maps so gojsonschema can walk the document.
	doc := map[string]any{"frameworks": []any{}}

	frameworks := make([]any, 0, len(file.Frameworks))
	for _, fw := range file.Frameworks {
		rules := make([]any, 0, len(fw.Rules))
		for _, rule := range fw.Rules {
			item := map[string]any{
				"name":  rule.Name,
				"field": rule.Field,
			}
			if rule.Kind != "" {
				item["kind"] = rule.Kind
			}

			if rule.Severity != "" {
				item["severity"] = rule.Severity
			}

			rules = append(rules, item)
		}

		frameworks = append(frameworks, map[string]any{
			"name":  fw.Name,
			"rules": rules,
		})
	}

	doc["frameworks"] = frameworks

	schemaLoader := gojsonschema.NewGoLoader(frameworkSchema)
	docLoader := gojsonschema.NewGoLoader(doc)

	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return err
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return fmt.Errorf("schema validation failed: %s", strings.Join(details, "; "))
	}

	return nil
}

func buildFramework(fc frameworkConfig) Framework {
	fw := Framework{Name: fc.Name}

	for _, rc := range fc.Rules {
		severity := models.ViolationSeverity(rc.Severity)
		if rc.Severity == "" {
			severity = models.SeverityMedium
		}

		message := rc.Message
		if message == "" {
			message = fmt.Sprintf("requirement %q is not satisfied", rc.Field)
		}

		recommendation := rc.Recommendation
		if recommendation == "" {
			recommendation = fmt.Sprintf("satisfy the %q requirement and resubmit", rc.Field)
		}

		check := RequireFlag(rc.Field)
		if rc.Kind == "present" {
			check = RequirePresent(rc.Field)
		}

		fw.Rules = append(fw.Rules, Rule{
			Name:           rc.Name,
			Severity:       severity,
			Message:        message,
			Recommendation: recommendation,
			Check:          check,
		})
	}

	return fw
}
