package compliance

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clearway/clearway/pkg/models"
)

func TestRegistry_Builtins(t *testing.T) {
	registry := NewRegistry(slog.Default())

	names := registry.Names()
	assert.Equal(t, []string{FrameworkGDPR, FrameworkHIPAA, FrameworkPCI, FrameworkSOX}, names)

	gdpr, err := registry.Get(FrameworkGDPR)
	require.NoError(t, err)
	assert.Len(t, gdpr.Rules, 5)
}

func TestRegistry_GetUnknown(t *testing.T) {
	registry := NewRegistry(slog.Default())

	_, err := registry.Get("CCPA")
	require.ErrorIs(t, err, ErrUnknownFramework)
}

func TestRegistry_LoadFile(t *testing.T) {
	content := `
frameworks:
  - name: CCPA
    rules:
      - name: opt_out_mechanism
        field: opt_out_mechanism
        severity: high
        message: no consumer opt-out mechanism
        recommendation: add a do-not-sell opt-out flow
      - name: privacy_notice
        field: privacy_notice
        kind: present
`
	path := filepath.Join(t.TempDir(), "frameworks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	registry := NewRegistry(slog.Default())
	require.NoError(t, registry.LoadFile(path))

	ccpa, err := registry.Get("CCPA")
	require.NoError(t, err)
	require.Len(t, ccpa.Rules, 2)

	assert.Equal(t, models.SeverityHigh, ccpa.Rules[0].Severity)
	// Defaults are filled in for omitted fields.
	assert.Equal(t, models.SeverityMedium, ccpa.Rules[1].Severity)
	assert.NotEmpty(t, ccpa.Rules[1].Message)
	assert.NotEmpty(t, ccpa.Rules[1].Recommendation)

	// The "present" rule passes only on a non-empty string value.
	request := &models.Request{
		ComplianceRequirements: map[string]any{
			"opt_out_mechanism": true,
			"privacy_notice":    "https://example.com/privacy",
		},
	}
	assert.True(t, ccpa.Rules[0].Check(request))
	assert.True(t, ccpa.Rules[1].Check(request))
	assert.False(t, ccpa.Rules[1].Check(&models.Request{}))
}

func TestRegistry_LoadFileRejectsInvalidSchema(t *testing.T) {
	content := `
frameworks:
  - name: BROKEN
    rules:
      - name: missing_field_key
        severity: high
`
	path := filepath.Join(t.TempDir(), "frameworks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	registry := NewRegistry(slog.Default())
	err := registry.LoadFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "schema validation failed")

	_, err = registry.Get("BROKEN")
	require.ErrorIs(t, err, ErrUnknownFramework)
}
