package app

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"subgraphd/internal/domain"
)

func TestObservabilityDefaultsOn(t *testing.T) {
	t.Setenv("SUBGRAPHD_METRICS_ENABLED", "")
	t.Setenv("SUBGRAPHD_HEALTHZ_ENABLED", "")

	metrics, healthz := resolveObservabilityDefaults(domain.ObservabilityConfig{})
	assert.True(t, metrics)
	assert.True(t, healthz)
}

func TestObservabilityEnvOverridesDefaults(t *testing.T) {
	t.Setenv("SUBGRAPHD_METRICS_ENABLED", "0")
	t.Setenv("SUBGRAPHD_HEALTHZ_ENABLED", "")

	metrics, healthz := resolveObservabilityDefaults(domain.ObservabilityConfig{})
	assert.False(t, metrics)
	assert.True(t, healthz)
}

func TestObservabilityConfigOverridesEnv(t *testing.T) {
	t.Setenv("SUBGRAPHD_METRICS_ENABLED", "0")
	t.Setenv("SUBGRAPHD_HEALTHZ_ENABLED", "true")

	enabled := true
	disabled := false
	metrics, healthz := resolveObservabilityDefaults(domain.ObservabilityConfig{
		MetricsEnabled: &enabled,
		HealthzEnabled: &disabled,
	})
	assert.True(t, metrics)
	assert.False(t, healthz)
}

func TestEnvBoolOptional(t *testing.T) {
	cases := []struct {
		value string
		want  bool
		set   bool
	}{
		{"", false, false},
		{"1", true, true},
		{"true", true, true},
		{"TRUE", true, true},
		{"0", false, true},
		{"false", false, true},
		{"maybe", false, true},
	}
	for _, tc := range cases {
		t.Setenv("SUBGRAPHD_TEST_FLAG", tc.value)
		got, ok := envBoolOptional("SUBGRAPHD_TEST_FLAG")
		assert.Equal(t, tc.want, got, "value %q", tc.value)
		assert.Equal(t, tc.set, ok, "value %q", tc.value)
	}
}
