package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealthTracker_HealthyByDefault(t *testing.T) {
	tracker := NewHealthTracker()
	require.True(t, tracker.Healthy())
	require.Equal(t, "ok", tracker.Report().Status)
}

func TestHealthTracker_DegradeAndRecover(t *testing.T) {
	tracker := NewHealthTracker()

	tracker.SetDegraded("store", "connection refused")
	require.False(t, tracker.Healthy())

	report := tracker.Report()
	require.Equal(t, "degraded", report.Status)
	require.Len(t, report.Components, 1)
	assert.Equal(t, "store", report.Components[0].Name)
	assert.Equal(t, "connection refused", report.Components[0].Reason)
	assert.NotEmpty(t, report.Components[0].Since)

	tracker.SetHealthy("store")
	require.True(t, tracker.Healthy())
	require.Equal(t, "ok", tracker.Report().Status)
}

func TestHealthTracker_ComponentsSorted(t *testing.T) {
	tracker := NewHealthTracker()
	tracker.SetDegraded("store", "down")
	tracker.SetDegraded("gateway", "unreachable")

	report := tracker.Report()
	require.Len(t, report.Components, 2)
	assert.Equal(t, "gateway", report.Components[0].Name)
	assert.Equal(t, "store", report.Components[1].Name)
}

func TestHealthTracker_NilSafe(t *testing.T) {
	var tracker *HealthTracker
	assert.NotPanics(t, func() {
		tracker.SetDegraded("store", "down")
		tracker.SetHealthy("store")
	})
	assert.True(t, tracker.Healthy())
	assert.Equal(t, "ok", tracker.Report().Status)
}
