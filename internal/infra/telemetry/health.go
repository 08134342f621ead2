package telemetry

import (
	"sort"
	"sync"
	"time"
)

// HealthTracker aggregates per-component health into the /healthz report.
// Components report degradation with a reason and clear it when recovered.
type HealthTracker struct {
	mu         sync.RWMutex
	components map[string]componentHealth
}

type componentHealth struct {
	reason string
	since  time.Time
}

type HealthReport struct {
	Status     string            `json:"status"`
	Components []ComponentReport `json:"components,omitempty"`
}

type ComponentReport struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
	Since  string `json:"since,omitempty"`
}

func NewHealthTracker() *HealthTracker {
	return &HealthTracker{
		components: make(map[string]componentHealth),
	}
}

// SetDegraded marks a component unhealthy until SetHealthy clears it.
func (t *HealthTracker) SetDegraded(component, reason string) {
	if t == nil || component == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if existing, ok := t.components[component]; ok && existing.reason == reason {
		return
	}
	t.components[component] = componentHealth{reason: reason, since: time.Now()}
}

func (t *HealthTracker) SetHealthy(component string) {
	if t == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.components, component)
}

func (t *HealthTracker) Healthy() bool {
	if t == nil {
		return true
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.components) == 0
}

func (t *HealthTracker) Report() HealthReport {
	if t == nil {
		return HealthReport{Status: "ok"}
	}
	t.mu.RLock()
	defer t.mu.RUnlock()

	if len(t.components) == 0 {
		return HealthReport{Status: "ok"}
	}

	names := make([]string, 0, len(t.components))
	for name := range t.components {
		names = append(names, name)
	}
	sort.Strings(names)

	report := HealthReport{Status: "degraded"}
	for _, name := range names {
		health := t.components[name]
		report.Components = append(report.Components, ComponentReport{
			Name:   name,
			Status: "degraded",
			Reason: health.reason,
			Since:  health.since.UTC().Format(time.RFC3339),
		})
	}
	return report
}
