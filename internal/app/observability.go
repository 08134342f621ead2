package app

import "subgraphd/internal/domain"

// resolveObservabilityDefaults layers the effective metrics and healthz
// toggles: both default on, environment variables override the defaults,
// and explicit config values override everything.
func resolveObservabilityDefaults(cfg domain.ObservabilityConfig) (bool, bool) {
	metricsEnabled := true
	healthzEnabled := true
	if value, ok := envBoolOptional("SUBGRAPHD_METRICS_ENABLED"); ok {
		metricsEnabled = value
	}
	if value, ok := envBoolOptional("SUBGRAPHD_HEALTHZ_ENABLED"); ok {
		healthzEnabled = value
	}
	if cfg.MetricsEnabled != nil {
		metricsEnabled = *cfg.MetricsEnabled
	}
	if cfg.HealthzEnabled != nil {
		healthzEnabled = *cfg.HealthzEnabled
	}
	return metricsEnabled, healthzEnabled
}
