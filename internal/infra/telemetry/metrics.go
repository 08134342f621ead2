package telemetry

import (
	"time"

	"subgraphd/internal/domain"
)

type NoopMetrics struct{}

func NewNoopMetrics() *NoopMetrics {
	return &NoopMetrics{}
}

func (n *NoopMetrics) ObserveDeploymentStart(_ time.Duration, _ error) {}

func (n *NoopMetrics) ObserveDeploymentStop(_ error) {}

func (n *NoopMetrics) ObserveManifestResolve(_ time.Duration, _ error) {}

func (n *NoopMetrics) ObserveResolverRetry() {}

func (n *NoopMetrics) ObserveFailureMarker() {}

func (n *NoopMetrics) SetActiveDeployments(_ int) {}

var _ domain.Metrics = (*NoopMetrics)(nil)
