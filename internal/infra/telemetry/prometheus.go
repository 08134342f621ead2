package telemetry

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"subgraphd/internal/domain"
)

type PrometheusMetrics struct {
	deploymentStarts *prometheus.CounterVec
	deploymentStops  *prometheus.CounterVec
	resolveDuration  *prometheus.HistogramVec
	resolverRetries  prometheus.Counter
	failureMarkers   prometheus.Counter
	activeGauge      prometheus.Gauge
}

func NewPrometheusMetrics(registerer prometheus.Registerer) *PrometheusMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)

	return &PrometheusMetrics{
		deploymentStarts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subgraphd_deployment_starts_total",
				Help: "Total number of deployment start attempts",
			},
			[]string{"status"},
		),
		deploymentStops: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subgraphd_deployment_stops_total",
				Help: "Total number of deployment stop attempts",
			},
			[]string{"status"},
		),
		resolveDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "subgraphd_manifest_resolve_duration_seconds",
				Help:    "Duration of manifest resolution in seconds",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"status"},
		),
		resolverRetries: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "subgraphd_resolver_retries_total",
				Help: "Total number of resolve retry attempts",
			},
		),
		failureMarkers: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "subgraphd_failure_markers_total",
				Help: "Total number of failure markers written",
			},
		),
		activeGauge: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "subgraphd_active_deployments",
				Help: "Current number of running deployments",
			},
		),
	}
}

func (p *PrometheusMetrics) ObserveDeploymentStart(duration time.Duration, err error) {
	p.deploymentStarts.WithLabelValues(string(startStatus(err))).Inc()
}

func (p *PrometheusMetrics) ObserveDeploymentStop(err error) {
	status := domain.StopStatusSuccess
	if err != nil {
		status = domain.StopStatusNotRunning
	}
	p.deploymentStops.WithLabelValues(string(status)).Inc()
}

func (p *PrometheusMetrics) ObserveManifestResolve(duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	p.resolveDuration.WithLabelValues(status).Observe(duration.Seconds())
}

func (p *PrometheusMetrics) ObserveResolverRetry() {
	p.resolverRetries.Inc()
}

func (p *PrometheusMetrics) ObserveFailureMarker() {
	p.failureMarkers.Inc()
}

func (p *PrometheusMetrics) SetActiveDeployments(count int) {
	p.activeGauge.Set(float64(count))
}

func startStatus(err error) domain.StartStatus {
	switch {
	case err == nil:
		return domain.StartStatusSuccess
	case errors.Is(err, domain.ErrAlreadyRunning):
		return domain.StartStatusAlreadyRunning
	default:
		return domain.StartStatusError
	}
}

var _ domain.Metrics = (*PrometheusMetrics)(nil)
