package provider

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"subgraphd/internal/domain"
	"subgraphd/internal/infra/telemetry"
)

// FailureReporter writes the advisory failure marker after a failed start.
// The marker never gates later start attempts and a marker write failure
// never masks the start error itself.
type FailureReporter struct {
	store   domain.MetadataStore
	metrics domain.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

func NewFailureReporter(store domain.MetadataStore, metrics domain.Metrics, logger *zap.Logger) *FailureReporter {
	if store == nil {
		panic("provider.FailureReporter requires a store")
	}
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FailureReporter{
		store:   store,
		metrics: metrics,
		logger:  logger.Named("reporter"),
		now:     time.Now,
	}
}

// ReportStartFailure records why a start failed. Duplicate-start rejections
// carry no marker: the deployment is healthy, the call was redundant. The
// write is detached from the caller's cancellation so that a start aborted
// by its context still leaves a marker.
func (r *FailureReporter) ReportStartFailure(ctx context.Context, id domain.DeploymentID, startErr error) {
	if startErr == nil || errors.Is(startErr, domain.ErrAlreadyRunning) {
		return
	}

	marker := domain.FailureMarker{
		Failed:    true,
		Reason:    startErr.Error(),
		UpdatedAt: r.now().UTC(),
	}
	if err := r.store.ApplyFailureMarker(context.WithoutCancel(ctx), id, marker); err != nil {
		r.logger.Warn("failure marker write failed",
			telemetry.EventField(telemetry.EventMarkerFailure),
			telemetry.DeploymentField(string(id)),
			zap.Error(err),
		)
		return
	}
	r.metrics.ObserveFailureMarker()
}
