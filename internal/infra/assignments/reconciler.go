package assignments

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"subgraphd/internal/domain"
	"subgraphd/internal/infra/telemetry"
)

// LifecycleProvider is the slice of the deployment provider the reconciler
// drives.
type LifecycleProvider interface {
	Start(ctx context.Context, id domain.DeploymentID) error
	Stop(ctx context.Context, id domain.DeploymentID) error
	RunningDeployments() []domain.DeploymentID
}

// Result counts what one reconciliation pass did.
type Result struct {
	Started int
	Stopped int
	Failed  int
}

// Reconciler diffs a desired assignment set against the running deployments
// and starts or stops deployments to converge. Start failures are counted
// and logged, never fatal: the next pass retries them.
type Reconciler struct {
	provider LifecycleProvider
	logger   *zap.Logger
}

func NewReconciler(provider LifecycleProvider, logger *zap.Logger) *Reconciler {
	if provider == nil {
		panic("assignments: provider is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{
		provider: provider,
		logger:   logger.Named("assignments"),
	}
}

// Apply converges the running set on the desired set. Deployments no longer
// desired are stopped first, then missing ones are started in file order.
func (r *Reconciler) Apply(ctx context.Context, set Set) Result {
	var result Result
	if ctx.Err() != nil {
		return result
	}

	desired := make(map[domain.DeploymentID]struct{}, len(set.Deployments))
	for _, id := range set.IDs() {
		desired[id] = struct{}{}
	}

	running := r.provider.RunningDeployments()
	active := make(map[domain.DeploymentID]struct{}, len(running))
	for _, id := range running {
		active[id] = struct{}{}
	}

	for _, id := range running {
		if _, keep := desired[id]; keep {
			continue
		}
		if err := r.provider.Stop(ctx, id); err != nil {
			if errors.Is(err, domain.ErrNotRunning) {
				continue
			}
			result.Failed++
			r.logger.Warn("assignment stop failed",
				telemetry.DeploymentField(id.String()),
				zap.Error(err),
			)
			continue
		}
		result.Stopped++
	}

	for _, id := range set.IDs() {
		if _, ok := active[id]; ok {
			continue
		}
		if err := r.provider.Start(ctx, id); err != nil {
			if errors.Is(err, domain.ErrAlreadyRunning) {
				continue
			}
			result.Failed++
			r.logger.Warn("assignment start failed",
				telemetry.DeploymentField(id.String()),
				zap.Error(err),
			)
			continue
		}
		result.Started++
	}

	r.logger.Info("assignments applied",
		telemetry.EventField(telemetry.EventReconcileApply),
		zap.Int("desired", len(desired)),
		zap.Int("started", result.Started),
		zap.Int("stopped", result.Stopped),
		zap.Int("failed", result.Failed),
	)
	return result
}
