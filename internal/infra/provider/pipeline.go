package provider

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"subgraphd/internal/domain"
	"subgraphd/internal/infra/loader"
	"subgraphd/internal/infra/telemetry"
)

// runStartPipeline performs the ordered steps of a start: resolve the
// manifest, append previously discovered dynamic data sources, claim the
// running-set slot, build attribute indexes, and emit the start event.
//
// The slot is claimed only after resolution succeeds, so a failed start
// leaves no trace in the running set. Once the slot is claimed nothing can
// fail: index creation is best effort and the emit either succeeds or
// panics.
func (p *SubgraphProvider) runStartPipeline(ctx context.Context, logger *zap.Logger, id domain.DeploymentID) (*domain.Manifest, error) {
	manifest, err := p.manifests.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	dynamicLoader := loader.New(p.runner, p.files, logger)
	dynamic, err := dynamicLoader.LoadDynamicDataSources(ctx, id)
	if err != nil {
		return nil, err
	}
	manifest.AppendDynamicDataSources(dynamic)

	if !p.running.TryStart(id) {
		return nil, domain.E(domain.CodeAlreadyRunning, opStart,
			fmt.Sprintf("deployment %s", id), domain.ErrAlreadyRunning)
	}

	defs := domain.AttributeIndexDefinitions(manifest.Schema.Entities)
	if err := p.store.BuildAttributeIndexes(ctx, id, defs); err != nil {
		logger.Warn("attribute index build skipped",
			telemetry.EventField(telemetry.EventIndexSkipped),
			telemetry.DeploymentField(string(id)),
			zap.Int("indexes", len(defs)),
			zap.Error(err),
		)
	}

	p.events.Emit(domain.LifecycleEvent{
		Kind:       domain.EventStart,
		Deployment: id,
		Manifest:   manifest,
	})
	return manifest, nil
}
