package manifest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"subgraphd/internal/domain"
	"subgraphd/internal/infra/telemetry"
)

const opResolve = "manifest.Resolve"

// Resolver turns a deployment ID into a fully populated manifest: the
// manifest document itself plus the schema it links to.
type Resolver struct {
	files   domain.LinkResolver
	metrics domain.Metrics
	logger  *zap.Logger
}

func NewResolver(files domain.LinkResolver, metrics domain.Metrics, logger *zap.Logger) *Resolver {
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		files:   files,
		metrics: metrics,
		logger:  logger.Named("manifest"),
	}
}

func (r *Resolver) Resolve(ctx context.Context, id domain.DeploymentID) (*domain.Manifest, error) {
	started := time.Now()
	manifest, err := r.resolve(ctx, id)
	r.metrics.ObserveManifestResolve(time.Since(started), err)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("manifest resolved",
		telemetry.DeploymentField(string(id)),
		telemetry.DurationField(time.Since(started)),
		zap.Int("data_sources", len(manifest.DataSources)),
		zap.Int("entities", len(manifest.Schema.Entities)),
	)
	return manifest, nil
}

func (r *Resolver) resolve(ctx context.Context, id domain.DeploymentID) (*domain.Manifest, error) {
	data, err := r.files.ResolveLink(ctx, id.Link())
	if err != nil {
		return nil, domain.Wrap(domain.CodeUnavailable, opResolve, err)
	}

	manifest, err := Parse(id, data)
	if err != nil {
		return nil, err
	}

	sdl, err := r.files.ResolveLink(ctx, manifest.Schema.Link)
	if err != nil {
		return nil, domain.Wrap(domain.CodeUnavailable, opResolve, err)
	}
	entities, err := ParseSchema(manifest.Schema.Link, sdl)
	if err != nil {
		return nil, domain.E(domain.CodeManifestInvalid, opResolve,
			fmt.Sprintf("deployment %s: schema %s", id, manifest.Schema.Link), err)
	}

	manifest.Schema.Source = string(sdl)
	manifest.Schema.Entities = entities
	return manifest, nil
}
