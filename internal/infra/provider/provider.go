// Package provider implements the deployment lifecycle: starting a
// deployment resolves its manifest and announces it on the event stream,
// stopping retracts it. A single consumer drives indexing off that stream.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"subgraphd/internal/domain"
	"subgraphd/internal/infra/events"
	"subgraphd/internal/infra/registry"
	"subgraphd/internal/infra/telemetry"
)

const (
	opStart = "provider.Start"
	opStop  = "provider.Stop"
)

// ManifestResolver turns a deployment ID into its fully populated manifest.
type ManifestResolver interface {
	Resolve(ctx context.Context, id domain.DeploymentID) (*domain.Manifest, error)
}

// SubgraphProvider coordinates the start and stop of deployments. All state
// transitions are announced on one bounded event stream with exactly one
// consumer.
type SubgraphProvider struct {
	manifests ManifestResolver
	files     domain.LinkResolver
	runner    domain.QueryRunner
	store     domain.MetadataStore
	events    *events.Channel
	running   *registry.RunningSet
	reporter  *FailureReporter
	metrics   domain.Metrics
	logger    *zap.Logger
}

type Options struct {
	Manifests ManifestResolver
	Files     domain.LinkResolver
	Runner    domain.QueryRunner
	Store     domain.MetadataStore
	Events    *events.Channel
	Metrics   domain.Metrics
	Logger    *zap.Logger
}

func New(opts Options) *SubgraphProvider {
	if opts.Manifests == nil {
		panic("provider.New requires a manifest resolver")
	}
	if opts.Files == nil {
		panic("provider.New requires a link resolver")
	}
	if opts.Runner == nil {
		panic("provider.New requires a query runner")
	}
	if opts.Store == nil {
		panic("provider.New requires a metadata store")
	}
	eventChannel := opts.Events
	if eventChannel == nil {
		eventChannel = events.NewChannel(0)
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubgraphProvider{
		manifests: opts.Manifests,
		files:     opts.Files,
		runner:    opts.Runner,
		store:     opts.Store,
		events:    eventChannel,
		running:   registry.NewRunningSet(),
		reporter:  NewFailureReporter(opts.Store, metrics, logger),
		metrics:   metrics,
		logger:    logger.Named("provider"),
	}
}

// Start resolves the deployment and announces it. The start event sits in
// the stream before Start returns.
func (p *SubgraphProvider) Start(ctx context.Context, id domain.DeploymentID) error {
	started := time.Now()
	ctx, _ = telemetry.EnsureRequestMeta(ctx)
	logger := telemetry.LoggerWithRequest(ctx, p.logger)

	logger.Info("deployment start attempt",
		telemetry.EventField(telemetry.EventStartAttempt),
		telemetry.DeploymentField(string(id)),
		telemetry.LinkField(id.Link()),
	)

	manifest, err := p.runStartPipeline(ctx, logger, id)
	duration := time.Since(started)
	p.metrics.ObserveDeploymentStart(duration, err)
	if err != nil {
		p.reporter.ReportStartFailure(ctx, id, err)
		if errors.Is(err, domain.ErrAlreadyRunning) {
			logger.Warn("deployment already running",
				telemetry.EventField(telemetry.EventStartFailure),
				telemetry.DeploymentField(string(id)),
				telemetry.DurationField(duration),
			)
		} else {
			logger.Error("deployment start failed",
				telemetry.EventField(telemetry.EventStartFailure),
				telemetry.DeploymentField(string(id)),
				telemetry.DurationField(duration),
				zap.Error(err),
			)
		}
		return domain.Wrap(domain.CodeInternal, opStart, err)
	}

	p.metrics.SetActiveDeployments(p.running.Len())
	logger.Info("deployment started",
		telemetry.EventField(telemetry.EventStartSuccess),
		telemetry.DeploymentField(string(id)),
		zap.Int("data_sources", len(manifest.DataSources)),
		telemetry.DurationField(duration),
	)
	return nil
}

// Stop retracts a running deployment. The stop event sits in the stream
// before Stop returns; a deployment that was never started emits nothing.
func (p *SubgraphProvider) Stop(ctx context.Context, id domain.DeploymentID) error {
	logger := telemetry.LoggerWithRequest(ctx, p.logger)

	if !p.running.Stop(id) {
		p.metrics.ObserveDeploymentStop(domain.ErrNotRunning)
		logger.Warn("deployment not running",
			telemetry.EventField(telemetry.EventStopFailure),
			telemetry.DeploymentField(string(id)),
		)
		return domain.E(domain.CodeNotRunning, opStop,
			fmt.Sprintf("deployment %s", id), domain.ErrNotRunning)
	}

	p.events.Emit(domain.LifecycleEvent{Kind: domain.EventStop, Deployment: id})
	p.metrics.ObserveDeploymentStop(nil)
	p.metrics.SetActiveDeployments(p.running.Len())
	logger.Info("deployment stopped",
		telemetry.EventField(telemetry.EventStopSuccess),
		telemetry.DeploymentField(string(id)),
	)
	return nil
}

// TakeEventStream hands out the receive side of the event stream, once.
func (p *SubgraphProvider) TakeEventStream() (<-chan domain.LifecycleEvent, bool) {
	return p.events.Take()
}

// Running reports whether the deployment is currently in the running set.
func (p *SubgraphProvider) Running(id domain.DeploymentID) bool {
	return p.running.Contains(id)
}

// RunningDeployments returns the running set as a sorted snapshot.
func (p *SubgraphProvider) RunningDeployments() []domain.DeploymentID {
	return p.running.Snapshot()
}

// Close ends the event stream. All deployments must be stopped first; a
// start or stop racing past Close panics on emit.
func (p *SubgraphProvider) Close() {
	p.events.Close()
}

var _ domain.Provider = (*SubgraphProvider)(nil)
