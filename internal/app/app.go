// Package app assembles the daemon from its parts and carries the one-shot
// operations behind the CLI.
package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"subgraphd/internal/infra/assignments"
	"subgraphd/internal/infra/config"
	"subgraphd/internal/infra/provider"
	"subgraphd/internal/infra/telemetry"
)

type App struct {
	logger *zap.Logger
}

type ServeConfig struct {
	ConfigPath string
}

func New(logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{
		logger: logger.Named("app"),
	}
}

// Serve runs the daemon until ctx ends: it opens the metadata store, builds
// the provider pipeline, consumes lifecycle events, serves the observability
// endpoints and, when configured, converges on the assignments file.
func (a *App) Serve(ctx context.Context, cfg ServeConfig) error {
	conf, err := config.NewLoader(a.logger).Load(ctx, cfg.ConfigPath)
	if err != nil {
		return err
	}

	a.logger.Info("configuration loaded",
		zap.String("config", cfg.ConfigPath),
		zap.String("gateway", conf.Gateway.Endpoint),
		telemetry.BackendField(string(conf.Store.Backend)),
	)

	daemon, err := buildDaemon(ctx, conf, a.logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := daemon.Store.Close(); err != nil {
			a.logger.Warn("store close failed", zap.Error(err))
		}
	}()

	stream, ok := daemon.Provider.TakeEventStream()
	if !ok {
		return errors.New("event stream already taken")
	}

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		NewConsumer(a.logger, nil).Run(stream)
	}()

	metricsEnabled, healthzEnabled := resolveObservabilityDefaults(conf.Observability)
	obsDone := make(chan error, 1)
	go func() {
		obsDone <- telemetry.StartHTTPServer(ctx, telemetry.HTTPServerOptions{
			Addr:          conf.Observability.ListenAddress,
			EnableMetrics: metricsEnabled,
			EnableHealthz: healthzEnabled,
			Health:        daemon.Health,
			Registry:      daemon.Registry,
		}, a.logger)
	}()

	watcherDone := make(chan error, 1)
	if conf.Assignments.Path != "" {
		reconciler := assignments.NewReconciler(daemon.Provider, a.logger)
		watcher := assignments.NewWatcher(reconciler, assignments.WatcherOptions{
			Path:     conf.Assignments.Path,
			Debounce: conf.Assignments.Debounce(),
			Health:   daemon.Health,
			Logger:   a.logger,
		})
		go func() { watcherDone <- watcher.Run(ctx) }()
	} else {
		watcherDone <- nil
		a.logger.Info("assignments reconciliation disabled")
	}

	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
		case err := <-obsDone:
			obsDone = nil
			if err != nil {
				a.logger.Warn("observability server failed", zap.Error(err))
			}
		case err := <-watcherDone:
			watcherDone = nil
			if err != nil {
				a.logger.Warn("assignments watcher failed", zap.Error(err))
			}
		}
	}

	// Shutdown order: the watcher exits first so nothing starts anew, running
	// deployments are stopped while the consumer still drains, and closing
	// the channel lets the consumer finish.
	if watcherDone != nil {
		if err := <-watcherDone; err != nil {
			a.logger.Warn("assignments watcher failed", zap.Error(err))
		}
	}

	a.stopAll(daemon.Provider)
	daemon.Provider.Close()
	<-consumerDone

	if obsDone != nil {
		if err := <-obsDone; err != nil {
			a.logger.Warn("observability server failed", zap.Error(err))
		}
	}

	a.logger.Info("daemon stopped")
	return nil
}

func (a *App) stopAll(prov *provider.SubgraphProvider) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, id := range prov.RunningDeployments() {
		if err := prov.Stop(ctx, id); err != nil {
			a.logger.Warn("shutdown stop failed",
				telemetry.DeploymentField(id.String()),
				zap.Error(err),
			)
		}
	}
}
