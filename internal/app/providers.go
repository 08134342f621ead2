package app

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"subgraphd/internal/domain"
	"subgraphd/internal/infra/events"
	"subgraphd/internal/infra/ipfs"
	"subgraphd/internal/infra/manifest"
	"subgraphd/internal/infra/provider"
	"subgraphd/internal/infra/resolver"
	"subgraphd/internal/infra/store/bolt"
	"subgraphd/internal/infra/store/memory"
	"subgraphd/internal/infra/store/postgres"
	"subgraphd/internal/infra/telemetry"
)

// MetadataStore is what the daemon needs from a store backend: metadata
// writes plus entity queries. All three backends satisfy it.
type MetadataStore interface {
	domain.MetadataStore
	domain.QueryRunner
}

func NewMetricsRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
	registry.MustRegister(prometheus.NewGoCollector())
	return registry
}

func NewMetrics(registry *prometheus.Registry) domain.Metrics {
	return telemetry.NewPrometheusMetrics(registry)
}

func NewHealthTracker() *telemetry.HealthTracker {
	return telemetry.NewHealthTracker()
}

func OpenMetadataStore(ctx context.Context, cfg domain.StoreConfig) (MetadataStore, error) {
	switch cfg.Backend {
	case domain.StoreBackendMemory:
		return memory.New(), nil
	case domain.StoreBackendBolt:
		store, err := bolt.Open(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("open bolt store: %w", err)
		}
		return store, nil
	case domain.StoreBackendPostgres:
		db, err := sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		store := postgres.New(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("ensure postgres schema: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
	}
}

func NewFileResolver(cfg domain.Config, metrics domain.Metrics, logger *zap.Logger) (domain.LinkResolver, error) {
	client, err := ipfs.NewClient(ipfs.ClientOptions{
		Endpoint:     cfg.Gateway.Endpoint,
		MaxFileBytes: cfg.Gateway.MaxFileBytes,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}
	return resolver.NewRetrying(client, resolver.Options{
		Timeout:   cfg.Resolver.Timeout(),
		Attempts:  cfg.Resolver.Attempts,
		RetryBase: cfg.Resolver.RetryBase(),
		RetryMax:  cfg.Resolver.RetryMax(),
		Metrics:   metrics,
		Logger:    logger,
	}), nil
}

func NewManifestResolver(files domain.LinkResolver, metrics domain.Metrics, logger *zap.Logger) *manifest.Resolver {
	return manifest.NewResolver(files, metrics, logger)
}

func NewEventChannel(cfg domain.Config) *events.Channel {
	return events.NewChannel(cfg.EventBufferSize)
}

func NewProvider(
	manifests *manifest.Resolver,
	files domain.LinkResolver,
	store MetadataStore,
	channel *events.Channel,
	metrics domain.Metrics,
	logger *zap.Logger,
) *provider.SubgraphProvider {
	return provider.New(provider.Options{
		Manifests: manifests,
		Files:     files,
		Runner:    store,
		Store:     store,
		Events:    channel,
		Metrics:   metrics,
		Logger:    logger,
	})
}

// Daemon bundles everything Serve needs once construction succeeds.
type Daemon struct {
	Config   domain.Config
	Registry *prometheus.Registry
	Health   *telemetry.HealthTracker
	Metrics  domain.Metrics
	Store    MetadataStore
	Provider *provider.SubgraphProvider
}

func NewDaemon(
	conf domain.Config,
	registry *prometheus.Registry,
	health *telemetry.HealthTracker,
	metrics domain.Metrics,
	store MetadataStore,
	prov *provider.SubgraphProvider,
) *Daemon {
	return &Daemon{
		Config:   conf,
		Registry: registry,
		Health:   health,
		Metrics:  metrics,
		Store:    store,
		Provider: prov,
	}
}

func buildDaemon(ctx context.Context, conf domain.Config, logger *zap.Logger) (*Daemon, error) {
	registry := NewMetricsRegistry()
	health := NewHealthTracker()
	metrics := NewMetrics(registry)

	store, err := OpenMetadataStore(ctx, conf.Store)
	if err != nil {
		return nil, err
	}

	files, err := NewFileResolver(conf, metrics, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	manifests := NewManifestResolver(files, metrics, logger)
	channel := NewEventChannel(conf)
	prov := NewProvider(manifests, files, store, channel, metrics, logger)

	return NewDaemon(conf, registry, health, metrics, store, prov), nil
}
