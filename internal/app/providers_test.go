package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subgraphd/internal/domain"
)

func TestOpenMetadataStoreMemory(t *testing.T) {
	store, err := OpenMetadataStore(context.Background(), domain.StoreConfig{
		Backend: domain.StoreBackendMemory,
	})
	require.NoError(t, err)
	require.NotNil(t, store)
	require.NoError(t, store.Close())
}

func TestOpenMetadataStoreBolt(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "meta.db")

	store, err := OpenMetadataStore(ctx, domain.StoreConfig{
		Backend: domain.StoreBackendBolt,
		Path:    path,
	})
	require.NoError(t, err)

	id := domain.DeploymentID("QmExchange1")
	require.NoError(t, store.ApplyFailureMarker(ctx, id, domain.FailureMarker{
		Failed:    true,
		Reason:    "resolve timeout",
		UpdatedAt: time.Now().UTC(),
	}))
	require.NoError(t, store.Close())

	// Reopen to confirm the marker survived the file round trip.
	store, err = OpenMetadataStore(ctx, domain.StoreConfig{
		Backend: domain.StoreBackendBolt,
		Path:    path,
	})
	require.NoError(t, err)
	defer store.Close()

	marker, found, err := store.FailureMarker(ctx, id)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "resolve timeout", marker.Reason)
}

func TestOpenMetadataStoreUnknownBackend(t *testing.T) {
	_, err := OpenMetadataStore(context.Background(), domain.StoreConfig{
		Backend: "cassandra",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown store backend "cassandra"`)
}

func TestMetricsRegistryExposesCollectors(t *testing.T) {
	registry := NewMetricsRegistry()
	metrics := NewMetrics(registry)

	metrics.ObserveDeploymentStart(time.Second, nil)
	metrics.SetActiveDeployments(2)

	families, err := registry.Gather()
	require.NoError(t, err)

	names := make(map[string]bool, len(families))
	for _, family := range families {
		names[family.GetName()] = true
	}
	assert.True(t, names["subgraphd_deployment_starts_total"])
	assert.True(t, names["subgraphd_active_deployments"])
	assert.True(t, names["go_goroutines"])
}

func TestBuildDaemonWiresPipeline(t *testing.T) {
	conf := domain.Config{
		Gateway: domain.GatewayConfig{
			Endpoint:     "http://127.0.0.1:8080",
			MaxFileBytes: domain.DefaultGatewayMaxFileBytes,
		},
		Resolver: domain.ResolverConfig{
			TimeoutSeconds:   1,
			Attempts:         1,
			RetryBaseSeconds: 1,
			RetryMaxSeconds:  1,
		},
		Store:           domain.StoreConfig{Backend: domain.StoreBackendMemory},
		EventBufferSize: 4,
	}

	daemon, err := buildDaemon(context.Background(), conf, nil)
	require.NoError(t, err)
	defer daemon.Store.Close()

	require.NotNil(t, daemon.Provider)
	require.NotNil(t, daemon.Registry)
	require.NotNil(t, daemon.Health)
	assert.Empty(t, daemon.Provider.RunningDeployments())
}
