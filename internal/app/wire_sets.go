//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"

	"subgraphd/internal/domain"
)

var MetricsSet = wire.NewSet(
	NewMetricsRegistry,
	NewMetrics,
	NewHealthTracker,
)

var StoreSet = wire.NewSet(
	wire.FieldsOf(new(domain.Config), "Store"),
	OpenMetadataStore,
)

var PipelineSet = wire.NewSet(
	NewFileResolver,
	NewManifestResolver,
	NewEventChannel,
	NewProvider,
)

var DaemonSet = wire.NewSet(
	MetricsSet,
	StoreSet,
	PipelineSet,
	NewDaemon,
)
