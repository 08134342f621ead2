// Package loader reads back the dynamic data sources a deployment accumulated
// in previous runs so they can be appended to its manifest on start.
package loader

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"subgraphd/internal/domain"
	"subgraphd/internal/infra/manifest"
	"subgraphd/internal/infra/telemetry"
)

const opLoad = "loader.LoadDynamicDataSources"

// Loader materializes dynamic data sources from their stored rows. Each row
// carries a mapping link that is resolved again at load time, so a loader is
// built per start call with the resolver that start is using.
type Loader struct {
	runner domain.QueryRunner
	files  domain.LinkResolver
	logger *zap.Logger
}

func New(runner domain.QueryRunner, files domain.LinkResolver, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		runner: runner,
		files:  files,
		logger: logger.Named("loader"),
	}
}

func (l *Loader) LoadDynamicDataSources(ctx context.Context, id domain.DeploymentID) ([]domain.DynamicDataSource, error) {
	rows, err := l.runner.RunEntityQuery(ctx, domain.EntityQuery{
		Deployment: id,
		Entity:     domain.EntityDynamicDataSource,
		OrderBy:    "ordinal",
	})
	if err != nil {
		return nil, domain.E(domain.CodeDataSourceLoadFailed, opLoad,
			fmt.Sprintf("deployment %s", id), err)
	}

	dataSources := make([]domain.DynamicDataSource, 0, len(rows))
	for i, raw := range rows {
		var record domain.DynamicDataSourceRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, domain.E(domain.CodeDataSourceLoadFailed, opLoad,
				fmt.Sprintf("deployment %s: row %d", id, i), err)
		}

		mappingData, err := l.files.ResolveLink(ctx, record.MappingLink)
		if err != nil {
			return nil, domain.E(domain.CodeDataSourceLoadFailed, opLoad,
				fmt.Sprintf("deployment %s: data source %s", id, record.Name), err)
		}
		mapping, err := manifest.ParseMapping(mappingData)
		if err != nil {
			return nil, domain.E(domain.CodeDataSourceLoadFailed, opLoad,
				fmt.Sprintf("deployment %s: data source %s: mapping %s", id, record.Name, record.MappingLink), err)
		}

		dataSources = append(dataSources, domain.DynamicDataSource{
			DataSource: domain.DataSource{
				Kind:    record.Kind,
				Name:    record.Name,
				Network: record.Network,
				Source: domain.ContractSource{
					Address:    record.Address,
					ABI:        record.ABI,
					StartBlock: record.StartBlock,
				},
				Mapping: mapping,
			},
			Ordinal:       record.Ordinal,
			CreationBlock: record.CreationBlock,
		})
	}

	if len(dataSources) > 0 {
		l.logger.Debug("dynamic data sources loaded",
			telemetry.DeploymentField(string(id)),
			zap.Int("count", len(dataSources)),
		)
	}
	return dataSources, nil
}

var _ domain.DynamicDataSourceLoader = (*Loader)(nil)
