package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"subgraphd/internal/domain"
	"subgraphd/internal/infra/config"
	"subgraphd/internal/infra/loader"
	"subgraphd/internal/infra/store/memory"
	"subgraphd/internal/infra/telemetry"
)

type ResolveConfig struct {
	ConfigPath string
	Deployment string
	Output     io.Writer
}

// ResolveDeployment fetches and validates a manifest through the configured
// gateway and prints a summary. It uses a throwaway in-memory store, so no
// dynamic data sources from prior runs are merged and nothing is persisted.
func (a *App) ResolveDeployment(ctx context.Context, cfg ResolveConfig) error {
	conf, err := config.NewLoader(a.logger).Load(ctx, cfg.ConfigPath)
	if err != nil {
		return err
	}

	id, err := domain.NewDeploymentID(cfg.Deployment)
	if err != nil {
		return err
	}

	metrics := telemetry.NewNoopMetrics()
	files, err := NewFileResolver(conf, metrics, a.logger)
	if err != nil {
		return err
	}

	man, err := NewManifestResolver(files, metrics, a.logger).Resolve(ctx, id)
	if err != nil {
		return err
	}

	dynamic, err := loader.New(memory.New(), files, a.logger).LoadDynamicDataSources(ctx, id)
	if err != nil {
		return err
	}
	man.AppendDynamicDataSources(dynamic)

	a.logger.Info("manifest resolved",
		telemetry.DeploymentField(id.String()),
		zap.String("spec_version", man.SpecVersion),
		zap.Int("data_sources", len(man.DataSources)),
	)

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	return writeManifestYAML(out, man)
}

type manifestView struct {
	Deployment  string           `yaml:"deployment"`
	SpecVersion string           `yaml:"specVersion"`
	Description string           `yaml:"description,omitempty"`
	Repository  string           `yaml:"repository,omitempty"`
	Entities    []string         `yaml:"entities"`
	DataSources []dataSourceView `yaml:"dataSources"`
	Templates   []string         `yaml:"templates,omitempty"`
}

type dataSourceView struct {
	Name       string `yaml:"name"`
	Kind       string `yaml:"kind"`
	Network    string `yaml:"network,omitempty"`
	Address    string `yaml:"address,omitempty"`
	StartBlock uint64 `yaml:"startBlock,omitempty"`
	Handlers   int    `yaml:"handlers"`
}

func writeManifestYAML(out io.Writer, man *domain.Manifest) error {
	view := manifestView{
		Deployment:  man.Deployment.String(),
		SpecVersion: man.SpecVersion,
		Description: man.Description,
		Repository:  man.Repository,
	}
	for _, entity := range man.Schema.Entities {
		view.Entities = append(view.Entities, entity.Name)
	}
	for _, ds := range man.DataSources {
		view.DataSources = append(view.DataSources, dataSourceView{
			Name:       ds.Name,
			Kind:       ds.Kind,
			Network:    ds.Network,
			Address:    ds.Source.Address,
			StartBlock: ds.Source.StartBlock,
			Handlers:   len(ds.Mapping.EventHandlers),
		})
	}
	for _, tpl := range man.Templates {
		view.Templates = append(view.Templates, tpl.Name)
	}

	encoded, err := yaml.Marshal(view)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	_, err = out.Write(encoded)
	return err
}
