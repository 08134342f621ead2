package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"subgraphd/internal/domain"
	"subgraphd/internal/infra/config"
)

type StatusConfig struct {
	ConfigPath string
	Deployment string
	Output     io.Writer
}

type statusView struct {
	Deployment         string `yaml:"deployment"`
	Failed             bool   `yaml:"failed"`
	Reason             string `yaml:"reason,omitempty"`
	UpdatedAt          string `yaml:"updatedAt,omitempty"`
	DynamicDataSources int    `yaml:"dynamicDataSources"`
}

// DeploymentStatus reports the stored failure marker and dynamic data source
// count for a deployment, straight from the metadata store.
func (a *App) DeploymentStatus(ctx context.Context, cfg StatusConfig) error {
	conf, err := config.NewLoader(a.logger).Load(ctx, cfg.ConfigPath)
	if err != nil {
		return err
	}

	id, err := domain.NewDeploymentID(cfg.Deployment)
	if err != nil {
		return err
	}

	store, err := OpenMetadataStore(ctx, conf.Store)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			a.logger.Warn("store close failed", zap.Error(err))
		}
	}()

	marker, _, err := store.FailureMarker(ctx, id)
	if err != nil {
		return err
	}

	rows, err := store.RunEntityQuery(ctx, domain.EntityQuery{
		Deployment: id,
		Entity:     domain.EntityDynamicDataSource,
		OrderBy:    "ordinal",
	})
	if err != nil {
		return err
	}

	view := statusView{
		Deployment:         id.String(),
		Failed:             marker.Failed,
		Reason:             marker.Reason,
		DynamicDataSources: len(rows),
	}
	if !marker.UpdatedAt.IsZero() {
		view.UpdatedAt = marker.UpdatedAt.Format(time.RFC3339)
	}

	encoded, err := yaml.Marshal(view)
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	_, err = out.Write(encoded)
	return err
}
