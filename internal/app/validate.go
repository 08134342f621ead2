package app

import (
	"context"

	"go.uber.org/zap"

	"subgraphd/internal/infra/assignments"
	"subgraphd/internal/infra/config"
	"subgraphd/internal/infra/telemetry"
)

type ValidateConfig struct {
	ConfigPath string
}

// ValidateConfig checks the configuration at the provided path, including
// the assignments file when one is configured.
func (a *App) ValidateConfig(ctx context.Context, cfg ValidateConfig) error {
	conf, err := config.NewLoader(a.logger).Load(ctx, cfg.ConfigPath)
	if err != nil {
		return err
	}

	if conf.Assignments.Path != "" {
		set, err := assignments.ReadFile(conf.Assignments.Path)
		if err != nil {
			return err
		}
		a.logger.Info("assignments validated",
			zap.String("path", conf.Assignments.Path),
			zap.Int("deployments", len(set.Deployments)),
		)
	}

	a.logger.Info("configuration validated",
		zap.String("config", cfg.ConfigPath),
		telemetry.BackendField(string(conf.Store.Backend)),
	)
	return nil
}
