//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"subgraphd/internal/domain"
)

func InitializeDaemon(ctx context.Context, conf domain.Config, logger *zap.Logger) (*Daemon, error) {
	wire.Build(DaemonSet)
	return nil, nil
}
