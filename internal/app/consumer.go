package app

import (
	"go.uber.org/zap"

	"subgraphd/internal/domain"
	"subgraphd/internal/infra/telemetry"
)

// Consumer drains the lifecycle event stream and logs each event. The
// optional hook receives events in arrival order and is where a workload
// runner attaches.
type Consumer struct {
	logger  *zap.Logger
	onEvent func(domain.LifecycleEvent)
}

func NewConsumer(logger *zap.Logger, onEvent func(domain.LifecycleEvent)) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{
		logger:  logger.Named("events"),
		onEvent: onEvent,
	}
}

// Run blocks until the stream closes.
func (c *Consumer) Run(stream <-chan domain.LifecycleEvent) {
	for event := range stream {
		fields := []zap.Field{
			zap.String("kind", string(event.Kind)),
			telemetry.DeploymentField(event.Deployment.String()),
		}
		if event.Kind == domain.EventStart && event.Manifest != nil {
			fields = append(fields,
				zap.Int("data_sources", len(event.Manifest.DataSources)),
				zap.Int("entities", len(event.Manifest.Schema.Entities)),
			)
		}
		c.logger.Info("deployment event", fields...)
		if c.onEvent != nil {
			c.onEvent(event)
		}
	}
	c.logger.Info("event stream closed")
}
