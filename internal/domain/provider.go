package domain

import "context"

// Provider orchestrates deployment lifecycle: it resolves a deployment's
// files, admits it into the running set, and announces starts and stops on
// the event stream.
type Provider interface {
	// Start resolves the deployment and emits a start event. The event is
	// enqueued before Start returns; no start is observable without its
	// event. Failures other than ErrAlreadyRunning leave a failure marker
	// in the metadata store.
	Start(ctx context.Context, id DeploymentID) error
	// Stop removes the deployment from the running set and emits a stop
	// event, or returns ErrNotRunning without emitting anything.
	Stop(ctx context.Context, id DeploymentID) error
	// TakeEventStream hands out the consumer side of the event stream.
	// It succeeds exactly once; later calls report false.
	TakeEventStream() (<-chan LifecycleEvent, bool)
}

// DynamicDataSourceLoader loads the data sources a deployment instantiated
// from templates in earlier runs, in discovery order.
type DynamicDataSourceLoader interface {
	LoadDynamicDataSources(ctx context.Context, id DeploymentID) ([]DynamicDataSource, error)
}
