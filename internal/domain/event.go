package domain

// EventKind labels a lifecycle event.
type EventKind string

const (
	// EventStart announces a fully resolved deployment ready for processing.
	EventStart EventKind = "start"
	// EventStop announces that processing for a deployment must end.
	EventStop EventKind = "stop"
)

// LifecycleEvent is the unit handed to the single event stream consumer.
// Start events carry the resolved manifest; stop events carry only the id.
type LifecycleEvent struct {
	Kind       EventKind
	Deployment DeploymentID
	Manifest   *Manifest
}
