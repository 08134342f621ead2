package domain

import "time"

// StartStatus labels the outcome of a start attempt.
type StartStatus string

const (
	// StartStatusSuccess indicates the deployment started.
	StartStatusSuccess StartStatus = "success"
	// StartStatusAlreadyRunning indicates the running set rejected a duplicate.
	StartStatusAlreadyRunning StartStatus = "already_running"
	// StartStatusError indicates resolution failed.
	StartStatusError StartStatus = "error"
)

// StopStatus labels the outcome of a stop attempt.
type StopStatus string

const (
	// StopStatusSuccess indicates the deployment stopped.
	StopStatusSuccess StopStatus = "success"
	// StopStatusNotRunning indicates the deployment was not running.
	StopStatusNotRunning StopStatus = "not_running"
)

// Metrics records operational metrics for deployment lifecycle handling.
type Metrics interface {
	ObserveDeploymentStart(duration time.Duration, err error)
	ObserveDeploymentStop(err error)
	ObserveManifestResolve(duration time.Duration, err error)
	ObserveResolverRetry()
	ObserveFailureMarker()
	SetActiveDeployments(count int)
}
