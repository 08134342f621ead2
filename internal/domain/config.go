package domain

import "time"

// StoreBackend selects the metadata store implementation.
type StoreBackend string

const (
	StoreBackendMemory   StoreBackend = "memory"
	StoreBackendBolt     StoreBackend = "bolt"
	StoreBackendPostgres StoreBackend = "postgres"
)

// Config is the validated daemon configuration.
type Config struct {
	Gateway         GatewayConfig
	Resolver        ResolverConfig
	Store           StoreConfig
	Assignments     AssignmentsConfig
	Observability   ObservabilityConfig
	EventBufferSize int
}

// GatewayConfig points at the content gateway manifests are fetched from.
type GatewayConfig struct {
	Endpoint     string
	MaxFileBytes int64
}

// ResolverConfig bounds a single resolution: a per-attempt timeout plus a
// retry budget with exponential backoff between attempts.
type ResolverConfig struct {
	TimeoutSeconds   int
	Attempts         int
	RetryBaseSeconds int
	RetryMaxSeconds  int
}

func (c ResolverConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c ResolverConfig) RetryBase() time.Duration {
	return time.Duration(c.RetryBaseSeconds) * time.Second
}

func (c ResolverConfig) RetryMax() time.Duration {
	return time.Duration(c.RetryMaxSeconds) * time.Second
}

// StoreConfig selects and parameterizes the metadata store backend. Path
// applies to bolt, DSN to postgres.
type StoreConfig struct {
	Backend StoreBackend
	Path    string
	DSN     string
}

// AssignmentsConfig points at the desired-assignments file the daemon
// converges on. An empty path disables reconciliation.
type AssignmentsConfig struct {
	Path       string
	DebounceMs int
}

func (c AssignmentsConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// ObservabilityConfig controls the metrics and health endpoints. Nil enable
// flags fall back to the daemon defaults.
type ObservabilityConfig struct {
	ListenAddress  string
	MetricsEnabled *bool
	HealthzEnabled *bool
}
