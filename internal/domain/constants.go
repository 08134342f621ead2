package domain

const (
	DefaultEventBufferSize            = 100
	DefaultResolveTimeoutSeconds      = 60
	DefaultResolveAttempts            = 3
	DefaultResolveRetryBaseSeconds    = 1
	DefaultResolveRetryMaxSeconds     = 30
	DefaultGatewayEndpoint            = "http://127.0.0.1:8080"
	DefaultGatewayMaxFileBytes        = 10 * 1024 * 1024
	DefaultStoreBackend               = StoreBackendBolt
	DefaultBoltPath                   = "subgraphd.db"
	DefaultObservabilityListenAddress = "0.0.0.0:9090"
	DefaultAssignmentsDebounceMs      = 200

	// MinSpecVersion and MaxSpecVersion bound the accepted manifest
	// specVersion range, inclusive on both ends.
	MinSpecVersion = "0.0.2"
	MaxSpecVersion = "0.0.5"
)
