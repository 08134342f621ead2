// Package config loads and validates the daemon configuration file.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"subgraphd/internal/domain"
)

type Loader struct {
	logger *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		return &Loader{logger: zap.NewNop()}
	}
	return &Loader{logger: logger.Named("config")}
}

func newConfigViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	setConfigDefaults(v)
	return v
}

func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("gateway.endpoint", domain.DefaultGatewayEndpoint)
	v.SetDefault("gateway.maxFileBytes", domain.DefaultGatewayMaxFileBytes)
	v.SetDefault("resolver.timeoutSeconds", domain.DefaultResolveTimeoutSeconds)
	v.SetDefault("resolver.attempts", domain.DefaultResolveAttempts)
	v.SetDefault("resolver.retryBaseSeconds", domain.DefaultResolveRetryBaseSeconds)
	v.SetDefault("resolver.retryMaxSeconds", domain.DefaultResolveRetryMaxSeconds)
	v.SetDefault("store.backend", string(domain.DefaultStoreBackend))
	v.SetDefault("store.path", domain.DefaultBoltPath)
	v.SetDefault("assignments.debounceMs", domain.DefaultAssignmentsDebounceMs)
	v.SetDefault("observability.listenAddress", domain.DefaultObservabilityListenAddress)
	v.SetDefault("eventBufferSize", domain.DefaultEventBufferSize)
}

type rawConfig struct {
	Gateway         rawGatewayConfig       `mapstructure:"gateway"`
	Resolver        rawResolverConfig      `mapstructure:"resolver"`
	Store           rawStoreConfig         `mapstructure:"store"`
	Assignments     rawAssignmentsConfig   `mapstructure:"assignments"`
	Observability   rawObservabilityConfig `mapstructure:"observability"`
	EventBufferSize int                    `mapstructure:"eventBufferSize"`
}

type rawGatewayConfig struct {
	Endpoint     string `mapstructure:"endpoint"`
	MaxFileBytes int64  `mapstructure:"maxFileBytes"`
}

type rawResolverConfig struct {
	TimeoutSeconds   int `mapstructure:"timeoutSeconds"`
	Attempts         int `mapstructure:"attempts"`
	RetryBaseSeconds int `mapstructure:"retryBaseSeconds"`
	RetryMaxSeconds  int `mapstructure:"retryMaxSeconds"`
}

type rawStoreConfig struct {
	Backend string `mapstructure:"backend"`
	Path    string `mapstructure:"path"`
	DSN     string `mapstructure:"dsn"`
}

type rawAssignmentsConfig struct {
	Path       string `mapstructure:"path"`
	DebounceMs int    `mapstructure:"debounceMs"`
}

type rawObservabilityConfig struct {
	ListenAddress  string `mapstructure:"listenAddress"`
	MetricsEnabled *bool  `mapstructure:"metricsEnabled"`
	HealthzEnabled *bool  `mapstructure:"healthzEnabled"`
}

func (l *Loader) Load(ctx context.Context, path string) (domain.Config, error) {
	if path == "" {
		return domain.Config{}, errors.New("config path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Config{}, fmt.Errorf("read config: %w", err)
	}

	expanded, missing, err := expandEnv(data)
	if err != nil {
		return domain.Config{}, err
	}
	if len(missing) > 0 {
		l.logger.Warn("missing environment variables in config", zap.String("path", path), zap.Strings("missing", missing))
	}

	v := newConfigViper()
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return domain.Config{}, fmt.Errorf("parse config: %w", err)
	}

	var cfg rawConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return domain.Config{}, fmt.Errorf("decode config: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return domain.Config{}, err
	}

	normalized, problems := normalizeConfig(cfg)
	if len(problems) > 0 {
		return domain.Config{}, errors.New(strings.Join(problems, "; "))
	}
	return normalized, nil
}

func normalizeConfig(cfg rawConfig) (domain.Config, []string) {
	var errs []string

	gateway, gatewayErrs := normalizeGatewayConfig(cfg.Gateway)
	errs = append(errs, gatewayErrs...)

	resolver, resolverErrs := normalizeResolverConfig(cfg.Resolver)
	errs = append(errs, resolverErrs...)

	store, storeErrs := normalizeStoreConfig(cfg.Store)
	errs = append(errs, storeErrs...)

	assignments, assignmentErrs := normalizeAssignmentsConfig(cfg.Assignments)
	errs = append(errs, assignmentErrs...)

	observability, observabilityErrs := normalizeObservabilityConfig(cfg.Observability)
	errs = append(errs, observabilityErrs...)

	if cfg.EventBufferSize <= 0 {
		errs = append(errs, "eventBufferSize must be > 0")
	}

	return domain.Config{
		Gateway:         gateway,
		Resolver:        resolver,
		Store:           store,
		Assignments:     assignments,
		Observability:   observability,
		EventBufferSize: cfg.EventBufferSize,
	}, errs
}

func normalizeGatewayConfig(cfg rawGatewayConfig) (domain.GatewayConfig, []string) {
	var errs []string

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		errs = append(errs, "gateway.endpoint is required")
	} else if parsed, err := url.ParseRequestURI(endpoint); err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		errs = append(errs, "gateway.endpoint must be a valid http(s) URL")
	}

	if cfg.MaxFileBytes <= 0 {
		errs = append(errs, "gateway.maxFileBytes must be > 0")
	}

	return domain.GatewayConfig{
		Endpoint:     endpoint,
		MaxFileBytes: cfg.MaxFileBytes,
	}, errs
}

func normalizeResolverConfig(cfg rawResolverConfig) (domain.ResolverConfig, []string) {
	var errs []string

	if cfg.TimeoutSeconds <= 0 {
		errs = append(errs, "resolver.timeoutSeconds must be > 0")
	}
	if cfg.Attempts < 1 {
		errs = append(errs, "resolver.attempts must be >= 1")
	}
	if cfg.RetryBaseSeconds <= 0 {
		errs = append(errs, "resolver.retryBaseSeconds must be > 0")
	}
	if cfg.RetryMaxSeconds <= 0 {
		errs = append(errs, "resolver.retryMaxSeconds must be > 0")
	}
	if cfg.RetryBaseSeconds > 0 && cfg.RetryMaxSeconds > 0 && cfg.RetryMaxSeconds < cfg.RetryBaseSeconds {
		errs = append(errs, "resolver.retryMaxSeconds must be >= resolver.retryBaseSeconds")
	}

	return domain.ResolverConfig{
		TimeoutSeconds:   cfg.TimeoutSeconds,
		Attempts:         cfg.Attempts,
		RetryBaseSeconds: cfg.RetryBaseSeconds,
		RetryMaxSeconds:  cfg.RetryMaxSeconds,
	}, errs
}

func normalizeStoreConfig(cfg rawStoreConfig) (domain.StoreConfig, []string) {
	var errs []string

	backend := domain.StoreBackend(strings.ToLower(strings.TrimSpace(cfg.Backend)))
	if backend == "" {
		backend = domain.DefaultStoreBackend
	}
	switch backend {
	case domain.StoreBackendMemory, domain.StoreBackendBolt, domain.StoreBackendPostgres:
	default:
		errs = append(errs, "store.backend must be one of: memory, bolt, postgres")
	}

	path := strings.TrimSpace(cfg.Path)
	if backend == domain.StoreBackendBolt && path == "" {
		errs = append(errs, "store.path is required for the bolt backend")
	}

	dsn := strings.TrimSpace(cfg.DSN)
	if backend == domain.StoreBackendPostgres && dsn == "" {
		errs = append(errs, "store.dsn is required for the postgres backend")
	}

	return domain.StoreConfig{
		Backend: backend,
		Path:    path,
		DSN:     dsn,
	}, errs
}

func normalizeAssignmentsConfig(cfg rawAssignmentsConfig) (domain.AssignmentsConfig, []string) {
	var errs []string

	if cfg.DebounceMs < 0 {
		errs = append(errs, "assignments.debounceMs must be >= 0")
	}

	return domain.AssignmentsConfig{
		Path:       strings.TrimSpace(cfg.Path),
		DebounceMs: cfg.DebounceMs,
	}, errs
}

func normalizeObservabilityConfig(cfg rawObservabilityConfig) (domain.ObservabilityConfig, []string) {
	addr := strings.TrimSpace(cfg.ListenAddress)
	if addr == "" {
		addr = domain.DefaultObservabilityListenAddress
	}
	return domain.ObservabilityConfig{
		ListenAddress:  addr,
		MetricsEnabled: cfg.MetricsEnabled,
		HealthzEnabled: cfg.HealthzEnabled,
	}, nil
}
