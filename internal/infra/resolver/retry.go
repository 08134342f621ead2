package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"subgraphd/internal/domain"
	"subgraphd/internal/infra/telemetry"
)

const opResolveLink = "resolver.ResolveLink"

// Retrying wraps a LinkResolver with a per-attempt deadline and a bounded
// retry budget. It is built once per provider and shared by every resolution
// that provider performs.
type Retrying struct {
	inner     domain.LinkResolver
	timeout   time.Duration
	attempts  int
	retryBase time.Duration
	retryMax  time.Duration
	metrics   domain.Metrics
	logger    *zap.Logger
}

type Options struct {
	Timeout   time.Duration
	Attempts  int
	RetryBase time.Duration
	RetryMax  time.Duration
	Metrics   domain.Metrics
	Logger    *zap.Logger
}

func NewRetrying(inner domain.LinkResolver, opts Options) *Retrying {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = domain.DefaultResolveTimeoutSeconds * time.Second
	}
	attempts := opts.Attempts
	if attempts <= 0 {
		attempts = domain.DefaultResolveAttempts
	}
	retryBase := opts.RetryBase
	if retryBase <= 0 {
		retryBase = domain.DefaultResolveRetryBaseSeconds * time.Second
	}
	retryMax := opts.RetryMax
	if retryMax < retryBase {
		retryMax = retryBase
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = telemetry.NewNoopMetrics()
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retrying{
		inner:     inner,
		timeout:   timeout,
		attempts:  attempts,
		retryBase: retryBase,
		retryMax:  retryMax,
		metrics:   metrics,
		logger:    logger.Named("resolver"),
	}
}

func (r *Retrying) ResolveLink(ctx context.Context, link string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= r.attempts; attempt++ {
		if attempt > 1 {
			if err := r.waitRetry(ctx, attempt); err != nil {
				return nil, domain.E(domain.CodeCanceled, opResolveLink, "", err)
			}
			r.metrics.ObserveResolverRetry()
		}

		attemptCtx, cancel := context.WithTimeout(ctx, r.timeout)
		data, err := r.inner.ResolveLink(attemptCtx, link)
		cancel()
		if err == nil {
			return data, nil
		}
		lastErr = err

		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.E(domain.CodeNotFound, opResolveLink,
				fmt.Sprintf("link %s", link), err)
		}
		if ctx.Err() != nil {
			return nil, domain.E(domain.CodeCanceled, opResolveLink, "", ctx.Err())
		}

		r.logger.Warn("resolve attempt failed",
			telemetry.EventField(telemetry.EventResolveRetry),
			telemetry.LinkField(link),
			zap.Int("attempt", attempt),
			zap.Int("attempts", r.attempts),
			zap.Error(err),
		)
	}

	if errors.Is(lastErr, context.DeadlineExceeded) {
		return nil, domain.E(domain.CodeResolveTimeout, opResolveLink,
			fmt.Sprintf("link %s: %d attempts exceeded %s", link, r.attempts, r.timeout),
			domain.ErrResolveTimeout)
	}
	return nil, domain.E(domain.CodeUnavailable, opResolveLink,
		fmt.Sprintf("link %s: %d attempts failed", link, r.attempts), lastErr)
}

// waitRetry sleeps the backoff for the given attempt, doubling from the base
// and capping at the max.
func (r *Retrying) waitRetry(ctx context.Context, attempt int) error {
	timer := time.NewTimer(r.retryDelay(attempt))
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *Retrying) retryDelay(attempt int) time.Duration {
	delay := r.retryBase
	for i := 2; i < attempt; i++ {
		delay *= 2
		if delay >= r.retryMax {
			return r.retryMax
		}
	}
	if delay > r.retryMax {
		return r.retryMax
	}
	return delay
}

var _ domain.LinkResolver = (*Retrying)(nil)
