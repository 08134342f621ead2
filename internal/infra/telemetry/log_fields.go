package telemetry

import (
	"time"

	"go.uber.org/zap"
)

const (
	FieldEvent      = "event"
	FieldDeployment = "deployment"
	FieldLink       = "link"
	FieldBackend    = "backend"
	FieldDurationMs = "duration_ms"
	FieldRequestID  = "request_id"
	FieldTraceID    = "trace_id"
	FieldSpanID     = "span_id"
)

const (
	EventStartAttempt   = "start_attempt"
	EventStartSuccess   = "start_success"
	EventStartFailure   = "start_failure"
	EventStopSuccess    = "stop_success"
	EventStopFailure    = "stop_failure"
	EventResolveRetry   = "resolve_retry"
	EventIndexSkipped   = "index_skipped"
	EventMarkerFailure  = "marker_failure"
	EventReconcileApply = "reconcile_apply"
)

func EventField(event string) zap.Field {
	return zap.String(FieldEvent, event)
}

func DeploymentField(id string) zap.Field {
	return zap.String(FieldDeployment, id)
}

func LinkField(link string) zap.Field {
	return zap.String(FieldLink, link)
}

func BackendField(backend string) zap.Field {
	return zap.String(FieldBackend, backend)
}

func DurationField(duration time.Duration) zap.Field {
	return zap.Int64(FieldDurationMs, duration.Milliseconds())
}

func RequestIDField(value string) zap.Field {
	return zap.String(FieldRequestID, value)
}

func TraceIDField(value string) zap.Field {
	return zap.String(FieldTraceID, value)
}

func SpanIDField(value string) zap.Field {
	return zap.String(FieldSpanID, value)
}
