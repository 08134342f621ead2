package domain

import (
	"errors"
	"fmt"
)

type ErrorCode string

const (
	CodeInvalidArgument      ErrorCode = "INVALID_ARGUMENT"
	CodeNotFound             ErrorCode = "NOT_FOUND"
	CodeAlreadyRunning       ErrorCode = "ALREADY_RUNNING"
	CodeNotRunning           ErrorCode = "NOT_RUNNING"
	CodeResolveTimeout       ErrorCode = "RESOLVE_TIMEOUT"
	CodeManifestInvalid      ErrorCode = "MANIFEST_INVALID"
	CodeDataSourceLoadFailed ErrorCode = "DATA_SOURCE_LOAD_FAILED"
	CodeStoreError           ErrorCode = "STORE_ERROR"
	CodeUnavailable          ErrorCode = "UNAVAILABLE"
	CodeInternal             ErrorCode = "INTERNAL"
	CodeCanceled             ErrorCode = "CANCELED"
	CodeDeadlineExceeded     ErrorCode = "DEADLINE_EXCEEDED"
)

var (
	// ErrAlreadyRunning indicates the deployment is already in the running set.
	ErrAlreadyRunning = errors.New("deployment already running")
	// ErrNotRunning indicates the deployment is not in the running set.
	ErrNotRunning = errors.New("deployment not running")
	// ErrResolveTimeout indicates every resolve attempt exceeded its deadline.
	ErrResolveTimeout = errors.New("resolve timed out")
	// ErrNotFound indicates the linked content does not exist.
	ErrNotFound = errors.New("link not found")
	// ErrStoreClosed indicates the metadata store has been closed.
	ErrStoreClosed = errors.New("metadata store is closed")
	// ErrStreamTaken indicates the event stream was already taken.
	ErrStreamTaken = errors.New("event stream already taken")
)

type Error struct {
	Code      ErrorCode
	Op        string
	Message   string
	Cause     error
	Retryable bool
	Meta      map[string]string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if msg == "" && e.Cause != nil {
		msg = e.Cause.Error()
	}
	if e.Op == "" {
		if msg == "" {
			return string(e.Code)
		}
		return fmt.Sprintf("%s: %s", e.Code, msg)
	}
	if msg == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Code)
	}
	return fmt.Sprintf("%s: %s: %s", e.Op, e.Code, msg)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

func E(code ErrorCode, op, msg string, cause error) *Error {
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	return &Error{
		Code:    code,
		Op:      op,
		Message: msg,
		Cause:   cause,
	}
}

func Wrap(code ErrorCode, op string, err error) *Error {
	if err == nil {
		return nil
	}
	var existing *Error
	if errors.As(err, &existing) {
		if existing.Op != "" || op == "" {
			return existing
		}
		return &Error{
			Code:      existing.Code,
			Op:        op,
			Message:   existing.Message,
			Cause:     existing.Cause,
			Retryable: existing.Retryable,
			Meta:      existing.Meta,
		}
	}
	return E(code, op, "", err)
}

func CodeFrom(err error) (ErrorCode, bool) {
	if err == nil {
		return "", false
	}
	var domainErr *Error
	if errors.As(err, &domainErr) && domainErr.Code != "" {
		return domainErr.Code, true
	}
	switch {
	case errors.Is(err, ErrAlreadyRunning):
		return CodeAlreadyRunning, true
	case errors.Is(err, ErrNotRunning):
		return CodeNotRunning, true
	case errors.Is(err, ErrResolveTimeout):
		return CodeResolveTimeout, true
	case errors.Is(err, ErrNotFound):
		return CodeNotFound, true
	case errors.Is(err, ErrStoreClosed):
		return CodeStoreError, true
	case errors.Is(err, ErrStreamTaken):
		return CodeInvalidArgument, true
	default:
		return "", false
	}
}
