// Package errors defines the error kinds used throughout the adapter runtime
// along with a MultiError aggregator for batched failures (startup actions,
// device-setup actions, and the like).
package errors

import (
	"bytes"
	"fmt"
	"net/http"
)

// Kind identifies the category of an adapter error. Kinds are used instead
// of distinct error types so that callers can switch on a stable value
// without needing type assertions for every error-producing package.
type Kind string

// Error kinds, as enumerated in the runtime's error handling design.
const (
	KindNoDeviceImpl      Kind = "NoDeviceImpl"
	KindNoDeviceName      Kind = "NoDeviceName"
	KindNoDeviceVersion   Kind = "NoDeviceVersion"
	KindInvalidArg        Kind = "InvalidArg"
	KindBadConfig         Kind = "BadConfig"
	KindRemoteServerDown  Kind = "RemoteServerDown"
	KindDriverUnstart     Kind = "DriverUnstart"
	KindHTTPConflict      Kind = "HttpConflict"
	KindHTTPNotFound      Kind = "HttpNotFound"
	KindMetadataClient    Kind = "MetadataClientFail"
	KindDataClient        Kind = "DataClientFail"
	KindAssertionFailed   Kind = "AssertionFailed"
	KindDeviceLocked      Kind = "DeviceLocked"
	KindDeviceDisabled    Kind = "DeviceDisabled"
	KindProfileNotFound   Kind = "ProfileNotFound"
	KindDuplicateDevice   Kind = "DuplicateDevice"
	KindMethodNotAllowed  Kind = "MethodNotAllowed"
	KindDriverError       Kind = "DriverError"
	KindRateLimited       Kind = "RateLimited"
)

// Error is the adapter's structured error type. It carries a Kind so callers
// (notably the HTTP dispatcher) can map it to a response status without
// string matching.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

// New creates a new Error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a new Error of the given kind that wraps an existing error.
func Wrap(kind Kind, cause error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is/errors.As to see through to the cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == kind
}

// HTTPStatus maps an error's Kind to the HTTP status code the dispatcher
// should respond with. Errors with no recognized kind map to 500.
func HTTPStatus(err error) int {
	e, ok := err.(*Error)
	if !ok {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindHTTPNotFound, KindProfileNotFound:
		return http.StatusNotFound
	case KindHTTPConflict:
		return http.StatusConflict
	case KindDeviceLocked, KindDeviceDisabled:
		return http.StatusLocked
	case KindInvalidArg, KindBadConfig:
		return http.StatusBadRequest
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindDriverError:
		return http.StatusBadGateway
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// MultiError aggregates multiple errors that occur while running a batch of
// independent operations (pre-run actions, device setup actions, parallel
// "selector=all" command execution). It fulfills the error interface so it
// can be returned and checked like any other error.
type MultiError struct {
	// For names the operation the errors were collected for. Optional, but
	// useful for log/HTTP context.
	For string

	// Errors is the collection of errors gathered so far.
	Errors []error
}

// NewMultiError creates a new, empty MultiError for the named operation.
func NewMultiError(source string) *MultiError {
	return &MultiError{For: source}
}

// Add appends an error to the MultiError. A nil error is a no-op.
func (m *MultiError) Add(err error) {
	if err == nil {
		return
	}
	m.Errors = append(m.Errors, err)
}

// HasErrors reports whether the MultiError has collected any errors.
func (m *MultiError) HasErrors() bool {
	return len(m.Errors) != 0
}

// Err returns the MultiError as an error if it has collected any errors,
// else it returns nil. This is the idiomatic way to fold a MultiError back
// into a normal error-returning signature.
func (m *MultiError) Err() error {
	if m.HasErrors() {
		return m
	}
	return nil
}

func (m *MultiError) Error() string {
	src := m.For
	if src == "" {
		src = "unspecified"
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d error(s) for: %s\n", len(m.Errors), src)
	for _, e := range m.Errors {
		fmt.Fprintf(&buf, "  - %s\n", e.Error())
	}
	return buf.String()
}
