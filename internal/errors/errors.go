package apperrors

import (
	"context"
	"errors"
	"fmt"
)

// Application exit codes define the standard exit statuses for the application.
// These codes are used to signal the outcome of the program execution to the OS.
const (
	ExitSuccess        = 0   // Indicates successful execution.
	ExitErrorGeneric   = 1   // Indicates a generic error.
	ExitErrorTimeout   = 2   // Indicates the operation timed out.
	ExitErrorTelemetry = 3   // Indicates telemetry could not be read.
	ExitErrorConfig    = 4   // Indicates a configuration error.
	ExitErrorLink      = 5   // Indicates the native link step failed.
	ExitErrorCanceled  = 130 // Indicates the operation was canceled (e.g., SIGINT).
)

// Sentinel errors shared across packages. Typed errors below wrap them so
// callers can test with errors.Is without knowing the concrete type.
var (
	// ErrTelemetryUnavailable reports a profiler whose lock was poisoned by a
	// holder that terminated abnormally. It is terminal.
	ErrTelemetryUnavailable = errors.New("telemetry unavailable")
	// ErrProfilerClosed reports use of a profiler handle after it was released.
	ErrProfilerClosed = errors.New("profiler closed")
	// ErrUnknownType reports a construction request for a type that was never registered.
	ErrUnknownType = errors.New("unknown type")
	// ErrInvalidHandle reports a handle that does not (or no longer) refer to a live value.
	ErrInvalidHandle = errors.New("invalid handle")
)

// ConfigError represents a user configuration error, such as invalid flags or
// values. It indicates that the application cannot proceed due to incorrect user input.
type ConfigError struct {
	// Message explains the specific configuration error.
	Message string
}

// Error returns the error message for a ConfigError.
func (e ConfigError) Error() string { return e.Message }

// NewConfigError creates a new ConfigError with a formatted message.
//
// Parameters:
//   - format: A format string (see fmt.Sprintf).
//   - a: Arguments to be formatted into the string.
//
// Returns:
//   - error: A new ConfigError instance containing the formatted message.
func NewConfigError(format string, a ...any) error {
	return ConfigError{Message: fmt.Sprintf(format, a...)}
}

// ValidationError represents an input validation failure. It identifies which
// field failed validation and provides a human-readable explanation.
type ValidationError struct {
	// Field is the name of the field that failed validation.
	Field string
	// Message explains the validation failure.
	Message string
}

// Error returns a formatted message describing the validation failure.
func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error for %q: %s", e.Field, e.Message)
}

// TelemetryError wraps a failed OS counter query. The profiler stays usable:
// the lock holder returned normally, so the next snapshot may succeed.
type TelemetryError struct {
	// Op names the counter query that failed (e.g. "cpu times").
	Op string
	// Cause is the error reported by the OS layer.
	Cause error
}

// Error returns a formatted message describing the failed query.
func (e TelemetryError) Error() string {
	return fmt.Sprintf("telemetry %s: %v", e.Op, e.Cause)
}

// Unwrap returns the underlying OS error.
func (e TelemetryError) Unwrap() error { return e.Cause }

// TelemetryUnavailableError is returned by every snapshot on a poisoned
// profiler. Reason records the value recovered from the abnormal termination
// that poisoned it.
type TelemetryUnavailableError struct {
	// Reason describes the abnormal termination that poisoned the lock.
	Reason string
}

// Error returns a formatted message describing the poisoned state.
func (e TelemetryUnavailableError) Error() string {
	if e.Reason == "" {
		return ErrTelemetryUnavailable.Error()
	}
	return fmt.Sprintf("%s: lock poisoned: %s", ErrTelemetryUnavailable, e.Reason)
}

// Is reports whether target is ErrTelemetryUnavailable.
func (e TelemetryUnavailableError) Is(target error) bool {
	return target == ErrTelemetryUnavailable
}

// LinkError is a build-time failure to locate a native artifact: the external
// build tool, the kernel archive, or a platform runtime library. It is never
// retried.
type LinkError struct {
	// Library is the artifact that could not be resolved (e.g. "kernels_cpu", "cmake").
	Library string
	// Reason explains what was missing.
	Reason string
	// Cause is the underlying error, if any.
	Cause error
}

// Error returns a formatted message describing the link failure.
func (e LinkError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("link %s: %s: %v", e.Library, e.Reason, e.Cause)
	}
	return fmt.Sprintf("link %s: %s", e.Library, e.Reason)
}

// Unwrap returns the underlying cause.
func (e LinkError) Unwrap() error { return e.Cause }

// RegistrationError reports a type that could not be exposed by the module
// registrar. Registration is all-or-nothing, so one RegistrationError means
// nothing was exposed.
type RegistrationError struct {
	// Type is the name of the offending type spec.
	Type string
	// Message explains the rejection.
	Message string
}

// Error returns a formatted message describing the rejected registration.
func (e RegistrationError) Error() string {
	return fmt.Sprintf("register %q: %s", e.Type, e.Message)
}

// WrapError wraps an error with additional context using fmt.Errorf and %w.
// This allows the wrapped error to be unwrapped with errors.Unwrap() and
// checked with errors.Is() and errors.As().
//
// Parameters:
//   - err: The error to wrap.
//   - format: A format string for the context message.
//   - args: Arguments for the format string.
//
// Returns:
//   - error: The wrapped error, or nil if err is nil.
func WrapError(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	message := fmt.Sprintf(format, args...)
	return fmt.Errorf("%s: %w", message, err)
}

// IsContextError checks if the error is a context cancellation or deadline exceeded error.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// ExitCodeFor maps an error to the process exit code that reports it.
//
// Parameters:
//   - err: The error to classify. nil maps to ExitSuccess.
//
// Returns:
//   - int: One of the Exit* constants.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var (
		cfgErr   ConfigError
		valErr   ValidationError
		linkErr  LinkError
		telemErr TelemetryError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ExitErrorTimeout
	case errors.Is(err, context.Canceled):
		return ExitErrorCanceled
	case errors.As(err, &cfgErr), errors.As(err, &valErr):
		return ExitErrorConfig
	case errors.As(err, &linkErr):
		return ExitErrorLink
	case errors.Is(err, ErrTelemetryUnavailable), errors.As(err, &telemErr):
		return ExitErrorTelemetry
	}
	return ExitErrorGeneric
}
