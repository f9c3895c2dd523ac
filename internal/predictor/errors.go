package predictor

import (
	"errors"
	"fmt"

	"predictd/internal/artifact"
)

// invalidInputError rejects a request before any model call.
type invalidInputError struct {
	field string
	msg   string
}

func (e invalidInputError) Error() string { return fmt.Sprintf("invalid %s: %s", e.field, e.msg) }

// Field names the offending input.
func (e invalidInputError) Field() string { return e.field }

// ErrInvalidInput constructs a validation error for field.
func ErrInvalidInput(field, msg string) error { return invalidInputError{field: field, msg: msg} }

// IsInvalidInput reports whether err is a parameter validation failure.
func IsInvalidInput(err error) bool {
	var e invalidInputError
	return errors.As(err, &e)
}

// InvalidField returns the offending field name of a validation error.
func InvalidField(err error) string {
	var e invalidInputError
	if errors.As(err, &e) {
		return e.field
	}
	return ""
}

// tooBusyError signals queue timeout/overflow for 429 mapping.
type tooBusyError struct{}

func (tooBusyError) Error() string { return "too busy: prediction queue is full" }

// ErrTooBusy returns the backpressure error.
func ErrTooBusy() error { return tooBusyError{} }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	var e tooBusyError
	return errors.As(err, &e)
}

// notReadyError is returned while setup has not completed.
type notReadyError struct{ state State }

func (e notReadyError) Error() string { return "model not ready: " + string(e.state) }

// ErrNotReady returns the error for a predictor in state.
func ErrNotReady(state State) error { return notReadyError{state: state} }

// IsNotReady reports whether err means the model is still loading or failed to load.
func IsNotReady(err error) bool {
	var e notReadyError
	return errors.As(err, &e)
}

// dependencyUnavailableError signals a missing external dependency (e.g., llama.cpp)
// so the HTTP layer can return 503 Service Unavailable instead of 500.
type dependencyUnavailableError struct{ msg string }

func (e dependencyUnavailableError) Error() string { return e.msg }

// ErrDependencyUnavailable constructs a dependencyUnavailableError.
func ErrDependencyUnavailable(msg string) error { return dependencyUnavailableError{msg: msg} }

// IsDependencyUnavailable reports whether err indicates a missing/failed runtime dependency.
func IsDependencyUnavailable(err error) bool {
	var e dependencyUnavailableError
	return errors.As(err, &e)
}

// IsArtifactNotFound reports whether setup failed because the hub has no such
// weights file.
func IsArtifactNotFound(err error) bool { return artifact.IsNotFound(err) }

const errLlamaNotBuilt = "llama support not built (missing 'llama' build tag)"
