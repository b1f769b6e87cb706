package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"fitroom/internal/backend"
)

// loadError reports that neither the requested model nor the fallback could
// be materialized. Both causes are kept.
type loadError struct {
	requested ModelType
	kind      backend.Kind
	primary   error
	fallback  error
}

func (e *loadError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "load %s on %s: %v", e.requested, e.kind, e.primary)
	if e.fallback != nil {
		fmt.Fprintf(&b, "; fallback %s: %v", Secondary, e.fallback)
	}
	return b.String()
}

func (e *loadError) Unwrap() []error {
	if e.fallback == nil {
		return []error{e.primary}
	}
	return []error{e.primary, e.fallback}
}

// IsLoadError reports whether err is (or wraps) a load failure.
func IsLoadError(err error) bool {
	var le *loadError
	return errors.As(err, &le)
}

// backendRuntimeError is a failure specific to the active backend (for
// example an operator the unified-memory runtime does not implement).
type backendRuntimeError struct {
	kind  backend.Kind
	cause error
}

func (e *backendRuntimeError) Error() string {
	return fmt.Sprintf("%s runtime failure: %v", e.kind, e.cause)
}

func (e *backendRuntimeError) Unwrap() error { return e.cause }

// ErrBackendRuntime marks cause as a backend-specific runtime failure.
func ErrBackendRuntime(kind backend.Kind, cause error) error {
	return &backendRuntimeError{kind: kind, cause: cause}
}

// IsBackendRuntimeFailure reports whether err is (or wraps) a backend-specific
// runtime failure.
func IsBackendRuntimeFailure(err error) bool {
	var be *backendRuntimeError
	return errors.As(err, &be)
}
