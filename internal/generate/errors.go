package generate

import (
	"errors"
	"fmt"

	"fitroom/internal/backend"
)

// ErrUnsupportedStrategy is returned for handles whose model type has no
// generation strategy.
var ErrUnsupportedStrategy = errors.New("unsupported generation strategy")

// terminalError is a run failure that will not be retried.
type terminalError struct {
	kind       backend.Kind
	downgraded bool
	cause      error
}

func (e *terminalError) Error() string {
	if e.downgraded {
		return fmt.Sprintf("generation failed on %s after downgrade: %v", e.kind, e.cause)
	}
	return fmt.Sprintf("generation failed on %s: %v", e.kind, e.cause)
}

func (e *terminalError) Unwrap() error { return e.cause }

// IsTerminal reports whether err is a terminal runtime failure.
func IsTerminal(err error) bool {
	var te *terminalError
	return errors.As(err, &te)
}
