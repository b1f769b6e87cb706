package service

import "errors"

// tooBusyError signals queue timeout/overflow for 429 mapping.
type tooBusyError struct{ reason string }

func (e tooBusyError) Error() string { return "too busy: " + e.reason }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	var tb tooBusyError
	return errors.As(err, &tb)
}

// notReadyError signals that no pipeline is loaded so the HTTP layer can
// return 503 instead of 500.
type notReadyError struct{ msg string }

func (e notReadyError) Error() string { return e.msg }

// ErrNotReady constructs a notReadyError.
func ErrNotReady(msg string) error { return notReadyError{msg: msg} }

// IsNotReady reports whether err indicates the service cannot generate yet.
func IsNotReady(err error) bool {
	var nr notReadyError
	return errors.As(err, &nr)
}

// ErrHistoryDisabled is returned by history operations without a store.
var ErrHistoryDisabled = errors.New("generation history is not configured")
