package router

import (
	"errors"
	"fmt"
)

var (
	ErrNilCallback       = errors.New("callback cannot be nil")
	ErrNilHandle         = errors.New("handle cannot be nil")
	ErrClosed            = errors.New("router is closed")
	ErrDeferredQueueFull = errors.New("deferred action queue is full")
	ErrInvalidQoS        = errors.New("invalid QoS")
	ErrCallbackFailed    = errors.New("callback failed")
)

// CallbackError describes a callback that returned an error or panicked
// during delivery.
type CallbackError struct {
	Topic    string
	HandleID string
	Err      error
	Panic    any
}

func (e *CallbackError) Error() string {
	if e.Panic != nil {
		return fmt.Sprintf("callback %s on topic %q panicked: %v", e.HandleID, e.Topic, e.Panic)
	}
	return fmt.Sprintf("callback %s on topic %q failed: %v", e.HandleID, e.Topic, e.Err)
}

// Unwrap exposes both ErrCallbackFailed and the callback's own error to errors.Is.
func (e *CallbackError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrCallbackFailed, e.Err}
	}
	return []error{ErrCallbackFailed}
}
