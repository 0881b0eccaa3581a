package routingtable

import "github.com/google/uuid"

// Callback receives the decoded payload of a matched message.
// A returned error is reported as a callback failure; it never stops delivery.
type Callback func(payload string) error

// Handle identifies one registered callback. Two handles are equal only if
// they are the same pointer, so registering the same function twice through
// NewHandle yields two independent subscriptions.
type Handle struct {
	id uuid.UUID
	fn Callback
}

// NewHandle wraps a callback in a new handle.
func NewHandle(fn Callback) *Handle {
	return &Handle{
		id: uuid.New(),
		fn: fn,
	}
}

// ID returns a unique identifier for this handle, used in diagnostics.
func (h *Handle) ID() string {
	return h.id.String()
}

// Invoke calls the wrapped callback. A handle with a nil callback is a no-op.
func (h *Handle) Invoke(payload string) error {
	if h == nil || h.fn == nil {
		return nil
	}
	return h.fn(payload)
}
