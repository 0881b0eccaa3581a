package router

import (
	"context"
	"io"

	"github.com/rmacdonaldsmith/mqttroute/pkg/routingtable"
)

// Transport is the broker connection the router sends through.
// Send methods are fire-and-forget; failures are reported through the Sink's
// diagnostic stream rather than returned.
type Transport interface {
	io.Closer

	// IsConnected reports whether the broker connection is currently up.
	IsConnected() bool

	// SendPublish publishes payload on topic.
	SendPublish(topic string, payload []byte, qos QoS)

	// SendSubscribe asks the broker for messages matching filter.
	SendSubscribe(filter string, qos QoS)

	// SendUnsubscribe cancels a broker subscription.
	SendUnsubscribe(filter string)
}

// Sink receives transport events. Every method may be called from any
// goroutine and must not block.
type Sink interface {
	// HandleConnected reports a connect (or reconnect) edge.
	HandleConnected()

	// HandleDisconnected reports a lost connection. err may be nil.
	HandleDisconnected(err error)

	// HandleMessage enqueues an inbound message for delivery.
	HandleMessage(topic string, payload []byte)

	// HandleDiagnostic enqueues a line of diagnostic text.
	HandleDiagnostic(text string)
}

// Router routes inbound messages to callbacks by topic filter and gates
// outbound operations on the connection state.
type Router interface {
	// Close waits for the callback in progress to return, so callbacks must
	// not call it on their own goroutine.
	io.Closer

	// Start launches the delivery and diagnostics goroutines.
	Start(ctx context.Context) error

	// Publish sends payload on topic, or defers it until connected.
	Publish(topic string, payload []byte, opts ...PublishOption) error

	// Subscribe registers cb under filter and returns the handle to remove it.
	// While disconnected the registration is deferred and the handle is
	// returned immediately.
	Subscribe(filter string, cb routingtable.Callback) (*routingtable.Handle, error)

	// Unsubscribe removes one handle from filter. No-op while disconnected.
	Unsubscribe(filter string, handle *routingtable.Handle) error

	// UnsubscribeAll removes every handle at and beneath filter.
	// No-op while disconnected.
	UnsubscribeAll(filter string) error

	// IsConnected reports the router's view of the connection state.
	IsConnected() bool

	// OnConnected registers an observer for the delivery loop's connected event.
	OnConnected(fn func())

	// OnDisconnected registers an observer for the delivery loop's disconnected event.
	OnDisconnected(fn func())

	// OnMessage registers an observer invoked for every delivered message,
	// matched or not, before its callbacks run.
	OnMessage(fn func(topic, payload string))

	// OnLog registers an observer for diagnostic text.
	OnLog(fn func(text string))

	// Pending returns a snapshot of the deferred actions waiting for a connection.
	Pending() []DeferredAction

	// Stats returns runtime counters.
	Stats() Stats
}
