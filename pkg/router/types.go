package router

import (
	"fmt"
	"time"

	"github.com/rmacdonaldsmith/mqttroute/pkg/routingtable"
)

// QoS is the MQTT delivery guarantee requested for a publish or subscribe.
type QoS byte

const (
	AtMostOnce  QoS = 0
	AtLeastOnce QoS = 1
	ExactlyOnce QoS = 2
)

// Validate returns an error if q is not a defined MQTT QoS level.
func (q QoS) Validate() error {
	if q > ExactlyOnce {
		return fmt.Errorf("%w: %d", ErrInvalidQoS, q)
	}
	return nil
}

// Message is an inbound (topic, payload) pair as received from the transport.
type Message struct {
	Topic   string
	Payload []byte
}

// ActionKind identifies the operation a DeferredAction replays.
type ActionKind int

const (
	ActionPublish ActionKind = iota
	ActionSubscribe
)

func (k ActionKind) String() string {
	switch k {
	case ActionPublish:
		return "publish"
	case ActionSubscribe:
		return "subscribe"
	default:
		return fmt.Sprintf("ActionKind(%d)", int(k))
	}
}

// DeferredAction is an operation recorded while disconnected and replayed
// exactly once on the next connect edge.
type DeferredAction struct {
	Kind ActionKind

	// Publish fields
	Topic   string
	Payload []byte

	// Subscribe fields
	Filter string
	Handle *routingtable.Handle

	QoS      QoS
	QueuedAt time.Time
}

// PublishOption customizes a single Publish call.
type PublishOption func(*PublishOptions)

// PublishOptions holds the resolved per-publish settings.
type PublishOptions struct {
	QoS QoS
}

// WithQoS overrides the router's default QoS for one publish.
func WithQoS(qos QoS) PublishOption {
	return func(o *PublishOptions) {
		o.QoS = qos
	}
}

// Stats reports router counters.
type Stats struct {
	Connected        bool
	Subscriptions    int    // registered handles
	Filters          int    // filters holding at least one handle
	PendingActions   int    // deferred actions waiting for a connection
	InboundQueued    int    // messages waiting for the delivery loop
	InboundDropped   uint64 // messages dropped because the inbound queue was full
	Delivered        uint64 // messages processed by the delivery loop
	CallbackFailures uint64 // callbacks that returned an error or panicked
}
