package discovery

import "context"

// Broker is a discovered MQTT broker endpoint
type Broker interface {
	// ID returns a stable identifier for the broker
	ID() string

	// URL returns the broker URL in the form paho expects, e.g. "tcp://host:1883"
	URL() string
}

// Discovery defines the interface for broker discovery mechanisms
type Discovery interface {
	// FindBrokers discovers and returns available brokers in preference order
	FindBrokers(ctx context.Context) ([]Broker, error)
}
