package router

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rmacdonaldsmith/mqttroute/pkg/router"
)

const (
	// DefaultInboundQueueSize bounds the messages waiting for the delivery loop.
	DefaultInboundQueueSize = 10000

	// DefaultDiagnosticQueueSize bounds the diagnostic lines waiting to be logged.
	DefaultDiagnosticQueueSize = 1000
)

var (
	// ErrInvalidMaxDeferred is returned when MaxDeferred is negative
	ErrInvalidMaxDeferred = errors.New("max deferred cannot be negative")
	// ErrInvalidQueueSize is returned when a queue size is negative
	ErrInvalidQueueSize = errors.New("queue size cannot be negative")
)

// Config represents configuration for a Manager
type Config struct {
	// DefaultQoS is used for subscriptions and for publishes without WithQoS.
	DefaultQoS router.QoS

	// MaxDeferred caps the actions recorded while disconnected. 0 means unbounded.
	MaxDeferred int

	// InboundQueueSize caps the messages waiting for delivery. 0 selects the default.
	InboundQueueSize int

	// DiagnosticQueueSize caps the diagnostic lines waiting for OnLog observers.
	// 0 selects the default.
	DiagnosticQueueSize int

	// ResubscribeOnReconnect re-sends a broker subscribe for every registered
	// filter on each connect edge. Needed with clean-session brokers.
	ResubscribeOnReconnect bool

	// Logger receives structured logs. nil disables logging.
	Logger *zerolog.Logger
}

// NewConfig creates a new Manager configuration with safe defaults
func NewConfig() *Config {
	c := &Config{}
	c.SetDefaults()
	return c
}

// SetDefaults fills in zero-valued fields
func (c *Config) SetDefaults() {
	if c.InboundQueueSize == 0 {
		c.InboundQueueSize = DefaultInboundQueueSize
	}
	if c.DiagnosticQueueSize == 0 {
		c.DiagnosticQueueSize = DefaultDiagnosticQueueSize
	}
	if c.Logger == nil {
		nop := zerolog.Nop()
		c.Logger = &nop
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	if err := c.DefaultQoS.Validate(); err != nil {
		return fmt.Errorf("default QoS: %w", err)
	}
	if c.MaxDeferred < 0 {
		return ErrInvalidMaxDeferred
	}
	if c.InboundQueueSize < 0 {
		return fmt.Errorf("inbound: %w", ErrInvalidQueueSize)
	}
	if c.DiagnosticQueueSize < 0 {
		return fmt.Errorf("diagnostic: %w", ErrInvalidQueueSize)
	}
	return nil
}

// WithDefaultQoS sets the default QoS
func (c *Config) WithDefaultQoS(qos router.QoS) *Config {
	c.DefaultQoS = qos
	return c
}

// WithMaxDeferred sets the deferred action cap
func (c *Config) WithMaxDeferred(n int) *Config {
	c.MaxDeferred = n
	return c
}

// WithInboundQueueSize sets the inbound queue capacity
func (c *Config) WithInboundQueueSize(n int) *Config {
	c.InboundQueueSize = n
	return c
}

// WithResubscribeOnReconnect enables re-sending subscriptions on reconnect
func (c *Config) WithResubscribeOnReconnect(enabled bool) *Config {
	c.ResubscribeOnReconnect = enabled
	return c
}

// WithLogger sets the logger
func (c *Config) WithLogger(logger zerolog.Logger) *Config {
	c.Logger = &logger
	return c
}
