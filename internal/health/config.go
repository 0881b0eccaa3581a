package health

import "errors"

// DefaultService is the service name reported by the health endpoint
const DefaultService = "mqttroute"

// Config holds configuration for the health endpoint
type Config struct {
	// ListenAddress is "host:port"; use port 0 for an ephemeral port
	ListenAddress string

	// Service is the name clients pass to grpc.health.v1.Health/Check
	Service string
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.ListenAddress == "" {
		return errors.New("listen address cannot be empty")
	}
	return nil
}

// SetDefaults sets sensible default values for unset configuration fields
func (c *Config) SetDefaults() {
	if c.Service == "" {
		c.Service = DefaultService
	}
}
