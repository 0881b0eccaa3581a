package transport

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNoBrokers is returned when no broker URL is configured
	ErrNoBrokers = errors.New("at least one broker is required")
	// ErrEmptyClientID is returned when the client ID is empty
	ErrEmptyClientID = errors.New("client ID cannot be empty")
	// ErrInvalidKeepAlive is returned when the keep-alive interval is negative
	ErrInvalidKeepAlive = errors.New("keep-alive cannot be negative")
	// ErrEmptyJWTSecret is returned when JWT auth is enabled without a secret
	ErrEmptyJWTSecret = errors.New("JWT secret cannot be empty")
)

// Config holds configuration for the paho transport
type Config struct {
	// Brokers are broker URLs such as "tcp://localhost:1883" or "ssl://host:8883".
	// paho fails over between them in order.
	Brokers []string

	ClientID string
	Username string
	Password string

	KeepAlive    time.Duration
	CleanSession bool

	// ConnectTimeout bounds a single connection attempt.
	ConnectTimeout time.Duration

	// ConnectRetryInterval is the delay between initial connection attempts.
	ConnectRetryInterval time.Duration

	// MaxReconnectInterval caps the backoff after a lost connection.
	MaxReconnectInterval time.Duration

	// SendTimeout bounds how long a publish/subscribe token is watched before
	// it is reported as timed out.
	SendTimeout time.Duration

	// Quiesce is how long Close waits for in-flight work before disconnecting.
	Quiesce time.Duration

	// Retain sets the retained flag on published messages.
	Retain bool

	// CAFile is a PEM bundle used to verify the broker certificate.
	CAFile             string
	InsecureSkipVerify bool

	// JWT, when set, replaces Password with a freshly minted token on every
	// connection attempt.
	JWT *JWTConfig
}

// JWTConfig configures token passwords
type JWTConfig struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

// NewConfig creates a new transport configuration with safe defaults
func NewConfig(clientID string, brokers ...string) *Config {
	c := &Config{
		Brokers:      brokers,
		ClientID:     clientID,
		CleanSession: true,
	}
	c.SetDefaults()
	return c
}

// SetDefaults sets sensible default values for unset configuration fields
func (c *Config) SetDefaults() {
	if c.KeepAlive == 0 {
		c.KeepAlive = 30 * time.Second
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.ConnectRetryInterval <= 0 {
		c.ConnectRetryInterval = 2 * time.Second
	}
	if c.MaxReconnectInterval <= 0 {
		c.MaxReconnectInterval = 30 * time.Second
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 10 * time.Second
	}
	if c.Quiesce <= 0 {
		c.Quiesce = 250 * time.Millisecond
	}
	if c.JWT != nil && c.JWT.TTL <= 0 {
		c.JWT.TTL = time.Hour
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if len(c.Brokers) == 0 {
		return ErrNoBrokers
	}
	for _, b := range c.Brokers {
		if b == "" {
			return fmt.Errorf("%w: empty broker URL", ErrNoBrokers)
		}
	}
	if c.ClientID == "" {
		return ErrEmptyClientID
	}
	if c.KeepAlive < 0 {
		return ErrInvalidKeepAlive
	}
	if c.JWT != nil && c.JWT.Secret == "" {
		return ErrEmptyJWTSecret
	}
	return nil
}

// WithCredentials sets the username and password
func (c *Config) WithCredentials(username, password string) *Config {
	c.Username = username
	c.Password = password
	return c
}

// WithCAFile sets the CA bundle used for TLS brokers
func (c *Config) WithCAFile(path string) *Config {
	c.CAFile = path
	return c
}

// WithJWT enables token passwords
func (c *Config) WithJWT(jwt *JWTConfig) *Config {
	c.JWT = jwt
	if jwt != nil && jwt.TTL <= 0 {
		jwt.TTL = time.Hour
	}
	return c
}
