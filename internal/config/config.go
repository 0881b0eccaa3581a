// Package config loads the daemon's YAML configuration and maps it onto the
// component configs.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/rmacdonaldsmith/mqttroute/internal/health"
	"github.com/rmacdonaldsmith/mqttroute/internal/logging"
	"github.com/rmacdonaldsmith/mqttroute/internal/router"
	"github.com/rmacdonaldsmith/mqttroute/internal/transport"
	routerpkg "github.com/rmacdonaldsmith/mqttroute/pkg/router"
	"github.com/rmacdonaldsmith/mqttroute/pkg/routingtable"
)

//go:embed example-config.yaml
var ExampleConfig string

// Config is the daemon configuration file
type Config struct {
	Log           logging.Config       `yaml:"log"`
	MQTT          MQTTConfig           `yaml:"mqtt"`
	Router        RouterConfig         `yaml:"router"`
	Health        HealthConfig         `yaml:"health"`
	Subscriptions []SubscriptionConfig `yaml:"subscriptions"`
}

// MQTTConfig configures the broker connection
type MQTTConfig struct {
	Brokers              []string      `yaml:"brokers"`
	ClientID             string        `yaml:"client_id"`
	Username             string        `yaml:"username"`
	Password             string        `yaml:"password"`
	KeepAlive            time.Duration `yaml:"keep_alive"`
	CleanSession         bool          `yaml:"clean_session"`
	ConnectRetryInterval time.Duration `yaml:"connect_retry_interval"`
	MaxReconnectInterval time.Duration `yaml:"max_reconnect_interval"`
	CAFile               string        `yaml:"ca_file"`
	InsecureSkipVerify   bool          `yaml:"insecure_skip_verify"`
	JWT                  JWTConfig     `yaml:"jwt"`
}

// JWTConfig configures token passwords. Disabled while Secret is empty.
type JWTConfig struct {
	Secret   string        `yaml:"secret"`
	Issuer   string        `yaml:"issuer"`
	Audience string        `yaml:"audience"`
	TTL      time.Duration `yaml:"ttl"`
}

// RouterConfig configures the subscription router
type RouterConfig struct {
	DefaultQoS             int  `yaml:"default_qos"`
	MaxDeferred            int  `yaml:"max_deferred"`
	InboundQueueSize       int  `yaml:"inbound_queue_size"`
	ResubscribeOnReconnect bool `yaml:"resubscribe_on_reconnect"`
}

// HealthConfig configures the gRPC health endpoint
type HealthConfig struct {
	ListenAddress string `yaml:"listen_address"`
	Service       string `yaml:"service"`
}

// SubscriptionConfig is a filter the daemon subscribes to on startup
type SubscriptionConfig struct {
	Filter string `yaml:"filter"`
}

// Default returns the configuration described by ExampleConfig.
func Default() *Config {
	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(ExampleConfig), cfg); err != nil {
		panic(fmt.Sprintf("embedded example config is invalid: %v", err))
	}
	return cfg
}

// Load reads and validates a configuration file. Missing keys keep their
// defaults; unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration by building every component config.
func (c *Config) Validate() error {
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if err := c.Transport(c.MQTT.Brokers).Validate(); err != nil {
		return fmt.Errorf("mqtt: %w", err)
	}
	if c.Router.DefaultQoS < 0 || c.Router.DefaultQoS > int(routerpkg.ExactlyOnce) {
		return fmt.Errorf("router: %w: %d", routerpkg.ErrInvalidQoS, c.Router.DefaultQoS)
	}
	if err := c.RouterConfig(zerolog.Nop()).Validate(); err != nil {
		return fmt.Errorf("router: %w", err)
	}
	for i, sub := range c.Subscriptions {
		if err := routingtable.ValidateFilter(sub.Filter); err != nil {
			return fmt.Errorf("subscriptions[%d]: %w", i, err)
		}
	}
	return nil
}

// Transport returns the transport config for the given normalized brokers.
func (c *Config) Transport(brokers []string) *transport.Config {
	m := c.MQTT
	tc := transport.NewConfig(m.ClientID, brokers...).WithCredentials(m.Username, m.Password)
	tc.KeepAlive = m.KeepAlive
	tc.CleanSession = m.CleanSession
	tc.ConnectRetryInterval = m.ConnectRetryInterval
	tc.MaxReconnectInterval = m.MaxReconnectInterval
	tc.CAFile = m.CAFile
	tc.InsecureSkipVerify = m.InsecureSkipVerify
	if m.JWT.Secret != "" {
		tc.WithJWT(&transport.JWTConfig{
			Secret:   m.JWT.Secret,
			Issuer:   m.JWT.Issuer,
			Audience: m.JWT.Audience,
			TTL:      m.JWT.TTL,
		})
	}
	tc.SetDefaults()
	return tc
}

// RouterConfig returns the router config. Clean sessions always resubscribe
// on reconnect since the broker forgets their subscriptions.
func (c *Config) RouterConfig(logger zerolog.Logger) *router.Config {
	rc := &router.Config{
		DefaultQoS:             routerpkg.QoS(c.Router.DefaultQoS),
		MaxDeferred:            c.Router.MaxDeferred,
		InboundQueueSize:       c.Router.InboundQueueSize,
		ResubscribeOnReconnect: c.Router.ResubscribeOnReconnect || c.MQTT.CleanSession,
	}
	rc.WithLogger(logger)
	rc.SetDefaults()
	return rc
}

// HealthEnabled reports whether the health endpoint is configured.
func (c *Config) HealthEnabled() bool {
	return c.Health.ListenAddress != ""
}

// HealthConfig returns the health endpoint config.
func (c *Config) HealthConfig() *health.Config {
	hc := &health.Config{
		ListenAddress: c.Health.ListenAddress,
		Service:       c.Health.Service,
	}
	hc.SetDefaults()
	return hc
}
