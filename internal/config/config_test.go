package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmacdonaldsmith/mqttroute/internal/router"
	routerpkg "github.com/rmacdonaldsmith/mqttroute/pkg/router"
	"github.com/rmacdonaldsmith/mqttroute/pkg/routingtable"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, []string{"localhost:1883"}, cfg.MQTT.Brokers)
	assert.Equal(t, "mqttroute", cfg.MQTT.ClientID)
	assert.Equal(t, 30*time.Second, cfg.MQTT.KeepAlive)
	assert.Equal(t, time.Hour, cfg.MQTT.JWT.TTL)
	assert.Equal(t, 10000, cfg.Router.InboundQueueSize)
	assert.True(t, cfg.HealthEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestParse_OverlaysDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
log:
  format: json
mqtt:
  brokers: ["ssl://broker.example.com", "tcp://backup:1883"]
  client_id: edge-7
  jwt:
    secret: s3cret
router:
  default_qos: 1
  resubscribe_on_reconnect: true
health:
  listen_address: ""
subscriptions:
  - filter: sensors/+/temp
  - filter: "#"
`))
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level, "unset keys keep defaults")
	assert.Equal(t, "edge-7", cfg.MQTT.ClientID)
	assert.False(t, cfg.HealthEnabled())
	require.Len(t, cfg.Subscriptions, 2)
	assert.Equal(t, "#", cfg.Subscriptions[1].Filter)

	tc := cfg.Transport(cfg.MQTT.Brokers)
	assert.Equal(t, "edge-7", tc.ClientID)
	require.NotNil(t, tc.JWT)
	assert.Equal(t, "s3cret", tc.JWT.Secret)
	assert.Equal(t, time.Hour, tc.JWT.TTL)

	rc := cfg.RouterConfig(zerolog.Nop())
	assert.Equal(t, routerpkg.AtLeastOnce, rc.DefaultQoS)
	assert.True(t, rc.ResubscribeOnReconnect)
}

func TestParse_Empty(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown key", "mqtt:\n  broker: localhost\n"},
		{"bad qos", "router:\n  default_qos: 5\n"},
		{"negative qos", "router:\n  default_qos: -1\n"},
		{"no client id", "mqtt:\n  client_id: \"\"\n"},
		{"no brokers", "mqtt:\n  brokers: []\n"},
		{"bad log level", "log:\n  level: shouty\n"},
		{"bad duration", "mqtt:\n  keep_alive: soon\n"},
		{"bad filter", "subscriptions:\n  - filter: a/#/b\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}

	_, err := Parse([]byte("subscriptions:\n  - filter: a/#/b\n"))
	assert.ErrorIs(t, err, routingtable.ErrInvalidFilter)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mqttroute.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mqtt:\n  client_id: from-file\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-file", cfg.MQTT.ClientID)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestHealthConfig(t *testing.T) {
	cfg := Default()
	cfg.Health.Service = ""

	hc := cfg.HealthConfig()
	assert.Equal(t, "localhost:8081", hc.ListenAddress)
	assert.Equal(t, "mqttroute", hc.Service)
}

// subscribeRecorder is a router transport that records subscribe filters.
type subscribeRecorder struct {
	mu      sync.Mutex
	filters []string
}

func (r *subscribeRecorder) IsConnected() bool { return false }
func (r *subscribeRecorder) Close() error      { return nil }

func (r *subscribeRecorder) SendPublish(string, []byte, routerpkg.QoS) {}
func (r *subscribeRecorder) SendUnsubscribe(string)                     {}

func (r *subscribeRecorder) SendSubscribe(filter string, _ routerpkg.QoS) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters = append(r.filters, filter)
}

func (r *subscribeRecorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.filters...)
}

// reconnect subscribes while connected, drops the connection and reconnects,
// returning every filter sent to the broker.
func reconnect(t *testing.T, cfg *Config) []string {
	t.Helper()

	transport := &subscribeRecorder{}
	m, err := router.NewManager(cfg.RouterConfig(zerolog.Nop()), transport)
	require.NoError(t, err)
	defer m.Close()

	m.HandleConnected()
	_, err = m.Subscribe("sensors/+/temp", func(string) error { return nil })
	require.NoError(t, err)

	m.HandleDisconnected(nil)
	m.HandleConnected()
	return transport.get()
}

func TestRouterConfig_CleanSessionResubscribesAfterReconnect(t *testing.T) {
	cfg := Default()
	require.True(t, cfg.MQTT.CleanSession)
	require.False(t, cfg.Router.ResubscribeOnReconnect)

	assert.True(t, cfg.RouterConfig(zerolog.Nop()).ResubscribeOnReconnect)
	assert.Equal(t, []string{"sensors/+/temp", "sensors/+/temp"}, reconnect(t, cfg))
}

func TestRouterConfig_PersistentSessionKeepsBrokerSubscriptions(t *testing.T) {
	cfg, err := Parse([]byte("mqtt:\n  clean_session: false\n"))
	require.NoError(t, err)

	assert.False(t, cfg.RouterConfig(zerolog.Nop()).ResubscribeOnReconnect)
	assert.Equal(t, []string{"sensors/+/temp"}, reconnect(t, cfg))
}
