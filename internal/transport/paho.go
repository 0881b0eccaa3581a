// Package transport connects the router to an MQTT broker through the
// Eclipse paho client.
package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/url"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/rmacdonaldsmith/mqttroute/pkg/router"
)

// ErrClosed is returned by Connect after Close.
var ErrClosed = errors.New("transport is closed")

// PahoTransport implements router.Transport over a paho client and reports
// connection edges, messages and errors to a router.Sink.
//
// All sends are fire-and-forget. Each returned paho token is watched on its
// own goroutine and failures are reported as diagnostics.
type PahoTransport struct {
	config *Config
	log    zerolog.Logger
	client mqtt.Client
	minter *TokenMinter

	mu     sync.RWMutex
	sink   router.Sink
	closed bool

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewPahoTransport creates a transport. It does not connect; call SetSink and
// then Connect.
func NewPahoTransport(config *Config, logger zerolog.Logger) (*PahoTransport, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	t := &PahoTransport{
		config: config,
		log:    logger.With().Str("component", "transport").Logger(),
		stop:   make(chan struct{}),
	}
	if config.JWT != nil {
		t.minter = NewTokenMinter(config.JWT)
	}

	opts, err := t.clientOptions()
	if err != nil {
		return nil, err
	}
	t.client = mqtt.NewClient(opts)
	return t, nil
}

// clientOptions translates Config into paho options and installs the handlers
// that feed the sink.
func (t *PahoTransport) clientOptions() (*mqtt.ClientOptions, error) {
	c := t.config

	opts := mqtt.NewClientOptions()
	for _, broker := range c.Brokers {
		opts.AddBroker(broker)
	}
	opts.SetClientID(c.ClientID)
	opts.SetUsername(c.Username)
	opts.SetPassword(c.Password)
	opts.SetKeepAlive(c.KeepAlive)
	opts.SetCleanSession(c.CleanSession)
	opts.SetConnectTimeout(c.ConnectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(c.ConnectRetryInterval)
	opts.SetMaxReconnectInterval(c.MaxReconnectInterval)

	if c.CAFile != "" || c.InsecureSkipVerify {
		tlsConfig, err := loadTLSConfig(c.CAFile, c.InsecureSkipVerify)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsConfig)
	}

	if t.minter != nil {
		opts.SetCredentialsProvider(t.credentials)
	}

	opts.SetOnConnectHandler(t.onConnect)
	opts.SetConnectionLostHandler(t.onConnectionLost)
	opts.SetReconnectingHandler(t.onReconnecting)
	opts.SetConnectionAttemptHandler(t.onConnectionAttempt)
	opts.SetDefaultPublishHandler(t.onMessage)

	return opts, nil
}

func loadTLSConfig(caFile string, insecure bool) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: insecure,
	}
	if caFile == "" {
		return tlsConfig, nil
	}

	pem, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in CA file %s", caFile)
	}
	tlsConfig.RootCAs = pool
	return tlsConfig, nil
}

// SetSink sets the receiver of transport events. Must be called before Connect.
func (t *PahoTransport) SetSink(sink router.Sink) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sink = sink
}

func (t *PahoTransport) getSink() router.Sink {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sink
}

func (t *PahoTransport) diagnostic(format string, args ...interface{}) {
	text := fmt.Sprintf(format, args...)
	if sink := t.getSink(); sink != nil {
		sink.HandleDiagnostic(text)
	}
}

// Connect starts connecting and blocks until the first connection is up or
// ctx is done. paho keeps retrying in the background after ctx expires.
func (t *PahoTransport) Connect(ctx context.Context) error {
	t.mu.RLock()
	closed := t.closed
	t.mu.RUnlock()
	if closed {
		return ErrClosed
	}

	t.log.Info().Strs("brokers", t.config.Brokers).Str("client_id", t.config.ClientID).Msg("Connecting to MQTT broker")

	token := t.client.Connect()
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("mqtt connection failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsConnected reports whether the connection is up right now. Unlike paho's
// own IsConnected it is false while reconnecting.
func (t *PahoTransport) IsConnected() bool {
	return t.client.IsConnectionOpen()
}

// SendPublish publishes payload on topic.
func (t *PahoTransport) SendPublish(topic string, payload []byte, qos router.QoS) {
	token := t.client.Publish(topic, byte(qos), t.config.Retain, payload)
	t.watch("publish to "+topic, token)
}

// SendSubscribe subscribes to filter. Messages arrive through the default
// publish handler so every filter shares one delivery path.
func (t *PahoTransport) SendSubscribe(filter string, qos router.QoS) {
	token := t.client.Subscribe(filter, byte(qos), nil)
	t.watch("subscribe to "+filter, token)
}

// SendUnsubscribe unsubscribes from filter.
func (t *PahoTransport) SendUnsubscribe(filter string) {
	token := t.client.Unsubscribe(filter)
	t.watch("unsubscribe from "+filter, token)
}

// watch reports token failures and timeouts as diagnostics.
func (t *PahoTransport) watch(op string, token mqtt.Token) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()

		timer := time.NewTimer(t.config.SendTimeout)
		defer timer.Stop()

		select {
		case <-token.Done():
			if err := token.Error(); err != nil {
				t.log.Warn().Err(err).Str("op", op).Msg("MQTT operation failed")
				t.diagnostic("%s failed: %v", op, err)
			}
		case <-timer.C:
			t.log.Warn().Str("op", op).Dur("timeout", t.config.SendTimeout).Msg("MQTT operation timed out")
			t.diagnostic("%s timed out after %s", op, t.config.SendTimeout)
		case <-t.stop:
		}
	}()
}

// Close disconnects from the broker and waits for token watchers to finish.
func (t *PahoTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil // Already closed, idempotent
	}
	t.closed = true
	t.mu.Unlock()

	close(t.stop)
	t.client.Disconnect(uint(t.config.Quiesce / time.Millisecond))
	t.wg.Wait()

	t.log.Info().Msg("MQTT transport closed")
	return nil
}

// credentials supplies a fresh token password for every connection attempt.
func (t *PahoTransport) credentials() (string, string) {
	token, err := t.minter.Mint(t.config.ClientID)
	if err != nil {
		t.log.Error().Err(err).Msg("Failed to mint broker token")
		t.diagnostic("failed to mint broker token: %v", err)
		return t.config.Username, t.config.Password
	}
	return t.config.Username, token
}

func (t *PahoTransport) onConnect(c mqtt.Client) {
	r := c.OptionsReader()
	t.log.Info().Str("client_id", r.ClientID()).Msg("MQTT connection established")
	t.diagnostic("connected as %s", r.ClientID())

	if sink := t.getSink(); sink != nil {
		sink.HandleConnected()
	}
}

func (t *PahoTransport) onConnectionLost(_ mqtt.Client, err error) {
	t.log.Warn().Err(err).Msg("MQTT connection lost, will auto-reconnect")
	t.diagnostic("connection lost: %v", err)

	// paho runs this handler and OnConnect on separate goroutines, so a fast
	// reconnect may already have been reported.
	if t.client.IsConnectionOpen() {
		t.log.Debug().Msg("Ignoring stale connection lost event, already reconnected")
		return
	}

	if sink := t.getSink(); sink != nil {
		sink.HandleDisconnected(err)
	}
}

func (t *PahoTransport) onReconnecting(_ mqtt.Client, _ *mqtt.ClientOptions) {
	t.log.Info().Msg("Reconnecting to MQTT broker")
	t.diagnostic("reconnecting")
}

func (t *PahoTransport) onConnectionAttempt(broker *url.URL, tlsCfg *tls.Config) *tls.Config {
	if tlsCfg != nil && broker.Scheme != "tcp" && broker.Scheme != "mqtt" && broker.Scheme != "ws" {
		if tlsCfg.InsecureSkipVerify {
			t.diagnostic("connecting to %s without certificate verification", broker.Redacted())
		} else {
			t.diagnostic("connecting to %s with certificate verification", broker.Redacted())
		}
	} else {
		t.diagnostic("connecting to %s", broker.Redacted())
	}
	return tlsCfg
}

func (t *PahoTransport) onMessage(_ mqtt.Client, msg mqtt.Message) {
	if sink := t.getSink(); sink != nil {
		sink.HandleMessage(msg.Topic(), msg.Payload())
	}
}

// Verify interface compliance at compile time
var _ router.Transport = (*PahoTransport)(nil)
