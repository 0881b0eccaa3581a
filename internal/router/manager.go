package router

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/rmacdonaldsmith/mqttroute/internal/queue"
	"github.com/rmacdonaldsmith/mqttroute/internal/routingtable"
	"github.com/rmacdonaldsmith/mqttroute/pkg/router"
	routingtablepkg "github.com/rmacdonaldsmith/mqttroute/pkg/routingtable"
)

// Manager implements router.Router and router.Sink.
//
// Application calls and connect edges are serialized by mu, so a deferred
// action flushed on connect can never be overtaken by a call made while the
// flush is running. Inbound messages are delivered on a dedicated goroutine
// started by Start.
type Manager struct {
	mu        sync.Mutex
	config    *Config
	log       zerolog.Logger
	transport router.Transport

	table       *routingtable.InMemoryRoutingTable
	deferred    *deferredQueue
	gate        *gate
	inbound     *queue.Queue[router.Message]
	diagnostics *queue.Queue[string]

	observers observers

	// State management
	started bool
	closed  bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	delivered        atomic.Uint64
	callbackFailures atomic.Uint64
}

// NewManager creates a router over transport. The transport must report its
// events to the returned Manager, which implements router.Sink.
// Call Start() to begin delivering messages.
func NewManager(config *Config, transport router.Transport) (*Manager, error) {
	if config == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if transport == nil {
		return nil, fmt.Errorf("transport cannot be nil")
	}

	config.SetDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Manager{
		config:      config,
		log:         config.Logger.With().Str("component", "router").Logger(),
		transport:   transport,
		table:       routingtable.NewInMemoryRoutingTable(),
		deferred:    newDeferredQueue(config.MaxDeferred),
		gate:        newGate(),
		inbound:     queue.New[router.Message](config.InboundQueueSize),
		diagnostics: queue.New[string](config.DiagnosticQueueSize),
	}, nil
}

// Start launches the delivery and diagnostics goroutines. If the transport is
// already connected this counts as a connect edge.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return fmt.Errorf("cannot start closed router: %w", router.ErrClosed)
	}
	if m.started {
		m.mu.Unlock()
		return nil // Already started, idempotent
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.started = true

	m.wg.Add(2)
	go m.runDelivery(runCtx)
	go m.runDiagnostics(runCtx)
	m.mu.Unlock()

	if m.transport.IsConnected() {
		m.HandleConnected()
	}
	return nil
}

// Close stops the worker goroutines, discards deferred actions and closes the
// transport. Safe to call more than once. Close waits for the delivery
// goroutine, so a callback that wants to stop the router must call it from a
// new goroutine.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil // Already closed, idempotent
	}
	m.closed = true
	if m.cancel != nil {
		m.cancel()
	}
	if discarded := m.deferred.take(); len(discarded) > 0 {
		m.log.Info().Int("count", len(discarded)).Msg("Discarding deferred actions")
	}
	m.mu.Unlock()

	m.wg.Wait()

	// Failures reported by the last callback can land after the diagnostics
	// loop has exited.
	m.flushDiagnostics()

	if err := m.transport.Close(); err != nil {
		return fmt.Errorf("failed to close transport: %w", err)
	}
	return nil
}

// Publish sends payload on topic, or records it for the next connect edge.
func (m *Manager) Publish(topic string, payload []byte, opts ...router.PublishOption) error {
	if err := routingtablepkg.ValidateTopic(topic); err != nil {
		return err
	}

	options := router.PublishOptions{QoS: m.config.DefaultQoS}
	for _, opt := range opts {
		opt(&options)
	}
	if err := options.QoS.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("cannot publish to %q: %w", topic, router.ErrClosed)
	}

	if m.gate.isConnected() {
		m.transport.SendPublish(topic, payload, options.QoS)
		return nil
	}

	return m.deferLocked(router.DeferredAction{
		Kind:     router.ActionPublish,
		Topic:    topic,
		Payload:  append([]byte(nil), payload...),
		QoS:      options.QoS,
		QueuedAt: time.Now(),
	})
}

// Subscribe registers cb under filter. While disconnected the registration is
// deferred; the returned handle is valid either way.
func (m *Manager) Subscribe(filter string, cb routingtablepkg.Callback) (*routingtablepkg.Handle, error) {
	if cb == nil {
		return nil, router.ErrNilCallback
	}
	if err := routingtablepkg.ValidateFilter(filter); err != nil {
		return nil, err
	}

	handle := routingtablepkg.NewHandle(cb)

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, fmt.Errorf("cannot subscribe to %q: %w", filter, router.ErrClosed)
	}

	if m.gate.isConnected() {
		if err := m.subscribeLocked(filter, handle, m.config.DefaultQoS); err != nil {
			return nil, err
		}
		return handle, nil
	}

	err := m.deferLocked(router.DeferredAction{
		Kind:     router.ActionSubscribe,
		Filter:   filter,
		Handle:   handle,
		QoS:      m.config.DefaultQoS,
		QueuedAt: time.Now(),
	})
	if err != nil {
		return nil, err
	}
	return handle, nil
}

// subscribeLocked registers handle and asks the broker for the filter if it
// is the filter's first handle.
func (m *Manager) subscribeLocked(filter string, handle *routingtablepkg.Handle, qos router.QoS) error {
	first := !m.table.HasSubscriptions(filter)
	if err := m.table.AddSubscription(filter, handle); err != nil {
		return err
	}
	if first {
		m.transport.SendSubscribe(filter, qos)
	}
	m.log.Debug().Str("filter", filter).Str("handle", handle.ID()).Msg("Subscribed")
	return nil
}

// Unsubscribe removes one registration of handle under filter. The broker
// subscription is dropped with the filter's last handle. No-op while
// disconnected.
func (m *Manager) Unsubscribe(filter string, handle *routingtablepkg.Handle) error {
	if handle == nil {
		return router.ErrNilHandle
	}
	if err := routingtablepkg.ValidateFilter(filter); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("cannot unsubscribe from %q: %w", filter, router.ErrClosed)
	}
	if !m.gate.isConnected() {
		return nil
	}

	removed, err := m.table.RemoveSubscription(filter, handle)
	if err != nil {
		return err
	}
	if removed && !m.table.HasSubscriptions(filter) {
		m.transport.SendUnsubscribe(filter)
	}
	return nil
}

// UnsubscribeAll removes every handle at and beneath filter and drops the
// broker subscriptions for all of them. No-op while disconnected.
func (m *Manager) UnsubscribeAll(filter string) error {
	if err := routingtablepkg.ValidateFilter(filter); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("cannot unsubscribe from %q: %w", filter, router.ErrClosed)
	}
	if !m.gate.isConnected() {
		return nil
	}

	var descendants []string
	prefix := filter + routingtablepkg.Separator
	for _, f := range m.table.Filters() {
		if strings.HasPrefix(f, prefix) {
			descendants = append(descendants, f)
		}
	}

	removed, err := m.table.RemoveAllSubscriptions(filter)
	if err != nil {
		return err
	}

	m.transport.SendUnsubscribe(filter)
	for _, f := range descendants {
		m.transport.SendUnsubscribe(f)
	}
	m.log.Debug().Str("filter", filter).Int("removed", removed).Msg("Unsubscribed all")
	return nil
}

// deferLocked records an action for the next connect edge.
func (m *Manager) deferLocked(action router.DeferredAction) error {
	if err := m.deferred.push(action); err != nil {
		return err
	}
	m.log.Debug().
		Str("kind", action.Kind.String()).
		Int("pending", m.deferred.len()).
		Msg("Deferred until connected")
	return nil
}

// IsConnected reports the router's view of the connection state.
func (m *Manager) IsConnected() bool {
	return m.gate.isConnected()
}

// Pending returns a snapshot of the deferred actions.
func (m *Manager) Pending() []router.DeferredAction {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deferred.snapshot()
}

// Stats returns runtime counters.
func (m *Manager) Stats() router.Stats {
	m.mu.Lock()
	pending := m.deferred.len()
	m.mu.Unlock()

	return router.Stats{
		Connected:        m.gate.isConnected(),
		Subscriptions:    m.table.Count(),
		Filters:          len(m.table.Filters()),
		PendingActions:   pending,
		InboundQueued:    m.inbound.Len(),
		InboundDropped:   m.inbound.Dropped(),
		Delivered:        m.delivered.Load(),
		CallbackFailures: m.callbackFailures.Load(),
	}
}

// HandleConnected processes a connect edge: optionally re-sends every broker
// subscription, then replays deferred actions in call order exactly once.
// A connect edge while already connected is ignored.
func (m *Manager) HandleConnected() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return
	}
	if !m.gate.set(true) {
		m.log.Debug().Msg("Ignoring connect edge, already connected")
		return
	}

	if m.config.ResubscribeOnReconnect {
		for _, filter := range m.table.Filters() {
			m.transport.SendSubscribe(filter, m.config.DefaultQoS)
		}
	}

	actions := m.deferred.take()
	for _, action := range actions {
		switch action.Kind {
		case router.ActionPublish:
			m.transport.SendPublish(action.Topic, action.Payload, action.QoS)
		case router.ActionSubscribe:
			if err := m.subscribeLocked(action.Filter, action.Handle, action.QoS); err != nil {
				m.log.Error().Err(err).Str("filter", action.Filter).Msg("Failed to replay subscribe")
			}
		}
	}

	m.log.Info().Int("replayed", len(actions)).Msg("Connected")
}

// HandleDisconnected processes a lost connection. Deferred actions are kept.
func (m *Manager) HandleDisconnected(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.gate.set(false) {
		return
	}
	m.log.Warn().Err(err).Msg("Disconnected")
}

// HandleMessage enqueues an inbound message for the delivery loop.
func (m *Manager) HandleMessage(topic string, payload []byte) {
	msg := router.Message{
		Topic:   topic,
		Payload: append([]byte(nil), payload...),
	}
	if !m.inbound.Push(msg) {
		m.log.Warn().Str("topic", topic).Msg("Inbound queue full, dropping message")
	}
}

// HandleDiagnostic enqueues a line of diagnostic text.
func (m *Manager) HandleDiagnostic(text string) {
	m.diagnostics.Push(text)
}

// Verify interface compliance at compile time
var (
	_ router.Router = (*Manager)(nil)
	_ router.Sink   = (*Manager)(nil)
)
