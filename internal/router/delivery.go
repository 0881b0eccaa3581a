package router

import (
	"context"
	"strings"

	"github.com/rmacdonaldsmith/mqttroute/pkg/router"
	routingtablepkg "github.com/rmacdonaldsmith/mqttroute/pkg/routingtable"
)

// runDelivery is the inbound delivery loop. It parks until connected, emits
// the connected event once per session, then delivers queued messages until
// the session ends. Callbacks run on this goroutine only, one at a time.
func (m *Manager) runDelivery(ctx context.Context) {
	defer m.wg.Done()

	announced := false
	var session uint64

	for {
		connected, epoch, changed := m.gate.state()

		// A reconnect between two observations shows up as a new epoch
		if announced && (!connected || epoch != session) {
			announced = false
			m.emitDisconnected()
		}

		if !connected {
			select {
			case <-ctx.Done():
				return
			case <-changed:
				continue
			}
		}

		if !announced {
			announced = true
			session = epoch
			m.emitConnected()
		}

		if !m.deliverBatch(ctx, m.inbound.Drain()) {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-changed:
		case <-m.inbound.Ready():
		}
	}
}

// deliverBatch delivers messages in order. Returns false if ctx was cancelled.
func (m *Manager) deliverBatch(ctx context.Context, batch []router.Message) bool {
	for _, msg := range batch {
		if ctx.Err() != nil {
			return false
		}
		m.deliver(msg)
	}
	return true
}

// deliver decodes the payload, notifies message observers and invokes every
// matching callback in match order.
func (m *Manager) deliver(msg router.Message) {
	payload := strings.ToValidUTF8(string(msg.Payload), "\uFFFD")
	m.delivered.Add(1)

	m.emitMessage(msg.Topic, payload)

	for _, handle := range m.table.GetCallbacks(msg.Topic) {
		m.invoke(msg.Topic, handle, payload)
	}
}

// invoke runs one callback, converting an error or panic into a reported
// failure so the remaining callbacks still run.
func (m *Manager) invoke(topic string, handle *routingtablepkg.Handle, payload string) {
	defer func() {
		if r := recover(); r != nil {
			m.reportCallbackFailure(&router.CallbackError{
				Topic:    topic,
				HandleID: handle.ID(),
				Panic:    r,
			})
		}
	}()

	if err := handle.Invoke(payload); err != nil {
		m.reportCallbackFailure(&router.CallbackError{
			Topic:    topic,
			HandleID: handle.ID(),
			Err:      err,
		})
	}
}

func (m *Manager) reportCallbackFailure(err *router.CallbackError) {
	m.callbackFailures.Add(1)
	m.log.Warn().Err(err).Str("topic", err.Topic).Msg("Callback failed")
	m.HandleDiagnostic(err.Error())
}
