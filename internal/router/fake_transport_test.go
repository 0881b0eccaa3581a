package router

import (
	"sync"

	"github.com/rmacdonaldsmith/mqttroute/pkg/router"
)

// sentCall records one transport operation.
type sentCall struct {
	Op      string // publish, subscribe, unsubscribe
	Topic   string // topic or filter
	Payload string
	QoS     router.QoS
}

// fakeTransport records sends and lets tests drive the connection state.
type fakeTransport struct {
	mu        sync.Mutex
	connected bool
	calls     []sentCall
	closed    int
}

func (f *fakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) setConnected(connected bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = connected
}

func (f *fakeTransport) SendPublish(topic string, payload []byte, qos router.QoS) {
	f.record(sentCall{Op: "publish", Topic: topic, Payload: string(payload), QoS: qos})
}

func (f *fakeTransport) SendSubscribe(filter string, qos router.QoS) {
	f.record(sentCall{Op: "subscribe", Topic: filter, QoS: qos})
}

func (f *fakeTransport) SendUnsubscribe(filter string) {
	f.record(sentCall{Op: "unsubscribe", Topic: filter})
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeTransport) record(c sentCall) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *fakeTransport) sent() []sentCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]sentCall, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeTransport) sentOps(op string) []sentCall {
	var out []sentCall
	for _, c := range f.sent() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeTransport) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
