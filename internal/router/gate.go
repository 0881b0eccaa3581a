package router

import "sync"

// gate tracks the connection state seen by the delivery loop.
//
// Every change closes the current changed channel and installs a new one, so
// any number of waiters can park on it. epoch increments on every connect so
// a disconnect followed by a reconnect between two observations is still
// visible as a new session.
type gate struct {
	mu        sync.Mutex
	connected bool
	epoch     uint64
	changed   chan struct{}
}

func newGate() *gate {
	return &gate{changed: make(chan struct{})}
}

// set updates the state. Returns false if it was already in that state.
func (g *gate) set(connected bool) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.connected == connected {
		return false
	}
	g.connected = connected
	if connected {
		g.epoch++
	}
	close(g.changed)
	g.changed = make(chan struct{})
	return true
}

// state returns the current state and a channel closed on the next change.
func (g *gate) state() (connected bool, epoch uint64, changed <-chan struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connected, g.epoch, g.changed
}

func (g *gate) isConnected() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.connected
}
