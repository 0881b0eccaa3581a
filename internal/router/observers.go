package router

import "sync"

// observers holds the event callbacks registered through the On* methods.
type observers struct {
	mu             sync.RWMutex
	onConnected    []func()
	onDisconnected []func()
	onMessage      []func(topic, payload string)
	onLog          []func(text string)
}

// OnConnected registers fn for the delivery loop's connected event.
func (m *Manager) OnConnected(fn func()) {
	if fn == nil {
		return
	}
	m.observers.mu.Lock()
	defer m.observers.mu.Unlock()
	m.observers.onConnected = append(m.observers.onConnected, fn)
}

// OnDisconnected registers fn for the delivery loop's disconnected event.
func (m *Manager) OnDisconnected(fn func()) {
	if fn == nil {
		return
	}
	m.observers.mu.Lock()
	defer m.observers.mu.Unlock()
	m.observers.onDisconnected = append(m.observers.onDisconnected, fn)
}

// OnMessage registers fn for every message the delivery loop processes.
func (m *Manager) OnMessage(fn func(topic, payload string)) {
	if fn == nil {
		return
	}
	m.observers.mu.Lock()
	defer m.observers.mu.Unlock()
	m.observers.onMessage = append(m.observers.onMessage, fn)
}

// OnLog registers fn for diagnostic text.
func (m *Manager) OnLog(fn func(text string)) {
	if fn == nil {
		return
	}
	m.observers.mu.Lock()
	defer m.observers.mu.Unlock()
	m.observers.onLog = append(m.observers.onLog, fn)
}

func (m *Manager) emitConnected() {
	m.observers.mu.RLock()
	fns := append([]func(){}, m.observers.onConnected...)
	m.observers.mu.RUnlock()

	for _, fn := range fns {
		m.safeCall("connected observer", fn)
	}
}

func (m *Manager) emitDisconnected() {
	m.observers.mu.RLock()
	fns := append([]func(){}, m.observers.onDisconnected...)
	m.observers.mu.RUnlock()

	for _, fn := range fns {
		m.safeCall("disconnected observer", fn)
	}
}

func (m *Manager) emitMessage(topic, payload string) {
	m.observers.mu.RLock()
	fns := append([]func(string, string){}, m.observers.onMessage...)
	m.observers.mu.RUnlock()

	for _, fn := range fns {
		m.safeCall("message observer", func() { fn(topic, payload) })
	}
}

func (m *Manager) emitLog(text string) {
	m.observers.mu.RLock()
	fns := append([]func(string){}, m.observers.onLog...)
	m.observers.mu.RUnlock()

	for _, fn := range fns {
		m.safeCall("log observer", func() { fn(text) })
	}
}

// safeCall runs fn and logs a panic instead of propagating it.
func (m *Manager) safeCall(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			m.log.Error().Interface("panic", r).Str("observer", what).Msg("Observer panicked")
		}
	}()
	fn()
}
