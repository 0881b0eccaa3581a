package router

import "context"

// runDiagnostics forwards diagnostic text to the logger and OnLog observers.
// Whatever is still queued at shutdown is forwarded once before returning.
func (m *Manager) runDiagnostics(ctx context.Context) {
	defer m.wg.Done()

	for {
		select {
		case <-ctx.Done():
			m.flushDiagnostics()
			return
		case <-m.diagnostics.Ready():
			m.flushDiagnostics()
		}
	}
}

func (m *Manager) flushDiagnostics() {
	for _, text := range m.diagnostics.Drain() {
		m.log.Debug().Str("source", "diagnostic").Msg(text)
		m.emitLog(text)
	}
}
