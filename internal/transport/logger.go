package transport

import (
	"fmt"
	"strings"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/rmacdonaldsmith/mqttroute/pkg/router"
)

// DiagnosticLogger adapts paho's package logger to a router.Sink's
// diagnostic stream. Lines are prefixed with the paho level.
type DiagnosticLogger struct {
	level string

	mu   sync.RWMutex
	sink router.Sink
}

// NewDiagnosticLogger creates a logger for one paho level
func NewDiagnosticLogger(level string) *DiagnosticLogger {
	return &DiagnosticLogger{level: level}
}

// SetSink directs output to sink. Output is discarded while no sink is set.
func (l *DiagnosticLogger) SetSink(sink router.Sink) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sink = sink
}

func (l *DiagnosticLogger) Println(v ...interface{}) {
	l.emit(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

func (l *DiagnosticLogger) Printf(format string, v ...interface{}) {
	l.emit(fmt.Sprintf(format, v...))
}

func (l *DiagnosticLogger) emit(text string) {
	l.mu.RLock()
	sink := l.sink
	l.mu.RUnlock()

	if sink != nil {
		sink.HandleDiagnostic("paho " + l.level + ": " + text)
	}
}

// RouteLibraryLogs installs loggers for paho's ERROR, CRITICAL and WARN
// levels (and DEBUG when debug is true) that feed sink. paho's loggers are
// package globals, so this affects every client in the process.
func RouteLibraryLogs(sink router.Sink, debug bool) {
	levels := map[string]*mqtt.Logger{
		"error":    &mqtt.ERROR,
		"critical": &mqtt.CRITICAL,
		"warn":     &mqtt.WARN,
	}
	if debug {
		levels["debug"] = &mqtt.DEBUG
	}

	for name, target := range levels {
		l := NewDiagnosticLogger(name)
		l.SetSink(sink)
		*target = l
	}
}

var _ mqtt.Logger = (*DiagnosticLogger)(nil)
