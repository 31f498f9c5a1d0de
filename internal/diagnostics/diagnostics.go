// Package diagnostics is the sink internal errors and recovered panics
// report to instead of escaping a package's public API.
package diagnostics

import (
	"sync"

	"go.uber.org/zap"
)

// Sink receives internal failures that must never be returned to a
// caller of eventbus, orchestrator, or listeners.
type Sink struct {
	mu     sync.RWMutex
	logger *zap.Logger
}

var (
	defaultMu   sync.RWMutex
	defaultSink = &Sink{logger: zap.NewNop()}
)

// SetLogger points the process-wide sink at a real logger. Call once at
// boot; safe to call again in tests.
func SetLogger(logger *zap.Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if logger == nil {
		logger = zap.NewNop()
	}
	defaultSink.mu.Lock()
	defaultSink.logger = logger
	defaultSink.mu.Unlock()
}

// Report logs an internal failure with the component that observed it.
// It never panics and never returns an error — it is the terminal sink.
func Report(component string, err error, fields ...zap.Field) {
	defaultSink.mu.RLock()
	logger := defaultSink.logger
	defaultSink.mu.RUnlock()

	fields = append([]zap.Field{zap.String("component", component)}, fields...)
	logger.Error("internal error", append(fields, zap.Error(err))...)
}

// ReportPanic logs a recovered panic value. Callers should always
// recover() around subscriber/handler invocations and route the result
// here rather than letting it crash the process.
func ReportPanic(component string, recovered any) {
	defaultSink.mu.RLock()
	logger := defaultSink.logger
	defaultSink.mu.RUnlock()

	logger.Error("recovered panic",
		zap.String("component", component),
		zap.Any("panic", recovered),
		zap.Stack("stack"),
	)
}

// ResetForTests restores the sink to a no-op logger.
func ResetForTests() {
	SetLogger(nil)
}
