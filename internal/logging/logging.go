// Package logging provides the small logging interface the rest of pbase
// depends on, so the core engine never imports a concrete logging library
// directly — mirroring the teacher's base.LoggerAndTracer-as-interface
// idiom.
package logging

import (
	"github.com/cockroachdb/redact"
	"go.uber.org/zap"
)

// Logger is the logging surface the engine depends on. Implementations are
// expected to be safe for concurrent use, though pbase itself only ever
// calls these methods from its own single-threaded call path.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Safe wraps a value that is safe to appear in logs unredacted — table and
// field identifiers, not row values, which may carry sensitive data.
func Safe(v interface{}) redact.SafeValue {
	return redact.Safe(v)
}

// noop discards everything; the zero-value default when no logger is
// configured.
type noop struct{}

func (noop) Debugf(string, ...interface{}) {}
func (noop) Infof(string, ...interface{})  {}
func (noop) Errorf(string, ...interface{}) {}

// Noop returns a Logger that discards all messages.
func Noop() Logger { return noop{} }

// zapLogger adapts a *zap.SugaredLogger to Logger.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// NewZap builds a Logger backed by the given zap logger.
func NewZap(l *zap.Logger) Logger {
	return &zapLogger{sugar: l.Sugar()}
}

func (z *zapLogger) Debugf(format string, args ...interface{}) { z.sugar.Debugf(format, args...) }
func (z *zapLogger) Infof(format string, args ...interface{})  { z.sugar.Infof(format, args...) }
func (z *zapLogger) Errorf(format string, args ...interface{}) { z.sugar.Errorf(format, args...) }
