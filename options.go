package pbase

import (
	"github.com/pbase/pbase/internal/logging"
	"github.com/pbase/pbase/internal/metrics"
)

// Option configures a PBase handle at Open time.
type Option func(*PBase)

// WithLogger attaches a structured logger. Without this option, PBase
// discards all log output.
func WithLogger(l logging.Logger) Option {
	return func(p *PBase) { p.log = l }
}

// WithMetrics attaches a metrics bundle so inserts, selects, index
// rewrites, and scan-strategy counters are recorded and exposed via
// PBase.Metrics().
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *PBase) { p.m = m }
}

// WithoutWriterGuard disables the advisory single-writer lock. Intended
// for tests that intentionally open the same directory more than once
// read-only, or for embedders that already serialise writers themselves.
func WithoutWriterGuard() Option {
	return func(p *PBase) { p.useWriterGuard = false }
}
