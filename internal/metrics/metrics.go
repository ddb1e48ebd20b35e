// Package metrics holds the Prometheus counters and HdrHistogram latency
// histograms an embedder can scrape via PBase.Metrics(). None of this
// plumbing is consulted by the core read/write path's correctness — it is
// purely observational.
package metrics

import (
	"sync"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles every counter and histogram this module exposes.
type Metrics struct {
	Inserts       prometheus.Counter
	Selects       prometheus.Counter
	IndexRewrites prometheus.Counter
	LinearScans   prometheus.Counter
	IndexScans    prometheus.Counter

	registry *prometheus.Registry

	mu          sync.Mutex
	latenciesUs map[string]*hdrhistogram.Histogram
}

// New builds a fresh, independently-registered Metrics bundle.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Inserts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pbase_inserts_total",
			Help: "Total number of rows successfully inserted.",
		}),
		Selects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pbase_selects_total",
			Help: "Total number of select queries executed.",
		}),
		IndexRewrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pbase_index_rewrites_total",
			Help: "Total number of index-file rewrite-and-rename splices performed.",
		}),
		LinearScans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pbase_linear_scans_total",
			Help: "Total number of single-table filters evaluated via linear scan.",
		}),
		IndexScans: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pbase_index_scans_total",
			Help: "Total number of single-table filters evaluated via an index narrowing step.",
		}),
		registry:    reg,
		latenciesUs: make(map[string]*hdrhistogram.Histogram),
	}
	reg.MustRegister(m.Inserts, m.Selects, m.IndexRewrites, m.LinearScans, m.IndexScans)
	return m
}

// Gatherer exposes the underlying Prometheus registry for scraping.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }

// ObserveLatency records a microsecond latency sample for table.
func (m *Metrics) ObserveLatency(table string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.latenciesUs[table]
	if !ok {
		// 1us to 10s, 3 significant figures.
		h = hdrhistogram.New(1, 10_000_000, 3)
		m.latenciesUs[table] = h
	}
	_ = h.RecordValue(d.Microseconds())
}

// LatencyQuantile returns table's observed latency at the given quantile
// (0-100), in microseconds, or zero if no samples have been recorded.
func (m *Metrics) LatencyQuantile(table string, quantile float64) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	h, ok := m.latenciesUs[table]
	if !ok {
		return 0
	}
	return h.ValueAtQuantile(quantile)
}
