package server

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/fbecker/strategraph/pkg/observability"
)

// Metrics implements the observability hook interfaces on top of
// Prometheus collectors. One instance per registry; RegisterHooks
// installs it as the process-wide sink.
type Metrics struct {
	connectionsCreated  prometheus.Counter
	connectionsRejected prometheus.Counter
	graphNodes          prometheus.Gauge
	graphConnections    prometheus.Gauge
	importEdges         *prometheus.CounterVec

	modeTransitions *prometheus.CounterVec
	gestureDuration *prometheus.HistogramVec
	inputConflicts  *prometheus.CounterVec

	storeOpDuration *prometheus.HistogramVec
	storeOpErrors   *prometheus.CounterVec
	documentBytes   prometheus.Histogram

	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	cacheWrites *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		connectionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "strategraph_connections_created_total",
			Help: "Total number of connections committed to the graph",
		}),
		connectionsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "strategraph_connections_rejected_total",
			Help: "Total number of connection attempts that failed validation",
		}),
		graphNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "strategraph_graph_nodes",
			Help: "Current number of blocks in the graph",
		}),
		graphConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "strategraph_graph_connections",
			Help: "Current number of connections in the graph",
		}),
		importEdges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "strategraph_import_edges_total",
			Help: "Connections processed during document imports",
		}, []string{"outcome"}),
		modeTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "strategraph_mode_transitions_total",
			Help: "Interaction state machine transitions",
		}, []string{"from", "to"}),
		gestureDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "strategraph_gesture_duration_seconds",
			Help: "Duration of completed editor gestures",
		}, []string{"kind"}),
		inputConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "strategraph_input_conflicts_total",
			Help: "Input events rejected due to an incompatible active mode",
		}, []string{"mode", "event"}),
		storeOpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: "strategraph_store_op_duration_seconds",
			Help: "Duration of document store operations",
		}, []string{"backend", "op"}),
		storeOpErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "strategraph_store_op_errors_total",
			Help: "Document store operations that returned an error",
		}, []string{"backend", "op"}),
		documentBytes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "strategraph_document_bytes",
			Help:    "Size of saved documents in bytes",
			Buckets: prometheus.ExponentialBuckets(256, 4, 8),
		}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "strategraph_cache_hits_total",
			Help: "Cache lookups that found a fresh entry",
		}, []string{"type"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "strategraph_cache_misses_total",
			Help: "Cache lookups that found nothing",
		}, []string{"type"}),
		cacheWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "strategraph_cache_writes_total",
			Help: "Entries written to the cache",
		}, []string{"type"}),
	}

	reg.MustRegister(
		m.connectionsCreated, m.connectionsRejected,
		m.graphNodes, m.graphConnections, m.importEdges,
		m.modeTransitions, m.gestureDuration, m.inputConflicts,
		m.storeOpDuration, m.storeOpErrors, m.documentBytes,
		m.cacheHits, m.cacheMisses, m.cacheWrites,
	)
	return m
}

// RegisterHooks installs m as the process-wide observability sink.
func (m *Metrics) RegisterHooks() {
	observability.SetGraphHooks(m)
	observability.SetInteractionHooks(m)
	observability.SetStoreHooks(m)
	observability.SetCacheHooks(m)
}

// ============================================================================
// GraphHooks
// ============================================================================

func (m *Metrics) OnConnectionCreated(_ context.Context, source, target string) {
	m.connectionsCreated.Inc()
}

func (m *Metrics) OnConnectionRejected(_ context.Context, source, target string, reasons []string) {
	m.connectionsRejected.Inc()
}

func (m *Metrics) OnGraphChanged(_ context.Context, nodeCount, connectionCount int) {
	m.graphNodes.Set(float64(nodeCount))
	m.graphConnections.Set(float64(connectionCount))
}

func (m *Metrics) OnImport(_ context.Context, kept, dropped int) {
	m.importEdges.WithLabelValues("kept").Add(float64(kept))
	m.importEdges.WithLabelValues("dropped").Add(float64(dropped))
}

// ============================================================================
// InteractionHooks
// ============================================================================

func (m *Metrics) OnModeChange(_ context.Context, from, to string) {
	m.modeTransitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) OnGesture(_ context.Context, kind string, duration time.Duration) {
	m.gestureDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func (m *Metrics) OnConflict(_ context.Context, mode, event string) {
	m.inputConflicts.WithLabelValues(mode, event).Inc()
}

// ============================================================================
// StoreHooks
// ============================================================================

func (m *Metrics) OnSave(_ context.Context, backend, id string, size int, duration time.Duration, err error) {
	m.storeOpDuration.WithLabelValues(backend, "save").Observe(duration.Seconds())
	if err != nil {
		m.storeOpErrors.WithLabelValues(backend, "save").Inc()
		return
	}
	m.documentBytes.Observe(float64(size))
}

func (m *Metrics) OnLoad(_ context.Context, backend, id string, duration time.Duration, err error) {
	m.storeOpDuration.WithLabelValues(backend, "load").Observe(duration.Seconds())
	if err != nil {
		m.storeOpErrors.WithLabelValues(backend, "load").Inc()
	}
}

func (m *Metrics) OnDelete(_ context.Context, backend, id string, err error) {
	if err != nil {
		m.storeOpErrors.WithLabelValues(backend, "delete").Inc()
	}
}

// ============================================================================
// CacheHooks
// ============================================================================

func (m *Metrics) OnCacheHit(_ context.Context, keyType string) {
	m.cacheHits.WithLabelValues(keyType).Inc()
}

func (m *Metrics) OnCacheMiss(_ context.Context, keyType string) {
	m.cacheMisses.WithLabelValues(keyType).Inc()
}

func (m *Metrics) OnCacheSet(_ context.Context, keyType string, size int) {
	m.cacheWrites.WithLabelValues(keyType).Inc()
}

var (
	_ observability.GraphHooks       = (*Metrics)(nil)
	_ observability.InteractionHooks = (*Metrics)(nil)
	_ observability.StoreHooks       = (*Metrics)(nil)
	_ observability.CacheHooks       = (*Metrics)(nil)
)
