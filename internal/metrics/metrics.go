package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics exposes application metrics that are safe to scrape via Prometheus.
type Metrics struct {
	registry            *prometheus.Registry
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	graphBuildsTotal    prometheus.Counter
	graphBuildDuration  prometheus.Histogram
	graphNodes          prometheus.Gauge
	graphEdges          prometheus.Gauge
	gesturesTotal       *prometheus.CounterVec
	gestureSignalsTotal *prometheus.CounterVec
	refreshesTotal      *prometheus.CounterVec
	refreshDuration     prometheus.Histogram
	viewerSessions      prometheus.Gauge
}

// New creates a fresh Metrics registry with HTTP, graph and refresh metrics registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "topomap",
			Name:      "http_requests_total",
			Help:      "Count of HTTP requests processed by topomap",
		}, []string{"method", "path", "status"}),
		httpRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "topomap",
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests served by topomap",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		graphBuildsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "topomap",
			Name:      "graph_builds_total",
			Help:      "Total number of topology graph builds",
		}),
		graphBuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "topomap",
			Name:      "graph_build_duration_seconds",
			Help:      "Duration of a single topology graph build",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
		graphNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "topomap",
			Name:      "graph_nodes",
			Help:      "Node count of the most recent graph build",
		}),
		graphEdges: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "topomap",
			Name:      "graph_edges",
			Help:      "Edge count of the most recent graph build",
		}),
		gesturesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "topomap",
			Name:      "gestures_total",
			Help:      "Gestures applied to viewer sessions",
		}, []string{"kind"}),
		gestureSignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "topomap",
			Name:      "gesture_signals_total",
			Help:      "Gestures whose target could not be applied",
		}, []string{"signal"}),
		refreshesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "topomap",
			Name:      "device_refreshes_total",
			Help:      "Device list refreshes by source and outcome",
		}, []string{"source", "outcome"}),
		refreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "topomap",
			Name:      "device_refresh_duration_seconds",
			Help:      "Duration of device list refreshes",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 20, 60},
		}),
		viewerSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "topomap",
			Name:      "viewer_sessions",
			Help:      "Number of live viewer sessions",
		}),
	}

	registry.MustRegister(
		m.httpRequests,
		m.httpRequestDuration,
		m.graphBuildsTotal,
		m.graphBuildDuration,
		m.graphNodes,
		m.graphEdges,
		m.gesturesTotal,
		m.gestureSignalsTotal,
		m.refreshesTotal,
		m.refreshDuration,
		m.viewerSessions,
	)

	return m
}

// ObserveHTTPRequest records a single HTTP request/response cycle.
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labels := prometheus.Labels{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(status),
	}
	m.httpRequests.With(labels).Inc()
	m.httpRequestDuration.With(labels).Observe(duration.Seconds())
}

// ObserveGraphBuild records one graph build and its size.
func (m *Metrics) ObserveGraphBuild(nodes, edges int, duration time.Duration) {
	if m == nil {
		return
	}
	m.graphBuildsTotal.Inc()
	m.graphBuildDuration.Observe(duration.Seconds())
	m.graphNodes.Set(float64(nodes))
	m.graphEdges.Set(float64(edges))
}

// ObserveGesture counts a gesture, plus its signal when the target was not applicable.
func (m *Metrics) ObserveGesture(kind string, signal string) {
	if m == nil {
		return
	}
	m.gesturesTotal.WithLabelValues(kind).Inc()
	if signal != "" {
		m.gestureSignalsTotal.WithLabelValues(signal).Inc()
	}
}

// ObserveRefresh records a device refresh. outcome is one of published, unchanged, failed, rejected.
func (m *Metrics) ObserveRefresh(source, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.refreshesTotal.WithLabelValues(source, outcome).Inc()
	m.refreshDuration.Observe(duration.Seconds())
}

func (m *Metrics) SetViewerSessions(n int) {
	if m == nil {
		return
	}
	m.viewerSessions.Set(float64(n))
}

// Handler exposes the Prometheus registry over HTTP.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("metrics unavailable"))
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
