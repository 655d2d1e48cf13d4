package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/workforce-export-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec
	exportDuration  *prometheus.HistogramVec
	exportRecords   *prometheus.CounterVec
	exportsInFlight prometheus.Gauge

	requestCount   uint64
	exportCount    uint64
	exportFailures uint64
	exportEmpty    uint64
	exportRows     uint64
	inFlight       int64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for progress cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	exportDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "export_duration_seconds",
		Help:    "Duration of attendance exports by outcome",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
	}, []string{"variant", "format", "outcome"})

	exportRecords := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "export_records_total",
		Help: "Attendance records written to export artifacts",
	}, []string{"variant", "format"})

	exportsInFlight := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "exports_in_flight",
		Help: "Exports currently running",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheHits, cacheMisses, dbQueryDuration, exportDuration, exportRecords, exportsInFlight, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		dbQueryDuration: dbQueryDuration,
		exportDuration:  exportDuration,
		exportRecords:   exportRecords,
		exportsInFlight: exportsInFlight,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
}

// RecordCacheOperation records cache hit/miss metrics.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		return
	}
	m.cacheMisses.Inc()
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// ExportStarted marks an export as running.
func (m *MetricsService) ExportStarted() {
	if m == nil {
		return
	}
	atomic.AddInt64(&m.inFlight, 1)
	m.exportsInFlight.Inc()
}

// ObserveExport records a finished export. outcome is one of finished,
// no_data or failed.
func (m *MetricsService) ObserveExport(variant models.ReportVariant, format models.ReportFormat, outcome string, records int, duration time.Duration) {
	if m == nil {
		return
	}
	atomic.AddInt64(&m.inFlight, -1)
	m.exportsInFlight.Dec()
	m.exportDuration.WithLabelValues(string(variant), string(format), outcome).Observe(duration.Seconds())
	if records > 0 {
		m.exportRecords.WithLabelValues(string(variant), string(format)).Add(float64(records))
		atomic.AddUint64(&m.exportRows, uint64(records))
	}
	atomic.AddUint64(&m.exportCount, 1)
	switch outcome {
	case exportOutcomeFailed:
		atomic.AddUint64(&m.exportFailures, 1)
	case exportOutcomeNoData:
		atomic.AddUint64(&m.exportEmpty, 1)
	}
}

// Snapshot returns aggregated counters for the admin metrics endpoint.
func (m *MetricsService) Snapshot() models.ExportMetricsSnapshot {
	if m == nil {
		return models.ExportMetricsSnapshot{}
	}
	return models.ExportMetricsSnapshot{
		RequestsTotal:   atomic.LoadUint64(&m.requestCount),
		ExportsTotal:    atomic.LoadUint64(&m.exportCount),
		ExportsFailed:   atomic.LoadUint64(&m.exportFailures),
		ExportsEmpty:    atomic.LoadUint64(&m.exportEmpty),
		RecordsExported: atomic.LoadUint64(&m.exportRows),
		InFlight:        atomic.LoadInt64(&m.inFlight),
		Goroutines:      runtime.NumGoroutine(),
		GeneratedAt:     time.Now().UTC(),
	}
}
