package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appErrors "github.com/EduCollab-AI/EduCollab-Backend/pkg/errors"
)

// Materialization decisions recorded by ObserveMaterialization.
const (
	DecisionGenerate = "generate"
	DecisionReuse    = "reuse"
	DecisionTrim     = "trim"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec

	projectionDuration prometheus.Observer
	classEvents        *prometheus.CounterVec
	materializations   *prometheus.CounterVec
	paymentEvents      *prometheus.CounterVec
	warmups            *prometheus.CounterVec
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
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
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

	projectionDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "class_schedule_projection_seconds",
		Help:    "Time spent projecting class schedules for one student",
		Buckets: prometheus.DefBuckets,
	})

	classEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "class_events_projected_total",
		Help: "Projected class occurrences by overlay outcome",
	}, []string{"outcome"})

	materializations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_materializations_total",
		Help: "Payment event materialization decisions",
	}, []string{"decision"})

	paymentEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_events_persisted_total",
		Help: "Generated payment events by insert result",
	}, []string{"result"})

	warmups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_warmups_total",
		Help: "Background payment warm-up jobs by result",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHits, cacheMisses, dbQueryDuration,
		projectionDuration, classEvents, materializations, paymentEvents, warmups, goroutines,
	)

	return &MetricsService{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		dbQueryDuration:    dbQueryDuration,
		projectionDuration: projectionDuration,
		classEvents:        classEvents,
		materializations:   materializations,
		paymentEvents:      paymentEvents,
		warmups:            warmups,
	}
}

// Registry exposes the underlying registry for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
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

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// ObserveProjection records one class-schedule projection and its overlay outcomes.
func (m *MetricsService) ObserveProjection(duration time.Duration, emitted, rescheduled, cancelled int) {
	if m == nil {
		return
	}
	m.projectionDuration.Observe(duration.Seconds())
	m.classEvents.WithLabelValues("emitted").Add(float64(emitted))
	m.classEvents.WithLabelValues("rescheduled").Add(float64(rescheduled))
	m.classEvents.WithLabelValues("cancelled").Add(float64(cancelled))
}

// ObserveMaterialization records the materializer decision and insert outcome.
func (m *MetricsService) ObserveMaterialization(decision string, inserted, conflicts int) {
	if m == nil {
		return
	}
	m.materializations.WithLabelValues(decision).Inc()
	if inserted > 0 {
		m.paymentEvents.WithLabelValues("inserted").Add(float64(inserted))
	}
	if conflicts > 0 {
		m.paymentEvents.WithLabelValues("conflict").Add(float64(conflicts))
	}
}

// RecordWarmup counts a finished warm-up job.
func (m *MetricsService) RecordWarmup(err error) {
	if m == nil {
		return
	}
	result := "success"
	switch {
	case appErrors.IsCode(err, appErrors.ErrNotFound.Code):
		result = "skipped"
	case err != nil:
		result = "failure"
	}
	m.warmups.WithLabelValues(result).Inc()
}
