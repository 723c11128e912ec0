package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Enrollment outcomes recorded by MetricsService.ObserveEnrollment.
const (
	OutcomeEnrolled        = "enrolled"
	OutcomePending         = "pending"
	OutcomeSectionFull     = "section_full"
	OutcomePrerequisite    = "prerequisite_not_met"
	OutcomeConflict        = "schedule_conflict"
	OutcomeAlreadyEnrolled = "already_enrolled"
	OutcomeDropped         = "dropped"
	OutcomeApproved        = "approved"
	OutcomeRejected        = "rejected"
	OutcomeError           = "error"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer, cache and engine.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	txDuration      *prometheus.HistogramVec
	enrollments     *prometheus.CounterVec
	gradeEntries    *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
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

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	txDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_transaction_duration_seconds",
		Help:    "Duration of engine transactions",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "result"})

	enrollments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_requests_total",
		Help: "Enrollment operations by outcome",
	}, []string{"outcome"})

	gradeEntries := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "grade_entries_total",
		Help: "Recorded grades by letter",
	}, []string{"letter"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		txDuration, enrollments, gradeEntries, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		txDuration:      txDuration,
		enrollments:     enrollments,
		gradeEntries:    gradeEntries,
	}
}

// Registry exposes the underlying registry, mainly for tests.
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

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveTransaction records how long an engine transaction took and whether it committed.
func (m *MetricsService) ObserveTransaction(operation string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	result := "commit"
	if err != nil {
		result = "rollback"
	}
	m.txDuration.WithLabelValues(operation, result).Observe(duration.Seconds())
}

// ObserveEnrollment counts an enrollment operation outcome.
func (m *MetricsService) ObserveEnrollment(outcome string) {
	if m == nil {
		return
	}
	m.enrollments.WithLabelValues(outcome).Inc()
}

// ObserveGrade counts a recorded grade by letter.
func (m *MetricsService) ObserveGrade(letter string) {
	if m == nil {
		return
	}
	m.gradeEntries.WithLabelValues(letter).Inc()
}
