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

// MetricsSnapshot is a JSON friendly summary of engine activity.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	ComputeRuns              uint64    `json:"compute_runs"`
	StudentsComputed         uint64    `json:"students_computed"`
	StudentsFailed           uint64    `json:"students_failed"`
	PromotionsDecided        uint64    `json:"promotions_decided"`
	LockContentions          uint64    `json:"lock_contentions"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	NotificationsDropped     uint64    `json:"notifications_dropped"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// MetricsService encapsulates Prometheus instrumentation and keeps
// lightweight counters for the JSON summary endpoint.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	computeDuration prometheus.Histogram
	computeRuns     *prometheus.CounterVec
	studentResults  *prometheus.CounterVec
	publishTotal    *prometheus.CounterVec
	promotions      *prometheus.CounterVec
	lockContention  *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	notifications   *prometheus.CounterVec

	requestCount         uint64
	requestDurationTotal uint64
	computeRunCount      uint64
	computedCount        uint64
	failedCount          uint64
	promotionCount       uint64
	contentionCount      uint64
	cacheHitCount        uint64
	cacheMissCount       uint64
	droppedCount         uint64
}

// NewMetricsService registers the engine's Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	m := &MetricsService{
		registry: registry,
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		computeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "results_compute_duration_seconds",
			Help:    "Duration of term result computations",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		computeRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "results_compute_runs_total",
			Help: "Term result computation runs by outcome",
		}, []string{"outcome"}),
		studentResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "results_students_total",
			Help: "Students processed by computation runs",
		}, []string{"outcome"}),
		publishTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "results_publish_total",
			Help: "Publish and unpublish actions",
		}, []string{"action"}),
		promotions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "promotions_decided_total",
			Help: "Promotion decisions written by status and source",
		}, []string{"status", "source"}),
		lockContention: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lock_contention_total",
			Help: "Requests rejected because a batch lock was held",
		}, []string{"resource"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_lookups_total",
			Help: "Result cache lookups by outcome",
		}, []string{"outcome"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_total",
			Help: "Notification events by type and outcome",
		}, []string{"type", "outcome"}),
	}

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(m.requestDuration, m.requestTotal, m.computeDuration, m.computeRuns, m.studentResults,
		m.publishTotal, m.promotions, m.lockContention, m.cacheLookups, m.notifications, goroutines)
	m.handler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m
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

// Registry exposes the underlying registry for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
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
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// ObserveCompute records a finished computation run.
func (m *MetricsService) ObserveCompute(computed, failed int, duration time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.computeRuns.WithLabelValues(outcome).Inc()
	atomic.AddUint64(&m.computeRunCount, 1)
	if err != nil {
		return
	}
	m.computeDuration.Observe(duration.Seconds())
	m.studentResults.WithLabelValues("computed").Add(float64(computed))
	m.studentResults.WithLabelValues("failed").Add(float64(failed))
	atomic.AddUint64(&m.computedCount, uint64(computed))
	atomic.AddUint64(&m.failedCount, uint64(failed))
}

// RecordPublish counts a publish or unpublish action.
func (m *MetricsService) RecordPublish(action string) {
	if m == nil {
		return
	}
	m.publishTotal.WithLabelValues(action).Inc()
}

// RecordPromotion counts a written promotion decision.
func (m *MetricsService) RecordPromotion(status, source string) {
	if m == nil {
		return
	}
	m.promotions.WithLabelValues(status, source).Inc()
	atomic.AddUint64(&m.promotionCount, 1)
}

// RecordLockContention counts a request turned away by a held lock.
func (m *MetricsService) RecordLockContention(resource string) {
	if m == nil {
		return
	}
	m.lockContention.WithLabelValues(resource).Inc()
	atomic.AddUint64(&m.contentionCount, 1)
}

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
	atomic.AddUint64(&m.cacheMissCount, 1)
}

// RecordNotification counts a notification by outcome. Dropped and abandoned
// events both count as lost.
func (m *MetricsService) RecordNotification(eventType, outcome string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(eventType, outcome).Inc()
	if outcome == "dropped" || outcome == "abandoned" {
		atomic.AddUint64(&m.droppedCount, 1)
	}
}

// Snapshot returns aggregated counters.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if hits+misses > 0 {
		cacheRatio = float64(hits) / float64(hits+misses)
	}
	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		ComputeRuns:              atomic.LoadUint64(&m.computeRunCount),
		StudentsComputed:         atomic.LoadUint64(&m.computedCount),
		StudentsFailed:           atomic.LoadUint64(&m.failedCount),
		PromotionsDecided:        atomic.LoadUint64(&m.promotionCount),
		LockContentions:          atomic.LoadUint64(&m.contentionCount),
		CacheHitRatio:            cacheRatio,
		NotificationsDropped:     atomic.LoadUint64(&m.droppedCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
