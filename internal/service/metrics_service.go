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

// MetricsService encapsulates Prometheus instrumentation for the HTTP layer and the scheduling engine.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	scheduleOutcomes  *prometheus.CounterVec
	resolutionActions *prometheus.CounterVec
	slotSearchLatency *prometheus.HistogramVec
	slotCandidates    prometheus.Histogram
	batchItems        *prometheus.CounterVec
	cacheLatency      prometheus.Observer
	cacheWrite        prometheus.Observer
	cacheHitRatio     prometheus.Gauge
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter

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

	scheduleOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_outcomes_total",
		Help: "Scheduling operations by operation and outcome status",
	}, []string{"operation", "status"})

	resolutionActions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "conflict_resolutions_total",
		Help: "Conflicting appointments by final resolution state",
	}, []string{"outcome"})

	slotSearchLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "slot_search_duration_seconds",
		Help:    "Latency of slot searches",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	slotCandidates := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "slot_search_candidates",
		Help:    "Grid candidates evaluated per slot search",
		Buckets: prometheus.ExponentialBuckets(8, 4, 8),
	})

	batchItems := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "batch_items_total",
		Help: "Batch update items by outcome",
	}, []string{"outcome"})

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

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, scheduleOutcomes, resolutionActions, slotSearchLatency,
		slotCandidates, batchItems, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		scheduleOutcomes:  scheduleOutcomes,
		resolutionActions: resolutionActions,
		slotSearchLatency: slotSearchLatency,
		slotCandidates:    slotCandidates,
		batchItems:        batchItems,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheHitRatio:     cacheHitRatio,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return m.handler
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
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
}

// RecordScheduleOutcome counts a schedule/reschedule call and the fate of its conflicts.
func (m *MetricsService) RecordScheduleOutcome(operation, status string, moved, cancelled, unresolved int) {
	if m == nil {
		return
	}
	m.scheduleOutcomes.WithLabelValues(operation, status).Inc()
	m.resolutionActions.WithLabelValues("moved").Add(float64(moved))
	m.resolutionActions.WithLabelValues("cancelled").Add(float64(cancelled))
	m.resolutionActions.WithLabelValues("unresolved").Add(float64(unresolved))
}

// ObserveSlotSearch records one slot search.
func (m *MetricsService) ObserveSlotSearch(result string, candidates int, duration time.Duration) {
	if m == nil {
		return
	}
	m.slotSearchLatency.WithLabelValues(result).Observe(duration.Seconds())
	m.slotCandidates.Observe(float64(candidates))
}

// RecordBatch counts batch items by outcome.
func (m *MetricsService) RecordBatch(updated, conflicts, failed int) {
	if m == nil {
		return
	}
	m.batchItems.WithLabelValues("updated").Add(float64(updated))
	m.batchItems.WithLabelValues("conflict").Add(float64(conflicts))
	m.batchItems.WithLabelValues("failed").Add(float64(failed))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}
