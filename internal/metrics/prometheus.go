package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "valguard"

// PrometheusRecorder exports metrics through a Prometheus registry.
type PrometheusRecorder struct {
	debounceDecisions *prometheus.CounterVec
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	cacheCoalesced    prometheus.Counter
	cacheEvictions    *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	heapUsedMB        prometheus.Gauge
	cleanupRuns       prometheus.Counter
	cleanupReclaimed  *prometheus.CounterVec
	cleanupFailures   *prometheus.CounterVec
}

// NewPrometheus registers the validation layer collectors on reg.
func NewPrometheus(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)

	return &PrometheusRecorder{
		debounceDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "debounce_decisions_total",
			Help:      "Debouncer decisions by outcome.",
		}, []string{"outcome"}),
		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Validation cache hits.",
		}),
		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Validation cache misses that executed the wrapped operation.",
		}),
		cacheCoalesced: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_coalesced_total",
			Help:      "Callers that shared an in-flight computation.",
		}),
		cacheEvictions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_evictions_total",
			Help:      "Validation cache evictions by reason.",
		}, []string{"reason"}),
		operationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of tracked operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation", "success", "cached"}),
		heapUsedMB: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "memory_heap_used_megabytes",
			Help:      "Latest memory monitor reading.",
		}),
		cleanupRuns: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_runs_total",
			Help:      "Completed cleanup passes.",
		}),
		cleanupReclaimed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_reclaimed_total",
			Help:      "Entries reclaimed by cleanup step.",
		}, []string{"step"}),
		cleanupFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cleanup_failures_total",
			Help:      "Cleanup steps that failed.",
		}, []string{"step"}),
	}
}

// IncDebounceDecision counts a debouncer decision by outcome.
func (p *PrometheusRecorder) IncDebounceDecision(outcome string) {
	p.debounceDecisions.WithLabelValues(outcome).Inc()
}

// IncCacheHit increments cache hit counter.
func (p *PrometheusRecorder) IncCacheHit() { p.cacheHits.Inc() }

// IncCacheMiss increments cache miss counter.
func (p *PrometheusRecorder) IncCacheMiss() { p.cacheMisses.Inc() }

// IncCacheCoalesced increments the coalesced callers counter.
func (p *PrometheusRecorder) IncCacheCoalesced() { p.cacheCoalesced.Inc() }

// IncCacheEviction increments cache eviction counter.
func (p *PrometheusRecorder) IncCacheEviction(reason string) {
	p.cacheEvictions.WithLabelValues(reason).Inc()
}

// ObserveOperation records a completed tracked operation.
func (p *PrometheusRecorder) ObserveOperation(operation string, duration time.Duration, success, cached bool) {
	p.operationDuration.
		WithLabelValues(operation, strconv.FormatBool(success), strconv.FormatBool(cached)).
		Observe(duration.Seconds())
}

// SetHeapUsedMB stores the latest memory reading.
func (p *PrometheusRecorder) SetHeapUsedMB(mb float64) { p.heapUsedMB.Set(mb) }

// IncCleanupRun increments cleanup pass counter.
func (p *PrometheusRecorder) IncCleanupRun() { p.cleanupRuns.Inc() }

// AddCleanupReclaimed adds to the reclaimed entries counter.
func (p *PrometheusRecorder) AddCleanupReclaimed(step string, count int) {
	if count > 0 {
		p.cleanupReclaimed.WithLabelValues(step).Add(float64(count))
	}
}

// IncCleanupFailure increments cleanup step failure counter.
func (p *PrometheusRecorder) IncCleanupFailure(step string) {
	p.cleanupFailures.WithLabelValues(step).Inc()
}
