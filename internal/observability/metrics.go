package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder is the metrics surface used by the API client and caches.
type Recorder interface {
	RecordRequest(endpoint string, status int, elapsed time.Duration)
	RecordRetry(endpoint string)
	RecordCacheHit(cache string)
	RecordCacheMiss(cache string)
	RecordRedisError(operation string)
}

// Collector records client metrics against a Prometheus registry.
type Collector struct {
	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	retries     *prometheus.CounterVec
	cacheHits   *prometheus.CounterVec
	cacheMisses *prometheus.CounterVec
	redisErrors *prometheus.CounterVec
}

// NewCollector creates a Collector and registers its metrics on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toolbox_api_requests_total",
			Help: "API requests by endpoint and HTTP status (0 for transport failures)",
		}, []string{"endpoint", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "toolbox_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toolbox_api_retries_total",
			Help: "API request retries by endpoint",
		}, []string{"endpoint"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toolbox_cache_hits_total",
			Help: "Cache hits by cache name",
		}, []string{"cache"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toolbox_cache_misses_total",
			Help: "Cache misses by cache name",
		}, []string{"cache"}),
		redisErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "toolbox_redis_errors_total",
			Help: "Redis errors by operation type",
		}, []string{"operation"}),
	}

	reg.MustRegister(c.requests, c.latency, c.retries, c.cacheHits, c.cacheMisses, c.redisErrors)
	return c
}

// RecordRequest counts a request and observes its latency.
func (c *Collector) RecordRequest(endpoint string, status int, elapsed time.Duration) {
	c.requests.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	c.latency.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// RecordRetry counts a retry.
func (c *Collector) RecordRetry(endpoint string) {
	c.retries.WithLabelValues(endpoint).Inc()
}

// RecordCacheHit counts a cache hit.
func (c *Collector) RecordCacheHit(cache string) {
	c.cacheHits.WithLabelValues(cache).Inc()
}

// RecordCacheMiss counts a cache miss.
func (c *Collector) RecordCacheMiss(cache string) {
	c.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordRedisError counts a Redis failure.
func (c *Collector) RecordRedisError(operation string) {
	c.redisErrors.WithLabelValues(operation).Inc()
}

// NopRecorder discards every measurement.
type NopRecorder struct{}

func (NopRecorder) RecordRequest(string, int, time.Duration) {}
func (NopRecorder) RecordRetry(string)                       {}
func (NopRecorder) RecordCacheHit(string)                    {}
func (NopRecorder) RecordCacheMiss(string)                   {}
func (NopRecorder) RecordRedisError(string)                  {}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
