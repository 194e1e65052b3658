// Package metrics exposes run, provider and cache counters for Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stockreport"

// Collector owns a private registry so tests and multiple binaries never
// collide on the global one. It satisfies provider.Observer,
// cache.Observer and report.Observer.
type Collector struct {
	reg *prometheus.Registry

	providerCalls *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
	pauses        prometheus.Counter
	runDuration   prometheus.Histogram
	runCalls      prometheus.Gauge
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
}

func New() *Collector {
	c := &Collector{
		reg: prometheus.NewRegistry(),
		providerCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "provider_calls_total",
			Help:      "Live provider calls by outcome.",
		}, []string{"provider", "outcome"}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Cache lookups by kind and result.",
		}, []string{"kind", "result"}),
		pauses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pauses_total",
			Help:      "Fixed pauses taken between live calls.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Report run wall time.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60},
		}),
		runCalls: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_calls",
			Help:      "Live calls made by the most recent run.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "API requests by route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "API request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	c.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.providerCalls, c.cacheLookups, c.pauses, c.runDuration, c.runCalls,
		c.httpRequests, c.httpDuration,
	)
	return c
}

func (c *Collector) ObserveFetch(providerName, outcome string) {
	c.providerCalls.WithLabelValues(providerName, outcome).Inc()
}

func (c *Collector) ObserveCache(kind, result string) {
	c.cacheLookups.WithLabelValues(kind, result).Inc()
}

func (c *Collector) ObservePause() { c.pauses.Inc() }

func (c *Collector) ObserveRun(d time.Duration, calls int) {
	c.runDuration.Observe(d.Seconds())
	c.runCalls.Set(float64(calls))
}

// ObserveHTTP records one API request. route is the matched pattern, not
// the raw path, to keep label cardinality bounded.
func (c *Collector) ObserveHTTP(method, route string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{Registry: c.reg})
}

// Registry exposes the underlying registry, for tests.
func (c *Collector) Registry() *prometheus.Registry { return c.reg }
