// Package metrics holds the Prometheus collectors exported by the server.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// AttemptTransitions counts attempt lifecycle operations by outcome.
	AttemptTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attempt_transitions_total",
			Help: "Attempt lifecycle operations",
		},
		[]string{"operation", "outcome"},
	)

	// VersionDivergence counts chains whose graph walk and max(version)
	// lookup disagree.
	VersionDivergence = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "version_chain_divergence_total",
			Help: "Version chains whose current-node lookups disagree",
		},
		[]string{"kind"},
	)

	// IdentityCache counts identity cache lookups by result.
	IdentityCache = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "identity_cache_lookups_total",
			Help: "Identity cache lookups",
		},
		[]string{"result"},
	)

	// EventsFlushed counts content change events persisted by the worker.
	EventsFlushed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "content_events_flushed_total",
			Help: "Content change events written to the change log",
		},
	)
)

var registerOnce sync.Once

// Init registers every collector with the default registry. Safe to call more
// than once.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestCounter,
			RequestDuration,
			AttemptTransitions,
			VersionDivergence,
			IdentityCache,
			EventsFlushed,
		)
	})
}

// RegisterPool exports connection pool gauges read at scrape time.
func RegisterPool(stat func() *pgxpool.Stat) {
	gauge := func(name, help string, read func(*pgxpool.Stat) int32) prometheus.Collector {
		return prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{Name: name, Help: help},
			func() float64 { return float64(read(stat())) },
		)
	}
	prometheus.MustRegister(
		gauge("db_pool_acquired_conns", "Connections currently checked out", (*pgxpool.Stat).AcquiredConns),
		gauge("db_pool_idle_conns", "Idle connections", (*pgxpool.Stat).IdleConns),
		gauge("db_pool_total_conns", "Open connections", (*pgxpool.Stat).TotalConns),
	)
}

// Middleware records request count and latency per route.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		RequestCounter.WithLabelValues(c.Request.Method, path, strconv.Itoa(c.Writer.Status())).Inc()
		RequestDuration.WithLabelValues(c.Request.Method, path).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the default registry.
func Handler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
