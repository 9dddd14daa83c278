// Package metrics provides Prometheus metrics for cloud sync activity and the
// bridge HTTP server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder owns its registry so several can coexist in one process (tests).
type Recorder struct {
	registry *prometheus.Registry

	syncsTotal    *prometheus.CounterVec
	syncDuration  *prometheus.HistogramVec
	syncsInFlight prometheus.Gauge

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		syncsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reelmark_syncs_total",
				Help: "Sync requests by action and outcome",
			},
			[]string{"action", "outcome"},
		),
		syncDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reelmark_sync_duration_seconds",
				Help:    "Time from accepting a sync request to its result",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"action"},
		),
		syncsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "reelmark_syncs_in_flight",
				Help: "Sync requests currently running",
			},
		),
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reelmark_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reelmark_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}

	r.registry.MustRegister(
		r.syncsTotal,
		r.syncDuration,
		r.syncsInFlight,
		r.httpRequestsTotal,
		r.httpRequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) SyncStarted(action string) {
	r.syncsInFlight.Inc()
}

// SyncFinished is also called for rejected requests, which never started.
func (r *Recorder) SyncFinished(action, outcome string, elapsed time.Duration) {
	r.syncsTotal.WithLabelValues(action, outcome).Inc()
	if outcome == "rejected" {
		return
	}
	r.syncsInFlight.Dec()
	r.syncDuration.WithLabelValues(action).Observe(elapsed.Seconds())
}

// ObserveHTTP records one served request. path should be the route pattern,
// not the raw URL.
func (r *Recorder) ObserveHTTP(method, path string, status int, elapsed time.Duration) {
	r.httpRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(elapsed.Seconds())
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}
