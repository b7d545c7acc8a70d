// Package metrics exposes Prometheus metrics for the reference backend.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the backend's metrics.
type Collector struct {
	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	runs     *prometheus.CounterVec
	logins   *prometheus.CounterVec
	sensei   *prometheus.CounterVec
}

// NewCollector creates a Collector registered with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hackdojo_http_requests_total",
			Help: "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "status"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "hackdojo_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hackdojo_code_runs_total",
			Help: "Code executions by outcome.",
		}, []string{"outcome"}),
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hackdojo_logins_total",
			Help: "Login attempts by result.",
		}, []string{"result"}),
		sensei: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hackdojo_sensei_questions_total",
			Help: "Sensei questions by answer source.",
		}, []string{"source"}),
	}
	reg.MustRegister(c.requests, c.latency, c.runs, c.logins, c.sensei)
	return c
}

// RecordRun counts one code execution.
func (c *Collector) RecordRun(outcome string) {
	c.runs.WithLabelValues(outcome).Inc()
}

// RecordLogin counts one login attempt.
func (c *Collector) RecordLogin(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.logins.WithLabelValues(result).Inc()
}

// RecordSenseiQuestion counts one question answered by source ("llm" or "hint").
func (c *Collector) RecordSenseiQuestion(source string) {
	c.sensei.WithLabelValues(source).Inc()
}

// Middleware records request count and latency labelled with the chi route
// pattern, so /lesson/3 and /lesson/4 share a series.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		c.latency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// Handler serves the metrics in gatherer for scraping.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
