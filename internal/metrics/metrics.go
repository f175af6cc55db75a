package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mooover",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mooover",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mooover",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	stepsLogged = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mooover",
			Subsystem: "steps",
			Name:      "logged_total",
			Help:      "Total number of steps logged by users.",
		},
	)

	membershipChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mooover",
			Subsystem: "groups",
			Name:      "membership_changes_total",
			Help:      "Membership changes by kind.",
		},
		[]string{"change"},
	)

	resetRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mooover",
			Subsystem: "scheduler",
			Name:      "reset_runs_total",
			Help:      "Step counter resets by period and outcome.",
		},
		[]string{"period", "success"},
	)

	resetLastSuccess = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "mooover",
			Subsystem: "scheduler",
			Name:      "reset_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful reset per period.",
		},
		[]string{"period"},
	)

	resetDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "mooover",
			Subsystem: "scheduler",
			Name:      "reset_duration_seconds",
			Help:      "Duration of step counter resets.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"period"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		stepsLogged,
		membershipChanges,
		resetRuns,
		resetLastSuccess,
		resetDuration,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the router with HTTP metrics collection. Requests are labelled
// with the matched route template so path parameters do not blow up cardinality.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := routeTemplate(r)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// RecordStepsLogged counts steps added by users.
func RecordStepsLogged(steps int) {
	stepsLogged.Add(float64(steps))
}

// RecordMembershipChange counts joins, leaves, creations and deletions.
func RecordMembershipChange(change string) {
	membershipChanges.WithLabelValues(change).Inc()
}

// RecordReset records the outcome of a counter reset.
func RecordReset(period string, duration time.Duration, success bool) {
	resetRuns.WithLabelValues(period, strconv.FormatBool(success)).Inc()
	resetDuration.WithLabelValues(period).Observe(duration.Seconds())
	if success {
		resetLastSuccess.WithLabelValues(period).SetToCurrentTime()
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}
