// Package metrics exposes Prometheus collectors for the admin backend.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "admin_backend",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "admin_backend",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "admin_backend",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	auditEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "admin_backend",
			Subsystem: "audit",
			Name:      "events_total",
			Help:      "Total number of audit log entries recorded.",
		},
		[]string{"severity"},
	)

	emailSends = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "admin_backend",
			Subsystem: "email",
			Name:      "sends_total",
			Help:      "Total number of outbound email attempts.",
		},
		[]string{"kind", "outcome"},
	)

	campaignRuns = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "admin_backend",
			Subsystem: "campaigns",
			Name:      "run_duration_seconds",
			Help:      "Duration of campaign delivery runs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"status"},
	)

	rateLimited = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "admin_backend",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Total number of requests rejected by the rate limiter.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		auditEvents,
		emailSends,
		campaignRuns,
		rateLimited,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordAuditEvent counts one recorded audit entry.
func RecordAuditEvent(severity string) {
	if severity == "" {
		severity = "LOW"
	}
	auditEvents.WithLabelValues(severity).Inc()
}

// RecordEmailSend counts one outbound email attempt. Kind distinguishes
// campaign, reply and notification mail.
func RecordEmailSend(kind string, ok bool) {
	outcome := "failed"
	if ok {
		outcome = "sent"
	}
	emailSends.WithLabelValues(kind, outcome).Inc()
}

// RecordCampaignRun records one campaign delivery run.
func RecordCampaignRun(status string, duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	campaignRuns.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordRateLimited counts one request rejected by the rate limiter.
func RecordRateLimited() {
	rateLimited.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// canonicalPath collapses ids out of paths to bound label cardinality.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	// Routes live under /api/admin/v1/<group>/...; keep the group and the
	// first sub-resource, replacing anything id-shaped.
	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "admin" {
		parts = parts[3:]
	}
	if len(parts) == 0 {
		return "/"
	}
	out := []string{parts[0]}
	if len(parts) > 1 {
		next := parts[1]
		if looksLikeID(next) {
			next = ":id"
		}
		out = append(out, next)
	}
	return "/" + strings.Join(out, "/")
}

func looksLikeID(s string) bool {
	if len(s) >= 16 {
		return true
	}
	for _, r := range s {
		if r >= '0' && r <= '9' {
			return true
		}
	}
	return false
}
