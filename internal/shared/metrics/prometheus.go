package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)

	// Business metrics
	casesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cases_created_total",
			Help: "Total number of cases created",
		},
		[]string{"origin"},
	)

	statusTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_transitions_total",
			Help: "Total number of workflow status transitions",
		},
		[]string{"entity", "from_status", "to_status"},
	)

	invalidTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workflow_invalid_transitions_total",
			Help: "Total number of rejected status transitions",
		},
		[]string{"entity"},
	)

	documentsAttached = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "documents_attached_total",
			Help: "Total number of documents attached",
		},
		[]string{"parent_kind", "visibility"},
	)

	authorizationDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authorization_decisions_total",
			Help: "Total number of authorization decisions",
		},
		[]string{"resource_type", "action", "decision"},
	)

	notificationsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "notifications_emitted_total",
			Help: "Total number of notification records emitted",
		},
		[]string{"type"},
	)

	notificationFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notification_failures_total",
			Help: "Total number of notification writes that failed",
		},
	)
)

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware creates HTTP metrics middleware
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// normalizePath caps path cardinality for the metrics labels
func normalizePath(path string) string {
	if len(path) > 100 {
		return "/api/..."
	}
	return path
}

// --- Business metric helpers ---

// RecordCaseCreated records a case creation (origin: beneficiary or admin)
func RecordCaseCreated(origin string) {
	casesCreated.WithLabelValues(origin).Inc()
}

// RecordTransition records an accepted workflow transition
func RecordTransition(entity, fromStatus, toStatus string) {
	statusTransitions.WithLabelValues(entity, fromStatus, toStatus).Inc()
}

// RecordInvalidTransition records a rejected workflow transition
func RecordInvalidTransition(entity string) {
	invalidTransitions.WithLabelValues(entity).Inc()
}

// RecordDocumentAttached records a document attachment
func RecordDocumentAttached(parentKind string, isPublic bool) {
	visibility := "internal"
	if isPublic {
		visibility = "public"
	}
	documentsAttached.WithLabelValues(parentKind, visibility).Inc()
}

// RecordAuthorizationDecision records an authorization decision
func RecordAuthorizationDecision(resourceType, action string, allowed bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	authorizationDecisions.WithLabelValues(resourceType, action, decision).Inc()
}

// RecordNotification records an emitted notification
func RecordNotification(notifType string) {
	notificationsEmitted.WithLabelValues(notifType).Inc()
}

// RecordNotificationFailure records a swallowed notification write failure
func RecordNotificationFailure() {
	notificationFailures.Inc()
}
