package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	LoginCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cmms_login_total",
			Help: "Total number of login attempts",
		},
	)

	RegisterCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "cmms_register_total",
			Help: "Total number of user registrations",
		},
	)

	// Entity mutation counter
	MutationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cmms_entity_mutations_total",
			Help: "Total number of entity mutations",
		},
		[]string{"entity", "operation"}, // operation is "create", "update", "delete"
	)

	// CSV import row counter
	ImportRowCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cmms_import_rows_total",
			Help: "Total number of CSV import rows by outcome",
		},
		[]string{"importer", "outcome"}, // outcome is "valid" or "invalid"
	)

	// Bulk entry counter
	BulkEntryCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cmms_bulk_entry_total",
			Help: "Total number of bulk entry batches by outcome",
		},
		[]string{"outcome"}, // "committed" or "aborted"
	)

	// Notification email counter
	NotificationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cmms_notifications_total",
			Help: "Total number of notification emails by type and outcome",
		},
		[]string{"type", "outcome"}, // type is "low_stock" or "contract_reminder"
	)

	// Error counters
	AuthErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cmms_auth_errors_total",
			Help: "Total number of authentication errors",
		},
		[]string{"type"}, // "login_failure", "invalid_token", "db_error" etc.
	)

	CacheCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cmms_cache_total",
			Help: "Total number of list-cache lookups by outcome",
		},
		[]string{"outcome"}, // "hit" or "miss"
	)
)

// Histogram metrics
var (
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cmms_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	DBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cmms_db_operation_duration_seconds",
			Help:    "Duration of database operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation"}, // "query", "insert", "update", "delete"
	)
)

// Gauge metrics
var (
	ActiveTenantsGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cmms_active_tenants",
			Help: "Number of currently active tenants",
		},
	)

	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cmms_info",
			Help: "Information about the CMMS service",
		},
		[]string{"version"},
	)
)

func init() {
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(RegisterCounter)
	prometheus.MustRegister(MutationCounter)
	prometheus.MustRegister(ImportRowCounter)
	prometheus.MustRegister(BulkEntryCounter)
	prometheus.MustRegister(NotificationCounter)
	prometheus.MustRegister(AuthErrorCounter)
	prometheus.MustRegister(CacheCounter)

	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(DBOperationDuration)

	prometheus.MustRegister(ActiveTenantsGauge)
	prometheus.MustRegister(InfoGauge)

	InfoGauge.With(prometheus.Labels{"version": "1.0.0"}).Set(1)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// RecordAuthError increments the auth error counter for the given type
func RecordAuthError(errorType string) {
	AuthErrorCounter.WithLabelValues(errorType).Inc()
}

// RecordMutation increments the mutation counter for an entity operation
func RecordMutation(entity, operation string) {
	MutationCounter.WithLabelValues(entity, operation).Inc()
}

// TrackDBOperation measures database operation durations
func TrackDBOperation(operation string) func(time.Time) {
	startTime := time.Now()
	return func(endTime time.Time) {
		duration := time.Since(startTime).Seconds()
		DBOperationDuration.With(prometheus.Labels{
			"operation": operation,
		}).Observe(duration)
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			RequestDuration.With(prometheus.Labels{
				"endpoint": c.Path(),
				"method":   c.Request().Method,
				"status":   status,
			}).Observe(duration)

			return err
		}
	}
}
