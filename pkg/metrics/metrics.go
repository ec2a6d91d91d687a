package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// HTTP metrics
	RequestDuration *prometheus.HistogramVec
	RequestsTotal   *prometheus.CounterVec

	// Envelope outcomes per operation and error type
	Outcomes *prometheus.CounterVec
	// Filter validation failures on list, by resource
	FilterRejections *prometheus.CounterVec

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
	DatabaseLatency    *prometheus.HistogramVec

	// Broker metrics
	EventsPublished *prometheus.CounterVec
}

// NewMetrics creates all application metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),

		Outcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "envelope_outcomes_total",
			Help:      "Responses by resource, operation and error type",
		}, []string{"resource", "operation", "error_type"}),
		FilterRejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "filter_rejections_total",
			Help:      "List requests whose filter parameters failed validation",
		}, []string{"resource"}),

		DatabaseOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
		DatabaseLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "database_operation_duration_seconds",
			Help:      "Duration of database operations",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}, []string{"operation"}),

		EventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Order events handed to the broker",
		}, []string{"event_type", "status"}),
	}
}

// ObserveDB records a single database operation.
func (m *Metrics) ObserveDB(operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.DatabaseOperations.WithLabelValues(operation, status).Inc()
	m.DatabaseLatency.WithLabelValues(operation).Observe(seconds)
}

// Outcome records the envelope produced for an operation. An empty
// errorType is recorded as "none".
func (m *Metrics) Outcome(resource, operation, errorType string) {
	if m == nil {
		return
	}
	if errorType == "" {
		errorType = "none"
	}
	m.Outcomes.WithLabelValues(resource, operation, errorType).Inc()
}

func (m *Metrics) FilterRejected(resource string) {
	if m == nil {
		return
	}
	m.FilterRejections.WithLabelValues(resource).Inc()
}

func (m *Metrics) EventPublished(eventType string, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.EventsPublished.WithLabelValues(eventType, status).Inc()
}
