package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the catalog scraper.
type Metrics struct {
	Registry          *prometheus.Registry
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   prometheus.Histogram
	ItemsKeptTotal    prometheus.Counter
	ItemsDroppedTotal prometheus.Counter
	RetriesTotal      prometheus.Counter
	ErrorsTotal       *prometheus.CounterVec
	JobsTotal         *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_requests_total",
			Help: "Total HTTP requests issued by the scraper.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "catalog_request_duration_seconds",
			Help:    "HTTP request latency for scraper requests.",
			Buckets: prometheus.DefBuckets,
		},
	)
	itemsKept := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_items_kept_total",
			Help: "Total number of detail records added to an export.",
		},
	)
	itemsDropped := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_items_dropped_total",
			Help: "Total number of detail pages missing required fields.",
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_retries_total",
			Help: "Total number of retry attempts.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_errors_total",
			Help: "Total number of fetch errors by type.",
		},
		[]string{"error_type"},
	)
	jobs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_jobs_total",
			Help: "Total number of completed jobs by outcome.",
		},
		[]string{"outcome"},
	)

	registry.MustRegister(requests, requestDuration, itemsKept, itemsDropped, retries, errorsTotal, jobs)

	return &Metrics{
		Registry:          registry,
		RequestsTotal:     requests,
		RequestDuration:   requestDuration,
		ItemsKeptTotal:    itemsKept,
		ItemsDroppedTotal: itemsDropped,
		RetriesTotal:      retries,
		ErrorsTotal:       errorsTotal,
		JobsTotal:         jobs,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncKept increments the kept items counter.
func (m *Metrics) IncKept() {
	if m == nil {
		return
	}
	m.ItemsKeptTotal.Inc()
}

// IncDropped increments the dropped items counter.
func (m *Metrics) IncDropped() {
	if m == nil {
		return
	}
	m.ItemsDroppedTotal.Inc()
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncJob increments the jobs counter for an outcome label.
func (m *Metrics) IncJob(outcome string) {
	if m == nil {
		return
	}
	m.JobsTotal.WithLabelValues(outcome).Inc()
}
