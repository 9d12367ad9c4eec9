package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	globalCollector *Collector
	collectorMutex  sync.Mutex
)

// Collector holds all Prometheus metrics for the service.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Store metrics
	StoreOperations *prometheus.CounterVec
	StoreDuration   *prometheus.HistogramVec
	CircuitState    *prometheus.GaugeVec

	// Summarization metrics
	Summaries       *prometheus.CounterVec
	SummaryDuration prometheus.Histogram
	EventsPublished *prometheus.CounterVec
}

// NewCollector returns the process-wide collector, creating it on first use.
// Metrics live in their own registry so tests can build collectors freely.
func NewCollector(namespace string) *Collector {
	collectorMutex.Lock()
	defer collectorMutex.Unlock()

	if globalCollector != nil {
		return globalCollector
	}

	registry := prometheus.NewRegistry()

	httpRequests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	storeOperations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Note store operations by outcome",
		},
		[]string{"operation", "backend", "outcome"},
	)

	storeDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Note store operation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"operation", "backend"},
	)

	circuitState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "store_circuit_state",
			Help:      "Circuit breaker state per store (0 closed, 1 half-open, 2 open)",
		},
		[]string{"backend"},
	)

	summaries := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "summaries_total",
			Help:      "Summaries requested by outcome",
		},
		[]string{"outcome"},
	)

	summaryDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "summary_duration_seconds",
			Help:      "Time spent waiting for the summarization provider",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16},
		},
	)

	eventsPublished := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Note lifecycle events published by outcome",
		},
		[]string{"type", "outcome"},
	)

	registry.MustRegister(
		httpRequests,
		httpDuration,
		storeOperations,
		storeDuration,
		circuitState,
		summaries,
		summaryDuration,
		eventsPublished,
	)

	globalCollector = &Collector{
		registry:        registry,
		HTTPRequests:    httpRequests,
		HTTPDuration:    httpDuration,
		StoreOperations: storeOperations,
		StoreDuration:   storeDuration,
		CircuitState:    circuitState,
		Summaries:       summaries,
		SummaryDuration: summaryDuration,
		EventsPublished: eventsPublished,
	}

	return globalCollector
}

// ResetForTesting drops the global collector.
func ResetForTesting() {
	collectorMutex.Lock()
	defer collectorMutex.Unlock()
	globalCollector = nil
}

// ObserveStore records one store call.
func (c *Collector) ObserveStore(operation, backend string, err error, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.StoreOperations.WithLabelValues(operation, backend, Outcome(err)).Inc()
	c.StoreDuration.WithLabelValues(operation, backend).Observe(elapsed.Seconds())
}

// ObserveSummary records one summarization attempt.
func (c *Collector) ObserveSummary(err error, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.Summaries.WithLabelValues(Outcome(err)).Inc()
	c.SummaryDuration.Observe(elapsed.Seconds())
}

// ObserveEvent records one published event.
func (c *Collector) ObserveEvent(eventType string, err error) {
	if c == nil {
		return
	}
	c.EventsPublished.WithLabelValues(eventType, Outcome(err)).Inc()
}

// ObserveHTTP records one served request.
func (c *Collector) ObserveHTTP(method, route string, status int, elapsed time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

// Handler exposes the registry for scraping.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// GetRegistry returns the Prometheus registry for this collector.
func (c *Collector) GetRegistry() *prometheus.Registry {
	return c.registry
}

// Outcome labels an error for metrics.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
