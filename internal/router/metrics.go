package router

import (
	"net/http"
	"strconv"
	"time"

	"CrudAPI/internal/handler"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the service.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	crudOperationsTotal *prometheus.CounterVec
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crudapi_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "status"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "crudapi_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method"},
		),
		crudOperationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "crudapi_operations_total",
				Help: "CRUD operations by resource, route and outcome",
			},
			[]string{"resource", "route", "outcome"},
		),
	}
}

func (m *Metrics) observeRequest(method string, status int, elapsed time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

// RecordOperation counts a finished CRUD operation. It fits the handler's
// OnSuccess and OnError hooks.
func (m *Metrics) RecordOperation(r *http.Request, err error) {
	resource, rt := "unknown", "none"
	if info, ok := handler.RouteFromContext(r.Context()); ok {
		resource, rt = info.Resource, string(info.Route.Type)
	}
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	m.crudOperationsTotal.WithLabelValues(resource, rt, outcome).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
