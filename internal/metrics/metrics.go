package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the prometheus collectors for the storefront. One
// instance per process, registered on its own registry so tests can
// create them freely.
type Metrics struct {
	registry *prometheus.Registry

	CartOperations *prometheus.CounterVec
	HTTPRequests   *prometheus.CounterVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		CartOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "cart_operations_total",
			Help: "Cart mutations by operation and result.",
		}, []string{"op", "result"}),
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "HTTP requests by method and status class.",
		}, []string{"method", "status"}),
	}
}

// ObserveCartOp records one cart mutation attempt.
func (m *Metrics) ObserveCartOp(op string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.CartOperations.WithLabelValues(op, result).Inc()
}

// Handler serves the scrape endpoint for this process's registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
