package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var requestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "qrestapi_requests_total",
		Help: "HTTP requests by method, path, and status.",
	},
	[]string{"method", "path", "status"},
)

// ObserveRequest records one handled request.
func ObserveRequest(method, path string, status int) {
	requestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
}

// Handler exposes the prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
