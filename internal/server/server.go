package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matheuscscp/integration-auth/internal/config"
	"github.com/matheuscscp/integration-auth/internal/logging"
)

// routeUnmatched labels requests no route pattern matched.
const routeUnmatched = "unmatched"

func newServer(conf *config.Config, api http.Handler,
	promRegisterer prometheus.Registerer, promGatherer prometheus.Gatherer) *http.Server {

	requestDurationSecs := prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name: "http_request_duration_seconds",
		Help: "Duration of HTTP requests in seconds by matched route",
	}, []string{"method", "route", "status"})
	promRegisterer.MustRegister(requestDurationSecs)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", healthy)
	mux.HandleFunc("GET /readyz", healthy)
	mux.Handle("GET /metrics", promhttp.HandlerFor(promGatherer, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	}))
	mux.Handle("/", api)

	return &http.Server{
		Addr:              conf.Server.Addr,
		ReadHeaderTimeout: 10 * time.Second,
		Handler:           instrument(mux, requestDurationSecs),
	}
}

func healthy(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// instrument attaches the request logger and observes the request duration.
// Requests are labeled with the route pattern set by the mux that served
// them, never with the raw path, which carries configuration ids.
func instrument(next http.Handler, requestDurationSecs *prometheus.SummaryVec) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w}
		r = logging.IntoRequest(r, logging.NewRequestLogger(r))

		next.ServeHTTP(sr, r)

		route := r.Pattern
		if route == "" {
			route = routeUnmatched
		}
		requestDurationSecs.
			WithLabelValues(r.Method, route, strconv.Itoa(sr.status())).
			Observe(time.Since(start).Seconds())
	})
}
