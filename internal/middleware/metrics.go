package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics returns a middleware recording request latency by method, route
// pattern and status. The histogram is registered on reg.
func HTTPMetrics(reg prometheus.Registerer) (func(http.Handler) http.Handler, error) {
	latency := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tally",
			Name:      "http_request_duration_seconds",
			Help:      "Latency of HTTP requests.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	if err := reg.Register(latency); err != nil {
		return nil, err
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := wrapResponseWriter(w)

			next.ServeHTTP(wrapped, r)

			latency.WithLabelValues(r.Method, RoutePattern(r), strconv.Itoa(wrapped.status)).
				Observe(time.Since(start).Seconds())
		})
	}, nil
}

// RoutePattern returns the matched chi route pattern, so ids in paths do not
// explode label cardinality. Unmatched requests report "unmatched".
func RoutePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}
