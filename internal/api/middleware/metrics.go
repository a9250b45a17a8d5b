// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// streamingPaths hold a connection open for the life of the stream. They are
// counted as live clients instead of polluting the latency histogram.
var streamingPaths = map[string]bool{"/api/live.ts": true}

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tunewatch_http_request_duration_seconds",
		Help:    "Control API request latencies in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tunewatch_http_requests_in_flight",
		Help: "Current number of control API requests being served",
	})

	httpResponseSize = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tunewatch_http_response_size_bytes",
		Help:    "Control API response sizes in bytes",
		Buckets: prometheus.ExponentialBuckets(100, 10, 8),
	}, []string{"method", "route"})

	liveClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tunewatch_http_live_clients",
		Help: "Clients currently attached to the live stream relay",
	})

	liveBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tunewatch_http_live_bytes_total",
		Help: "Transport stream bytes relayed to live clients",
	})
)

// Metrics records Prometheus metrics per matched chi route.
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := wrapResponseWriter(w)

			if streamingPaths[r.URL.Path] {
				liveClients.Inc()
				defer func() {
					liveClients.Dec()
					liveBytes.Add(float64(rw.bytes))
				}()
				next.ServeHTTP(rw, r)
				return
			}

			start := time.Now()
			httpRequestsInFlight.Inc()
			defer httpRequestsInFlight.Dec()

			next.ServeHTTP(rw, r)

			// The route pattern keeps channel names out of label values.
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			httpRequestDuration.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Observe(time.Since(start).Seconds())
			if rw.bytes > 0 {
				httpResponseSize.WithLabelValues(r.Method, route).Observe(float64(rw.bytes))
			}
		})
	}
}
