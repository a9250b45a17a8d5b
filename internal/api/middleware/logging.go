// SPDX-License-Identifier: MIT

package middleware

import (
	"net/http"
	"time"

	"github.com/ManuGH/tunewatch/internal/log"
)

// Logging writes one structured line per request once the handler returns.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := wrapResponseWriter(w)
		next.ServeHTTP(rw, r)

		logger := log.WithComponentFromContext(r.Context(), "api")
		evt := logger.Info()
		if rw.status >= http.StatusInternalServerError {
			evt = logger.Error()
		} else if r.URL.Path == "/healthz" || r.URL.Path == "/metrics" {
			evt = logger.Debug()
		}
		if traceID, spanID := ExtractTraceContext(r); traceID != "" {
			evt = evt.Str("trace_id", traceID).Str("span_id", spanID)
		}
		evt.Str(log.FieldEvent, "http.request").
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.status).
			Int("bytes", rw.bytes).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	})
}
