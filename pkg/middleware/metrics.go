// Package middleware provides HTTP middleware for request IDs, Prometheus
// metrics, CORS, per-client rate limits and request timeouts.
package middleware

import (
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/search-engine/pkg/metrics"
)

// otherRoute labels every path not registered with Metrics.
const otherRoute = "other"

// Metrics counts requests per route and status and times them. Only the
// paths in routes get their own label; with no routes the raw path is used.
// A nil m disables recording.
func Metrics(m *metrics.Metrics, routes ...string) func(http.Handler) http.Handler {
	known := make(map[string]bool, len(routes))
	for _, p := range routes {
		known[p] = true
	}
	route := func(path string) string {
		if len(known) == 0 || known[path] {
			return path
		}
		return otherRoute
	}

	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			done := m.HTTPStarted(r.Method, route(r.URL.Path))
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)
			done(rec.code())
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	if rec.status == 0 {
		rec.status = code
	}
	rec.ResponseWriter.WriteHeader(code)
}

func (rec *statusRecorder) Write(b []byte) (int, error) {
	if rec.status == 0 {
		rec.status = http.StatusOK
	}
	return rec.ResponseWriter.Write(b)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

// code is the status sent, or 200 when the handler wrote nothing.
func (rec *statusRecorder) code() int {
	if rec.status == 0 {
		return http.StatusOK
	}
	return rec.status
}
