package feed

import (
	"net/http"

	"github.com/felixge/httpsnoop"

	"github.com/matzehuels/petrisync/pkg/observability"
)

// logRequests reports every request to the HTTP hooks and logs it at
// debug level. httpsnoop keeps the Hijacker of w intact, so websocket
// upgrades pass through.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, r.Host, r.URL.Path)

		m := httpsnoop.CaptureMetrics(next, w, r)

		hooks.OnResponse(r.Context(), r.Method, r.Host, r.URL.Path, m.Code, m.Duration)
		s.logger.Debug("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", m.Code,
			"bytes", m.Written,
			"dur", m.Duration,
		)
	})
}
