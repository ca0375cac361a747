package middleware

import (
	"log/slog"
	"net/http"
	"time"
)

// Logging writes one access log line per request with method, path, status,
// and duration. Runs inside RequestID so the request_id lands on the record.
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rec, r)

		slog.InfoContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.statusCode,
			"durationMs", time.Since(start).Milliseconds(),
		)
	})
}
