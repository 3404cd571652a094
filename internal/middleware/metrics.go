package middleware

import (
	"net/http"
	"strings"
	"time"

	"token-price-service/internal/metrics"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// MetricsMiddleware records HTTP request metrics
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK, // default status code
		}

		next.ServeHTTP(wrapped, r)

		metrics.RecordHTTPRequest(
			r.Method,
			getEndpoint(r.URL.Path),
			wrapped.statusCode,
			time.Since(start),
		)
	})
}

// getEndpoint normalizes URL paths to avoid high cardinality in metrics
func getEndpoint(path string) string {
	switch {
	case path == "/api/v1/price",
		path == "/api/v1/backfill",
		path == "/api/v1/queries",
		path == "/api/v1/stats",
		path == "/health",
		path == "/metrics":
		return path
	case strings.HasPrefix(path, "/api/v1/jobs"):
		return "/api/v1/jobs"
	default:
		return "/unknown"
	}
}
