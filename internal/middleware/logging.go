package middleware

import (
	"net/http"

	"token-price-service/internal/logger"
)

// loggingResponseWriter wraps http.ResponseWriter to capture response data
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
	written    int64
}

func (rw *loggingResponseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *loggingResponseWriter) Write(data []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(data)
	rw.written += int64(n)
	return n, err
}

// LoggingMiddleware provides structured logging for HTTP requests
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Add request ID and start time to context
		ctx := logger.WithRequestID(r.Context())
		ctx = logger.WithStartTime(ctx)
		r = r.WithContext(ctx)

		logger.LogHTTPRequest(ctx, r.Method, r.URL.Path, r.UserAgent(), r.RemoteAddr)

		wrapped := &loggingResponseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK, // default status code
		}

		next.ServeHTTP(wrapped, r)

		logger.LogHTTPResponse(ctx, wrapped.statusCode, wrapped.written)
	})
}
