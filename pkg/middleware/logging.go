// Package middleware provides the HTTP middleware chain of the monitoring API
package middleware

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

type contextKey string

// ContextRequestID is the context key carrying the request id
const ContextRequestID contextKey = "request_id"

// Logger is the logging interface the middleware depends on
type Logger interface {
	Debug(msg string, keysAndValues ...interface{})
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// responseWriter wraps http.ResponseWriter to capture status code and size
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	size       int
}

func newResponseWriter(w http.ResponseWriter) *responseWriter {
	return &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	size, err := rw.ResponseWriter.Write(b)
	rw.size += size
	return size, err
}

// LoggingConfig holds logging middleware configuration
type LoggingConfig struct {
	Logger    Logger
	SkipPaths []string
}

// Logging creates request logging middleware. Each request gets an
// X-Request-ID (kept when the client supplies one) and a structured log
// line whose level tracks the response status.
func Logging(config *LoggingConfig) func(http.Handler) http.Handler {
	skip := make(map[string]bool, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skip[path] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}
			w.Header().Set("X-Request-ID", requestID)
			r = r.WithContext(context.WithValue(r.Context(), ContextRequestID, requestID))

			rw := newResponseWriter(w)
			next.ServeHTTP(rw, r)

			if config.Logger == nil {
				return
			}

			fields := []interface{}{
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"size", rw.size,
				"remote_addr", r.RemoteAddr,
			}

			switch {
			case rw.statusCode >= 500:
				config.Logger.Error("HTTP request", fields...)
			case rw.statusCode >= 400:
				config.Logger.Info("HTTP request", fields...)
			default:
				config.Logger.Debug("HTTP request", fields...)
			}
		})
	}
}

// GetRequestID returns the request id stored in the context, if any
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(ContextRequestID).(string); ok {
		return id
	}
	return ""
}
