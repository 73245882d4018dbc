package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/pulsewatch/pulsewatch/internal/platform/response"
)

// RecoveryConfig holds recovery middleware configuration
type RecoveryConfig struct {
	Logger     Logger
	StackTrace bool
}

// Recovery creates panic recovery middleware. A recovered panic is logged
// with the request id and answered with a 500.
func Recovery(config *RecoveryConfig) func(http.Handler) http.Handler {
	if config == nil {
		config = &RecoveryConfig{StackTrace: true}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if config.Logger != nil {
						fields := []interface{}{
							"error", err,
							"request_id", GetRequestID(r.Context()),
							"method", r.Method,
							"path", r.URL.Path,
						}
						if config.StackTrace {
							fields = append(fields, "stack", string(debug.Stack()))
						}
						config.Logger.Error("panic recovered", fields...)
					}

					response.Internal(w, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
