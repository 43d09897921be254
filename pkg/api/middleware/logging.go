package middleware

import (
	"net/http"
	"time"

	"github.com/dd0wney/cluso-topology/pkg/logging"
)

// Logging logs each request with its status, latency and request ID, and
// stores a logger tagged with the request ID in the request context.
func Logging(logger logging.Logger) func(http.Handler) http.Handler {
	base := logging.OrDefault(logger)
	logger = base.With(logging.Component("http"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := wrap(w)
			if id := GetRequestID(r); id != "" {
				r = r.WithContext(logging.NewContext(r.Context(), base.With(logging.RequestID(id))))
			}
			next.ServeHTTP(rec, r)

			fields := []logging.Field{
				logging.String("method", r.Method),
				logging.String("path", r.URL.Path),
				logging.Int("status", rec.statusCode),
				logging.Latency(time.Since(start)),
			}
			if id := GetRequestID(r); id != "" {
				fields = append(fields, logging.RequestID(id))
			}

			if rec.statusCode >= http.StatusInternalServerError {
				logger.Warn("request failed", fields...)
				return
			}
			logger.Debug("request", fields...)
		})
	}
}
