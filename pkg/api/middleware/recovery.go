package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/dd0wney/cluso-topology/pkg/logging"
)

// PanicRecovery turns a handler panic into a 500. The stack is logged,
// never returned to the client.
func PanicRecovery(logger logging.Logger) func(http.Handler) http.Handler {
	logger = logging.OrDefault(logger).With(logging.Component("http"))
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}
					logger.Error("panic in HTTP handler",
						logging.String("method", r.Method),
						logging.String("path", r.URL.Path),
						logging.Any("panic", err),
						logging.String("stack", string(debug.Stack())),
						logging.RequestID(GetRequestID(r)),
					)
					http.Error(w, "Internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
