package middleware

import (
	"net/http"
)

// DefaultMaxBodyBytes bounds request bodies. Topology content travels
// through the IO-Tool, never through request bodies.
const DefaultMaxBodyBytes = 1 << 20

// BodySizeLimit rejects bodies larger than maxBytes.
func BodySizeLimit(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
				return
			}

			// Chunked bodies have no Content-Length
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

			next.ServeHTTP(w, r)
		})
	}
}
