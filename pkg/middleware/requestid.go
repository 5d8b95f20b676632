package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/alcadeta/portfolio-goteam/pkg/contextkeys"
)

// RequestIDHeader carries the request ID on responses and, when a client
// or proxy already assigned one, on requests.
const RequestIDHeader = "X-Request-ID"

// RequestID assigns each request a UUID (honoring one supplied by the
// client) and echoes it on the response.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(
			contextkeys.WithRequestID(r.Context(), id),
		))
	})
}
