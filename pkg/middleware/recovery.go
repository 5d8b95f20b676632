package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/alcadeta/portfolio-goteam/pkg/contextkeys"
	"github.com/alcadeta/portfolio-goteam/pkg/httputil"
)

// Recovery converts handler panics into 500 responses.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.Error("handler panic",
						"panic", err,
						"path", r.URL.Path,
						"request_id", contextkeys.GetRequestID(r.Context()),
						"stack", string(debug.Stack()),
					)
					httputil.WriteInternalError(w)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
