// Package middleware provides HTTP middleware: token authentication,
// request IDs, and panic recovery.
package middleware

import (
	"net/http"

	"github.com/alcadeta/portfolio-goteam/pkg/auth"
	"github.com/alcadeta/portfolio-goteam/pkg/contextkeys"
	"github.com/alcadeta/portfolio-goteam/pkg/httputil"
	"github.com/alcadeta/portfolio-goteam/pkg/observability"
)

// Credential header names. These are fixed client contract: every
// protected request carries both.
const (
	HeaderAuthUser  = "Auth-User"
	HeaderAuthToken = "Auth-Token"
)

// Auth verifies the request's credential headers and attaches the
// resulting identity to the request context. Any verification failure
// ends the request with the canonical authentication-failure payload;
// handlers behind this middleware can assume an identity is present.
// metrics may be nil.
func Auth(verifier *auth.Verifier, metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := verifier.Verify(
				r.Context(),
				r.Header.Get(HeaderAuthUser),
				r.Header.Get(HeaderAuthToken),
			)
			if metrics != nil {
				result := "success"
				if err != nil {
					result = "failure"
				}
				metrics.AuthVerificationsTotal.WithLabelValues(result).Inc()
			}
			if err != nil {
				httputil.WriteError(w, "auth", err)
				return
			}
			next.ServeHTTP(w, r.WithContext(
				contextkeys.WithIdentity(r.Context(), identity),
			))
		})
	}
}
