// Package contextkeys provides centralized context key definitions.
//
// All context keys used across the application are defined here. This
// prevents typos, documents dependencies, and makes key usage
// discoverable.
package contextkeys

import (
	"context"

	"github.com/alcadeta/portfolio-goteam/pkg/auth"
)

// Key is the type for context keys to prevent collisions.
type Key string

const (
	// IdentityKey contains the authenticated auth.Identity.
	// Set by: middleware.Auth
	// Required by: all protected API endpoints
	IdentityKey Key = "identity"

	// RequestIDKey contains the request ID string (UUID).
	// Set by: middleware.RequestID
	// Used by: logging, tracing
	RequestIDKey Key = "request_id"
)

// WithIdentity attaches the authenticated identity to the context.
func WithIdentity(ctx context.Context, identity auth.Identity) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}

// GetIdentity retrieves the authenticated identity from the context. The
// bool is false when no auth middleware ran for this request.
func GetIdentity(ctx context.Context) (auth.Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(auth.Identity)
	return identity, ok
}

// WithRequestID attaches the request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}
