// Package context carries request scoped values: the request id echoed in
// X-Request-ID and the identity of the authenticated caller.
package context

import (
	"context"

	"github.com/mkrupp/micropost/internal/domain"
)

type (
	requestIDKey struct{}
	identityKey  struct{}
)

// RequestIDFromContext returns the id of the request being served, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)

	return id, ok && id != ""
}

// WithRequestID returns a context carrying the request id.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// IdentityFromContext returns the authenticated caller, or nil when the
// request was not authenticated.
func IdentityFromContext(ctx context.Context) *domain.Identity {
	identity, ok := ctx.Value(identityKey{}).(domain.Identity)
	if !ok {
		return nil
	}

	return &identity
}

// WithIdentity returns a context carrying the resolved identity.
func WithIdentity(ctx context.Context, identity domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}
