package authclient

import (
	"context"

	"github.com/mkrupp/micropost/internal/domain"
)

// IdentityResolver turns the Authorization header of a request into the
// authenticated caller.
type IdentityResolver interface {
	// Resolve returns the identity behind a "Bearer <token>" header value.
	// Fails with domain.ErrNoAuthToken if no bearer token is present and with
	// domain.ErrInvalidAuthToken if the token does not verify or its subject
	// no longer exists. Any other error is an internal failure.
	Resolve(ctx context.Context, authHeader string) (domain.Identity, error)
}

// IdentityResolverFunc adapts a function to IdentityResolver.
type IdentityResolverFunc func(ctx context.Context, authHeader string) (domain.Identity, error)

// Resolve implements IdentityResolver.
func (f IdentityResolverFunc) Resolve(ctx context.Context, authHeader string) (domain.Identity, error) {
	return f(ctx, authHeader)
}
