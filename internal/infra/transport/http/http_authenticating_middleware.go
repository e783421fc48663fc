package http

import (
	"errors"
	"net/http"

	"github.com/mkrupp/micropost/internal/domain"
	context_ "github.com/mkrupp/micropost/internal/infra/context"
	"github.com/mkrupp/micropost/internal/infra/logging"
	"github.com/mkrupp/micropost/internal/infra/metrics"
	"github.com/mkrupp/micropost/internal/svc/authsvc/authclient"
)

// AuthorizationHeader carries the bearer token.
const AuthorizationHeader = "Authorization"

// AuthenticatingMiddleware creates middleware that resolves the caller from the
// Authorization header. Every request takes exactly one path: it is rejected
// with 401 (no token, bad token), 500 (resolver failure), or passed on with the
// identity in its context.
func AuthenticatingMiddleware(
	next http.Handler,
	resolver authclient.IdentityResolver,
	m *metrics.Metrics,
	log logging.Logger,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := resolver.Resolve(r.Context(), r.Header.Get(AuthorizationHeader))

		switch {
		case err == nil:
			m.RecordAuth(metrics.AuthAuthenticated)
			next.ServeHTTP(w, r.WithContext(context_.WithIdentity(r.Context(), identity)))
		case errors.Is(err, domain.ErrNoAuthToken):
			m.RecordAuth(metrics.AuthNoToken)
			log.WarnContext(r.Context(), "no token provided")
			WriteError(w, err)
		case errors.Is(err, domain.ErrUnauthenticated):
			m.RecordAuth(metrics.AuthInvalidToken)
			log.WarnContext(r.Context(), "invalid token", "error", err)
			WriteError(w, err)
		default:
			m.RecordAuth(metrics.AuthError)
			log.ErrorContext(r.Context(), "resolve identity failed", "error", err)
			WriteError(w, err)
		}
	})
}

// AuthorizingMiddleware creates middleware that only lets identities holding
// one of the allowed roles through. It must be installed inside
// AuthenticatingMiddleware.
func AuthorizingMiddleware(
	next http.Handler,
	allowed domain.RoleSet,
	m *metrics.Metrics,
	log logging.Logger,
) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := domain.RequireRole(context_.IdentityFromContext(r.Context()), allowed); err != nil {
			m.RecordAuth(metrics.AuthForbidden)
			log.WarnContext(r.Context(), "role check failed", "allowed", allowed.String(), "error", err)
			WriteError(w, err)

			return
		}

		m.RecordAuth(metrics.AuthAllowed)
		next.ServeHTTP(w, r)
	})
}
