package domain

import (
	"fmt"
	"time"
)

var (
	// ErrNoAuthToken is returned when an authentication token is required but not provided.
	ErrNoAuthToken = NewError(ErrUnauthenticated, "not authorized, no token")
	// ErrInvalidAuthToken is returned when a token's signature is invalid, it has expired
	// or its subject no longer exists.
	ErrInvalidAuthToken = NewError(ErrUnauthenticated, "not authorized, token failed or expired")
	// ErrNotAuthenticated is returned when an authorization decision is requested without an identity.
	ErrNotAuthenticated = NewError(ErrUnauthenticated, "not authorized, user not authenticated")
)

// AuthToken holds the verified claims of a bearer token.
type AuthToken struct {
	UserID    ID        // Subject
	Role      Role      // Role at issuance
	IssuedAt  time.Time // Creation
	ExpiresAt time.Time // End of validity
}

// NewForbiddenError builds the error reported when a role gate rejects an identity.
func NewForbiddenError(allowed RoleSet) *Error {
	return NewError(ErrForbidden, fmt.Sprintf("access denied, requires one of the roles: %s", allowed))
}

// AuthResponse is returned by registration and login.
type AuthResponse struct {
	Message string   `json:"message"`
	User    Identity `json:"user"`
	Token   string   `json:"token"`
}
