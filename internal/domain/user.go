package domain

import (
	"strings"
	"time"
)

var (
	// ErrUserAlreadyExists is returned when trying to create a user with an existing username.
	ErrUserAlreadyExists = NewError(ErrConflict, "username is already registered")
	// ErrUserNotFound is returned when looking up a non-existent user.
	ErrUserNotFound = NewError(ErrNotFound, "user not found")
	// ErrMissingCredentials is returned when username or password is empty.
	ErrMissingCredentials = NewError(ErrInvalidInput, "username and password are required")
	// ErrPasswordTooShort is returned when a password is below the minimum length.
	ErrPasswordTooShort = NewError(ErrInvalidInput, "password must be at least 6 characters")
	// ErrPasswordTooLong is returned when a password exceeds what the hash can absorb.
	ErrPasswordTooLong = NewError(ErrInvalidInput, "password must be at most 72 bytes")
	// ErrUnknownUsername is returned on login with a username nobody registered.
	ErrUnknownUsername = NewError(ErrUnauthenticated, "invalid credentials (user not found)")
	// ErrWrongPassword is returned on login with a mismatching password.
	ErrWrongPassword = NewError(ErrUnauthenticated, "invalid credentials (wrong password)")
	// ErrInvalidRole is returned for any role other than "user" or "admin".
	ErrInvalidRole = NewError(ErrInvalidInput, `invalid role, allowed roles are "user" or "admin"`)
	// ErrSelfDeletion is returned when an administrator tries to delete its own account.
	ErrSelfDeletion = NewError(ErrInvalidInput, "an administrator cannot delete itself")
)

const (
	// MinPasswordLength is the minimum number of characters in a password.
	MinPasswordLength = 6
	// MaxPasswordBytes is the bcrypt input limit.
	MaxPasswordBytes = 72
)

// Role is a coarse permission class.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole accepts exactly the known roles.
func ParseRole(s string) (Role, error) {
	switch role := Role(s); role {
	case RoleUser, RoleAdmin:
		return role, nil
	default:
		return "", ErrInvalidRole
	}
}

// RoleSet is the set of roles allowed to pass an authorization gate.
type RoleSet []Role

// Contains reports whether role is a member of the set.
func (rs RoleSet) Contains(role Role) bool {
	for _, r := range rs {
		if r == role {
			return true
		}
	}

	return false
}

func (rs RoleSet) String() string {
	names := make([]string, len(rs))
	for i, r := range rs {
		names[i] = string(r)
	}

	return strings.Join(names, ", ")
}

// User is a stored account. It is never serialized outward; use Identity.
type User struct {
	ID           ID        // Unique identifier
	Username     string    // Login username, immutable
	PasswordHash []byte    // bcrypt digest
	Role         Role      // Permission class
	CreatedAt    time.Time // Account creation
}

// Identity returns the user without its password hash.
func (u User) Identity() Identity {
	return Identity{ID: u.ID, Username: u.Username, Role: u.Role}
}

// Identity is the resolved, authenticated caller.
type Identity struct {
	ID       ID     `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// IsAdmin reports whether the identity holds the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// UserResponse carries a single user.
type UserResponse struct {
	Message string   `json:"message"`
	User    Identity `json:"user"`
}

// UsersResponse carries a list of users.
type UsersResponse struct {
	Message string     `json:"message"`
	Count   int        `json:"count"`
	Users   []Identity `json:"users"`
}
