package user

import (
	"context"

	"github.com/mkrupp/micropost/internal/domain"
)

// Repository defines the interface for user data persistence. Every method
// is a single atomic statement; implementations rely on the store for
// concurrency control.
type Repository interface {
	// CreateUser adds a new user to the repository.
	// Returns domain.ErrUserAlreadyExists if the username is already taken.
	CreateUser(ctx context.Context, user domain.User) error

	// GetUserByID retrieves a user by ID.
	// Returns domain.ErrUserNotFound if there is no such user.
	GetUserByID(ctx context.Context, id domain.ID) (*domain.User, error)

	// GetUserByUsername retrieves a user by their username.
	// Returns domain.ErrUserNotFound if there is no such user.
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)

	// ListUsers returns all users in creation order.
	ListUsers(ctx context.Context) ([]domain.User, error)

	// UpdateUserRole sets the role of a user and returns the updated record.
	// Returns domain.ErrUserNotFound if there is no such user.
	UpdateUserRole(ctx context.Context, id domain.ID, role domain.Role) (*domain.User, error)

	// DeleteUser removes a user.
	// Returns domain.ErrUserNotFound if there is no such user.
	DeleteUser(ctx context.Context, id domain.ID) error

	// Close releases any resources held by the repository.
	// Returns an error if cleanup fails.
	Close() error
}

// RepositoryFactory is a function that creates a new Repository instance.
// Returns an error if initialization fails.
type RepositoryFactory func(ctx context.Context) (Repository, error)
