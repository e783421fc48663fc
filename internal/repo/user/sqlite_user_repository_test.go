package user_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mkrupp/micropost/internal/domain"
	"github.com/mkrupp/micropost/internal/repo/sqlite"

	. "github.com/mkrupp/micropost/internal/repo/user"
)

func setupSQLiteUserTestRepo(t *testing.T) *SQLiteUserRepository {
	t.Helper()

	repo, err := NewSQLiteUserRepository(context.TODO(), sqlite.Config{
		DatabasePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}

	t.Cleanup(func() { repo.Close() })

	return repo
}

func newTestUser(username string, role domain.Role) domain.User {
	return domain.User{
		ID:           domain.NewID(),
		Username:     username,
		PasswordHash: []byte("hash-" + username),
		Role:         role,
		CreatedAt:    time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestSQLiteUserRepository(t *testing.T) {
	t.Parallel()

	testRepository(t, setupSQLiteUserTestRepo(t))
}

// testRepository runs the shared contract against any Repository implementation.
//
//nolint:cyclop,funlen
func testRepository(t *testing.T, repo Repository) {
	t.Helper()

	ctx := context.TODO()
	alice := newTestUser("alice", domain.RoleUser)
	bob := newTestUser("bob", domain.RoleAdmin)

	for _, u := range []domain.User{alice, bob} {
		if err := repo.CreateUser(ctx, u); err != nil {
			t.Fatalf("create %s: %v", u.Username, err)
		}
	}

	t.Run("rejects duplicate username", func(t *testing.T) {
		dup := newTestUser("alice", domain.RoleUser)

		err := repo.CreateUser(ctx, dup)
		if !errors.Is(err, domain.ErrUserAlreadyExists) {
			t.Errorf("want ErrUserAlreadyExists, got %v", err)
		}
	})

	t.Run("gets by id", func(t *testing.T) {
		got, err := repo.GetUserByID(ctx, alice.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}

		if got.Username != "alice" || got.Role != domain.RoleUser || string(got.PasswordHash) != "hash-alice" {
			t.Errorf("unexpected user: %+v", got)
		}

		if !got.CreatedAt.Equal(alice.CreatedAt) {
			t.Errorf("created at: want %v, got %v", alice.CreatedAt, got.CreatedAt)
		}
	})

	t.Run("gets by username", func(t *testing.T) {
		got, err := repo.GetUserByUsername(ctx, "bob")
		if err != nil {
			t.Fatalf("get: %v", err)
		}

		if got.ID != bob.ID || got.Role != domain.RoleAdmin {
			t.Errorf("unexpected user: %+v", got)
		}
	})

	t.Run("reports missing user", func(t *testing.T) {
		if _, err := repo.GetUserByID(ctx, domain.NewID()); !errors.Is(err, domain.ErrUserNotFound) {
			t.Errorf("by id: want ErrUserNotFound, got %v", err)
		}

		if _, err := repo.GetUserByUsername(ctx, "carol"); !errors.Is(err, domain.ErrUserNotFound) {
			t.Errorf("by username: want ErrUserNotFound, got %v", err)
		}
	})

	t.Run("lists users", func(t *testing.T) {
		users, err := repo.ListUsers(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}

		if len(users) != 2 {
			t.Fatalf("want 2 users, got %d", len(users))
		}
	})

	t.Run("updates role", func(t *testing.T) {
		got, err := repo.UpdateUserRole(ctx, alice.ID, domain.RoleAdmin)
		if err != nil {
			t.Fatalf("update: %v", err)
		}

		if got.Role != domain.RoleAdmin || got.Username != "alice" {
			t.Errorf("unexpected user: %+v", got)
		}

		if _, err := repo.UpdateUserRole(ctx, domain.NewID(), domain.RoleAdmin); !errors.Is(err, domain.ErrUserNotFound) {
			t.Errorf("want ErrUserNotFound, got %v", err)
		}
	})

	t.Run("deletes user", func(t *testing.T) {
		if err := repo.DeleteUser(ctx, bob.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}

		if _, err := repo.GetUserByID(ctx, bob.ID); !errors.Is(err, domain.ErrUserNotFound) {
			t.Errorf("want ErrUserNotFound after delete, got %v", err)
		}

		if err := repo.DeleteUser(ctx, bob.ID); !errors.Is(err, domain.ErrUserNotFound) {
			t.Errorf("second delete: want ErrUserNotFound, got %v", err)
		}
	})
}
