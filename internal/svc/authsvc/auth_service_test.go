package authsvc_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/mkrupp/micropost/internal/domain"
	"github.com/mkrupp/micropost/internal/infra/logging"
	"github.com/mkrupp/micropost/internal/repo/user"
	"github.com/mkrupp/micropost/internal/svc/authsvc"
)

// mockUserRepository implements user.Repository for testing.
type mockUserRepository struct {
	users map[domain.ID]*domain.User
	err   error
	m     sync.Mutex
}

func newMockUserRepo() *mockUserRepository {
	return &mockUserRepository{
		users: make(map[domain.ID]*domain.User),
	}
}

func (m *mockUserRepository) setErr(err error) {
	m.m.Lock()
	defer m.m.Unlock()

	m.err = err
}

func (m *mockUserRepository) CreateUser(_ context.Context, user domain.User) error {
	m.m.Lock()
	defer m.m.Unlock()

	if m.err != nil {
		return m.err
	}

	for _, u := range m.users {
		if u.Username == user.Username {
			return domain.ErrUserAlreadyExists
		}
	}

	m.users[user.ID] = &user

	return nil
}

func (m *mockUserRepository) GetUserByID(_ context.Context, id domain.ID) (*domain.User, error) {
	m.m.Lock()
	defer m.m.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}

	clone := *u

	return &clone, nil
}

func (m *mockUserRepository) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	m.m.Lock()
	defer m.m.Unlock()

	if m.err != nil {
		return nil, m.err
	}

	for _, u := range m.users {
		if u.Username == username {
			clone := *u

			return &clone, nil
		}
	}

	return nil, domain.ErrUserNotFound
}

func (m *mockUserRepository) ListUsers(_ context.Context) ([]domain.User, error) {
	m.m.Lock()
	defer m.m.Unlock()

	users := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, *u)
	}

	return users, m.err
}

func (m *mockUserRepository) UpdateUserRole(_ context.Context, id domain.ID, role domain.Role) (*domain.User, error) {
	m.m.Lock()
	defer m.m.Unlock()

	u, ok := m.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}

	u.Role = role
	clone := *u

	return &clone, nil
}

func (m *mockUserRepository) DeleteUser(_ context.Context, id domain.ID) error {
	m.m.Lock()
	defer m.m.Unlock()

	if _, ok := m.users[id]; !ok {
		return domain.ErrUserNotFound
	}

	delete(m.users, id)

	return nil
}

func (m *mockUserRepository) Close() error {
	return nil
}

var ErrRepoError = errors.New("repository error")

const testSecret = "test-secret"

func setupTestService(t *testing.T) (*authsvc.AuthService, *mockUserRepository) {
	t.Helper()

	tokens, err := authsvc.NewTokenIssuer(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("failed to create token issuer: %v", err)
	}

	mockRepo := newMockUserRepo()
	svc := &authsvc.AuthService{
		Config:   authsvc.AuthConfig{BcryptCost: bcrypt.MinCost},
		UserRepo: mockRepo,
		Tokens:   tokens,
		Log:      logging.GetLogger("test.authsvc"),
		Now:      time.Now,
	}

	return svc, mockRepo
}

func TestNewAuthService_RequiresSecret(t *testing.T) {
	t.Parallel()

	factory := func(context.Context) (user.Repository, error) {
		return newMockUserRepo(), nil
	}

	if _, err := authsvc.NewAuthService(context.Background(), factory, authsvc.AuthConfig{}); !errors.Is(err, authsvc.ErrMissingSecret) {
		t.Errorf("want ErrMissingSecret, got %v", err)
	}

	svc, err := authsvc.NewAuthService(context.Background(), factory, authsvc.AuthConfig{TokenSecret: "s"})
	if err != nil {
		t.Fatalf("NewAuthService() error = %v", err)
	}

	if err := svc.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

//nolint:paralleltest
func TestAuthService_RegisterUser(t *testing.T) {
	svc, mockRepo := setupTestService(t)

	if _, _, err := svc.RegisterUser(context.Background(), "existinguser", "oldpass"); err != nil {
		t.Fatalf("failed to register existing user: %v", err)
	}

	tests := []struct {
		name     string
		username string
		password string
		repoErr  error
		wantErr  error
	}{
		{
			name:     "successful registration",
			username: "newuser",
			password: "password123",
		},
		{
			name:     "duplicate username",
			username: "existinguser",
			password: "password123",
			wantErr:  domain.ErrUserAlreadyExists,
		},
		{
			name:     "missing username",
			password: "password123",
			wantErr:  domain.ErrMissingCredentials,
		},
		{
			name:     "missing password",
			username: "someone",
			wantErr:  domain.ErrMissingCredentials,
		},
		{
			name:     "short password",
			username: "someone",
			password: "12345",
			wantErr:  domain.ErrPasswordTooShort,
		},
		{
			name:     "overlong password",
			username: "someone",
			password: strings.Repeat("x", domain.MaxPasswordBytes+1),
			wantErr:  domain.ErrPasswordTooLong,
		},
		{
			name:     "repository error",
			username: "erroruser",
			password: "password123",
			repoErr:  ErrRepoError,
			wantErr:  ErrRepoError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo.setErr(tt.repoErr)
			defer mockRepo.setErr(nil)

			identity, token, err := svc.RegisterUser(context.Background(), tt.username, tt.password)

			if (err != nil) != (tt.wantErr != nil) {
				t.Fatalf("RegisterUser() error = %v, wantErr %v", err, tt.wantErr)
			}

			if err != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("RegisterUser() error = %v, wantErr %v", err, tt.wantErr)
				}

				return
			}

			if identity.Username != tt.username || identity.Role != domain.RoleUser || identity.ID == "" {
				t.Errorf("RegisterUser() identity = %+v", identity)
			}

			resolved, err := svc.Resolve(context.Background(), "Bearer "+token)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}

			if resolved != identity {
				t.Errorf("Resolve() = %+v, want %+v", resolved, identity)
			}
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	t.Parallel()

	svc, _ := setupTestService(t)

	registered, _, err := svc.RegisterUser(context.Background(), "testuser", "testpass123")
	if err != nil {
		t.Fatalf("failed to register test user: %v", err)
	}

	tests := []struct {
		name     string
		username string
		password string
		repoErr  error
		wantErr  error
	}{
		{
			name:     "successful login",
			username: "testuser",
			password: "testpass123",
		},
		{
			name:     "wrong password",
			username: "testuser",
			password: "wrongpass",
			wantErr:  domain.ErrWrongPassword,
		},
		{
			name:     "user not found",
			username: "nonexistent",
			password: "anypass",
			wantErr:  domain.ErrUnknownUsername,
		},
		{
			name:     "missing password",
			username: "testuser",
			wantErr:  domain.ErrMissingCredentials,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			identity, token, err := svc.Login(context.Background(), tt.username, tt.password)

			if (err != nil) != (tt.wantErr != nil) {
				t.Fatalf("Login() error = %v, wantErr %v", err, tt.wantErr)
			}

			if err != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Login() error = %v, wantErr %v", err, tt.wantErr)
				}

				return
			}

			if identity != registered {
				t.Errorf("Login() identity = %+v, want %+v", identity, registered)
			}

			if _, err := svc.Tokens.Verify(token); err != nil {
				t.Errorf("Login() generated invalid token: %v", err)
			}
		})
	}

	t.Run("repository error", func(t *testing.T) {
		failing, repo := setupTestService(t)
		repo.setErr(ErrRepoError)

		if _, _, err := failing.Login(context.Background(), "testuser", "testpass123"); !errors.Is(err, ErrRepoError) {
			t.Errorf("Login() error = %v, want %v", err, ErrRepoError)
		}
	})
}

func TestAuthService_Resolve(t *testing.T) {
	t.Parallel()

	svc, mockRepo := setupTestService(t)
	ctx := context.Background()

	identity, token, err := svc.RegisterUser(ctx, "testuser", "testpass")
	if err != nil {
		t.Fatalf("failed to register test user: %v", err)
	}

	gone, goneToken, err := svc.RegisterUser(ctx, "goneuser", "testpass")
	if err != nil {
		t.Fatalf("failed to register test user: %v", err)
	}

	if err := mockRepo.DeleteUser(ctx, gone.ID); err != nil {
		t.Fatalf("failed to delete test user: %v", err)
	}

	expired, _, err := svc.Tokens.WithClock(func() time.Time {
		return time.Now().Add(-2 * time.Hour)
	}).Issue(identity.ID, identity.Role)
	if err != nil {
		t.Fatalf("failed to issue expired token: %v", err)
	}

	foreign, err := authsvc.NewTokenIssuer("other-secret", time.Hour)
	if err != nil {
		t.Fatalf("failed to create token issuer: %v", err)
	}

	forged, _, err := foreign.Issue(identity.ID, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("failed to issue forged token: %v", err)
	}

	tests := []struct {
		name    string
		header  string
		wantErr error
	}{
		{name: "valid token", header: "Bearer " + token},
		{name: "no header", header: "", wantErr: domain.ErrNoAuthToken},
		{name: "basic scheme", header: "Basic dXNlcjpwYXNz", wantErr: domain.ErrNoAuthToken},
		{name: "bare token", header: token, wantErr: domain.ErrNoAuthToken},
		{name: "empty bearer", header: "Bearer ", wantErr: domain.ErrNoAuthToken},
		{name: "garbage token", header: "Bearer invalid-token", wantErr: domain.ErrInvalidAuthToken},
		{name: "tampered token", header: "Bearer " + token[:len(token)-2] + "xx", wantErr: domain.ErrInvalidAuthToken},
		{name: "foreign secret", header: "Bearer " + forged, wantErr: domain.ErrInvalidAuthToken},
		{name: "expired token", header: "Bearer " + expired, wantErr: domain.ErrInvalidAuthToken},
		{name: "deleted user", header: "Bearer " + goneToken, wantErr: domain.ErrInvalidAuthToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := svc.Resolve(ctx, tt.header)

			if (err != nil) != (tt.wantErr != nil) {
				t.Fatalf("Resolve() error = %v, wantErr %v", err, tt.wantErr)
			}

			if err != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Resolve() error = %v, wantErr %v", err, tt.wantErr)
				}

				return
			}

			if got != identity {
				t.Errorf("Resolve() = %+v, want %+v", got, identity)
			}
		})
	}

	t.Run("idempotent", func(t *testing.T) {
		t.Parallel()

		first, err1 := svc.Resolve(ctx, "Bearer "+token)
		second, err2 := svc.Resolve(ctx, "Bearer "+token)

		if err1 != nil || err2 != nil || first != second {
			t.Errorf("Resolve() not idempotent: %+v (%v), %+v (%v)", first, err1, second, err2)
		}
	})
}

func TestAuthService_ResolveUsesStoredRole(t *testing.T) {
	t.Parallel()

	svc, mockRepo := setupTestService(t)
	ctx := context.Background()

	identity, token, err := svc.RegisterUser(ctx, "promoted", "testpass")
	if err != nil {
		t.Fatalf("failed to register test user: %v", err)
	}

	if _, err := mockRepo.UpdateUserRole(ctx, identity.ID, domain.RoleAdmin); err != nil {
		t.Fatalf("failed to promote: %v", err)
	}

	got, err := svc.Resolve(ctx, "Bearer "+token)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if got.Role != domain.RoleAdmin {
		t.Errorf("Resolve() role = %s, want admin", got.Role)
	}
}

func TestAuthService_EnsureAdmin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("disabled without credentials", func(t *testing.T) {
		t.Parallel()

		svc, mockRepo := setupTestService(t)

		if err := svc.EnsureAdmin(ctx); err != nil {
			t.Fatalf("EnsureAdmin() error = %v", err)
		}

		if len(mockRepo.users) != 0 {
			t.Errorf("EnsureAdmin() created %d users", len(mockRepo.users))
		}
	})

	t.Run("creates admin", func(t *testing.T) {
		t.Parallel()

		svc, _ := setupTestService(t)
		svc.Config.AdminUsername, svc.Config.AdminPassword = "root", "rootpass"

		if err := svc.EnsureAdmin(ctx); err != nil {
			t.Fatalf("EnsureAdmin() error = %v", err)
		}

		identity, _, err := svc.Login(ctx, "root", "rootpass")
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}

		if !identity.IsAdmin() {
			t.Errorf("bootstrap account role = %s", identity.Role)
		}

		if err := svc.EnsureAdmin(ctx); err != nil {
			t.Errorf("second EnsureAdmin() error = %v", err)
		}
	})

	t.Run("promotes existing user", func(t *testing.T) {
		t.Parallel()

		svc, _ := setupTestService(t)

		if _, _, err := svc.RegisterUser(ctx, "root", "userpass"); err != nil {
			t.Fatalf("RegisterUser() error = %v", err)
		}

		svc.Config.AdminUsername, svc.Config.AdminPassword = "root", "rootpass"

		if err := svc.EnsureAdmin(ctx); err != nil {
			t.Fatalf("EnsureAdmin() error = %v", err)
		}

		identity, _, err := svc.Login(ctx, "root", "userpass")
		if err != nil {
			t.Fatalf("Login() error = %v", err)
		}

		if !identity.IsAdmin() {
			t.Errorf("promoted account role = %s", identity.Role)
		}
	})
}
