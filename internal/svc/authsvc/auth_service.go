package authsvc

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mkrupp/micropost/internal/domain"
	"github.com/mkrupp/micropost/internal/infra/logging"
	"github.com/mkrupp/micropost/internal/repo/user"
	"github.com/mkrupp/micropost/internal/svc/authsvc/authclient"
)

// BearerPrefix is the scheme prefix required in the Authorization header.
const BearerPrefix = "Bearer "

// AuthConfig contains configuration parameters for the authentication service.
type AuthConfig struct {
	// TokenSecret is the HMAC key tokens are signed with
	TokenSecret string `env:"TOKEN_SECRET" notEmpty:"true"`

	// TokenDuration is the validity window of issued tokens
	TokenDuration time.Duration `env:"TOKEN_DURATION" default:"720h"` // 30d

	// BcryptCost is the bcrypt work factor
	BcryptCost int `env:"BCRYPT_COST" default:"10"`

	// AdminUsername and AdminPassword, when both set, bootstrap an admin account at startup
	AdminUsername string `env:"ADMIN_USERNAME" default:""`
	AdminPassword string `env:"ADMIN_PASSWORD" default:""`
}

// AuthService provides registration, login and identity resolution.
type AuthService struct {
	Config   AuthConfig
	UserRepo user.Repository
	Tokens   *TokenIssuer
	Log      logging.Logger
	Now      func() time.Time
}

var _ authclient.IdentityResolver = (*AuthService)(nil)

// NewAuthService creates a new AuthService with the given user repository and configuration.
// Returns an error if the signing secret is empty or the user repository cannot be created.
func NewAuthService(ctx context.Context, repoFactory user.RepositoryFactory, cfg AuthConfig) (*AuthService, error) {
	tokens, err := NewTokenIssuer(cfg.TokenSecret, cfg.TokenDuration)
	if err != nil {
		return nil, fmt.Errorf("new token issuer: %w", err)
	}

	userRepo, err := repoFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("new user repo: %w", err)
	}

	return &AuthService{
		Config:   cfg,
		UserRepo: userRepo,
		Tokens:   tokens,
		Log:      logging.GetLogger("svc.authsvc.auth_service"),
		Now:      time.Now,
	}, nil
}

func validateCredentials(username, password string) error {
	switch {
	case username == "" || password == "":
		return domain.ErrMissingCredentials
	case len([]rune(password)) < domain.MinPasswordLength:
		return domain.ErrPasswordTooShort
	case len(password) > domain.MaxPasswordBytes:
		return domain.ErrPasswordTooLong
	}

	return nil
}

// RegisterUser creates a new account with role user and signs a token for it.
// Returns domain.ErrUserAlreadyExists if the username is taken.
func (s *AuthService) RegisterUser(
	ctx context.Context,
	username, password string,
) (_ domain.Identity, _ string, err error) {
	log := s.Log.With(logging.Group("user", "username", username))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "register user failed", "error", err)
		} else {
			log.DebugContext(ctx, "user registered")
		}
	}()

	if err := validateCredentials(username, password); err != nil {
		return domain.Identity{}, "", err
	}

	newUser, err := s.createUser(ctx, username, password, domain.RoleUser)
	if err != nil {
		return domain.Identity{}, "", err
	}

	token, _, err := s.Tokens.Issue(newUser.ID, newUser.Role)
	if err != nil {
		return domain.Identity{}, "", fmt.Errorf("issue token: %w", err)
	}

	return newUser.Identity(), token, nil
}

func (s *AuthService) createUser(ctx context.Context, username, password string, role domain.Role) (domain.User, error) {
	hash, err := HashPassword(password, s.Config.BcryptCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	newUser := domain.User{
		ID:           domain.NewID(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    s.Now().UTC().Truncate(time.Millisecond),
	}

	if err := s.UserRepo.CreateUser(ctx, newUser); err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	return newUser, nil
}

// Login checks the credentials and signs a token for the account.
// Unknown usernames and wrong passwords are reported distinctly, both as
// authentication failures.
func (s *AuthService) Login(ctx context.Context, username, password string) (_ domain.Identity, _ string, err error) {
	log := s.Log.With(logging.Group("user", "username", username))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "login failed", "error", err)
		} else {
			log.DebugContext(ctx, "login successful")
		}
	}()

	if username == "" || password == "" {
		return domain.Identity{}, "", domain.ErrMissingCredentials
	}

	found, err := s.UserRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.Identity{}, "", domain.ErrUnknownUsername
		}

		return domain.Identity{}, "", fmt.Errorf("get user: %w", err)
	}

	if !VerifyPassword(password, found.PasswordHash) {
		return domain.Identity{}, "", domain.ErrWrongPassword
	}

	token, claims, err := s.Tokens.Issue(found.ID, found.Role)
	if err != nil {
		return domain.Identity{}, "", fmt.Errorf("issue token: %w", err)
	}

	log.DebugContext(ctx, "token issued", logging.Group("token",
		"exp", claims.ExpiresAt.Format(time.RFC3339),
		"iat", claims.IssuedAt.Format(time.RFC3339),
	))

	return found.Identity(), token, nil
}

// Resolve implements authclient.IdentityResolver. The role of the returned
// identity is read from the stored account, not from the token.
func (s *AuthService) Resolve(ctx context.Context, authHeader string) (_ domain.Identity, err error) {
	log := s.Log

	defer func() {
		if err != nil {
			log.DebugContext(ctx, "resolve identity failed", "error", err)
		} else {
			log.DebugContext(ctx, "identity resolved")
		}
	}()

	tokenString, ok := strings.CutPrefix(authHeader, BearerPrefix)
	if !ok || strings.TrimSpace(tokenString) == "" {
		return domain.Identity{}, domain.ErrNoAuthToken
	}

	token, err := s.Tokens.Verify(strings.TrimSpace(tokenString))
	if err != nil {
		return domain.Identity{}, fmt.Errorf("verify token: %w", err)
	}

	log = log.With(logging.Group("token",
		"sub", token.UserID.String(),
		"exp", token.ExpiresAt.Format(time.RFC3339),
	))

	found, err := s.UserRepo.GetUserByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.Identity{}, errors.Join(domain.ErrInvalidAuthToken, fmt.Errorf("subject gone: %s", token.UserID))
		}

		return domain.Identity{}, fmt.Errorf("get user: %w", err)
	}

	return found.Identity(), nil
}

// Profile returns the identity of the caller.
func (s *AuthService) Profile(ctx context.Context, identity *domain.Identity) (domain.Identity, error) {
	if identity == nil {
		return domain.Identity{}, domain.ErrNotAuthenticated
	}

	return *identity, nil
}

// EnsureAdmin creates the configured bootstrap admin, or promotes the
// existing account of that name. It is a no-op unless both the admin
// username and password are configured.
func (s *AuthService) EnsureAdmin(ctx context.Context) (err error) {
	username, password := s.Config.AdminUsername, s.Config.AdminPassword
	if username == "" || password == "" {
		return nil
	}

	log := s.Log.With(logging.Group("user", "username", username))

	defer func() {
		if err != nil {
			log.ErrorContext(ctx, "ensure admin failed", "error", err)
		} else {
			log.InfoContext(ctx, "admin account ready")
		}
	}()

	if err := validateCredentials(username, password); err != nil {
		return fmt.Errorf("admin credentials: %w", err)
	}

	existing, err := s.UserRepo.GetUserByUsername(ctx, username)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("get user: %w", err)
	}

	if existing == nil {
		_, err := s.createUser(ctx, username, password, domain.RoleAdmin)

		return err
	}

	if existing.Role != domain.RoleAdmin {
		if _, err := s.UserRepo.UpdateUserRole(ctx, existing.ID, domain.RoleAdmin); err != nil {
			return fmt.Errorf("promote user: %w", err)
		}
	}

	return nil
}

// Close releases resources held by the service, such as database connections.
// Returns an error if cleanup fails.
func (s *AuthService) Close() error {
	if err := s.UserRepo.Close(); err != nil {
		return fmt.Errorf("close user repo: %w", err)
	}

	return nil
}
