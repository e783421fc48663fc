package authsvc

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mkrupp/micropost/internal/domain"
)

// ErrMissingSecret is returned when a TokenIssuer is created without a signing secret.
var ErrMissingSecret = errors.New("token signing secret is empty")

// DefaultTokenDuration is the validity window of issued tokens.
const DefaultTokenDuration = 30 * 24 * time.Hour

// Claims is the payload of a bearer token.
type Claims struct {
	UserID domain.ID   `json:"id"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer signs and verifies HS256 bearer tokens with a process-wide secret.
type TokenIssuer struct {
	secret   []byte
	validity time.Duration
	now      func() time.Time
}

// NewTokenIssuer creates a TokenIssuer. A non-positive validity selects
// DefaultTokenDuration.
func NewTokenIssuer(secret string, validity time.Duration) (*TokenIssuer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}

	if validity <= 0 {
		validity = DefaultTokenDuration
	}

	return &TokenIssuer{
		secret:   []byte(secret),
		validity: validity,
		now:      time.Now,
	}, nil
}

// WithClock returns a copy of the issuer that reads the time from now.
func (ti *TokenIssuer) WithClock(now func() time.Time) *TokenIssuer {
	clone := *ti
	clone.now = now

	return &clone
}

// Issue signs a token asserting userID and role, valid from now for the
// configured window.
func (ti *TokenIssuer) Issue(userID domain.ID, role domain.Role) (string, domain.AuthToken, error) {
	now := ti.now().UTC().Truncate(time.Second)
	token := domain.AuthToken{
		UserID:    userID,
		Role:      role,
		IssuedAt:  now,
		ExpiresAt: now.Add(ti.validity),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(token.IssuedAt),
			ExpiresAt: jwt.NewNumericDate(token.ExpiresAt),
		},
	}).SignedString(ti.secret)
	if err != nil {
		return "", domain.AuthToken{}, fmt.Errorf("sign token: %w", err)
	}

	return signed, token, nil
}

// Verify checks the signature and expiry of a token and returns its claims.
// Every failure is reported as domain.ErrInvalidAuthToken; the cause is
// joined for logging only.
func (ti *TokenIssuer) Verify(tokenString string) (domain.AuthToken, error) {
	var claims Claims

	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (any, error) { return ti.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(ti.now),
	)
	if err != nil {
		return domain.AuthToken{}, errors.Join(domain.ErrInvalidAuthToken, fmt.Errorf("parse token: %w", err))
	}

	userID, err := domain.ParseID(claims.UserID.String())
	if err != nil {
		return domain.AuthToken{}, errors.Join(domain.ErrInvalidAuthToken, fmt.Errorf("malformed subject %q", claims.UserID))
	}

	token := domain.AuthToken{UserID: userID, Role: claims.Role}
	if claims.IssuedAt != nil {
		token.IssuedAt = claims.IssuedAt.UTC()
	}

	if claims.ExpiresAt != nil {
		token.ExpiresAt = claims.ExpiresAt.UTC()
	}

	return token, nil
}
