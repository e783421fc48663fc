package authsvc_test

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/mkrupp/micropost/internal/domain"
	"github.com/mkrupp/micropost/internal/svc/authsvc"
)

func TestNewTokenIssuer(t *testing.T) {
	t.Parallel()

	if _, err := authsvc.NewTokenIssuer("", time.Hour); !errors.Is(err, authsvc.ErrMissingSecret) {
		t.Errorf("empty secret: want ErrMissingSecret, got %v", err)
	}

	ti, err := authsvc.NewTokenIssuer("secret", 0)
	if err != nil {
		t.Fatalf("NewTokenIssuer() error = %v", err)
	}

	_, claims, err := ti.Issue(domain.NewID(), domain.RoleUser)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if got := claims.ExpiresAt.Sub(claims.IssuedAt); got != authsvc.DefaultTokenDuration {
		t.Errorf("validity = %v, want %v", got, authsvc.DefaultTokenDuration)
	}
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ti, err := authsvc.NewTokenIssuer("secret", 30*24*time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer() error = %v", err)
	}

	ti = ti.WithClock(func() time.Time { return now })
	userID := domain.NewID()

	signed, issued, err := ti.Issue(userID, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	got, err := ti.Verify(signed)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}

	if got.UserID != userID || got.Role != domain.RoleAdmin || !got.IssuedAt.Equal(issued.IssuedAt) {
		t.Errorf("Verify() = %+v, want %+v", got, issued)
	}

	if !got.ExpiresAt.Equal(now.Add(30 * 24 * time.Hour)) {
		t.Errorf("ExpiresAt = %v", got.ExpiresAt)
	}

	again, _, err := ti.Issue(userID, domain.RoleAdmin)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if again != signed {
		t.Error("Issue() not deterministic for identical inputs and time")
	}

	// One second before and at expiry.
	if _, err := ti.WithClock(func() time.Time { return issued.ExpiresAt.Add(-time.Second) }).Verify(signed); err != nil {
		t.Errorf("Verify() before expiry error = %v", err)
	}

	if _, err := ti.WithClock(func() time.Time { return issued.ExpiresAt.Add(time.Second) }).Verify(signed); !errors.Is(err, domain.ErrInvalidAuthToken) {
		t.Errorf("Verify() after expiry: want ErrInvalidAuthToken, got %v", err)
	}
}

func TestTokenIssuer_RejectsForeignTokens(t *testing.T) {
	t.Parallel()

	ti, err := authsvc.NewTokenIssuer("secret", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer() error = %v", err)
	}

	userID := domain.NewID()
	exp := jwt.NewNumericDate(time.Now().Add(time.Hour))

	sign := func(method jwt.SigningMethod, key any, claims authsvc.Claims) string {
		t.Helper()

		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}

		return s
	}

	tests := []struct {
		name  string
		token string
	}{
		{
			name:  "none algorithm",
			token: sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, authsvc.Claims{UserID: userID, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp}}),
		},
		{
			name:  "hs512",
			token: sign(jwt.SigningMethodHS512, []byte("secret"), authsvc.Claims{UserID: userID, RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp}}),
		},
		{
			name:  "missing expiry",
			token: sign(jwt.SigningMethodHS256, []byte("secret"), authsvc.Claims{UserID: userID}),
		},
		{
			name:  "malformed subject",
			token: sign(jwt.SigningMethodHS256, []byte("secret"), authsvc.Claims{UserID: "../etc", RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: exp}}),
		},
		{
			name:  "not a jwt",
			token: "abc.def",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if _, err := ti.Verify(tt.token); !errors.Is(err, domain.ErrInvalidAuthToken) {
				t.Errorf("Verify() error = %v, want ErrInvalidAuthToken", err)
			}
		})
	}
}

func TestPassword(t *testing.T) {
	t.Parallel()

	hash, err := authsvc.HashPassword("secret1", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	other, err := authsvc.HashPassword("secret1", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("HashPassword() error = %v", err)
	}

	if string(hash) == string(other) {
		t.Error("HashPassword() is not salted")
	}

	tests := []struct {
		name     string
		password string
		hash     []byte
		want     bool
	}{
		{name: "match", password: "secret1", hash: hash, want: true},
		{name: "mismatch", password: "secret2", hash: hash},
		{name: "malformed hash", password: "secret1", hash: []byte("not-a-hash")},
		{name: "empty hash", password: "secret1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := authsvc.VerifyPassword(tt.password, tt.hash); got != tt.want {
				t.Errorf("VerifyPassword() = %v, want %v", got, tt.want)
			}
		})
	}
}
