package authsvc

import (
	"context"
	"fmt"
	"net/http"

	"github.com/mkrupp/micropost/internal/domain"
	context_ "github.com/mkrupp/micropost/internal/infra/context"
	"github.com/mkrupp/micropost/internal/infra/logging"
	"github.com/mkrupp/micropost/internal/infra/metrics"
	http_ "github.com/mkrupp/micropost/internal/infra/transport/http"
)

// HTTPTransportConfig contains configuration parameters for the HTTP transport layer.
type HTTPTransportConfig struct {
	http_.HTTPTransportConfig
}

// CredentialsRequest is the body of registration and login requests.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HTTPTransport handles HTTP requests for the authentication service.
type HTTPTransport struct {
	authSvc *AuthService
	log     logging.Logger
	cfg     HTTPTransportConfig
	handler http.Handler
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport and sets up its routes:
// - POST /api/register: Register a new user and get an auth token
// - POST /api/login: Login and get an auth token
// - GET /api/profile: Identity of the caller (authenticated).
func NewHTTPTransport(authSvc *AuthService, cfg HTTPTransportConfig, m *metrics.Metrics) *HTTPTransport {
	ht := &HTTPTransport{
		authSvc: authSvc,
		log:     logging.GetLogger("svc.authsvc.http_transport"),
		cfg:     cfg,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/register", ht.HandleRegister)
	mux.HandleFunc("POST /api/login", ht.HandleLogin)
	mux.Handle("GET /api/profile",
		http_.AuthenticatingMiddleware(http.HandlerFunc(ht.HandleProfile), authSvc, m, ht.log))

	ht.handler = mux

	return ht
}

// ServeHTTP implements http.Handler.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.handler.ServeHTTP(w, r)
}

func (ht *HTTPTransport) decodeCredentials(w http.ResponseWriter, r *http.Request) (CredentialsRequest, error) {
	var req CredentialsRequest

	if err := http_.DecodeJSON(w, r, ht.cfg.MaxBodyBytes, &req); err != nil {
		return req, fmt.Errorf("decode request: %w", err)
	}

	return req, nil
}

// HandleRegister processes user registration requests.
// Expects a JSON body with username and password.
func (ht *HTTPTransport) HandleRegister(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleRegister(w, r)
}

func (ht *HTTPTransport) handleRegister(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.Log(ctx, http_.ErrorLevel(err), "user register failed", "error", err)
		} else {
			log.DebugContext(ctx, "user registered")
		}
	}(r.Context())

	req, err := ht.decodeCredentials(w, r)
	if err != nil {
		return http_.Fail(w, err)
	}

	log = log.With(logging.Group("user", "username", req.Username))

	identity, token, err := ht.authSvc.RegisterUser(r.Context(), req.Username, req.Password)
	if err != nil {
		return http_.Fail(w, fmt.Errorf("register user: %w", err))
	}

	return http_.WriteJSON(w, http.StatusCreated, domain.AuthResponse{
		Message: "user registered successfully",
		User:    identity,
		Token:   token,
	})
}

// HandleLogin processes user login requests.
// Expects a JSON body with username and password.
// Returns an auth token on successful login.
func (ht *HTTPTransport) HandleLogin(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleLogin(w, r)
}

func (ht *HTTPTransport) handleLogin(w http.ResponseWriter, r *http.Request) (err error) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	defer func(ctx context.Context) {
		if err != nil {
			log.Log(ctx, http_.ErrorLevel(err), "user login failed", "error", err)
		} else {
			log.DebugContext(ctx, "user logged in")
		}
	}(r.Context())

	req, err := ht.decodeCredentials(w, r)
	if err != nil {
		return http_.Fail(w, err)
	}

	log = log.With(logging.Group("user", "username", req.Username))

	identity, token, err := ht.authSvc.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		return http_.Fail(w, fmt.Errorf("login user: %w", err))
	}

	return http_.WriteJSON(w, http.StatusOK, domain.AuthResponse{
		Message: "login successful",
		User:    identity,
		Token:   token,
	})
}

// HandleProfile returns the identity the request was authenticated as.
func (ht *HTTPTransport) HandleProfile(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleProfile(w, r)
}

func (ht *HTTPTransport) handleProfile(w http.ResponseWriter, r *http.Request) (err error) {
	defer func(ctx context.Context) {
		if err != nil {
			ht.log.Log(ctx, http_.ErrorLevel(err), "profile failed", "error", err)
		}
	}(r.Context())

	identity, err := ht.authSvc.Profile(r.Context(), context_.IdentityFromContext(r.Context()))
	if err != nil {
		return http_.Fail(w, err)
	}

	return http_.WriteJSON(w, http.StatusOK, domain.UserResponse{
		Message: "profile retrieved successfully",
		User:    identity,
	})
}
