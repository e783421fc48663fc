package adminsvc

import (
	"fmt"
	"net/http"

	"github.com/mkrupp/micropost/internal/domain"
	context_ "github.com/mkrupp/micropost/internal/infra/context"
	"github.com/mkrupp/micropost/internal/infra/logging"
	"github.com/mkrupp/micropost/internal/infra/metrics"
	http_ "github.com/mkrupp/micropost/internal/infra/transport/http"
	"github.com/mkrupp/micropost/internal/svc/authsvc/authclient"
)

// URL path parameters.
const (
	IDParam        = "id"
	CommentIDParam = "commentId"
)

// HTTPTransportConfig contains configuration parameters for the HTTP transport layer.
type HTTPTransportConfig struct {
	http_.HTTPTransportConfig
}

// RoleRequest is the body of role update requests.
type RoleRequest struct {
	Role string `json:"role"`
}

// HTTPTransport handles HTTP requests for the admin service.
type HTTPTransport struct {
	adminSvc *AdminService
	log      logging.Logger
	cfg      HTTPTransportConfig
	handler  http.Handler
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport and sets up its routes, all of
// them behind authentication and the AllowedRoles gate:
// - GET /api/admin/dashboard
// - GET /api/admin/users
// - GET /api/admin/users/{id}
// - PUT /api/admin/users/{id}/role
// - DELETE /api/admin/users/{id}
// - DELETE /api/admin/posts/{id}
// - DELETE /api/admin/posts/{id}/comments/{commentId}.
func NewHTTPTransport(
	adminSvc *AdminService,
	resolver authclient.IdentityResolver,
	cfg HTTPTransportConfig,
	m *metrics.Metrics,
) *HTTPTransport {
	ht := &HTTPTransport{
		adminSvc: adminSvc,
		log:      logging.GetLogger("svc.adminsvc.http_transport"),
		cfg:      cfg,
	}

	userPath := fmt.Sprintf("/api/admin/users/{%s}", IDParam)
	postPath := fmt.Sprintf("/api/admin/posts/{%s}", IDParam)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/admin/dashboard", ht.HandleDashboard)
	mux.HandleFunc("GET /api/admin/users", ht.HandleListUsers)
	mux.HandleFunc("GET "+userPath, ht.HandleGetUser)
	mux.HandleFunc("PUT "+userPath+"/role", ht.HandleUpdateRole)
	mux.HandleFunc("DELETE "+userPath, ht.HandleDeleteUser)
	mux.HandleFunc("DELETE "+postPath, ht.HandleDeletePost)
	mux.HandleFunc(fmt.Sprintf("DELETE %s/comments/{%s}", postPath, CommentIDParam), ht.HandleDeleteComment)
	mux.HandleFunc("/", http_.NotFound)

	handler := http.Handler(mux)
	handler = http_.AuthorizingMiddleware(handler, AllowedRoles, m, ht.log)
	handler = http_.AuthenticatingMiddleware(handler, resolver, m, ht.log)

	ht.handler = handler

	return ht
}

// ServeHTTP implements http.Handler.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.handler.ServeHTTP(w, r)
}

// caller returns the identity checked by the middleware chain.
func caller(r *http.Request) (domain.Identity, error) {
	identity := context_.IdentityFromContext(r.Context())
	if identity == nil {
		return domain.Identity{}, domain.ErrNotAuthenticated
	}

	return *identity, nil
}

func (ht *HTTPTransport) logResult(r *http.Request, err error, failed, succeeded string) {
	log := ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))

	if err != nil {
		log.Log(r.Context(), http_.ErrorLevel(err), failed, "error", err)
	} else {
		log.DebugContext(r.Context(), succeeded)
	}
}

// HandleDashboard greets the administrator.
func (ht *HTTPTransport) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleDashboard(w, r)
}

func (ht *HTTPTransport) handleDashboard(w http.ResponseWriter, r *http.Request) (err error) {
	defer func() { ht.logResult(r, err, "dashboard failed", "dashboard served") }()

	admin, err := caller(r)
	if err != nil {
		return http_.Fail(w, err)
	}

	return http_.WriteJSON(w, http.StatusOK, domain.UserResponse{
		Message: fmt.Sprintf("welcome to the admin dashboard, %s!", admin.Username),
		User:    admin,
	})
}

// HandleListUsers returns every account.
func (ht *HTTPTransport) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleListUsers(w, r)
}

func (ht *HTTPTransport) handleListUsers(w http.ResponseWriter, r *http.Request) (err error) {
	defer func() { ht.logResult(r, err, "list users failed", "users listed") }()

	users, err := ht.adminSvc.ListUsers(r.Context())
	if err != nil {
		return http_.Fail(w, fmt.Errorf("list users: %w", err))
	}

	return http_.WriteJSON(w, http.StatusOK, domain.UsersResponse{
		Message: "users retrieved successfully",
		Count:   len(users),
		Users:   users,
	})
}

// HandleGetUser returns a single account.
func (ht *HTTPTransport) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleGetUser(w, r)
}

func (ht *HTTPTransport) handleGetUser(w http.ResponseWriter, r *http.Request) (err error) {
	defer func() { ht.logResult(r, err, "get user failed", "user retrieved") }()

	found, err := ht.adminSvc.GetUser(r.Context(), r.PathValue(IDParam))
	if err != nil {
		return http_.Fail(w, fmt.Errorf("get user: %w", err))
	}

	return http_.WriteJSON(w, http.StatusOK, domain.UserResponse{
		Message: "user retrieved successfully",
		User:    found,
	})
}

// HandleUpdateRole sets the role of an account.
// Expects a JSON body with role.
func (ht *HTTPTransport) HandleUpdateRole(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleUpdateRole(w, r)
}

func (ht *HTTPTransport) handleUpdateRole(w http.ResponseWriter, r *http.Request) (err error) {
	defer func() { ht.logResult(r, err, "update role failed", "role updated") }()

	admin, err := caller(r)
	if err != nil {
		return http_.Fail(w, err)
	}

	var req RoleRequest
	if err := http_.DecodeJSON(w, r, ht.cfg.MaxBodyBytes, &req); err != nil {
		return http_.Fail(w, err)
	}

	updated, err := ht.adminSvc.UpdateUserRole(r.Context(), admin, r.PathValue(IDParam), req.Role)
	if err != nil {
		return http_.Fail(w, fmt.Errorf("update role: %w", err))
	}

	return http_.WriteJSON(w, http.StatusOK, domain.UserResponse{
		Message: fmt.Sprintf("role of user %s updated to %s successfully", updated.Username, updated.Role),
		User:    updated,
	})
}

// HandleDeleteUser removes an account.
func (ht *HTTPTransport) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleDeleteUser(w, r)
}

func (ht *HTTPTransport) handleDeleteUser(w http.ResponseWriter, r *http.Request) (err error) {
	defer func() { ht.logResult(r, err, "delete user failed", "user deleted") }()

	admin, err := caller(r)
	if err != nil {
		return http_.Fail(w, err)
	}

	if err := ht.adminSvc.DeleteUser(r.Context(), admin, r.PathValue(IDParam)); err != nil {
		return http_.Fail(w, fmt.Errorf("delete user: %w", err))
	}

	return http_.WriteJSON(w, http.StatusOK, domain.MessageResponse{Message: "user deleted successfully"})
}

// HandleDeletePost removes any post.
func (ht *HTTPTransport) HandleDeletePost(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleDeletePost(w, r)
}

func (ht *HTTPTransport) handleDeletePost(w http.ResponseWriter, r *http.Request) (err error) {
	defer func() { ht.logResult(r, err, "delete post failed", "post deleted") }()

	admin, err := caller(r)
	if err != nil {
		return http_.Fail(w, err)
	}

	if err := ht.adminSvc.DeletePost(r.Context(), admin, r.PathValue(IDParam)); err != nil {
		return http_.Fail(w, fmt.Errorf("delete post: %w", err))
	}

	return http_.WriteJSON(w, http.StatusOK, domain.MessageResponse{
		Message: "post deleted by administrator successfully",
	})
}

// HandleDeleteComment removes any comment.
func (ht *HTTPTransport) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleDeleteComment(w, r)
}

func (ht *HTTPTransport) handleDeleteComment(w http.ResponseWriter, r *http.Request) (err error) {
	defer func() { ht.logResult(r, err, "delete comment failed", "comment deleted") }()

	admin, err := caller(r)
	if err != nil {
		return http_.Fail(w, err)
	}

	if err := ht.adminSvc.DeleteComment(
		r.Context(), admin, r.PathValue(IDParam), r.PathValue(CommentIDParam),
	); err != nil {
		return http_.Fail(w, fmt.Errorf("delete comment: %w", err))
	}

	return http_.WriteJSON(w, http.StatusOK, domain.MessageResponse{
		Message: "comment deleted by administrator successfully",
	})
}
