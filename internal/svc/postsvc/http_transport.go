package postsvc

import (
	"context"
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
	PostIDParam    = "id"
	CommentIDParam = "commentId"
)

// HTTPTransportConfig contains configuration parameters for the HTTP transport layer.
type HTTPTransportConfig struct {
	http_.HTTPTransportConfig
}

// ContentRequest is the body of post create and edit requests.
type ContentRequest struct {
	Content string `json:"content"`
}

// CommentRequest is the body of comment requests.
type CommentRequest struct {
	Text string `json:"text"`
}

// HTTPTransport handles HTTP requests for the post service.
type HTTPTransport struct {
	postSvc *PostService
	log     logging.Logger
	cfg     HTTPTransportConfig
	handler http.Handler
}

var _ http_.HTTPTransport = (*HTTPTransport)(nil)

// NewHTTPTransport creates a new HTTPTransport and sets up its routes:
// - GET /api/posts: All posts, most recent first
// - GET /api/posts/{id}: Single post
// - POST /api/posts: Create post (authenticated)
// - PUT /api/posts/{id}: Edit post (author)
// - DELETE /api/posts/{id}: Delete post (author or admin)
// - POST /api/posts/{id}/comments: Add comment (authenticated)
// - DELETE /api/posts/{id}/comments/{commentId}: Delete comment (author or admin).
func NewHTTPTransport(
	postSvc *PostService,
	resolver authclient.IdentityResolver,
	cfg HTTPTransportConfig,
	m *metrics.Metrics,
) *HTTPTransport {
	ht := &HTTPTransport{
		postSvc: postSvc,
		log:     logging.GetLogger("svc.postsvc.http_transport"),
		cfg:     cfg,
	}

	authenticated := func(h http.HandlerFunc) http.Handler {
		return http_.AuthenticatingMiddleware(h, resolver, m, ht.log)
	}

	postPath := fmt.Sprintf("/api/posts/{%s}", PostIDParam)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/posts", ht.HandleList)
	mux.HandleFunc("GET "+postPath, ht.HandleGet)
	mux.Handle("POST /api/posts", authenticated(ht.HandleCreate))
	mux.Handle("PUT "+postPath, authenticated(ht.HandleUpdate))
	mux.Handle("DELETE "+postPath, authenticated(ht.HandleDelete))
	mux.Handle("POST "+postPath+"/comments", authenticated(ht.HandleAddComment))
	mux.Handle(fmt.Sprintf("DELETE %s/comments/{%s}", postPath, CommentIDParam), authenticated(ht.HandleDeleteComment))
	mux.HandleFunc("/", http_.NotFound)

	ht.handler = mux

	return ht
}

// ServeHTTP implements http.Handler.
func (ht *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ht.handler.ServeHTTP(w, r)
}

func (ht *HTTPTransport) requestLogger(r *http.Request) logging.Logger {
	return ht.log.With(logging.Group("http", "method", r.Method, "url", r.URL.String()))
}

func logResult(ctx context.Context, log logging.Logger, err error, failed, succeeded string) {
	if err != nil {
		log.Log(ctx, http_.ErrorLevel(err), failed, "error", err)
	} else {
		log.DebugContext(ctx, succeeded)
	}
}

// identity returns the caller set by the authenticating middleware.
func identity(r *http.Request) (domain.Identity, error) {
	id := context_.IdentityFromContext(r.Context())
	if id == nil {
		return domain.Identity{}, domain.ErrNotAuthenticated
	}

	return *id, nil
}

// HandleList returns all posts.
func (ht *HTTPTransport) HandleList(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleList(w, r)
}

func (ht *HTTPTransport) handleList(w http.ResponseWriter, r *http.Request) (err error) {
	defer func(ctx context.Context) {
		logResult(ctx, ht.requestLogger(r), err, "list posts failed", "posts listed")
	}(r.Context())

	posts, err := ht.postSvc.ListPosts(r.Context())
	if err != nil {
		return http_.Fail(w, fmt.Errorf("list posts: %w", err))
	}

	return http_.WriteJSON(w, http.StatusOK, domain.PostsResponse{
		Message: "posts retrieved successfully",
		Count:   len(posts),
		Posts:   posts,
	})
}

// HandleGet returns a single post.
func (ht *HTTPTransport) HandleGet(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleGet(w, r)
}

func (ht *HTTPTransport) handleGet(w http.ResponseWriter, r *http.Request) (err error) {
	defer func(ctx context.Context) {
		logResult(ctx, ht.requestLogger(r), err, "get post failed", "post retrieved")
	}(r.Context())

	found, err := ht.postSvc.GetPost(r.Context(), r.PathValue(PostIDParam))
	if err != nil {
		return http_.Fail(w, fmt.Errorf("get post: %w", err))
	}

	return http_.WriteJSON(w, http.StatusOK, domain.PostResponse{
		Message: "post retrieved successfully",
		Post:    *found,
	})
}

// HandleCreate publishes a post as the caller.
// Expects a JSON body with content.
func (ht *HTTPTransport) HandleCreate(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleCreate(w, r)
}

func (ht *HTTPTransport) handleCreate(w http.ResponseWriter, r *http.Request) (err error) {
	defer func(ctx context.Context) {
		logResult(ctx, ht.requestLogger(r), err, "create post failed", "post created")
	}(r.Context())

	caller, err := identity(r)
	if err != nil {
		return http_.Fail(w, err)
	}

	var req ContentRequest
	if err := http_.DecodeJSON(w, r, ht.cfg.MaxBodyBytes, &req); err != nil {
		return http_.Fail(w, err)
	}

	created, err := ht.postSvc.CreatePost(r.Context(), caller, req.Content)
	if err != nil {
		return http_.Fail(w, fmt.Errorf("create post: %w", err))
	}

	return http_.WriteJSON(w, http.StatusCreated, domain.PostResponse{
		Message: "post created successfully",
		Post:    *created,
	})
}

// HandleUpdate replaces the content of a post.
// Expects a JSON body with content.
func (ht *HTTPTransport) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleUpdate(w, r)
}

func (ht *HTTPTransport) handleUpdate(w http.ResponseWriter, r *http.Request) (err error) {
	defer func(ctx context.Context) {
		logResult(ctx, ht.requestLogger(r), err, "update post failed", "post updated")
	}(r.Context())

	caller, err := identity(r)
	if err != nil {
		return http_.Fail(w, err)
	}

	var req ContentRequest
	if err := http_.DecodeJSON(w, r, ht.cfg.MaxBodyBytes, &req); err != nil {
		return http_.Fail(w, err)
	}

	updated, err := ht.postSvc.UpdatePost(r.Context(), caller, r.PathValue(PostIDParam), req.Content)
	if err != nil {
		return http_.Fail(w, fmt.Errorf("update post: %w", err))
	}

	return http_.WriteJSON(w, http.StatusOK, domain.PostResponse{
		Message: "post edited successfully",
		Post:    *updated,
	})
}

// HandleDelete removes a post.
func (ht *HTTPTransport) HandleDelete(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleDelete(w, r)
}

func (ht *HTTPTransport) handleDelete(w http.ResponseWriter, r *http.Request) (err error) {
	defer func(ctx context.Context) {
		logResult(ctx, ht.requestLogger(r), err, "delete post failed", "post deleted")
	}(r.Context())

	caller, err := identity(r)
	if err != nil {
		return http_.Fail(w, err)
	}

	if err := ht.postSvc.DeletePost(r.Context(), caller, r.PathValue(PostIDParam)); err != nil {
		return http_.Fail(w, fmt.Errorf("delete post: %w", err))
	}

	return http_.WriteJSON(w, http.StatusOK, domain.MessageResponse{Message: "post deleted successfully"})
}

// HandleAddComment adds a comment by the caller to a post.
// Expects a JSON body with text.
func (ht *HTTPTransport) HandleAddComment(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleAddComment(w, r)
}

func (ht *HTTPTransport) handleAddComment(w http.ResponseWriter, r *http.Request) (err error) {
	defer func(ctx context.Context) {
		logResult(ctx, ht.requestLogger(r), err, "add comment failed", "comment added")
	}(r.Context())

	caller, err := identity(r)
	if err != nil {
		return http_.Fail(w, err)
	}

	var req CommentRequest
	if err := http_.DecodeJSON(w, r, ht.cfg.MaxBodyBytes, &req); err != nil {
		return http_.Fail(w, err)
	}

	updated, err := ht.postSvc.AddComment(r.Context(), caller, r.PathValue(PostIDParam), req.Text)
	if err != nil {
		return http_.Fail(w, fmt.Errorf("add comment: %w", err))
	}

	return http_.WriteJSON(w, http.StatusCreated, domain.PostResponse{
		Message: "comment added successfully",
		Post:    *updated,
	})
}

// HandleDeleteComment removes a comment from a post.
func (ht *HTTPTransport) HandleDeleteComment(w http.ResponseWriter, r *http.Request) {
	_ = ht.handleDeleteComment(w, r)
}

func (ht *HTTPTransport) handleDeleteComment(w http.ResponseWriter, r *http.Request) (err error) {
	defer func(ctx context.Context) {
		logResult(ctx, ht.requestLogger(r), err, "delete comment failed", "comment deleted")
	}(r.Context())

	caller, err := identity(r)
	if err != nil {
		return http_.Fail(w, err)
	}

	if err := ht.postSvc.DeleteComment(
		r.Context(), caller, r.PathValue(PostIDParam), r.PathValue(CommentIDParam),
	); err != nil {
		return http_.Fail(w, fmt.Errorf("delete comment: %w", err))
	}

	return http_.WriteJSON(w, http.StatusOK, domain.MessageResponse{Message: "comment deleted successfully"})
}
