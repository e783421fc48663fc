package post

import (
	"context"
	"time"

	"github.com/mkrupp/micropost/internal/domain"
)

// Repository defines the interface for post and comment persistence.
// Authors are stored by ID only; resolving them to usernames is up to the caller.
type Repository interface {
	// CreatePost stores a new post without comments.
	CreatePost(ctx context.Context, post domain.Post) error

	// GetPost retrieves a post with its comments, most recent comment first.
	// Returns domain.ErrPostNotFound if there is no such post.
	GetPost(ctx context.Context, id domain.ID) (*domain.Post, error)

	// ListPosts returns all posts with their comments, most recent post first.
	ListPosts(ctx context.Context) ([]domain.Post, error)

	// UpdatePostContent replaces the content of a post.
	// Returns domain.ErrPostNotFound if there is no such post.
	UpdatePostContent(ctx context.Context, id domain.ID, content string, updatedAt time.Time) error

	// DeletePost removes a post together with its comments.
	// Returns domain.ErrPostNotFound if there is no such post.
	DeletePost(ctx context.Context, id domain.ID) error

	// AddComment attaches a comment to a post.
	// Returns domain.ErrPostNotFound if there is no such post.
	AddComment(ctx context.Context, postID domain.ID, comment domain.Comment) error

	// DeleteComment removes a comment from a post.
	// Returns domain.ErrCommentNotFound if the post holds no such comment.
	DeleteComment(ctx context.Context, postID, commentID domain.ID) error

	// Close releases any resources held by the repository.
	Close() error
}

// RepositoryFactory is a function that creates a new Repository instance.
// Returns an error if initialization fails.
type RepositoryFactory func(ctx context.Context) (Repository, error)

// attachComments distributes comments, already in display order, over their posts.
func attachComments(posts []domain.Post, comments map[domain.ID][]domain.Comment) {
	for i := range posts {
		if c, ok := comments[posts[i].ID]; ok {
			posts[i].Comments = c
		} else {
			posts[i].Comments = []domain.Comment{}
		}
	}
}
