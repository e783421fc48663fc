// Package postsvc implements posts and their comments.
package postsvc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mkrupp/micropost/internal/domain"
	"github.com/mkrupp/micropost/internal/infra/logging"
	"github.com/mkrupp/micropost/internal/repo/post"
	"github.com/mkrupp/micropost/internal/repo/user"
)

// PostService provides post and comment operations. Mutations take the
// identity of the caller and apply the ownership rules of domain.CanMutate.
type PostService struct {
	PostRepo post.Repository
	UserRepo user.Repository
	Log      logging.Logger
	Now      func() time.Time
}

// NewPostService creates a new PostService from the given repository factories.
func NewPostService(
	ctx context.Context,
	postRepoFactory post.RepositoryFactory,
	userRepoFactory user.RepositoryFactory,
) (*PostService, error) {
	postRepo, err := postRepoFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("new post repo: %w", err)
	}

	userRepo, err := userRepoFactory(ctx)
	if err != nil {
		postRepo.Close()

		return nil, fmt.Errorf("new user repo: %w", err)
	}

	return &PostService{
		PostRepo: postRepo,
		UserRepo: userRepo,
		Log:      logging.GetLogger("svc.postsvc.post_service"),
		Now:      time.Now,
	}, nil
}

func (s *PostService) now() time.Time {
	return s.Now().UTC().Truncate(time.Millisecond)
}

// populate resolves the authors of posts and their comments. Authors whose
// account no longer exists stay nil.
func (s *PostService) populate(ctx context.Context, posts ...*domain.Post) error {
	authors := make(map[domain.ID]*domain.Author)

	resolve := func(id domain.ID) (*domain.Author, error) {
		if author, ok := authors[id]; ok {
			return author, nil
		}

		found, err := s.UserRepo.GetUserByID(ctx, id)
		if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
			return nil, fmt.Errorf("get author: %w", err)
		}

		var author *domain.Author
		if found != nil {
			author = &domain.Author{ID: found.ID, Username: found.Username}
		}

		authors[id] = author

		return author, nil
	}

	for _, p := range posts {
		author, err := resolve(p.AuthorID)
		if err != nil {
			return err
		}

		p.Author = author

		for i := range p.Comments {
			if p.Comments[i].Author, err = resolve(p.Comments[i].AuthorID); err != nil {
				return err
			}
		}
	}

	return nil
}

func (s *PostService) getPost(ctx context.Context, postID domain.ID) (*domain.Post, error) {
	found, err := s.PostRepo.GetPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}

	if err := s.populate(ctx, found); err != nil {
		return nil, err
	}

	return found, nil
}

// ListPosts returns all posts, most recent first.
func (s *PostService) ListPosts(ctx context.Context) (_ []domain.Post, err error) {
	defer func() {
		if err != nil {
			s.Log.ErrorContext(ctx, "list posts failed", "error", err)
		}
	}()

	posts, err := s.PostRepo.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}

	ptrs := make([]*domain.Post, len(posts))
	for i := range posts {
		ptrs[i] = &posts[i]
	}

	if err := s.populate(ctx, ptrs...); err != nil {
		return nil, err
	}

	return posts, nil
}

// GetPost returns a single post.
func (s *PostService) GetPost(ctx context.Context, rawID string) (*domain.Post, error) {
	postID, err := domain.ParseID(rawID)
	if err != nil {
		return nil, err
	}

	return s.getPost(ctx, postID)
}

// CreatePost publishes content as identity.
func (s *PostService) CreatePost(ctx context.Context, identity domain.Identity, content string) (_ *domain.Post, err error) {
	log := s.Log.With(logging.Group("user", "id", identity.ID.String()))

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "create post failed", "error", err)
		} else {
			log.DebugContext(ctx, "post created")
		}
	}()

	content, err = domain.NormalizePostContent(content)
	if err != nil {
		return nil, err
	}

	now := s.now()
	newPost := domain.Post{
		ID:        domain.NewID(),
		AuthorID:  identity.ID,
		Content:   content,
		Comments:  []domain.Comment{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.PostRepo.CreatePost(ctx, newPost); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	if err := s.populate(ctx, &newPost); err != nil {
		return nil, err
	}

	return &newPost, nil
}

// UpdatePost replaces the content of a post. Only its author may do so.
func (s *PostService) UpdatePost(
	ctx context.Context,
	identity domain.Identity,
	rawID string,
	content string,
) (_ *domain.Post, err error) {
	log := s.Log.With(
		logging.Group("user", "id", identity.ID.String()),
		logging.Group("post", "id", rawID),
	)

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "update post failed", "error", err)
		} else {
			log.DebugContext(ctx, "post updated")
		}
	}()

	postID, err := domain.ParseID(rawID)
	if err != nil {
		return nil, err
	}

	content, err = domain.NormalizePostContent(content)
	if err != nil {
		return nil, err
	}

	found, err := s.PostRepo.GetPost(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}

	if !domain.CanMutate(identity, found, domain.ActionEdit) {
		return nil, domain.ErrNotPostAuthor
	}

	if err := s.PostRepo.UpdatePostContent(ctx, postID, content, s.now()); err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}

	return s.getPost(ctx, postID)
}

// DeletePost removes a post and its comments. Its author and admins may do so.
func (s *PostService) DeletePost(ctx context.Context, identity domain.Identity, rawID string) (err error) {
	log := s.Log.With(
		logging.Group("user", "id", identity.ID.String(), "role", string(identity.Role)),
		logging.Group("post", "id", rawID),
	)

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "delete post failed", "error", err)
		} else {
			log.InfoContext(ctx, "post deleted")
		}
	}()

	postID, err := domain.ParseID(rawID)
	if err != nil {
		return err
	}

	found, err := s.PostRepo.GetPost(ctx, postID)
	if err != nil {
		return fmt.Errorf("get post: %w", err)
	}

	if !domain.CanMutate(identity, found, domain.ActionDelete) {
		return domain.ErrNotPostAuthor
	}

	if err := s.PostRepo.DeletePost(ctx, postID); err != nil {
		return fmt.Errorf("delete post: %w", err)
	}

	return nil
}

// AddComment prepends a comment by identity to a post and returns the updated post.
func (s *PostService) AddComment(
	ctx context.Context,
	identity domain.Identity,
	rawPostID string,
	text string,
) (_ *domain.Post, err error) {
	log := s.Log.With(
		logging.Group("user", "id", identity.ID.String()),
		logging.Group("post", "id", rawPostID),
	)

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "add comment failed", "error", err)
		} else {
			log.DebugContext(ctx, "comment added")
		}
	}()

	text, err = domain.NormalizeCommentText(text)
	if err != nil {
		return nil, err
	}

	postID, err := domain.ParseID(rawPostID)
	if err != nil {
		return nil, err
	}

	comment := domain.Comment{
		ID:        domain.NewID(),
		AuthorID:  identity.ID,
		Text:      text,
		CreatedAt: s.now(),
	}

	if err := s.PostRepo.AddComment(ctx, postID, comment); err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}

	return s.getPost(ctx, postID)
}

// DeleteComment removes a comment from a post. Its author and admins may do so.
func (s *PostService) DeleteComment(
	ctx context.Context,
	identity domain.Identity,
	rawPostID, rawCommentID string,
) (err error) {
	log := s.Log.With(
		logging.Group("user", "id", identity.ID.String(), "role", string(identity.Role)),
		logging.Group("comment", "post", rawPostID, "id", rawCommentID),
	)

	defer func() {
		if err != nil {
			log.WarnContext(ctx, "delete comment failed", "error", err)
		} else {
			log.InfoContext(ctx, "comment deleted")
		}
	}()

	postID, err := domain.ParseID(rawPostID)
	if err != nil {
		return err
	}

	commentID, err := domain.ParseID(rawCommentID)
	if err != nil {
		return err
	}

	found, err := s.PostRepo.GetPost(ctx, postID)
	if err != nil {
		return fmt.Errorf("get post: %w", err)
	}

	comment, ok := found.Comment(commentID)
	if !ok {
		return domain.ErrCommentNotFound
	}

	if !domain.CanMutate(identity, comment, domain.ActionDelete) {
		return domain.ErrNotCommentAuthor
	}

	if err := s.PostRepo.DeleteComment(ctx, postID, commentID); err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}

	return nil
}

// Close releases the repositories.
func (s *PostService) Close() error {
	return errors.Join(s.PostRepo.Close(), s.UserRepo.Close())
}
