package post_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mkrupp/micropost/internal/domain"
	"github.com/mkrupp/micropost/internal/repo/sqlite"

	. "github.com/mkrupp/micropost/internal/repo/post"
)

func setupSQLitePostTestRepo(t *testing.T) *SQLitePostRepository {
	t.Helper()

	repo, err := NewSQLitePostRepository(context.TODO(), sqlite.Config{
		DatabasePath: filepath.Join(t.TempDir(), "test.db"),
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}

	t.Cleanup(func() { repo.Close() })

	return repo
}

func TestSQLitePostRepository(t *testing.T) {
	t.Parallel()

	testRepository(t, setupSQLitePostTestRepo(t))
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// testRepository runs the shared contract against any Repository implementation.
//
//nolint:cyclop,funlen,gocognit
func testRepository(t *testing.T, repo Repository) {
	t.Helper()

	ctx := context.TODO()
	alice, bob := domain.NewID(), domain.NewID()

	first := domain.Post{ID: domain.NewID(), AuthorID: alice, Content: "first", CreatedAt: now(), UpdatedAt: now()}
	second := domain.Post{ID: domain.NewID(), AuthorID: bob, Content: "second", CreatedAt: now(), UpdatedAt: now()}

	for _, p := range []domain.Post{first, second} {
		if err := repo.CreatePost(ctx, p); err != nil {
			t.Fatalf("create %s: %v", p.Content, err)
		}
	}

	t.Run("lists newest first", func(t *testing.T) {
		posts, err := repo.ListPosts(ctx)
		if err != nil {
			t.Fatalf("list: %v", err)
		}

		if len(posts) != 2 || posts[0].ID != second.ID || posts[1].ID != first.ID {
			t.Fatalf("unexpected order: %+v", posts)
		}

		for _, p := range posts {
			if p.Comments == nil || len(p.Comments) != 0 {
				t.Errorf("want empty comments on %s, got %v", p.Content, p.Comments)
			}
		}
	})

	t.Run("gets post", func(t *testing.T) {
		got, err := repo.GetPost(ctx, first.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}

		if got.AuthorID != alice || got.Content != "first" || !got.CreatedAt.Equal(first.CreatedAt) {
			t.Errorf("unexpected post: %+v", got)
		}

		if _, err := repo.GetPost(ctx, domain.NewID()); !errors.Is(err, domain.ErrPostNotFound) {
			t.Errorf("want ErrPostNotFound, got %v", err)
		}
	})

	t.Run("updates content", func(t *testing.T) {
		later := now().Add(time.Minute)

		if err := repo.UpdatePostContent(ctx, first.ID, "edited", later); err != nil {
			t.Fatalf("update: %v", err)
		}

		got, err := repo.GetPost(ctx, first.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}

		if got.Content != "edited" || !got.UpdatedAt.Equal(later) || !got.CreatedAt.Equal(first.CreatedAt) {
			t.Errorf("unexpected post: %+v", got)
		}

		if err := repo.UpdatePostContent(ctx, domain.NewID(), "x", later); !errors.Is(err, domain.ErrPostNotFound) {
			t.Errorf("want ErrPostNotFound, got %v", err)
		}
	})

	c1 := domain.Comment{ID: domain.NewID(), AuthorID: bob, Text: "nice", CreatedAt: now()}
	c2 := domain.Comment{ID: domain.NewID(), AuthorID: alice, Text: "thanks", CreatedAt: now()}

	t.Run("adds comments most recent first", func(t *testing.T) {
		for _, c := range []domain.Comment{c1, c2} {
			if err := repo.AddComment(ctx, first.ID, c); err != nil {
				t.Fatalf("add comment: %v", err)
			}
		}

		got, err := repo.GetPost(ctx, first.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}

		if len(got.Comments) != 2 || got.Comments[0].ID != c2.ID || got.Comments[1].ID != c1.ID {
			t.Fatalf("unexpected comments: %+v", got.Comments)
		}

		if got.Comments[1].AuthorID != bob || got.Comments[1].Text != "nice" {
			t.Errorf("unexpected comment: %+v", got.Comments[1])
		}

		other, err := repo.GetPost(ctx, second.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}

		if len(other.Comments) != 0 {
			t.Errorf("comments leaked to other post: %+v", other.Comments)
		}
	})

	t.Run("rejects comment on missing post", func(t *testing.T) {
		c := domain.Comment{ID: domain.NewID(), AuthorID: bob, Text: "?", CreatedAt: now()}

		if err := repo.AddComment(ctx, domain.NewID(), c); !errors.Is(err, domain.ErrPostNotFound) {
			t.Errorf("want ErrPostNotFound, got %v", err)
		}
	})

	t.Run("deletes comment", func(t *testing.T) {
		if err := repo.DeleteComment(ctx, second.ID, c1.ID); !errors.Is(err, domain.ErrCommentNotFound) {
			t.Errorf("wrong post: want ErrCommentNotFound, got %v", err)
		}

		if err := repo.DeleteComment(ctx, first.ID, c1.ID); err != nil {
			t.Fatalf("delete comment: %v", err)
		}

		got, err := repo.GetPost(ctx, first.ID)
		if err != nil {
			t.Fatalf("get: %v", err)
		}

		if len(got.Comments) != 1 || got.Comments[0].ID != c2.ID {
			t.Errorf("unexpected comments: %+v", got.Comments)
		}
	})

	t.Run("deletes post with comments", func(t *testing.T) {
		if err := repo.DeletePost(ctx, first.ID); err != nil {
			t.Fatalf("delete: %v", err)
		}

		if _, err := repo.GetPost(ctx, first.ID); !errors.Is(err, domain.ErrPostNotFound) {
			t.Errorf("want ErrPostNotFound, got %v", err)
		}

		if err := repo.DeleteComment(ctx, first.ID, c2.ID); !errors.Is(err, domain.ErrCommentNotFound) {
			t.Errorf("comment survived its post: %v", err)
		}

		if err := repo.DeletePost(ctx, first.ID); !errors.Is(err, domain.ErrPostNotFound) {
			t.Errorf("second delete: want ErrPostNotFound, got %v", err)
		}
	})
}
