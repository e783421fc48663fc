package post

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/mkrupp/micropost/internal/domain"
	"github.com/mkrupp/micropost/internal/infra/logging"
	"github.com/mkrupp/micropost/internal/repo/sqlite"
)

// SQLitePostRepository implements Repository using SQLite as the storage backend.
type SQLitePostRepository struct {
	db        *sql.DB
	log       logging.Logger
	writeLock *sync.Mutex // go-sqlite does not support concurrent writes
}

var _ Repository = (*SQLitePostRepository)(nil)

// SQLitePostRepositoryFactory creates a factory function that returns a new SQLitePostRepository.
func SQLitePostRepositoryFactory(cfg sqlite.Config) RepositoryFactory {
	return func(ctx context.Context) (Repository, error) {
		return NewSQLitePostRepository(ctx, cfg)
	}
}

// NewSQLitePostRepository opens the database and creates the schema if needed.
func NewSQLitePostRepository(ctx context.Context, cfg sqlite.Config) (*SQLitePostRepository, error) {
	log := logging.GetLogger("repo.post.sqlite_post_repository").With(
		logging.Group("db", "path", cfg.DatabasePath),
	)

	db, err := sqlite.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS posts (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT    UNIQUE NOT NULL,
			author_id  TEXT    NOT NULL,
			content    TEXT    NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL
		);
		CREATE TABLE IF NOT EXISTS comments (
			seq        INTEGER PRIMARY KEY AUTOINCREMENT,
			id         TEXT    UNIQUE NOT NULL,
			post_id    TEXT    NOT NULL REFERENCES posts (id) ON DELETE CASCADE,
			author_id  TEXT    NOT NULL,
			text       TEXT    NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS comments_post_id ON comments (post_id);
	`); err != nil {
		db.Close()

		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLitePostRepository{
		db:        db,
		log:       log,
		writeLock: new(sync.Mutex),
	}, nil
}

// CreatePost implements Repository.CreatePost using SQLite.
func (r *SQLitePostRepository) CreatePost(ctx context.Context, post domain.Post) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	if _, err := r.db.ExecContext(ctx,
		"INSERT INTO posts (id, author_id, content, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		post.ID,
		post.AuthorID,
		post.Content,
		sqlite.Timestamp(post.CreatedAt),
		sqlite.Timestamp(post.UpdatedAt),
	); err != nil {
		return fmt.Errorf("insert post: %w", err)
	}

	return nil
}

// GetPost implements Repository.GetPost using SQLite.
func (r *SQLitePostRepository) GetPost(ctx context.Context, id domain.ID) (*domain.Post, error) {
	posts, err := r.queryPosts(ctx, "WHERE id = ?", id)
	if err != nil {
		return nil, err
	}

	if len(posts) == 0 {
		return nil, fmt.Errorf("query post: %w", domain.ErrPostNotFound)
	}

	return &posts[0], nil
}

// ListPosts implements Repository.ListPosts using SQLite.
func (r *SQLitePostRepository) ListPosts(ctx context.Context) ([]domain.Post, error) {
	return r.queryPosts(ctx, "")
}

func (r *SQLitePostRepository) queryPosts(ctx context.Context, where string, args ...any) ([]domain.Post, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, author_id, content, created_at, updated_at FROM posts "+where+" ORDER BY seq DESC",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}
	defer rows.Close()

	posts := make([]domain.Post, 0)

	for rows.Next() {
		var (
			post                 domain.Post
			createdAt, updatedAt int64
		)

		if err := rows.Scan(&post.ID, &post.AuthorID, &post.Content, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan post: %w", err)
		}

		post.CreatedAt = sqlite.Time(createdAt)
		post.UpdatedAt = sqlite.Time(updatedAt)
		posts = append(posts, post)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate posts: %w", err)
	}

	if len(posts) == 0 {
		return posts, nil
	}

	comments, err := r.queryComments(ctx, where, args...)
	if err != nil {
		return nil, err
	}

	attachComments(posts, comments)

	return posts, nil
}

func (r *SQLitePostRepository) queryComments(ctx context.Context, postWhere string, args ...any) (map[domain.ID][]domain.Comment, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, post_id, author_id, text, created_at FROM comments "+
			"WHERE post_id IN (SELECT id FROM posts "+postWhere+") ORDER BY seq DESC",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	comments := make(map[domain.ID][]domain.Comment)

	for rows.Next() {
		var (
			comment   domain.Comment
			postID    domain.ID
			createdAt int64
		)

		if err := rows.Scan(&comment.ID, &postID, &comment.AuthorID, &comment.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}

		comment.CreatedAt = sqlite.Time(createdAt)
		comments[postID] = append(comments[postID], comment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}

	return comments, nil
}

// UpdatePostContent implements Repository.UpdatePostContent using SQLite.
func (r *SQLitePostRepository) UpdatePostContent(
	ctx context.Context,
	id domain.ID,
	content string,
	updatedAt time.Time,
) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	res, err := r.db.ExecContext(ctx,
		"UPDATE posts SET content = ?, updated_at = ? WHERE id = ?",
		content, sqlite.Timestamp(updatedAt), id,
	)

	return checkAffected(res, err, "update post", domain.ErrPostNotFound)
}

// DeletePost implements Repository.DeletePost using SQLite.
// Comments are removed by the foreign key cascade.
func (r *SQLitePostRepository) DeletePost(ctx context.Context, id domain.ID) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	res, err := r.db.ExecContext(ctx, "DELETE FROM posts WHERE id = ?", id)
	if err := checkAffected(res, err, "delete post", domain.ErrPostNotFound); err != nil {
		return err
	}

	r.log.DebugContext(ctx, "post deleted", logging.Group("post", "id", id.String()))

	return nil
}

// AddComment implements Repository.AddComment using SQLite.
func (r *SQLitePostRepository) AddComment(ctx context.Context, postID domain.ID, comment domain.Comment) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO comments (id, post_id, author_id, text, created_at)
		SELECT ?, id, ?, ?, ? FROM posts WHERE id = ?`,
		comment.ID, comment.AuthorID, comment.Text, sqlite.Timestamp(comment.CreatedAt), postID,
	)

	return checkAffected(res, err, "insert comment", domain.ErrPostNotFound)
}

// DeleteComment implements Repository.DeleteComment using SQLite.
func (r *SQLitePostRepository) DeleteComment(ctx context.Context, postID, commentID domain.ID) error {
	r.writeLock.Lock()
	defer r.writeLock.Unlock()

	res, err := r.db.ExecContext(ctx,
		"DELETE FROM comments WHERE id = ? AND post_id = ?", commentID, postID,
	)

	return checkAffected(res, err, "delete comment", domain.ErrCommentNotFound)
}

// Close implements Repository.Close by closing the database connection.
func (r *SQLitePostRepository) Close() error {
	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close db: %w", err)
	}

	return nil
}

func checkAffected(res sql.Result, err error, op string, notFound error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}

	if n == 0 {
		return fmt.Errorf("%s: %w", op, notFound)
	}

	return nil
}
