package post

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkrupp/micropost/internal/domain"
	"github.com/mkrupp/micropost/internal/infra/logging"
	"github.com/mkrupp/micropost/internal/repo/postgres"
)

// PostgresPostRepository implements Repository on a PostgreSQL connection pool.
type PostgresPostRepository struct {
	pool *pgxpool.Pool
	log  logging.Logger
}

var _ Repository = (*PostgresPostRepository)(nil)

// PostgresPostRepositoryFactory creates a factory function that returns a new PostgresPostRepository.
func PostgresPostRepositoryFactory(cfg postgres.Config) RepositoryFactory {
	return func(ctx context.Context) (Repository, error) {
		return NewPostgresPostRepository(ctx, cfg)
	}
}

// NewPostgresPostRepository connects to the server and creates the schema if needed.
func NewPostgresPostRepository(ctx context.Context, cfg postgres.Config) (*PostgresPostRepository, error) {
	pool, err := postgres.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS posts (
			seq        BIGSERIAL   PRIMARY KEY,
			id         TEXT        UNIQUE NOT NULL,
			author_id  TEXT        NOT NULL,
			content    TEXT        NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS comments (
			seq        BIGSERIAL   PRIMARY KEY,
			id         TEXT        UNIQUE NOT NULL,
			post_id    TEXT        NOT NULL REFERENCES posts (id) ON DELETE CASCADE,
			author_id  TEXT        NOT NULL,
			text       TEXT        NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS comments_post_id ON comments (post_id)`,
	} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()

			return nil, fmt.Errorf("create schema: %w", err)
		}
	}

	return &PostgresPostRepository{
		pool: pool,
		log:  logging.GetLogger("repo.post.postgres_post_repository"),
	}, nil
}

// CreatePost implements Repository.CreatePost using PostgreSQL.
func (r *PostgresPostRepository) CreatePost(ctx context.Context, post domain.Post) error {
	if _, err := r.pool.Exec(ctx,
		"INSERT INTO posts (id, author_id, content, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)",
		post.ID, post.AuthorID, post.Content, post.CreatedAt, post.UpdatedAt,
	); err != nil {
		return fmt.Errorf("insert post: %w", err)
	}

	return nil
}

// GetPost implements Repository.GetPost using PostgreSQL.
func (r *PostgresPostRepository) GetPost(ctx context.Context, id domain.ID) (*domain.Post, error) {
	posts, err := r.queryPosts(ctx, "WHERE id = $1", id)
	if err != nil {
		return nil, err
	}

	if len(posts) == 0 {
		return nil, fmt.Errorf("query post: %w", domain.ErrPostNotFound)
	}

	return &posts[0], nil
}

// ListPosts implements Repository.ListPosts using PostgreSQL.
func (r *PostgresPostRepository) ListPosts(ctx context.Context) ([]domain.Post, error) {
	return r.queryPosts(ctx, "")
}

func (r *PostgresPostRepository) queryPosts(ctx context.Context, where string, args ...any) ([]domain.Post, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT id, author_id, content, created_at, updated_at FROM posts "+where+" ORDER BY seq DESC",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}

	posts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Post, error) {
		var post domain.Post

		err := row.Scan(&post.ID, &post.AuthorID, &post.Content, &post.CreatedAt, &post.UpdatedAt)
		post.CreatedAt = post.CreatedAt.UTC()
		post.UpdatedAt = post.UpdatedAt.UTC()

		return post, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan posts: %w", err)
	}

	if len(posts) == 0 {
		return posts, nil
	}

	rows, err = r.pool.Query(ctx,
		"SELECT id, post_id, author_id, text, created_at FROM comments "+
			"WHERE post_id IN (SELECT id FROM posts "+where+") ORDER BY seq DESC",
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	comments := make(map[domain.ID][]domain.Comment)

	for rows.Next() {
		var (
			comment domain.Comment
			postID  domain.ID
		)

		if err := rows.Scan(&comment.ID, &postID, &comment.AuthorID, &comment.Text, &comment.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}

		comment.CreatedAt = comment.CreatedAt.UTC()
		comments[postID] = append(comments[postID], comment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}

	attachComments(posts, comments)

	return posts, nil
}

// UpdatePostContent implements Repository.UpdatePostContent using PostgreSQL.
func (r *PostgresPostRepository) UpdatePostContent(
	ctx context.Context,
	id domain.ID,
	content string,
	updatedAt time.Time,
) error {
	tag, err := r.pool.Exec(ctx,
		"UPDATE posts SET content = $1, updated_at = $2 WHERE id = $3", content, updatedAt, id,
	)

	return checkTag(tag, err, "update post", domain.ErrPostNotFound)
}

// DeletePost implements Repository.DeletePost using PostgreSQL.
// Comments are removed by the foreign key cascade.
func (r *PostgresPostRepository) DeletePost(ctx context.Context, id domain.ID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM posts WHERE id = $1", id)
	if err := checkTag(tag, err, "delete post", domain.ErrPostNotFound); err != nil {
		return err
	}

	r.log.DebugContext(ctx, "post deleted", logging.Group("post", "id", id.String()))

	return nil
}

// AddComment implements Repository.AddComment using PostgreSQL.
func (r *PostgresPostRepository) AddComment(ctx context.Context, postID domain.ID, comment domain.Comment) error {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO comments (id, post_id, author_id, text, created_at)
		SELECT $1, id, $2, $3, $4 FROM posts WHERE id = $5`,
		comment.ID, comment.AuthorID, comment.Text, comment.CreatedAt, postID,
	)

	return checkTag(tag, err, "insert comment", domain.ErrPostNotFound)
}

// DeleteComment implements Repository.DeleteComment using PostgreSQL.
func (r *PostgresPostRepository) DeleteComment(ctx context.Context, postID, commentID domain.ID) error {
	tag, err := r.pool.Exec(ctx,
		"DELETE FROM comments WHERE id = $1 AND post_id = $2", commentID, postID,
	)

	return checkTag(tag, err, "delete comment", domain.ErrCommentNotFound)
}

// Close implements Repository.Close by closing the pool.
func (r *PostgresPostRepository) Close() error {
	r.pool.Close()

	return nil
}

func checkTag(tag pgconn.CommandTag, err error, op string, notFound error) error {
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s: %w", op, notFound)
	}

	return nil
}
