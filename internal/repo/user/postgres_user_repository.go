package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mkrupp/micropost/internal/domain"
	"github.com/mkrupp/micropost/internal/infra/logging"
	"github.com/mkrupp/micropost/internal/repo/postgres"
)

const pgUserColumns = "id, username, password_hash, role, created_at"

// PostgresUserRepository implements Repository on a PostgreSQL connection pool.
type PostgresUserRepository struct {
	pool *pgxpool.Pool
	log  logging.Logger
}

var _ Repository = (*PostgresUserRepository)(nil)

// PostgresUserRepositoryFactory creates a factory function that returns a new PostgresUserRepository.
func PostgresUserRepositoryFactory(cfg postgres.Config) RepositoryFactory {
	return func(ctx context.Context) (Repository, error) {
		return NewPostgresUserRepository(ctx, cfg)
	}
}

// NewPostgresUserRepository connects to the server and creates the schema if needed.
func NewPostgresUserRepository(ctx context.Context, cfg postgres.Config) (*PostgresUserRepository, error) {
	pool, err := postgres.Connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	if _, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT        PRIMARY KEY,
			username      TEXT        UNIQUE NOT NULL,
			password_hash BYTEA       NOT NULL,
			role          TEXT        NOT NULL DEFAULT 'user' CHECK (role IN ('user', 'admin')),
			created_at    TIMESTAMPTZ NOT NULL
		)
	`); err != nil {
		pool.Close()

		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &PostgresUserRepository{
		pool: pool,
		log:  logging.GetLogger("repo.user.postgres_user_repository"),
	}, nil
}

func scanPgUser(row pgx.Row) (*domain.User, error) {
	var user domain.User

	if err := row.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = errors.Join(domain.ErrUserNotFound, err)
		}

		return nil, err
	}

	user.CreatedAt = user.CreatedAt.UTC()

	return &user, nil
}

// CreateUser implements Repository.CreateUser using PostgreSQL.
func (r *PostgresUserRepository) CreateUser(ctx context.Context, user domain.User) error {
	_, err := r.pool.Exec(ctx,
		"INSERT INTO users ("+pgUserColumns+") VALUES ($1, $2, $3, $4, $5)",
		user.ID,
		user.Username,
		user.PasswordHash,
		user.Role,
		user.CreatedAt,
	)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			err = errors.Join(domain.ErrUserAlreadyExists, err)
		}

		return fmt.Errorf("insert user: %w", err)
	}

	return nil
}

// GetUserByID implements Repository.GetUserByID using PostgreSQL.
func (r *PostgresUserRepository) GetUserByID(ctx context.Context, id domain.ID) (*domain.User, error) {
	user, err := scanPgUser(r.pool.QueryRow(ctx,
		"SELECT "+pgUserColumns+" FROM users WHERE id = $1", id,
	))
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	return user, nil
}

// GetUserByUsername implements Repository.GetUserByUsername using PostgreSQL.
func (r *PostgresUserRepository) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := scanPgUser(r.pool.QueryRow(ctx,
		"SELECT "+pgUserColumns+" FROM users WHERE username = $1", username,
	))
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}

	return user, nil
}

// ListUsers implements Repository.ListUsers using PostgreSQL.
func (r *PostgresUserRepository) ListUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+pgUserColumns+" FROM users ORDER BY created_at ASC, id ASC",
	)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := make([]domain.User, 0)

	for rows.Next() {
		user, err := scanPgUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}

		users = append(users, *user)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

// UpdateUserRole implements Repository.UpdateUserRole using PostgreSQL.
func (r *PostgresUserRepository) UpdateUserRole(ctx context.Context, id domain.ID, role domain.Role) (*domain.User, error) {
	user, err := scanPgUser(r.pool.QueryRow(ctx,
		"UPDATE users SET role = $1 WHERE id = $2 RETURNING "+pgUserColumns, role, id,
	))
	if err != nil {
		return nil, fmt.Errorf("update user role: %w", err)
	}

	return user, nil
}

// DeleteUser implements Repository.DeleteUser using PostgreSQL.
func (r *PostgresUserRepository) DeleteUser(ctx context.Context, id domain.ID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete user: %w", domain.ErrUserNotFound)
	}

	r.log.DebugContext(ctx, "user deleted", logging.Group("user", "id", id.String()))

	return nil
}

// Close implements Repository.Close by closing the pool.
func (r *PostgresUserRepository) Close() error {
	r.pool.Close()

	return nil
}
