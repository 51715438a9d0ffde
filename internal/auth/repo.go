package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tastebook/tastebook/internal/rbac"
	"github.com/tastebook/tastebook/internal/shared"
	"github.com/tastebook/tastebook/internal/users"
)

const uniqueViolation = "23505"

// Repository defines persistence operations for the auth module.
type Repository interface {
	FindByUsername(ctx context.Context, username string) (*users.User, error)
	FindByEmail(ctx context.Context, email string) (*users.User, error)
	CreateUser(ctx context.Context, username, email, passwordHash string) (*users.User, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByUsername fetches a user by exact username.
func (r *PGRepository) FindByUsername(ctx context.Context, username string) (*users.User, error) {
	return r.findOne(ctx, `username = $1`, username)
}

// FindByEmail fetches a user by exact email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*users.User, error) {
	return r.findOne(ctx, `email = $1`, email)
}

// CreateUser inserts a new account with an empty stored role set. The
// implicit USER role is enough to browse and review.
func (r *PGRepository) CreateUser(ctx context.Context, username, email, passwordHash string) (*users.User, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO users (username, email, password_hash, roles)
		 VALUES ($1, $2, $3, '{}')
		 RETURNING id, username, email, password_hash, roles, created_at, updated_at`,
		username, email, passwordHash)
	user, err := scanUser(row)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return nil, shared.ErrDuplicateAccount
	}
	return user, err
}

func (r *PGRepository) findOne(ctx context.Context, where string, arg any) (*users.User, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, username, email, password_hash, roles, created_at, updated_at FROM users WHERE `+where, arg)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, shared.ErrNotFound
	}
	return user, err
}

func scanUser(row pgx.Row) (*users.User, error) {
	var (
		u     users.User
		names []string
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &names, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Roles = rbac.ParseRoles(names)
	return &u, nil
}

var _ Repository = (*PGRepository)(nil)
