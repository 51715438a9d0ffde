package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tastebook/tastebook/internal/platform/db"
	"github.com/tastebook/tastebook/internal/platform/httpx"
	"github.com/tastebook/tastebook/internal/rbac"
)

const uniqueViolation = "23505"

const userColumns = `id, username, email, password_hash, roles, created_at, updated_at`

// Repository provides PostgreSQL backed persistence for users.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// FindByID loads a user by primary key.
func (r *Repository) FindByID(ctx context.Context, id int64) (User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

// FindByUsername loads a user by exact username.
func (r *Repository) FindByUsername(ctx context.Context, username string) (User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE username = $1`, username)
}

// FindByEmail loads a user by exact email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (User, error) {
	return r.findOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
}

// UpdateProfile changes username and email.
func (r *Repository) UpdateProfile(ctx context.Context, id int64, username, email string) (User, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE users SET username = $1, email = $2, updated_at = now()
		 WHERE id = $3
		 RETURNING `+userColumns, username, email, id)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("%w: user %d", httpx.ErrNotFound, id)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return User{}, fmt.Errorf("%w: username or email already taken", httpx.ErrDuplicate)
	}
	return user, err
}

// ApplyRoles reloads the stored role set under a row lock, applies the
// mutation and persists the canonical result. The write is skipped when
// the set is unchanged.
func (r *Repository) ApplyRoles(ctx context.Context, id int64, apply func(current []rbac.Role) ([]rbac.Role, error)) ([]rbac.Role, error) {
	var result []rbac.Role
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var names []string
		err := tx.QueryRow(ctx, `SELECT roles FROM users WHERE id = $1 FOR UPDATE`, id).Scan(&names)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: user %d", httpx.ErrNotFound, id)
		}
		if err != nil {
			return err
		}

		current := rbac.ParseRoles(names)
		next, err := apply(current)
		if err != nil {
			return err
		}
		next = rbac.Canonical(next)
		result = next

		if rbac.RolesEqual(current, next) {
			return nil
		}
		_, err = tx.Exec(ctx, `UPDATE users SET roles = $1, updated_at = now() WHERE id = $2`,
			rbac.RoleNames(next), id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *Repository) findOne(ctx context.Context, query string, arg any) (User, error) {
	user, err := scanUser(r.pool.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, fmt.Errorf("%w: user", httpx.ErrNotFound)
	}
	return user, err
}

func scanUser(row pgx.Row) (User, error) {
	var (
		u     User
		names []string
	)
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &names, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return User{}, err
	}
	u.Roles = rbac.ParseRoles(names)
	return u, nil
}
