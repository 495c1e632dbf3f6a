package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-auth/aegis/internal/shared"
)

// RepositoryPort defines data access methods for user accounts.
type RepositoryPort interface {
	CreateUser(ctx context.Context, email, passwordHash string, status Status, roleID int64) (int64, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	SetStatus(ctx context.Context, id int64, status Status) error
	SetPassword(ctx context.Context, id int64, passwordHash string) error
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateUser inserts a new account and returns its generated id.
func (r *Repository) CreateUser(ctx context.Context, email, passwordHash string, status Status, roleID int64) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, status, role_id)
		VALUES ($1, $2, $3, $4)
		RETURNING user_id`,
		email, passwordHash, int16(status), roleID).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return 0, shared.ErrDuplicate
			case "23503":
				return 0, shared.ErrNotFound
			}
		}
		return 0, shared.Storage("accounts.create", err)
	}
	return id, nil
}

// FindByID fetches an account by id.
func (r *Repository) FindByID(ctx context.Context, id int64) (*User, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `
		SELECT user_id, email, password_hash, status, role_id
		FROM users WHERE user_id = $1`, id), "accounts.find")
}

// FindByEmail fetches an account by email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanOne(r.pool.QueryRow(ctx, `
		SELECT user_id, email, password_hash, status, role_id
		FROM users WHERE email = $1`, email), "accounts.find_email")
}

// SetStatus transitions an account's lifecycle status.
func (r *Repository) SetStatus(ctx context.Context, id int64, status Status) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET status = $2 WHERE user_id = $1`, id, int16(status))
	if err != nil {
		return shared.Storage("accounts.set_status", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SetPassword replaces an account's credential hash.
func (r *Repository) SetPassword(ctx context.Context, id int64, passwordHash string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password_hash = $2 WHERE user_id = $1`, id, passwordHash)
	if err != nil {
		return shared.Storage("accounts.set_password", err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *Repository) scanOne(row pgx.Row, op string) (*User, error) {
	var user User
	var status int16
	err := row.Scan(&user.ID, &user.Email, &user.PasswordHash, &status, &user.RoleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, shared.Storage(op, err)
	}
	user.Status = Status(status)
	return &user, nil
}

var _ RepositoryPort = (*Repository)(nil)
