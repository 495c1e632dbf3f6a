package activations

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-auth/aegis/internal/shared"
)

// RepositoryPort defines persistence operations for activation rows.
type RepositoryPort interface {
	Get(ctx context.Context, userID int64) (Activation, error)
	FindByToken(ctx context.Context, token string) (Activation, error)
	Put(ctx context.Context, act Activation) error
	Delete(ctx context.Context, userID int64) error
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Get fetches the activation row for userID.
func (r *Repository) Get(ctx context.Context, userID int64) (Activation, error) {
	var act Activation
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, activation_token, created_at
		FROM activations WHERE user_id = $1`, userID).
		Scan(&act.UserID, &act.Token, &act.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Activation{}, shared.ErrNotFound
		}
		return Activation{}, shared.Storage("activations.get", err)
	}
	return act, nil
}

// FindByToken fetches the activation row holding token.
func (r *Repository) FindByToken(ctx context.Context, token string) (Activation, error) {
	var act Activation
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, activation_token, created_at
		FROM activations WHERE activation_token = $1`, token).
		Scan(&act.UserID, &act.Token, &act.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Activation{}, shared.ErrNotFound
		}
		return Activation{}, shared.Storage("activations.find_token", err)
	}
	return act, nil
}

// Put upserts the activation row for its user.
func (r *Repository) Put(ctx context.Context, act Activation) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO activations (user_id, activation_token, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE
		SET activation_token = EXCLUDED.activation_token,
		    created_at = EXCLUDED.created_at`,
		act.UserID, act.Token, act.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return shared.ErrNotFound
		}
		return shared.Storage("activations.put", err)
	}
	return nil
}

// Delete removes the activation row for userID; idempotent.
func (r *Repository) Delete(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM activations WHERE user_id = $1`, userID)
	if err != nil {
		return shared.Storage("activations.delete", err)
	}
	return nil
}

// DeleteExpired removes activation rows created before cutoff.
func (r *Repository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM activations WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, shared.Storage("activations.sweep", err)
	}
	return tag.RowsAffected(), nil
}

var _ RepositoryPort = (*Repository)(nil)
