package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aegis-auth/aegis/internal/shared"
)

// RepositoryPort defines persistence operations for login rows.
type RepositoryPort interface {
	GetLogin(ctx context.Context, userID int64) (Login, error)
	PutLogin(ctx context.Context, login Login) error
	FindByToken(ctx context.Context, token string) (Login, error)
	ClearToken(ctx context.Context, userID int64) error
	ResetAttempts(ctx context.Context, userID int64) error
	ClearExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetLogin fetches the login row for userID.
func (r *Repository) GetLogin(ctx context.Context, userID int64) (Login, error) {
	var login Login
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, session_token, attempts, created_at
		FROM logins WHERE user_id = $1`, userID).
		Scan(&login.UserID, &login.SessionToken, &login.Attempts, &login.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Login{}, shared.ErrNotFound
		}
		return Login{}, shared.Storage("sessions.get", err)
	}
	return login, nil
}

// PutLogin upserts the login row atomically; the single statement keeps the
// read-modify-write safe across processes.
func (r *Repository) PutLogin(ctx context.Context, login Login) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO logins (user_id, session_token, attempts, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE
		SET session_token = EXCLUDED.session_token,
		    attempts = EXCLUDED.attempts,
		    created_at = EXCLUDED.created_at`,
		login.UserID, login.SessionToken, login.Attempts, login.CreatedAt)
	if err != nil {
		return shared.Storage("sessions.put", err)
	}
	return nil
}

// FindByToken fetches the login row holding the given session token.
func (r *Repository) FindByToken(ctx context.Context, token string) (Login, error) {
	var login Login
	err := r.pool.QueryRow(ctx, `
		SELECT user_id, session_token, attempts, created_at
		FROM logins WHERE session_token = $1`, token).
		Scan(&login.UserID, &login.SessionToken, &login.Attempts, &login.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Login{}, shared.ErrNotFound
		}
		return Login{}, shared.Storage("sessions.find_token", err)
	}
	return login, nil
}

// ClearToken nulls the session token for userID; idempotent.
func (r *Repository) ClearToken(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE logins SET session_token = NULL WHERE user_id = $1`, userID)
	if err != nil {
		return shared.Storage("sessions.clear", err)
	}
	return nil
}

// ResetAttempts zeroes the failure counter for userID; idempotent.
func (r *Repository) ResetAttempts(ctx context.Context, userID int64) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE logins SET attempts = 0 WHERE user_id = $1`, userID)
	if err != nil {
		return shared.Storage("sessions.reset", err)
	}
	return nil
}

// ClearExpired nulls tokens created before cutoff. Correctness never depends
// on this; expiry is checked against timestamps on every validation.
func (r *Repository) ClearExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE logins SET session_token = NULL
		WHERE session_token IS NOT NULL AND created_at < $1`, cutoff)
	if err != nil {
		return 0, shared.Storage("sessions.sweep", err)
	}
	return tag.RowsAffected(), nil
}

var _ RepositoryPort = (*Repository)(nil)
