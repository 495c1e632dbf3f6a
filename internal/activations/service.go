package activations

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aegis-auth/aegis/internal/shared"
)

// Service issues and redeems one-time activation tokens. Each token is bound
// to exactly one user and deleted on redemption.
type Service struct {
	repo   RepositoryPort
	window time.Duration
	locks  *shared.KeyedMutex
	logger *slog.Logger
}

// NewService constructs a Service; window is the configured maximum token age.
func NewService(repo RepositoryPort, window time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:   repo,
		window: window,
		locks:  shared.NewKeyedMutex(),
		logger: logger,
	}
}

// Issue creates an activation token for userID. An unexpired pending token is
// a duplicate; an expired leftover is silently replaced.
func (s *Service) Issue(ctx context.Context, userID int64) (string, error) {
	s.locks.Lock(userID)
	defer s.locks.Unlock(userID)

	existing, err := s.repo.Get(ctx, userID)
	switch {
	case err == nil:
		if time.Since(existing.CreatedAt) < s.window {
			return "", shared.ErrDuplicate
		}
	case errors.Is(err, shared.ErrNotFound):
		// no pending activation
	default:
		return "", err
	}

	act := Activation{
		UserID:    userID,
		Token:     shared.NewToken(),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Put(ctx, act); err != nil {
		return "", err
	}
	return act.Token, nil
}

// Redeem consumes token and returns the owning user id. Unknown tokens are
// shared.ErrNotFound; tokens older than the activation window are
// shared.ErrExpired, reported distinctly so callers can offer a resend, and
// the expired row is removed.
//
// apply, when non-nil, runs after the token is validated and before the row
// is deleted. An apply failure leaves the row in place, so a one-time token
// is never burned by a backend error on the caller's side of the transition;
// the same token stays redeemable on retry.
func (s *Service) Redeem(ctx context.Context, token string, apply func(context.Context, int64) error) (int64, error) {
	if token == "" {
		return 0, shared.ErrNotFound
	}
	act, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		return 0, err
	}

	s.locks.Lock(act.UserID)
	defer s.locks.Unlock(act.UserID)

	if time.Since(act.CreatedAt) >= s.window {
		if err := s.repo.Delete(ctx, act.UserID); err != nil {
			s.logger.Warn("delete expired activation", slog.Any("error", err))
		}
		return 0, shared.ErrExpired
	}

	if apply != nil {
		if err := apply(ctx, act.UserID); err != nil {
			return 0, err
		}
	}
	// Delete last: a retry after a failed delete re-applies an idempotent
	// transition instead of losing the token.
	if err := s.repo.Delete(ctx, act.UserID); err != nil {
		return 0, err
	}
	return act.UserID, nil
}

// Pending reports whether userID has an unexpired activation outstanding.
func (s *Service) Pending(ctx context.Context, userID int64) (bool, error) {
	act, err := s.repo.Get(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return time.Since(act.CreatedAt) < s.window, nil
}
