package activations_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-auth/aegis/internal/activations"
	"github.com/aegis-auth/aegis/internal/shared"
	_ "github.com/aegis-auth/aegis/testing"
)

type stubRepo struct {
	rows map[int64]activations.Activation
}

func newStubRepo() *stubRepo {
	return &stubRepo{rows: make(map[int64]activations.Activation)}
}

func (s *stubRepo) Get(ctx context.Context, userID int64) (activations.Activation, error) {
	act, ok := s.rows[userID]
	if !ok {
		return activations.Activation{}, shared.ErrNotFound
	}
	return act, nil
}

func (s *stubRepo) FindByToken(ctx context.Context, token string) (activations.Activation, error) {
	for _, act := range s.rows {
		if act.Token == token {
			return act, nil
		}
	}
	return activations.Activation{}, shared.ErrNotFound
}

func (s *stubRepo) Put(ctx context.Context, act activations.Activation) error {
	s.rows[act.UserID] = act
	return nil
}

func (s *stubRepo) Delete(ctx context.Context, userID int64) error {
	delete(s.rows, userID)
	return nil
}

func (s *stubRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	var n int64
	for id, act := range s.rows {
		if act.CreatedAt.Before(cutoff) {
			delete(s.rows, id)
			n++
		}
	}
	return n, nil
}

var _ activations.RepositoryPort = (*stubRepo)(nil)

const window = 24 * time.Hour

func TestIssueAndRedeem(t *testing.T) {
	repo := newStubRepo()
	svc := activations.NewService(repo, window, nil)
	ctx := context.Background()

	token, err := svc.Issue(ctx, 42)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	userID, err := svc.Redeem(ctx, token, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)

	// One-time: the second redemption finds nothing.
	_, err = svc.Redeem(ctx, token, nil)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestIssuePendingIsDuplicate(t *testing.T) {
	repo := newStubRepo()
	svc := activations.NewService(repo, window, nil)
	ctx := context.Background()

	_, err := svc.Issue(ctx, 42)
	require.NoError(t, err)

	_, err = svc.Issue(ctx, 42)
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestIssueReplacesExpiredToken(t *testing.T) {
	repo := newStubRepo()
	svc := activations.NewService(repo, window, nil)
	ctx := context.Background()

	first, err := svc.Issue(ctx, 42)
	require.NoError(t, err)

	act := repo.rows[42]
	act.CreatedAt = act.CreatedAt.Add(-window - time.Minute)
	repo.rows[42] = act

	second, err := svc.Issue(ctx, 42)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	_, err = svc.Redeem(ctx, first, nil)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	userID, err := svc.Redeem(ctx, second, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestRedeemExpiredToken(t *testing.T) {
	repo := newStubRepo()
	svc := activations.NewService(repo, window, nil)
	ctx := context.Background()

	token, err := svc.Issue(ctx, 42)
	require.NoError(t, err)

	act := repo.rows[42]
	act.CreatedAt = act.CreatedAt.Add(-window)
	repo.rows[42] = act

	_, err = svc.Redeem(ctx, token, nil)
	require.ErrorIs(t, err, shared.ErrExpired)

	// The stale row is gone, so the user can be issued a fresh token.
	pending, err := svc.Pending(ctx, 42)
	require.NoError(t, err)
	assert.False(t, pending)
}

func TestRedeemUnknownToken(t *testing.T) {
	svc := activations.NewService(newStubRepo(), window, nil)

	_, err := svc.Redeem(context.Background(), "bogus", nil)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = svc.Redeem(context.Background(), "", nil)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRedeemKeepsTokenWhenApplyFails(t *testing.T) {
	repo := newStubRepo()
	svc := activations.NewService(repo, window, nil)
	ctx := context.Background()

	token, err := svc.Issue(ctx, 42)
	require.NoError(t, err)

	// A backend failure on the caller's side of the transition must not
	// consume the one-time token.
	boom := shared.Storage("users.set_status", errors.New("connection reset"))
	_, err = svc.Redeem(ctx, token, func(context.Context, int64) error {
		return boom
	})
	require.ErrorIs(t, err, boom)

	var applied []int64
	userID, err := svc.Redeem(ctx, token, func(_ context.Context, id int64) error {
		applied = append(applied, id)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
	assert.Equal(t, []int64{42}, applied)

	_, err = svc.Redeem(ctx, token, nil)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPending(t *testing.T) {
	repo := newStubRepo()
	svc := activations.NewService(repo, window, nil)
	ctx := context.Background()

	pending, err := svc.Pending(ctx, 42)
	require.NoError(t, err)
	assert.False(t, pending)

	_, err = svc.Issue(ctx, 42)
	require.NoError(t, err)

	pending, err = svc.Pending(ctx, 42)
	require.NoError(t, err)
	assert.True(t, pending)
}
