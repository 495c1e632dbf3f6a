package accounts

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/aegis-auth/aegis/internal/shared"
)

// ActivationIssuer issues one-time activation tokens. Registration calls it
// explicitly; the coupling is part of this service's documented contract, not
// a hidden side channel.
type ActivationIssuer interface {
	Issue(ctx context.Context, userID int64) (string, error)
	Pending(ctx context.Context, userID int64) (bool, error)
}

// ActivationRedeemer consumes an activation token and reports its owner.
// apply runs before the token is deleted; an apply error keeps the token
// redeemable.
type ActivationRedeemer interface {
	Redeem(ctx context.Context, token string, apply func(context.Context, int64) error) (int64, error)
}

// Notifier delivers the activation token to the account's email address.
type Notifier interface {
	NotifyActivation(ctx context.Context, email, token string) error
}

// Service wraps account lifecycle business rules.
type Service struct {
	repo     RepositoryPort
	issuer   ActivationIssuer
	redeemer ActivationRedeemer
	notifier Notifier
	logger   *slog.Logger
}

// NewService constructs a Service. notifier may be nil when no mail delivery
// is wired (tests, offline tooling).
func NewService(repo RepositoryPort, issuer ActivationIssuer, redeemer ActivationRedeemer, notifier Notifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, issuer: issuer, redeemer: redeemer, notifier: notifier, logger: logger}
}

// Register creates an inactive account, issues its activation token, and
// hands the token to the notifier.
//
// An email already held by an inactive account whose activation lapsed is
// treated as an abandoned registration: the credential is replaced and a
// fresh activation issued. Any other occupied email is a duplicate; allowing
// re-registration over a pending activation would let anyone overwrite an
// unactivated user's password.
func (s *Service) Register(ctx context.Context, email, password string, roleID int64) (int64, error) {
	email = NormalizeEmail(email)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}

	existing, err := s.repo.FindByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Status != StatusInactive {
			return 0, shared.ErrDuplicate
		}
		// The pending check must precede the credential overwrite, and the
		// overwrite must precede Issue: a failed Issue then leaves no
		// outstanding token to block the retry.
		pending, err := s.issuer.Pending(ctx, existing.ID)
		if err != nil {
			return 0, err
		}
		if pending {
			return 0, shared.ErrDuplicate
		}
		if err := s.repo.SetPassword(ctx, existing.ID, string(hash)); err != nil {
			return 0, err
		}
		token, err := s.issuer.Issue(ctx, existing.ID)
		if err != nil {
			return 0, err
		}
		s.notify(ctx, email, token)
		return existing.ID, nil
	case errors.Is(err, shared.ErrNotFound):
		// fresh registration
	default:
		return 0, err
	}

	id, err := s.repo.CreateUser(ctx, email, string(hash), StatusInactive, roleID)
	if err != nil {
		return 0, err
	}
	token, err := s.issuer.Issue(ctx, id)
	if err != nil {
		return 0, err
	}
	s.notify(ctx, email, token)
	return id, nil
}

// Activate redeems an activation token and transitions its user to active.
// The status transition runs inside the redeem, before the token is deleted,
// so a storage failure on the transition leaves the token redeemable.
func (s *Service) Activate(ctx context.Context, token string) (int64, error) {
	return s.redeemer.Redeem(ctx, token, func(ctx context.Context, userID int64) error {
		return s.repo.SetStatus(ctx, userID, StatusActive)
	})
}

// SetStatus transitions an account's status.
func (s *Service) SetStatus(ctx context.Context, userID int64, status Status) error {
	if !status.Valid() {
		return errors.New("accounts: unknown status")
	}
	return s.repo.SetStatus(ctx, userID, status)
}

// Find fetches an account by id.
func (s *Service) Find(ctx context.Context, userID int64) (*User, error) {
	return s.repo.FindByID(ctx, userID)
}

// FindByEmail fetches an account by normalized email.
func (s *Service) FindByEmail(ctx context.Context, email string) (*User, error) {
	return s.repo.FindByEmail(ctx, NormalizeEmail(email))
}

// RoleOf returns the role assigned to userID.
func (s *Service) RoleOf(ctx context.Context, userID int64) (int64, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.RoleID, nil
}

func (s *Service) notify(ctx context.Context, email, token string) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyActivation(ctx, email, token); err != nil {
		// Delivery failure must not fail registration; the activation can be
		// re-requested once the expired window allows re-registering.
		s.logger.Warn("activation notification", slog.String("email", email), slog.Any("error", err))
	}
}

// NormalizeEmail canonicalizes an address for uniqueness comparison.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
