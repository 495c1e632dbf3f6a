package sessions

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/aegis-auth/aegis/internal/shared"
)

// CredentialSource resolves an email to the account data the login flow
// needs. Lookups for unknown emails return shared.ErrNotFound.
type CredentialSource interface {
	LookupByEmail(ctx context.Context, email string) (Credentials, error)
}

// Metrics receives session lifecycle events; implementations must be cheap.
type Metrics interface {
	LoginObserved(result string)
	LockoutObserved()
}

// dummyHash keeps the credential comparison on the same code path for unknown
// users, so response timing does not distinguish them.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// Service manages the per-user login state machine: NoSession -> Active on a
// successful credential check, back to NoSession on logout or expiry, with a
// parallel failed-attempt counter driving lockout.
type Service struct {
	repo    RepositoryPort
	source  CredentialSource
	cfg     Config
	locks   *shared.KeyedMutex
	metrics Metrics
	logger  *slog.Logger
}

// NewService constructs a Service. metrics may be nil.
func NewService(repo RepositoryPort, source CredentialSource, cfg Config, metrics Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		source:  source,
		cfg:     cfg,
		locks:   shared.NewKeyedMutex(),
		metrics: metrics,
		logger:  logger,
	}
}

// Login authenticates email/password and opens a session. Unknown users,
// wrong passwords, and non-active accounts all surface as shared.ErrAuth; a
// locked account is refused with shared.ErrLocked before the credential is
// even considered.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	creds, err := s.source.LookupByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			s.observeLogin("refused")
			return "", shared.ErrAuth
		}
		return "", err
	}

	s.locks.Lock(creds.UserID)
	defer s.locks.Unlock(creds.UserID)

	login, err := s.repo.GetLogin(ctx, creds.UserID)
	if err != nil && !errors.Is(err, shared.ErrNotFound) {
		return "", err
	}
	login.UserID = creds.UserID

	if login.Attempts >= s.cfg.MaxAttempts {
		s.observeLockout()
		return "", shared.ErrLocked
	}

	if !creds.Active {
		s.observeLogin("refused")
		return "", shared.ErrAuth
	}

	if bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password)) == nil {
		token := shared.NewToken()
		login.SessionToken = &token
		login.Attempts = 0
		login.CreatedAt = time.Now().UTC()
		if err := s.repo.PutLogin(ctx, login); err != nil {
			return "", err
		}
		s.observeLogin("accepted")
		return token, nil
	}

	now := time.Now().UTC()
	if login.Attempts == 0 || now.Sub(login.CreatedAt) <= s.cfg.AttemptWindow {
		login.Attempts++
	}
	login.SessionToken = nil
	login.CreatedAt = now
	if err := s.repo.PutLogin(ctx, login); err != nil {
		return "", err
	}
	if login.Attempts >= s.cfg.MaxAttempts {
		s.logger.Warn("account reached lockout threshold", slog.Int64("user_id", creds.UserID))
	}
	s.observeLogin("refused")
	return "", shared.ErrAuth
}

// Validate resolves a session token to its user. Sessions expire absolutely:
// a token whose age reaches the configured lifetime is invalid regardless of
// activity. Inside the refresh window a rotated replacement token is returned.
func (s *Service) Validate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, shared.ErrAuth
	}
	login, err := s.repo.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrAuth
		}
		return nil, err
	}

	age := time.Since(login.CreatedAt)
	if age >= s.cfg.TTL {
		// Expired rows are cleared on observation; the background sweep is
		// only a tidy-up.
		if err := s.repo.ClearToken(ctx, login.UserID); err != nil {
			s.logger.Warn("clear expired session", slog.Any("error", err))
		}
		return nil, shared.ErrAuth
	}

	sess := &Session{UserID: login.UserID, Token: token}
	if s.cfg.RefreshWindow > 0 && s.cfg.TTL-age <= s.cfg.RefreshWindow {
		s.locks.Lock(login.UserID)
		defer s.locks.Unlock(login.UserID)
		// Re-read under the lock: a concurrent validation may have rotated
		// the token already, and issuing a second rotation would hand this
		// caller a token that is dead on arrival.
		current, err := s.repo.GetLogin(ctx, login.UserID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, shared.ErrAuth
			}
			return nil, err
		}
		if current.SessionToken == nil {
			return nil, shared.ErrAuth
		}
		if *current.SessionToken != token {
			sess.Token = *current.SessionToken
			sess.Rotated = true
			return sess, nil
		}
		rotated := shared.NewToken()
		current.SessionToken = &rotated
		current.CreatedAt = time.Now().UTC()
		if err := s.repo.PutLogin(ctx, current); err != nil {
			return nil, err
		}
		sess.Token = rotated
		sess.Rotated = true
	}
	return sess, nil
}

// Logout closes the user's session; idempotent.
func (s *Service) Logout(ctx context.Context, userID int64) error {
	return s.repo.ClearToken(ctx, userID)
}

// ResetAttempts clears the lockout counter; the administrative unlock.
func (s *Service) ResetAttempts(ctx context.Context, userID int64) error {
	s.locks.Lock(userID)
	defer s.locks.Unlock(userID)
	return s.repo.ResetAttempts(ctx, userID)
}

func (s *Service) observeLogin(result string) {
	if s.metrics != nil {
		s.metrics.LoginObserved(result)
	}
}

func (s *Service) observeLockout() {
	if s.metrics != nil {
		s.metrics.LockoutObserved()
	}
}
