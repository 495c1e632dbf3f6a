package authz

import (
	"context"
	"log/slog"
	"strconv"

	"golang.org/x/sync/singleflight"

	"github.com/aegis-auth/aegis/internal/sessions"
	"github.com/aegis-auth/aegis/internal/shared"
)

// RoleWalker resolves a role to itself plus all ancestors.
type RoleWalker interface {
	EffectiveRoles(ctx context.Context, roleID int64) ([]int64, error)
}

// PermissionSource lists object ids granted directly to one role.
type PermissionSource interface {
	PermissionsOf(ctx context.Context, roleID int64) ([]string, error)
}

// TokenValidator resolves a session token to its user.
type TokenValidator interface {
	Validate(ctx context.Context, token string) (*sessions.Session, error)
}

// AccountSource resolves a user to their assigned role.
type AccountSource interface {
	RoleOf(ctx context.Context, userID int64) (int64, error)
}

// Metrics receives authorization decisions.
type Metrics interface {
	AuthzObserved(decision string)
}

// Decision is the outcome of a Check call.
type Decision struct {
	Allowed bool
	// UserID is zero for anonymous checks.
	UserID int64
	RoleID int64
	// Token carries the possibly rotated session token.
	Token string
	// Rotated marks that Token replaces the presented one.
	Rotated bool
}

// Service answers "may this role (or session) access this object". It is a
// read-side composition over the role graph and the permission store; caching
// is an optimization only and resolution stays correct without it.
type Service struct {
	roles    RoleWalker
	perms    PermissionSource
	tokens   TokenValidator
	accounts AccountSource
	cache    *Cache
	metrics  Metrics
	logger   *slog.Logger

	// anonymousRole authorizes tokenless checks when nonzero.
	anonymousRole int64

	group singleflight.Group
}

// NewService constructs a Service. cache and metrics may be nil;
// anonymousRole zero disables anonymous checks.
func NewService(roles RoleWalker, perms PermissionSource, tokens TokenValidator, accounts AccountSource, cache *Cache, metrics Metrics, anonymousRole int64, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		roles:         roles,
		perms:         perms,
		tokens:        tokens,
		accounts:      accounts,
		cache:         cache,
		metrics:       metrics,
		anonymousRole: anonymousRole,
		logger:        logger,
	}
}

// HasPermission reports whether roleID or any of its ancestors owns a
// permission naming objectID.
func (s *Service) HasPermission(ctx context.Context, roleID int64, objectID string) (bool, error) {
	objects, err := s.effectiveObjects(ctx, roleID)
	if err != nil {
		return false, err
	}
	for _, object := range objects {
		if object == objectID {
			return true, nil
		}
	}
	return false, nil
}

// Check authorizes a session token (or the anonymous role when the token is
// empty and anonymous access is configured) against objectID.
func (s *Service) Check(ctx context.Context, token, objectID string) (Decision, error) {
	roleID := s.anonymousRole
	decision := Decision{}

	if token != "" {
		sess, err := s.tokens.Validate(ctx, token)
		if err != nil {
			return Decision{}, err
		}
		roleID, err = s.accounts.RoleOf(ctx, sess.UserID)
		if err != nil {
			return Decision{}, err
		}
		decision.UserID = sess.UserID
		decision.Token = sess.Token
		decision.Rotated = sess.Rotated
	} else if roleID == 0 {
		return Decision{}, shared.ErrAuth
	}

	allowed, err := s.HasPermission(ctx, roleID, objectID)
	if err != nil {
		return Decision{}, err
	}
	decision.Allowed = allowed
	decision.RoleID = roleID
	s.observe(allowed)
	return decision, nil
}

// effectiveObjects unions direct grants over the ancestor chain, consulting
// the cache first and deduplicating concurrent resolutions per role.
func (s *Service) effectiveObjects(ctx context.Context, roleID int64) ([]string, error) {
	// The cache version is pinned before any DB read; a mutation landing
	// during the resolution bumps the counter and orphans this write.
	var version int64
	cacheable := false
	if s.cache != nil {
		objects, v, ok, err := s.cache.Get(ctx, roleID)
		if err != nil {
			s.logger.Warn("permission cache read", slog.Any("error", err))
		} else if ok {
			return objects, nil
		} else {
			version = v
			cacheable = true
		}
	}

	result, err, _ := s.group.Do(strconv.FormatInt(roleID, 10), func() (any, error) {
		chain, err := s.roles.EffectiveRoles(ctx, roleID)
		if err != nil {
			return nil, err
		}
		seen := make(map[string]struct{})
		objects := make([]string, 0, 8)
		for _, id := range chain {
			direct, err := s.perms.PermissionsOf(ctx, id)
			if err != nil {
				return nil, err
			}
			for _, object := range direct {
				if _, ok := seen[object]; ok {
					continue
				}
				seen[object] = struct{}{}
				objects = append(objects, object)
			}
		}
		if cacheable {
			if err := s.cache.Put(ctx, roleID, version, objects); err != nil {
				s.logger.Warn("permission cache write", slog.Any("error", err))
			}
		}
		return objects, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]string), nil
}

func (s *Service) observe(allowed bool) {
	if s.metrics == nil {
		return
	}
	if allowed {
		s.metrics.AuthzObserved("allow")
	} else {
		s.metrics.AuthzObserved("deny")
	}
}
