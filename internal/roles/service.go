package roles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aegis-auth/aegis/internal/shared"
)

// Invalidator drops cached permission resolutions after graph mutations.
type Invalidator interface {
	InvalidateAll(ctx context.Context) error
}

// Service owns the role forest. Mutations are serialized against ancestry
// walks so a traversal never observes a half-written parent link.
type Service struct {
	repo   RepositoryPort
	cache  Invalidator
	logger *slog.Logger

	mu sync.RWMutex
}

// NewService builds a Service instance. cache may be nil.
func NewService(repo RepositoryPort, cache Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// AddRole inserts a role node with an optional parent. It refuses duplicate
// ids, unknown parents, and any parent assignment that would close a cycle.
func (s *Service) AddRole(ctx context.Context, id int64, parentID *int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.repo.GetRole(ctx, id); err == nil {
		return shared.ErrDuplicate
	} else if !errors.Is(err, shared.ErrNotFound) {
		return err
	}

	if parentID != nil {
		if *parentID == id {
			return shared.ErrCycle
		}
		ancestors, err := s.walk(ctx, *parentID)
		if err != nil {
			return err
		}
		for _, ancestor := range ancestors {
			if ancestor == id {
				return shared.ErrCycle
			}
		}
	}

	if err := s.repo.CreateRole(ctx, id, parentID); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// EffectiveRoles returns id followed by every ancestor up to a root. A walk
// exceeding the node count means the stored graph contains a cycle; that is a
// data-integrity defect, fatal to the request but not to the process.
func (s *Service) EffectiveRoles(ctx context.Context, id int64) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.walk(ctx, id)
}

// ListRoles returns all role nodes.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.repo.ListRoles(ctx)
}

// DeleteRole removes a role that no child, user, or permission references.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dependent, err := s.repo.HasDependents(ctx, id)
	if err != nil {
		return err
	}
	if dependent {
		return fmt.Errorf("role %d still referenced: %w", id, shared.ErrDuplicate)
	}
	if err := s.repo.DeleteRole(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// walk performs the bounded parent-chain traversal. Callers hold s.mu.
func (s *Service) walk(ctx context.Context, id int64) ([]int64, error) {
	limit, err := s.repo.CountRoles(ctx)
	if err != nil {
		return nil, err
	}

	chain := make([]int64, 0, 4)
	current := id
	for steps := int64(0); ; steps++ {
		if steps > limit {
			s.logger.Error("role graph contains a cycle",
				slog.Int64("role_id", id), slog.Int64("at", current))
			return nil, shared.ErrCycle
		}
		role, err := s.repo.GetRole(ctx, current)
		if err != nil {
			return nil, err
		}
		chain = append(chain, role.ID)
		if role.ParentID == nil {
			return chain, nil
		}
		current = *role.ParentID
	}
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.logger.Warn("invalidate permission cache", slog.Any("error", err))
	}
}
