package permissions

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Invalidator drops cached permission resolutions after store mutations.
type Invalidator interface {
	InvalidateAll(ctx context.Context) error
}

// Service owns permission records. The role graph reads them during
// resolution but never mutates them.
type Service struct {
	repo   RepositoryPort
	cache  Invalidator
	logger *slog.Logger
}

// NewService builds a Service instance. cache may be nil.
func NewService(repo RepositoryPort, cache Invalidator, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, logger: logger}
}

// Grant records that roleID may access objectID.
func (s *Service) Grant(ctx context.Context, permissionID, roleID int64, objectID string) error {
	objectID = strings.TrimSpace(objectID)
	if objectID == "" {
		return errors.New("permissions: object id required")
	}
	if err := s.repo.CreatePermission(ctx, Permission{ID: permissionID, RoleID: roleID, ObjectID: objectID}); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// Revoke removes a grant by permission id.
func (s *Service) Revoke(ctx context.Context, permissionID int64) error {
	if err := s.repo.DeletePermission(ctx, permissionID); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// PermissionsOf returns object ids owned directly by roleID, without any
// inheritance walk; inheritance is the role graph's concern.
func (s *Service) PermissionsOf(ctx context.Context, roleID int64) ([]string, error) {
	return s.repo.PermissionsOf(ctx, roleID)
}

// ListByRole returns full grant records for roleID.
func (s *Service) ListByRole(ctx context.Context, roleID int64) ([]Permission, error) {
	return s.repo.ListByRole(ctx, roleID)
}

func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateAll(ctx); err != nil {
		s.logger.Warn("invalidate permission cache", slog.Any("error", err))
	}
}
