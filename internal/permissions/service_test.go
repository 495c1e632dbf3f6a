package permissions_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aegis-auth/aegis/internal/permissions"
	"github.com/aegis-auth/aegis/internal/shared"
	_ "github.com/aegis-auth/aegis/testing"
)

type stubRepo struct {
	grants map[int64]permissions.Permission
	roles  map[int64]bool
}

func newStubRepo(roleIDs ...int64) *stubRepo {
	roles := make(map[int64]bool, len(roleIDs))
	for _, id := range roleIDs {
		roles[id] = true
	}
	return &stubRepo{grants: make(map[int64]permissions.Permission), roles: roles}
}

func (s *stubRepo) CreatePermission(ctx context.Context, p permissions.Permission) error {
	if _, ok := s.grants[p.ID]; ok {
		return shared.ErrDuplicate
	}
	if !s.roles[p.RoleID] {
		return shared.ErrNotFound
	}
	s.grants[p.ID] = p
	return nil
}

func (s *stubRepo) DeletePermission(ctx context.Context, id int64) error {
	if _, ok := s.grants[id]; !ok {
		return shared.ErrNotFound
	}
	delete(s.grants, id)
	return nil
}

func (s *stubRepo) PermissionsOf(ctx context.Context, roleID int64) ([]string, error) {
	var objects []string
	for _, p := range s.grants {
		if p.RoleID == roleID {
			objects = append(objects, p.ObjectID)
		}
	}
	return objects, nil
}

func (s *stubRepo) ListByRole(ctx context.Context, roleID int64) ([]permissions.Permission, error) {
	var out []permissions.Permission
	for _, p := range s.grants {
		if p.RoleID == roleID {
			out = append(out, p)
		}
	}
	return out, nil
}

func TestGrantAndPermissionsOf(t *testing.T) {
	svc := permissions.NewService(newStubRepo(1, 2), nil, nil)
	ctx := context.Background()

	if err := svc.Grant(ctx, 10, 1, "/reports"); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := svc.Grant(ctx, 11, 2, "/exports"); err != nil {
		t.Fatalf("grant: %v", err)
	}

	objects, err := svc.PermissionsOf(ctx, 1)
	if err != nil {
		t.Fatalf("permissions of: %v", err)
	}
	if len(objects) != 1 || objects[0] != "/reports" {
		t.Fatalf("expected direct grant only, got %v", objects)
	}
}

func TestGrantRejectsDuplicateID(t *testing.T) {
	svc := permissions.NewService(newStubRepo(1), nil, nil)
	ctx := context.Background()

	if err := svc.Grant(ctx, 10, 1, "/reports"); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := svc.Grant(ctx, 10, 1, "/other"); !errors.Is(err, shared.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestGrantRejectsUnknownRole(t *testing.T) {
	svc := permissions.NewService(newStubRepo(1), nil, nil)

	if err := svc.Grant(context.Background(), 10, 99, "/reports"); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRevoke(t *testing.T) {
	svc := permissions.NewService(newStubRepo(1), nil, nil)
	ctx := context.Background()

	if err := svc.Grant(ctx, 10, 1, "/reports"); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := svc.Revoke(ctx, 10); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := svc.Revoke(ctx, 10); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second revoke, got %v", err)
	}

	objects, err := svc.PermissionsOf(ctx, 1)
	if err != nil {
		t.Fatalf("permissions of: %v", err)
	}
	if len(objects) != 0 {
		t.Fatalf("expected no grants after revoke, got %v", objects)
	}
}
