package roles_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aegis-auth/aegis/internal/roles"
	"github.com/aegis-auth/aegis/internal/shared"
	_ "github.com/aegis-auth/aegis/testing"
)

type stubRepo struct {
	nodes map[int64]roles.Role
}

func newStubRepo() *stubRepo {
	return &stubRepo{nodes: make(map[int64]roles.Role)}
}

func (s *stubRepo) CreateRole(ctx context.Context, id int64, parentID *int64) error {
	if _, ok := s.nodes[id]; ok {
		return shared.ErrDuplicate
	}
	s.nodes[id] = roles.Role{ID: id, ParentID: parentID}
	return nil
}

func (s *stubRepo) GetRole(ctx context.Context, id int64) (roles.Role, error) {
	role, ok := s.nodes[id]
	if !ok {
		return roles.Role{}, shared.ErrNotFound
	}
	return role, nil
}

func (s *stubRepo) ListRoles(ctx context.Context) ([]roles.Role, error) {
	out := make([]roles.Role, 0, len(s.nodes))
	for _, role := range s.nodes {
		out = append(out, role)
	}
	return out, nil
}

func (s *stubRepo) DeleteRole(ctx context.Context, id int64) error {
	if _, ok := s.nodes[id]; !ok {
		return shared.ErrNotFound
	}
	delete(s.nodes, id)
	return nil
}

func (s *stubRepo) CountRoles(ctx context.Context) (int64, error) {
	return int64(len(s.nodes)), nil
}

func (s *stubRepo) HasDependents(ctx context.Context, id int64) (bool, error) {
	for _, role := range s.nodes {
		if role.ParentID != nil && *role.ParentID == id {
			return true, nil
		}
	}
	return false, nil
}

func ptr(v int64) *int64 { return &v }

func buildForest(t *testing.T) (*roles.Service, *stubRepo) {
	t.Helper()
	repo := newStubRepo()
	svc := roles.NewService(repo, nil, nil)
	ctx := context.Background()
	// admin <- editor <- intern, plus a free-standing auditor root.
	if err := svc.AddRole(ctx, 1, nil); err != nil {
		t.Fatalf("add admin: %v", err)
	}
	if err := svc.AddRole(ctx, 2, ptr(1)); err != nil {
		t.Fatalf("add editor: %v", err)
	}
	if err := svc.AddRole(ctx, 3, ptr(2)); err != nil {
		t.Fatalf("add intern: %v", err)
	}
	if err := svc.AddRole(ctx, 4, nil); err != nil {
		t.Fatalf("add auditor: %v", err)
	}
	return svc, repo
}

func TestEffectiveRolesWalksAncestry(t *testing.T) {
	svc, _ := buildForest(t)

	chain, err := svc.EffectiveRoles(context.Background(), 3)
	if err != nil {
		t.Fatalf("effective roles: %v", err)
	}
	want := []int64{3, 2, 1}
	if len(chain) != len(want) {
		t.Fatalf("expected chain %v, got %v", want, chain)
	}
	for i := range want {
		if chain[i] != want[i] {
			t.Fatalf("expected chain %v, got %v", want, chain)
		}
	}
}

func TestEffectiveRolesRootIsOnlyItself(t *testing.T) {
	svc, _ := buildForest(t)

	chain, err := svc.EffectiveRoles(context.Background(), 4)
	if err != nil {
		t.Fatalf("effective roles: %v", err)
	}
	if len(chain) != 1 || chain[0] != 4 {
		t.Fatalf("expected [4], got %v", chain)
	}
}

func TestAddRoleRejectsDuplicates(t *testing.T) {
	svc, _ := buildForest(t)

	if err := svc.AddRole(context.Background(), 2, nil); !errors.Is(err, shared.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestAddRoleRejectsUnknownParent(t *testing.T) {
	svc, _ := buildForest(t)

	if err := svc.AddRole(context.Background(), 9, ptr(77)); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAddRoleRejectsSelfParent(t *testing.T) {
	repo := newStubRepo()
	svc := roles.NewService(repo, nil, nil)

	if err := svc.AddRole(context.Background(), 5, ptr(5)); !errors.Is(err, shared.ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
}

func TestEffectiveRolesDetectsInjectedCycle(t *testing.T) {
	svc, repo := buildForest(t)

	// Corrupt the stored forest directly, bypassing AddRole's guard.
	repo.nodes[1] = roles.Role{ID: 1, ParentID: ptr(3)}

	if _, err := svc.EffectiveRoles(context.Background(), 3); !errors.Is(err, shared.ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
}

func TestDeleteRoleRefusesReferencedRole(t *testing.T) {
	svc, _ := buildForest(t)

	if err := svc.DeleteRole(context.Background(), 1); !errors.Is(err, shared.ErrDuplicate) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := svc.DeleteRole(context.Background(), 4); err != nil {
		t.Fatalf("delete leaf role: %v", err)
	}
	if err := svc.DeleteRole(context.Background(), 4); !errors.Is(err, shared.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}
