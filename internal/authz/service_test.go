package authz_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aegis-auth/aegis/internal/authz"
	"github.com/aegis-auth/aegis/internal/sessions"
	"github.com/aegis-auth/aegis/internal/shared"
	_ "github.com/aegis-auth/aegis/testing"
)

// stubGraph is the role forest admin(1) <- editor(2) <- intern(3).
type stubGraph struct {
	parents map[int64]int64
	calls   int
}

func newStubGraph() *stubGraph {
	return &stubGraph{parents: map[int64]int64{2: 1, 3: 2}}
}

func (g *stubGraph) EffectiveRoles(ctx context.Context, roleID int64) ([]int64, error) {
	g.calls++
	if _, ok := g.parents[roleID]; !ok && roleID != 1 && roleID != 4 {
		return nil, shared.ErrNotFound
	}
	chain := []int64{roleID}
	for {
		parent, ok := g.parents[roleID]
		if !ok {
			return chain, nil
		}
		chain = append(chain, parent)
		roleID = parent
	}
}

type stubPerms struct {
	grants map[int64][]string
	// afterRead runs once the grants for roleID have been read, after the
	// read takes effect. Lets tests interleave a mutation mid-resolution.
	afterRead func(roleID int64)
}

func (p *stubPerms) PermissionsOf(ctx context.Context, roleID int64) ([]string, error) {
	grants := p.grants[roleID]
	if p.afterRead != nil {
		p.afterRead(roleID)
	}
	return grants, nil
}

type stubTokens struct {
	sessions map[string]*sessions.Session
}

func (t *stubTokens) Validate(ctx context.Context, token string) (*sessions.Session, error) {
	sess, ok := t.sessions[token]
	if !ok {
		return nil, shared.ErrAuth
	}
	return sess, nil
}

type stubAccounts struct {
	roles map[int64]int64
}

func (a *stubAccounts) RoleOf(ctx context.Context, userID int64) (int64, error) {
	roleID, ok := a.roles[userID]
	if !ok {
		return 0, shared.ErrNotFound
	}
	return roleID, nil
}

type fixture struct {
	graph    *stubGraph
	perms    *stubPerms
	tokens   *stubTokens
	accounts *stubAccounts
}

func newFixture() *fixture {
	return &fixture{
		graph: newStubGraph(),
		perms: &stubPerms{grants: map[int64][]string{
			1: {"/reports"},
			2: {"/articles"},
			4: {"/lobby"},
		}},
		tokens: &stubTokens{sessions: map[string]*sessions.Session{
			"tok-carol": {UserID: 11, Token: "tok-carol"},
		}},
		accounts: &stubAccounts{roles: map[int64]int64{11: 2}},
	}
}

func (f *fixture) service(cache *authz.Cache, anonymousRole int64) *authz.Service {
	return authz.NewService(f.graph, f.perms, f.tokens, f.accounts, cache, nil, anonymousRole, nil)
}

func TestHasPermissionInherited(t *testing.T) {
	svc := newFixture().service(nil, 0)
	ctx := context.Background()

	// The editor role holds /articles directly and /reports through admin.
	ok, err := svc.HasPermission(ctx, 2, "/articles")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = svc.HasPermission(ctx, 2, "/reports")
	require.NoError(t, err)
	assert.True(t, ok)

	// Inheritance flows toward ancestors only.
	ok, err = svc.HasPermission(ctx, 1, "/articles")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = svc.HasPermission(ctx, 3, "/reports")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHasPermissionDenied(t *testing.T) {
	svc := newFixture().service(nil, 0)

	ok, err := svc.HasPermission(context.Background(), 2, "/admin")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHasPermissionUnknownRole(t *testing.T) {
	svc := newFixture().service(nil, 0)

	_, err := svc.HasPermission(context.Background(), 99, "/reports")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCheckWithToken(t *testing.T) {
	svc := newFixture().service(nil, 0)

	decision, err := svc.Check(context.Background(), "tok-carol", "/reports")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Equal(t, int64(11), decision.UserID)
	assert.Equal(t, int64(2), decision.RoleID)
	assert.Equal(t, "tok-carol", decision.Token)
	assert.False(t, decision.Rotated)
}

func TestCheckInvalidToken(t *testing.T) {
	svc := newFixture().service(nil, 0)

	_, err := svc.Check(context.Background(), "tok-bogus", "/reports")
	assert.ErrorIs(t, err, shared.ErrAuth)
}

func TestCheckAnonymous(t *testing.T) {
	f := newFixture()

	// Without an anonymous role, tokenless checks are refused outright.
	_, err := f.service(nil, 0).Check(context.Background(), "", "/lobby")
	assert.ErrorIs(t, err, shared.ErrAuth)

	svc := f.service(nil, 4)
	decision, err := svc.Check(context.Background(), "", "/lobby")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
	assert.Zero(t, decision.UserID)
	assert.Equal(t, int64(4), decision.RoleID)

	decision, err = svc.Check(context.Background(), "", "/reports")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
}

func newCache(t *testing.T) *authz.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return authz.NewCache(client, time.Minute)
}

func TestCheckUsesCache(t *testing.T) {
	f := newFixture()
	svc := f.service(newCache(t), 0)
	ctx := context.Background()

	ok, err := svc.HasPermission(ctx, 2, "/reports")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, f.graph.calls)

	// The second resolution is served from the cache.
	ok, err = svc.HasPermission(ctx, 2, "/reports")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 1, f.graph.calls)
}

func TestRevokeDuringResolutionNotMaskedByCache(t *testing.T) {
	f := newFixture()
	cache := newCache(t)
	svc := f.service(cache, 0)
	ctx := context.Background()

	// Revoke admin's grant and invalidate after the resolution has read the
	// grants but before it writes the cache. The write must land under the
	// old version and never serve the revoked grant again.
	fired := false
	f.perms.afterRead = func(roleID int64) {
		if roleID != 1 || fired {
			return
		}
		fired = true
		f.perms.grants[1] = nil
		require.NoError(t, cache.InvalidateAll(ctx))
	}

	ok, err := svc.HasPermission(ctx, 2, "/reports")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = svc.HasPermission(ctx, 2, "/reports")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, f.graph.calls)
}

func TestInvalidateAllDropsCachedDecisions(t *testing.T) {
	f := newFixture()
	cache := newCache(t)
	svc := f.service(cache, 0)
	ctx := context.Background()

	ok, err := svc.HasPermission(ctx, 2, "/reports")
	require.NoError(t, err)
	require.True(t, ok)

	// Revoke admin's grant; the stale cache still answers until invalidated.
	f.perms.grants[1] = nil
	ok, err = svc.HasPermission(ctx, 2, "/reports")
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, cache.InvalidateAll(ctx))

	ok, err = svc.HasPermission(ctx, 2, "/reports")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, f.graph.calls)
}
