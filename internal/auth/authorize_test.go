package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func adminPayload() *TokenPayload {
	return &TokenPayload{
		UserID:      "user-1",
		Roles:       []Role{RoleAdmin, RoleUser},
		Permissions: []string{"perm-1", "perm-2"},
		SessionID:   "abcdef12345",
	}
}

func TestHasRoleAndPermission(t *testing.T) {
	p := adminPayload()

	require.True(t, p.HasRole(RoleAdmin))
	require.True(t, p.HasRole(RoleUser))
	require.False(t, (&TokenPayload{Roles: []Role{RoleUser}}).HasRole(RoleAdmin))

	require.True(t, p.HasPermission("perm-2"))
	require.False(t, p.HasPermission("perm-9"))
}

func TestRequireRoleAnyOfSemantics(t *testing.T) {
	userOnly := &TokenPayload{Roles: []Role{RoleUser}}

	require.True(t, RequireRole(RoleAdmin, RoleUser)(userOnly))
	require.False(t, RequireRole(RoleAdmin)(userOnly))
	require.False(t, RequireRole()(userOnly))
}

func TestRequirePermissionAnyOfSemantics(t *testing.T) {
	p := adminPayload()

	require.True(t, RequirePermission("perm-9", "perm-1")(p))
	require.False(t, RequirePermission("perm-9")(p))
}

func TestPredicateCombinators(t *testing.T) {
	p := adminPayload()

	require.True(t, AllOf(RequireRole(RoleAdmin), RequirePermission("perm-1"))(p))
	require.False(t, AllOf(RequireRole(RoleAdmin), RequirePermission("perm-9"))(p))
	require.True(t, AllOf()(p))

	require.True(t, AnyOf(RequireRole(RoleAdmin), RequirePermission("perm-9"))(p))
	require.False(t, AnyOf(RequirePermission("perm-8"), RequirePermission("perm-9"))(p))
	require.False(t, AnyOf()(p))
}

func TestClaimsContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	_, ok := ClaimsFromContext(ctx)
	require.False(t, ok)

	claims := adminPayload()
	ctx = ContextWithClaims(ctx, claims)
	got, ok := ClaimsFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, claims, got)

	// Nil claims leave the context untouched.
	ctx2 := ContextWithClaims(context.Background(), nil)
	_, ok = ClaimsFromContext(ctx2)
	require.False(t, ok)
}

func TestTokenContextRoundTrip(t *testing.T) {
	ctx := context.Background()

	_, ok := TokenFromContext(ctx)
	require.False(t, ok)

	ctx = ContextWithToken(ctx, "raw-token")
	tok, ok := TokenFromContext(ctx)
	require.True(t, ok)
	require.Equal(t, "raw-token", tok)

	_, ok = TokenFromContext(ContextWithToken(context.Background(), ""))
	require.False(t, ok)
}
