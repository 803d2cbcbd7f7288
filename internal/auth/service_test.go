package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"authgate.org/internal/directory"
	"authgate.org/internal/session"
)

type testEnv struct {
	svc      *Service
	users    *directory.MemoryStore
	sessions *session.MemoryStore
	clock    *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clock := newFakeClock()
	users := directory.NewMemoryStore()
	sessions := session.NewMemoryStore()

	issuer, err := NewTokenIssuer(TokenIssuerConfig{
		Issuer:        "authgate-test",
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
	}, WithTokenClock(clock.Now))
	require.NoError(t, err)

	sessionSvc := session.NewService(sessions,
		session.WithClock(clock.Now),
		session.WithLogger(zap.NewNop()))
	svc := NewService(users, sessionSvc, issuer, WithLogger(zap.NewNop()))

	return &testEnv{svc: svc, users: users, sessions: sessions, clock: clock}
}

func (e *testEnv) addUser(t *testing.T, email, password, name string, roleNames ...string) *directory.User {
	t.Helper()
	hash, err := HashPassword(password)
	require.NoError(t, err)

	var roleIDs []string
	for _, rn := range roleNames {
		roleIDs = append(roleIDs, e.users.AddRole(directory.Role{
			Name:        rn,
			Permissions: []directory.Permission{{ID: "perm-" + rn}},
		}))
	}

	u := &directory.User{Email: email, Name: name, PasswordHash: hash}
	require.NoError(t, e.users.Create(context.Background(), u, roleIDs))
	return u
}

func TestLoginIssuesPairBoundToNewSession(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "alice@example.com", "s3cret", "Alice", "Administrator")

	pair, err := env.svc.Login(ctx, "Alice@Example.COM", "s3cret", "10.0.0.1")
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)

	access, err := env.svc.issuer.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	refresh, err := env.svc.issuer.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)

	require.Equal(t, access.SessionID, refresh.SessionID)
	require.Len(t, access.SessionID, 11)
	require.Equal(t, "Alice", access.Username)
	require.Equal(t, "alice@example.com", access.Email)
	require.Contains(t, access.Roles, RoleAdmin)
	require.Contains(t, access.Permissions, "perm-Administrator")

	sess, err := env.sessions.FindActive(ctx, access.SessionID)
	require.NoError(t, err)
	require.True(t, sess.Active)
	require.Equal(t, "10.0.0.1", sess.ClientAddr)
}

func TestLoginUsernameFallsBackToEmailLocalPart(t *testing.T) {
	env := newTestEnv(t)
	env.addUser(t, "bob@example.com", "pw", "")

	pair, err := env.svc.Login(context.Background(), "bob@example.com", "pw", "")
	require.NoError(t, err)

	claims, err := env.svc.issuer.VerifyAccess(pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "bob", claims.Username)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "carol@example.com", "right-password", "Carol")

	_, errWrongPassword := env.svc.Login(ctx, "carol@example.com", "wrong", "")
	_, errUnknownEmail := env.svc.Login(ctx, "nobody@example.com", "whatever", "")

	require.ErrorIs(t, errWrongPassword, ErrInvalidCredentials)
	require.ErrorIs(t, errUnknownEmail, ErrInvalidCredentials)
	require.Equal(t, errWrongPassword, errUnknownEmail)
}

func TestLoginValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Login(ctx, "", "pw", "")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = env.svc.Login(ctx, "a@b.c", "", "")
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestRefreshRotatesAndRevokesOldToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "dave@example.com", "pw", "Dave")

	pair, err := env.svc.Login(ctx, "dave@example.com", "pw", "")
	require.NoError(t, err)

	oldClaims, err := env.svc.issuer.VerifyRefresh(pair.RefreshToken)
	require.NoError(t, err)

	newPair, err := env.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, newPair.RefreshToken)

	// The new pair stays bound to the same session.
	newClaims, err := env.svc.issuer.VerifyRefresh(newPair.RefreshToken)
	require.NoError(t, err)
	require.Equal(t, oldClaims.SessionID, newClaims.SessionID)

	// Replaying the superseded token fails even though its signature is
	// still cryptographically valid.
	_, err = env.svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrTokenRevoked)

	// The fresh token itself still works.
	_, err = env.svc.Refresh(ctx, newPair.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshPicksUpRoleChanges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.addUser(t, "erin@example.com", "pw", "Erin")

	pair, err := env.svc.Login(ctx, "erin@example.com", "pw", "")
	require.NoError(t, err)
	claims, _ := env.svc.issuer.VerifyAccess(pair.AccessToken)
	require.NotContains(t, claims.Roles, RoleAdmin)

	// Promote the user between login and refresh.
	adminRole := env.users.AddRole(directory.Role{Name: "Administrator"})
	stored, err := env.users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	env.users.ReplaceAssignments(u.ID, append(stored.RoleAssignments, directory.RoleAssignment{
		UserID: u.ID, RoleID: adminRole,
	}))

	newPair, err := env.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	newClaims, _ := env.svc.issuer.VerifyAccess(newPair.AccessToken)
	require.Contains(t, newClaims.Roles, RoleAdmin)
}

func TestRefreshAfterSessionTTLExpires(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "frank@example.com", "pw", "Frank")

	pair, err := env.svc.Login(ctx, "frank@example.com", "pw", "")
	require.NoError(t, err)

	// Past the 2h session TTL but well within the refresh token TTL.
	env.clock.Advance(2*time.Hour + time.Minute)

	_, err = env.svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestGateRejectsExpiredSessionBeforeTokenExpiry(t *testing.T) {
	clock := newFakeClock()
	users := directory.NewMemoryStore()
	issuer, err := NewTokenIssuer(TokenIssuerConfig{
		Issuer:        "authgate-test",
		AccessSecret:  "test-access-secret",
		RefreshSecret: "test-refresh-secret",
		AccessTTL:     4 * time.Hour,
	}, WithTokenClock(clock.Now))
	require.NoError(t, err)

	sessionSvc := session.NewService(session.NewMemoryStore(),
		session.WithClock(clock.Now),
		session.WithLogger(zap.NewNop()))
	svc := NewService(users, sessionSvc, issuer, WithLogger(zap.NewNop()))

	hash, err := HashPassword("pw")
	require.NoError(t, err)
	u := &directory.User{Email: "lea@example.com", PasswordHash: hash}
	require.NoError(t, users.Create(context.Background(), u, nil))

	pair, err := svc.Login(context.Background(), "lea@example.com", "pw", "")
	require.NoError(t, err)

	// The access token outlives the session's 2h idle TTL; the gate must
	// still refuse once the session lapses.
	clock.Advance(3 * time.Hour)
	_, err = svc.Authenticate(context.Background(), pair.AccessToken)
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestRefreshExtendsSessionLife(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "grace@example.com", "pw", "Grace")

	pair, err := env.svc.Login(ctx, "grace@example.com", "pw", "")
	require.NoError(t, err)

	// A refresh inside the window touches the session, restarting the TTL.
	env.clock.Advance(90 * time.Minute)
	pair, err = env.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	env.clock.Advance(90 * time.Minute)
	_, err = env.svc.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Refresh(context.Background(), "")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = env.svc.Refresh(context.Background(), "not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)
}

func TestLogoutSingleSessionLeavesOthersActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.addUser(t, "heidi@example.com", "pw", "Heidi")

	pair1, err := env.svc.Login(ctx, "heidi@example.com", "pw", "")
	require.NoError(t, err)
	pair2, err := env.svc.Login(ctx, "heidi@example.com", "pw", "")
	require.NoError(t, err)

	claims1, _ := env.svc.issuer.VerifyAccess(pair1.AccessToken)
	claims2, _ := env.svc.issuer.VerifyAccess(pair2.AccessToken)
	require.NotEqual(t, claims1.SessionID, claims2.SessionID)

	require.NoError(t, env.svc.Logout(ctx, u.ID, claims1.SessionID))

	_, err = env.svc.Authenticate(ctx, pair1.AccessToken)
	require.ErrorIs(t, err, ErrSessionExpired)

	// The other session still passes the gate.
	_, err = env.svc.Authenticate(ctx, pair2.AccessToken)
	require.NoError(t, err)
}

func TestLogoutAllSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.addUser(t, "ivan@example.com", "pw", "Ivan")

	pair1, _ := env.svc.Login(ctx, "ivan@example.com", "pw", "")
	pair2, _ := env.svc.Login(ctx, "ivan@example.com", "pw", "")

	require.NoError(t, env.svc.Logout(ctx, u.ID, ""))

	_, err := env.svc.Authenticate(ctx, pair1.AccessToken)
	require.ErrorIs(t, err, ErrSessionExpired)
	_, err = env.svc.Authenticate(ctx, pair2.AccessToken)
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestLogoutClearsRefreshHashAcrossSessions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.addUser(t, "judy@example.com", "pw", "Judy")

	pair, err := env.svc.Login(ctx, "judy@example.com", "pw", "")
	require.NoError(t, err)
	claims, _ := env.svc.issuer.VerifyAccess(pair.AccessToken)

	require.NoError(t, env.svc.Logout(ctx, u.ID, claims.SessionID))

	stored, err := env.users.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.Empty(t, stored.RefreshTokenHash)
}

func TestLogoutValidation(t *testing.T) {
	env := newTestEnv(t)
	err := env.svc.Logout(context.Background(), "", "whatever")
	require.ErrorIs(t, err, ErrInvalidInput)
}

// Full lifecycle: login, refresh, logout, replay.
func TestSessionLifecycleScenario(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.addUser(t, "u1@example.com", "pw", "U1")

	// Login issues S1.
	pair, err := env.svc.Login(ctx, "u1@example.com", "pw", "")
	require.NoError(t, err)
	claims, _ := env.svc.issuer.VerifyAccess(pair.AccessToken)
	s1 := claims.SessionID

	// Refresh succeeds, still bound to S1; the old refresh token is revoked.
	oldRefresh := pair.RefreshToken
	pair, err = env.svc.Refresh(ctx, oldRefresh)
	require.NoError(t, err)
	newClaims, _ := env.svc.issuer.VerifyRefresh(pair.RefreshToken)
	require.Equal(t, s1, newClaims.SessionID)

	_, err = env.svc.Refresh(ctx, oldRefresh)
	require.ErrorIs(t, err, ErrTokenRevoked)

	// Logout with S1 deactivates it.
	require.NoError(t, env.svc.Logout(ctx, u.ID, s1))

	// The last-issued, cryptographically valid refresh token now fails on
	// the session check.
	_, err = env.svc.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrSessionExpired)
}

func TestAuthenticateGate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.addUser(t, "kim@example.com", "pw", "Kim")

	pair, err := env.svc.Login(ctx, "kim@example.com", "pw", "")
	require.NoError(t, err)

	claims, err := env.svc.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "kim@example.com", claims.Email)

	_, err = env.svc.Authenticate(ctx, "garbage")
	require.ErrorIs(t, err, ErrInvalidToken)

	// A refresh token is not accepted at the gate.
	_, err = env.svc.Authenticate(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, ErrInvalidToken)
}
