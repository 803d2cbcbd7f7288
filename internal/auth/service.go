package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"authgate.org/internal/directory"
	"authgate.org/internal/obs"
	"authgate.org/internal/session"
)

// TokenPair is the result of a successful login or refresh.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Service composes the credential verifier, claims resolver, session store,
// token issuer and refresh guard into the login, refresh and logout
// operations, plus the per-request session-bound gate.
type Service struct {
	users    directory.Store
	sessions *session.Service
	issuer   *TokenIssuer
	guard    *RefreshGuard
	resolver *ClaimsResolver
	log      *zap.Logger
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithResolver overrides the claims resolver (custom role rule table).
func WithResolver(r *ClaimsResolver) ServiceOption {
	return func(s *Service) {
		if r != nil {
			s.resolver = r
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(log *zap.Logger) ServiceOption {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService constructs the orchestrator.
func NewService(users directory.Store, sessions *session.Service, issuer *TokenIssuer, opts ...ServiceOption) *Service {
	s := &Service{
		users:    users,
		sessions: sessions,
		issuer:   issuer,
		guard:    NewRefreshGuard(users),
		log:      obs.Named("auth"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.resolver == nil {
		s.resolver = NewClaimsResolver(nil, s.log)
	}
	return s
}

// Login verifies the email/password pair, creates a session and issues a
// fresh token pair bound to it. Unknown email and wrong password produce the
// identical error.
func (s *Service) Login(ctx context.Context, email, password, clientAddr string) (TokenPair, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return TokenPair{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return TokenPair{}, ErrInvalidCredentials
		}
		return TokenPair{}, err
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}

	sess, err := s.sessions.Create(ctx, user.ID, clientAddr)
	if err != nil {
		return TokenPair{}, err
	}

	pair, err := s.issuePair(ctx, user, sess.SessionID)
	if err != nil {
		return TokenPair{}, err
	}

	s.log.Info("login succeeded",
		zap.String("user_id", user.ID),
		zap.String("session_id", sess.SessionID))
	return pair, nil
}

// Refresh rotates a presented refresh token: the session is checked and
// touched and claims are re-resolved before the hash is verified, so a
// session that expired mid-refresh fails with ErrSessionExpired rather than
// succeeding with stale claims. The new pair stays bound to the same session.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if strings.TrimSpace(refreshToken) == "" {
		return TokenPair{}, fmt.Errorf("%w: refreshToken is required", ErrInvalidInput)
	}

	payload, err := s.issuer.VerifyRefresh(refreshToken)
	if err != nil {
		return TokenPair{}, ErrInvalidToken
	}

	if _, err := s.sessions.FindActive(ctx, payload.SessionID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return TokenPair{}, ErrSessionExpired
		}
		return TokenPair{}, err
	}
	if err := s.sessions.Touch(ctx, payload.SessionID); err != nil {
		return TokenPair{}, err
	}

	user, err := s.users.FindByIDWithRoles(ctx, payload.UserID)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return TokenPair{}, ErrUserNotFound
		}
		return TokenPair{}, err
	}

	if err := s.guard.Verify(user.RefreshTokenHash, refreshToken); err != nil {
		return TokenPair{}, err
	}

	pair, err := s.issuePair(ctx, user, payload.SessionID)
	if err != nil {
		return TokenPair{}, err
	}

	s.log.Debug("token pair rotated",
		zap.String("user_id", user.ID),
		zap.String("session_id", payload.SessionID))
	return pair, nil
}

// Logout clears the user's refresh-token hash, then deactivates the given
// session, or every active session of the user when none is specified.
func (s *Service) Logout(ctx context.Context, userID, sessionID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: userId is required", ErrInvalidInput)
	}

	if err := s.guard.Clear(ctx, userID); err != nil {
		return err
	}
	if sessionID != "" {
		if err := s.sessions.Deactivate(ctx, sessionID); err != nil {
			return err
		}
	} else {
		if _, err := s.sessions.DeactivateAllForUser(ctx, userID); err != nil {
			return err
		}
	}

	s.log.Info("logout",
		zap.String("user_id", userID),
		zap.String("session_id", sessionID))
	return nil
}

// Authenticate is the session-bound request gate: it verifies the access
// token and checks that the embedded session is still active, returning the
// token's claims as the caller's identity and authorization set.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (*TokenPayload, error) {
	payload, err := s.issuer.VerifyAccess(accessToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	if _, err := s.sessions.FindActive(ctx, payload.SessionID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, err
	}
	return payload, nil
}

// Sessions exposes the session service for collaborator surfaces.
func (s *Service) Sessions() *session.Service {
	return s.sessions
}

// issuePair re-resolves claims, signs a new access/refresh pair bound to the
// session and stores the new refresh hash, superseding the previous one.
func (s *Service) issuePair(ctx context.Context, user *directory.User, sessionID string) (TokenPair, error) {
	payload := TokenPayload{
		UserID:      user.ID,
		Username:    displayName(user),
		Email:       user.Email,
		Permissions: s.resolver.Permissions(user),
		Roles:       s.resolver.Roles(user),
		SessionID:   sessionID,
	}

	accessToken, err := s.issuer.SignAccess(payload)
	if err != nil {
		return TokenPair{}, err
	}
	refreshToken, err := s.issuer.SignRefresh(payload)
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.guard.Rotate(ctx, user.ID, refreshToken); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

func displayName(u *directory.User) string {
	if u.Name != "" {
		return u.Name
	}
	return strings.SplitN(u.Email, "@", 2)[0]
}
