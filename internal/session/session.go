// Package session tracks server-side login sessions. A session binds a token
// pair's lifetime to an explicit, revocable liveness state: created by login,
// refreshed by successful token refresh, and deactivated by logout or by the
// lazy TTL check. Deactivation is terminal; rows are kept for audit.
package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when no active session matches the lookup.
var ErrNotFound = errors.New("session: not found")

// Session is a server-side session record. SessionID is the short public
// identifier embedded into tokens; ID is the storage row key.
type Session struct {
	ID         string
	SessionID  string
	UserID     string
	Active     bool
	ClientAddr string
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// Age reports how long the session has been idle at the given instant:
// time since last activity, or since creation when it was never touched.
func (s *Session) Age(now time.Time) time.Duration {
	base := s.CreatedAt
	if !s.LastSeenAt.IsZero() {
		base = s.LastSeenAt
	}
	return now.Sub(base)
}

// Store persists session rows. Implementations never delete rows; Deactivate
// and DeactivateAllForUser only flip the active flag and are idempotent.
type Store interface {
	Insert(ctx context.Context, s *Session) error
	FindActive(ctx context.Context, sessionID string) (*Session, error)
	Touch(ctx context.Context, sessionID string, at time.Time) error
	Deactivate(ctx context.Context, sessionID string) (bool, error)
	DeactivateAllForUser(ctx context.Context, userID string) (int, error)
	ActiveByUser(ctx context.Context, userID string) ([]*Session, error)
}
