package session

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"authgate.org/internal/ids"
	"authgate.org/internal/obs"
)

// DefaultTTL is the idle lifetime after which a session is treated as
// expired on its next lookup.
const DefaultTTL = 2 * time.Hour

// sessionIDLength is the length of the public session identifier: a
// dash-stripped UUID truncated to 11 characters. Collisions are not actively
// checked; the id space is treated as practically unique.
const sessionIDLength = 11

// Service wraps a Store with session-id generation and lazy TTL enforcement.
// There is no background sweep: an expired session stays active in storage
// until the next FindActive call deactivates it.
type Service struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
	log   *zap.Logger
}

// Option configures Service behavior.
type Option func(*Service)

// WithTTL overrides the session idle TTL.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// WithLogger overrides the component logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// NewService constructs a Service over the given store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		ttl:   DefaultTTL,
		now:   time.Now,
		log:   obs.Named("sessions"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create mints a new active session for the user.
func (s *Service) Create(ctx context.Context, userID, clientAddr string) (*Session, error) {
	sess := &Session{
		ID:         ids.New(),
		SessionID:  newSessionID(),
		UserID:     userID,
		Active:     true,
		ClientAddr: clientAddr,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.store.Insert(ctx, sess); err != nil {
		return nil, err
	}
	s.log.Info("session created",
		zap.String("user_id", userID),
		zap.String("session_id", sess.SessionID))
	return sess, nil
}

// FindActive returns the active session with the given public id, enforcing
// the TTL lazily: an over-age session is deactivated as a side effect of the
// lookup and reported as not found.
func (s *Service) FindActive(ctx context.Context, sessionID string) (*Session, error) {
	sess, err := s.store.FindActive(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if age := sess.Age(s.now()); age > s.ttl {
		if _, err := s.store.Deactivate(ctx, sess.SessionID); err != nil {
			return nil, err
		}
		obs.SessionsExpiredTotal.Inc()
		s.log.Warn("session expired",
			zap.String("session_id", sess.SessionID),
			zap.Duration("age", age))
		return nil, ErrNotFound
	}
	return sess, nil
}

// Touch records activity on an active session; the sole mechanism extending
// a session's life.
func (s *Service) Touch(ctx context.Context, sessionID string) error {
	return s.store.Touch(ctx, sessionID, s.now().UTC())
}

// Deactivate marks one session inactive. Deactivating an already-inactive
// session is a no-op.
func (s *Service) Deactivate(ctx context.Context, sessionID string) error {
	changed, err := s.store.Deactivate(ctx, sessionID)
	if err != nil {
		return err
	}
	if changed {
		s.log.Info("session deactivated", zap.String("session_id", sessionID))
	}
	return nil
}

// DeactivateAllForUser marks every active session of the user inactive and
// returns how many were affected.
func (s *Service) DeactivateAllForUser(ctx context.Context, userID string) (int, error) {
	if strings.TrimSpace(userID) == "" {
		return 0, nil
	}
	count, err := s.store.DeactivateAllForUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.log.Info("terminated active sessions",
		zap.String("user_id", userID),
		zap.Int("count", count))
	return count, nil
}

// ActiveByUser lists the user's currently-active sessions.
func (s *Service) ActiveByUser(ctx context.Context, userID string) ([]*Session, error) {
	return s.store.ActiveByUser(ctx, userID)
}

func newSessionID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:sessionIDLength]
}
