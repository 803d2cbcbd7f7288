package session

import (
	"context"
	"database/sql"
	"time"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Insert(ctx context.Context, sess *Session) error {
	_, err := s.db.ExecContext(ctx,
		`insert into sessions(id, session_id, user_id, is_active, client_addr, created_at)
		 values($1,$2,$3,$4,$5,$6)`,
		sess.ID, sess.SessionID, sess.UserID, sess.Active, nullIfEmpty(sess.ClientAddr), sess.CreatedAt,
	)
	return err
}

func (s *PGStore) FindActive(ctx context.Context, sessionID string) (*Session, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, session_id, user_id, is_active, client_addr, created_at, last_seen_at
		 from sessions where session_id=$1 and is_active=true`, sessionID)
	return scanSession(row)
}

func (s *PGStore) Touch(ctx context.Context, sessionID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`update sessions set last_seen_at=$2 where session_id=$1 and is_active=true`,
		sessionID, at,
	)
	return err
}

func (s *PGStore) Deactivate(ctx context.Context, sessionID string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`update sessions set is_active=false where session_id=$1 and is_active=true`,
		sessionID,
	)
	if err != nil {
		return false, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (s *PGStore) DeactivateAllForUser(ctx context.Context, userID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`update sessions set is_active=false where user_id=$1 and is_active=true`,
		userID,
	)
	if err != nil {
		return 0, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (s *PGStore) ActiveByUser(ctx context.Context, userID string) ([]*Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, session_id, user_id, is_active, client_addr, created_at, last_seen_at
		 from sessions where user_id=$1 and is_active=true order by created_at asc`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, sess)
	}
	return res, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var (
		sess     Session
		addr     sql.NullString
		lastSeen sql.NullTime
	)
	if err := row.Scan(&sess.ID, &sess.SessionID, &sess.UserID, &sess.Active, &addr, &sess.CreatedAt, &lastSeen); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	sess.ClientAddr = addr.String
	if lastSeen.Valid {
		sess.LastSeenAt = lastSeen.Time
	}
	return &sess, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
