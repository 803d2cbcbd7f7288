package directory

import (
	"context"
	"strings"
	"sync"
	"time"

	"authgate.org/internal/ids"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory Store used by tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]*User
	byEmail map[string]string
	roles   map[string]*Role
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]*User),
		byEmail: make(map[string]string),
		roles:   make(map[string]*Role),
	}
}

// AddRole registers a role so assignments can resolve it.
func (s *MemoryStore) AddRole(role Role) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if role.ID == "" {
		role.ID = ids.New()
	}
	r := role
	s.roles[r.ID] = &r
	return r.ID
}

func (s *MemoryStore) Create(_ context.Context, u *User, roleIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if _, ok := s.byEmail[u.Email]; ok {
		return ErrAlreadyExists
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	for _, roleID := range roleIDs {
		u.RoleAssignments = append(u.RoleAssignments, RoleAssignment{
			UserID:    u.ID,
			RoleID:    roleID,
			CreatedAt: now,
		})
	}

	clone := cloneUser(u)
	s.users[u.ID] = clone
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return cloneUser(u), nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byEmail[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, ErrNotFound
	}
	return s.resolved(s.users[id]), nil
}

func (s *MemoryStore) FindByIDWithRoles(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.resolved(u), nil
}

func (s *MemoryStore) SetRefreshTokenHash(_ context.Context, userID, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.RefreshTokenHash = hash
	u.UpdatedAt = time.Now().UTC()
	return nil
}

// ReplaceAssignments swaps a user's role assignments wholesale. Test hook
// for exercising role changes between token issuances.
func (s *MemoryStore) ReplaceAssignments(userID string, assignments []RoleAssignment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return
	}
	u.RoleAssignments = append([]RoleAssignment(nil), assignments...)
	u.UpdatedAt = time.Now().UTC()
}

// resolved returns a copy of the user with each assignment's role graph
// attached. Callers hold the lock.
func (s *MemoryStore) resolved(u *User) *User {
	clone := cloneUser(u)
	for i := range clone.RoleAssignments {
		if role, ok := s.roles[clone.RoleAssignments[i].RoleID]; ok {
			r := *role
			r.Permissions = append([]Permission(nil), role.Permissions...)
			clone.RoleAssignments[i].Role = &r
		}
	}
	return clone
}

func cloneUser(u *User) *User {
	clone := *u
	clone.RoleAssignments = append([]RoleAssignment(nil), u.RoleAssignments...)
	return &clone
}
