// Package directory is the user-directory collaborator: identity records,
// role assignments and the role/permission graph the auth core reads, plus
// the single per-user refresh-token hash it writes.
package directory

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound      = errors.New("directory: not found")
	ErrAlreadyExists = errors.New("directory: already exists")
)

// Permission is a fine-grained capability with a stable identifier.
type Permission struct {
	ID          string
	Key         string
	Description string
	CreatedAt   time.Time
}

// Role groups permissions under a free-text name.
type Role struct {
	ID          string
	Name        string
	Description string
	Permissions []Permission
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RoleAssignment links a user to a role. The Role pointer carries the raw
// role name and its permissions when loaded through FindByEmail or
// FindByIDWithRoles.
type RoleAssignment struct {
	UserID    string
	RoleID    string
	Role      *Role
	CreatedAt time.Time
}

// User is an identity record. RefreshTokenHash holds the hash of the single
// most-recently-issued refresh token, or "" when none is live.
type User struct {
	ID               string
	Name             string
	Email            string
	PasswordHash     string
	RefreshTokenHash string
	Status           string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	RoleAssignments  []RoleAssignment
}

const (
	UserStatusActive   = "active"
	UserStatusDisabled = "disabled"
)

// Store describes the directory operations the auth core consumes.
// FindByEmail and FindByIDWithRoles return the user together with the
// assignment -> role -> permission graph fully resolved.
type Store interface {
	Create(ctx context.Context, u *User, roleIDs []string) error
	FindByID(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByIDWithRoles(ctx context.Context, id string) (*User, error)
	SetRefreshTokenHash(ctx context.Context, userID, hash string) error
}
