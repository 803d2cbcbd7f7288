package directory

import (
	"context"
	"database/sql"
	"strings"

	"authgate.org/internal/ids"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Create(ctx context.Context, u *User, roleIDs []string) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	if u.Status == "" {
		u.Status = UserStatusActive
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`insert into users(id, name, email, password_hash, status) values($1,$2,$3,$4,$5)`,
		u.ID, nullIfEmpty(u.Name), u.Email, u.PasswordHash, u.Status,
	)
	if err != nil {
		return err
	}
	for _, roleID := range roleIDs {
		_, err = tx.ExecContext(ctx,
			`insert into user_roles(user_id, role_id) values($1,$2) on conflict do nothing`,
			u.ID, roleID,
		)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *PGStore) FindByID(ctx context.Context, id string) (*User, error) {
	return s.findUser(ctx, `where id=$1`, id)
}

func (s *PGStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.findUser(ctx, `where email=$1`, email)
	if err != nil {
		return nil, err
	}
	if err := s.loadRoleGraph(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *PGStore) FindByIDWithRoles(ctx context.Context, id string) (*User, error) {
	u, err := s.findUser(ctx, `where id=$1`, id)
	if err != nil {
		return nil, err
	}
	if err := s.loadRoleGraph(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *PGStore) SetRefreshTokenHash(ctx context.Context, userID, hash string) error {
	_, err := s.db.ExecContext(ctx,
		`update users set refresh_token_hash=$2, updated_at=now() where id=$1`,
		userID, nullIfEmpty(hash),
	)
	return err
}

func (s *PGStore) findUser(ctx context.Context, where string, arg any) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, name, email, password_hash, refresh_token_hash, status, created_at, updated_at
		 from users `+where, arg)
	var (
		u    User
		name sql.NullString
		hash sql.NullString
	)
	if err := row.Scan(&u.ID, &name, &u.Email, &u.PasswordHash, &hash, &u.Status, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	u.Name = name.String
	u.RefreshTokenHash = hash.String
	return &u, nil
}

// loadRoleGraph resolves assignment -> role -> permission rows for the user
// in a single left-joined query.
func (s *PGStore) loadRoleGraph(ctx context.Context, u *User) error {
	rows, err := s.db.QueryContext(ctx,
		`select ur.role_id, ur.created_at, r.name, r.description,
		        p.id, p.key, p.description
		 from user_roles ur
		 join roles r on r.id = ur.role_id
		 left join role_permissions rp on rp.role_id = r.id
		 left join permissions p on p.id = rp.permission_id
		 where ur.user_id=$1
		 order by ur.role_id`, u.ID)
	if err != nil {
		return err
	}
	defer rows.Close()

	byRole := make(map[string]*RoleAssignment)
	var order []string
	for rows.Next() {
		var (
			a        RoleAssignment
			roleName string
			roleDesc sql.NullString
			permID   sql.NullString
			permKey  sql.NullString
			permDesc sql.NullString
		)
		if err := rows.Scan(&a.RoleID, &a.CreatedAt, &roleName, &roleDesc, &permID, &permKey, &permDesc); err != nil {
			return err
		}
		existing, ok := byRole[a.RoleID]
		if !ok {
			a.UserID = u.ID
			a.Role = &Role{ID: a.RoleID, Name: roleName, Description: roleDesc.String}
			byRole[a.RoleID] = &a
			order = append(order, a.RoleID)
			existing = &a
		}
		if permID.Valid {
			existing.Role.Permissions = append(existing.Role.Permissions, Permission{
				ID:          permID.String,
				Key:         permKey.String,
				Description: permDesc.String,
			})
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	u.RoleAssignments = u.RoleAssignments[:0]
	for _, roleID := range order {
		u.RoleAssignments = append(u.RoleAssignments, *byRole[roleID])
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
