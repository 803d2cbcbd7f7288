package auth

import (
	"strings"

	"go.uber.org/zap"

	"authgate.org/internal/directory"
	"authgate.org/internal/obs"
)

// Role is a canonical role embedded into token claims.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// RuleOp selects how a RoleRule matches a normalized role name.
type RuleOp string

const (
	OpContains RuleOp = "contains"
	OpEquals   RuleOp = "equals"
)

// RoleRule maps a raw role name onto a canonical role. Rules are evaluated
// in order; the first match wins.
type RoleRule struct {
	Op      RuleOp
	Pattern string
	Role    Role
}

// DefaultRoleRules reproduces the historical free-text classification:
// anything containing "admin" is an admin; "user", legacy partner, support
// and back-office names are regular users. Names matching no rule are
// dropped.
func DefaultRoleRules() []RoleRule {
	return []RoleRule{
		{Op: OpContains, Pattern: "admin", Role: RoleAdmin},
		{Op: OpEquals, Pattern: "user", Role: RoleUser},
		{Op: OpContains, Pattern: " user", Role: RoleUser},
		{Op: OpContains, Pattern: "partner", Role: RoleUser},
		{Op: OpContains, Pattern: "support", Role: RoleUser},
		{Op: OpContains, Pattern: "back", Role: RoleUser},
	}
}

// ClaimsResolver derives a user's canonical role set and permission-id set
// from raw role-assignment rows. It is invoked at both login and refresh so
// a role change takes effect no later than the next refresh.
type ClaimsResolver struct {
	rules []RoleRule
	log   *zap.Logger
}

// NewClaimsResolver builds a resolver over the given ordered rule table.
// A nil table selects DefaultRoleRules.
func NewClaimsResolver(rules []RoleRule, log *zap.Logger) *ClaimsResolver {
	if rules == nil {
		rules = DefaultRoleRules()
	}
	if log == nil {
		log = obs.Named("claims")
	}
	return &ClaimsResolver{rules: rules, log: log}
}

// Roles classifies every role assignment independently, deduplicates the
// results and defaults to {user} when nothing matched.
func (r *ClaimsResolver) Roles(u *directory.User) []Role {
	seen := make(map[Role]struct{})
	var roles []Role
	for _, a := range u.RoleAssignments {
		if a.Role == nil {
			continue
		}
		role, ok := r.classify(a.Role.Name)
		if !ok {
			r.log.Debug("role name matched no rule, dropped",
				zap.String("user_id", u.ID),
				zap.String("role_name", a.Role.Name))
			continue
		}
		if _, dup := seen[role]; dup {
			continue
		}
		seen[role] = struct{}{}
		roles = append(roles, role)
	}
	if len(roles) == 0 {
		roles = []Role{RoleUser}
	}
	return roles
}

// Permissions returns the deduplicated union of permission ids reachable
// through the user's role assignments. No ordering guarantee.
func (r *ClaimsResolver) Permissions(u *directory.User) []string {
	seen := make(map[string]struct{})
	var perms []string
	for _, a := range u.RoleAssignments {
		if a.Role == nil {
			continue
		}
		for _, p := range a.Role.Permissions {
			if p.ID == "" {
				continue
			}
			if _, dup := seen[p.ID]; dup {
				continue
			}
			seen[p.ID] = struct{}{}
			perms = append(perms, p.ID)
		}
	}
	return perms
}

func (r *ClaimsResolver) classify(rawName string) (Role, bool) {
	name := strings.ToLower(strings.TrimSpace(rawName))
	for _, rule := range r.rules {
		switch rule.Op {
		case OpEquals:
			if name == rule.Pattern {
				return rule.Role, true
			}
		case OpContains:
			if strings.Contains(name, rule.Pattern) {
				return rule.Role, true
			}
		}
	}
	return "", false
}
