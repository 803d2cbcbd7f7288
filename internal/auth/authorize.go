package auth

// Authorization checks are pure predicates over the role and permission sets
// already embedded in a request's claims; they never touch storage.

// HasRole reports whether the claims carry the given canonical role.
func (p *TokenPayload) HasRole(role Role) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasPermission reports whether the claims carry the given permission id.
func (p *TokenPayload) HasPermission(permissionID string) bool {
	for _, id := range p.Permissions {
		if id == permissionID {
			return true
		}
	}
	return false
}

// Predicate is a composable authorization check evaluated against a
// request's claims before the protected handler runs.
type Predicate func(*TokenPayload) bool

// RequireRole passes when the claims hold any of the given roles.
func RequireRole(roles ...Role) Predicate {
	return func(p *TokenPayload) bool {
		for _, role := range roles {
			if p.HasRole(role) {
				return true
			}
		}
		return false
	}
}

// RequirePermission passes when the claims hold any of the given
// permission ids.
func RequirePermission(permissionIDs ...string) Predicate {
	return func(p *TokenPayload) bool {
		for _, id := range permissionIDs {
			if p.HasPermission(id) {
				return true
			}
		}
		return false
	}
}

// AllOf passes when every predicate passes.
func AllOf(preds ...Predicate) Predicate {
	return func(p *TokenPayload) bool {
		for _, pred := range preds {
			if !pred(p) {
				return false
			}
		}
		return true
	}
}

// AnyOf passes when at least one predicate passes.
func AnyOf(preds ...Predicate) Predicate {
	return func(p *TokenPayload) bool {
		for _, pred := range preds {
			if pred(p) {
				return true
			}
		}
		return false
	}
}
