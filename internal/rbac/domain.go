package rbac

import (
	"fmt"
	"strings"
)

// Role is a named privilege level in the linear hierarchy
// USER < STUDENT < MODERATOR < ADMIN. Holding a role implies every
// privilege of the roles below it.
type Role string

const (
	RoleUser      Role = "USER"
	RoleStudent   Role = "STUDENT"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
)

var roleRank = map[Role]int{
	RoleUser:      0,
	RoleStudent:   1,
	RoleModerator: 2,
	RoleAdmin:     3,
}

// ParseRole normalizes and validates a role name.
func ParseRole(name string) (Role, error) {
	role := Role(strings.ToUpper(strings.TrimSpace(name)))
	if _, ok := roleRank[role]; !ok {
		return "", fmt.Errorf("rbac: unknown role %q", name)
	}
	return role, nil
}

// Valid reports whether the role is one of the known names.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r sits at or above other in the hierarchy.
func (r Role) AtLeast(other Role) bool {
	return roleRank[r] >= roleRank[other]
}

// Action is an operation a subject may attempt on a recipe.
type Action string

const (
	ActionView   Action = "VIEW"
	ActionCreate Action = "CREATE"
	ActionEdit   Action = "EDIT"
	ActionDelete Action = "DELETE"
)

// Valid reports whether the action is one of the known operations.
func (a Action) Valid() bool {
	switch a {
	case ActionView, ActionCreate, ActionEdit, ActionDelete:
		return true
	}
	return false
}

// Decision is the outcome of a policy evaluation.
type Decision int

const (
	Deny Decision = iota
	Allow
)

// String implements fmt.Stringer.
func (d Decision) String() string {
	if d == Allow {
		return "ALLOW"
	}
	return "DENY"
}

// Subject is the acting principal. Roles holds the stored role set; the
// implicit USER role is never stored and is added when computing
// effective roles.
type Subject struct {
	ID    int64
	Roles []Role
}

// EffectiveRoles returns the subject's stored roles plus the implicit
// USER role, canonicalized. The result is never empty.
func (s *Subject) EffectiveRoles() []Role {
	if s == nil {
		return nil
	}
	effective := make([]Role, 0, len(s.Roles)+1)
	effective = append(effective, s.Roles...)
	effective = append(effective, RoleUser)
	return canonicalKeepUser(effective)
}

// HasAtLeast reports whether any effective role of the subject sits at
// or above the required role. This is the hierarchy closure: a
// moderator satisfies HasAtLeast(RoleStudent).
func (s *Subject) HasAtLeast(required Role) bool {
	if s == nil {
		return false
	}
	for _, role := range s.EffectiveRoles() {
		if role.AtLeast(required) {
			return true
		}
	}
	return false
}

// Resource identifies the recipe a policy decision is about. Ownership
// is immutable for policy purposes.
type Resource struct {
	ID      int64
	OwnerID int64
}
