package rbac

import "sort"

// AssignMode selects how ApplyRole combines the target role with the
// stored set.
type AssignMode int

const (
	// AssignAdd adds the target role to the stored set.
	AssignAdd AssignMode = iota
	// AssignReplace discards the stored set in favour of the target.
	AssignReplace
)

// ApplyRole computes the new stored role set after a promotion. The
// result is canonical: deduplicated, lexicographically sorted, and
// without the implicit USER role (it is added back at read time by
// EffectiveRoles). AssignAdd is idempotent. The caller persists the
// result; wrapping the surrounding read-modify-write in a transaction
// is the caller's responsibility.
func ApplyRole(stored []Role, target Role, mode AssignMode) []Role {
	if mode == AssignReplace {
		return Canonical([]Role{target})
	}
	combined := make([]Role, 0, len(stored)+1)
	combined = append(combined, stored...)
	combined = append(combined, target)
	return Canonical(combined)
}

// Canonical returns the deduplicated, sorted stored form of a role set.
// USER is stripped: it is implicit and never stored.
func Canonical(roles []Role) []Role {
	return canonicalize(roles, false)
}

// RolesEqual compares two role sets by canonical form. Used for the
// no-op short-circuit during promotions.
func RolesEqual(a, b []Role) bool {
	ca, cb := Canonical(a), Canonical(b)
	if len(ca) != len(cb) {
		return false
	}
	for i := range ca {
		if ca[i] != cb[i] {
			return false
		}
	}
	return true
}

// RoleNames converts a role set to plain strings, e.g. for text[]
// columns or display.
func RoleNames(roles []Role) []string {
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	return names
}

// ParseRoles converts stored strings back to a canonical role set,
// silently dropping anything unknown.
func ParseRoles(names []string) []Role {
	roles := make([]Role, 0, len(names))
	for _, name := range names {
		if role, err := ParseRole(name); err == nil {
			roles = append(roles, role)
		}
	}
	return Canonical(roles)
}

func canonicalKeepUser(roles []Role) []Role {
	return canonicalize(roles, true)
}

func canonicalize(roles []Role, keepUser bool) []Role {
	seen := make(map[Role]struct{}, len(roles))
	out := make([]Role, 0, len(roles))
	for _, role := range roles {
		if !role.Valid() {
			continue
		}
		if role == RoleUser && !keepUser {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		out = append(out, role)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
