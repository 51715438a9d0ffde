package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyRoleAddIsIdempotent(t *testing.T) {
	stored := []Role{RoleStudent}

	once := ApplyRole(stored, RoleModerator, AssignAdd)
	twice := ApplyRole(once, RoleModerator, AssignAdd)

	assert.Equal(t, []Role{RoleModerator, RoleStudent}, once)
	assert.Equal(t, once, twice)
}

func TestApplyRoleAddKeepsExistingRoles(t *testing.T) {
	got := ApplyRole([]Role{RoleModerator}, RoleAdmin, AssignAdd)
	assert.Equal(t, []Role{RoleAdmin, RoleModerator}, got, "promotion is additive, not replacing")
}

func TestApplyRoleReplace(t *testing.T) {
	got := ApplyRole([]Role{RoleStudent, RoleModerator}, RoleAdmin, AssignReplace)
	assert.Equal(t, []Role{RoleAdmin}, got)
}

func TestApplyRoleNeverStoresUser(t *testing.T) {
	got := ApplyRole([]Role{RoleUser, RoleStudent}, RoleUser, AssignAdd)
	assert.Equal(t, []Role{RoleStudent}, got)
}

func TestCanonicalDeduplicatesAndSorts(t *testing.T) {
	got := Canonical([]Role{RoleStudent, RoleAdmin, RoleStudent, RoleUser})
	assert.Equal(t, []Role{RoleAdmin, RoleStudent}, got)
}

func TestRolesEqualIgnoresOrderAndDuplicates(t *testing.T) {
	assert.True(t, RolesEqual(
		[]Role{RoleModerator, RoleStudent},
		[]Role{RoleStudent, RoleModerator, RoleStudent},
	))
	assert.False(t, RolesEqual([]Role{RoleStudent}, []Role{RoleModerator}))
}

func TestParseRole(t *testing.T) {
	role, err := ParseRole(" moderator ")
	require.NoError(t, err)
	assert.Equal(t, RoleModerator, role)

	_, err = ParseRole("superuser")
	require.Error(t, err)
}

func TestParseRolesDropsUnknownNames(t *testing.T) {
	got := ParseRoles([]string{"ADMIN", "bogus", "student"})
	assert.Equal(t, []Role{RoleAdmin, RoleStudent}, got)
}
