package users

import (
	"time"

	"github.com/tastebook/tastebook/internal/rbac"
)

// User is an account in the catalog. Roles holds the stored role set;
// the implicit USER role is added when computing effective roles.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	Roles        []rbac.Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Subject converts the user to an authorization subject.
func (u *User) Subject() *rbac.Subject {
	if u == nil {
		return nil
	}
	return &rbac.Subject{ID: u.ID, Roles: u.Roles}
}

// PromoteResult describes the outcome of a role promotion.
type PromoteResult struct {
	User    User
	Before  []rbac.Role
	After   []rbac.Role
	Changed bool
}
