package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tastebook/tastebook/internal/platform/httpx"
	"github.com/tastebook/tastebook/internal/rbac"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	FindByID(ctx context.Context, id int64) (User, error)
	FindByUsername(ctx context.Context, username string) (User, error)
	FindByEmail(ctx context.Context, email string) (User, error)
	UpdateProfile(ctx context.Context, id int64, username, email string) (User, error)
	ApplyRoles(ctx context.Context, id int64, apply func(current []rbac.Role) ([]rbac.Role, error)) ([]rbac.Role, error)
}

// Service handles user account business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// Get loads a user by ID.
func (s *Service) Get(ctx context.Context, id int64) (User, error) {
	return s.repo.FindByID(ctx, id)
}

// UpdateProfile changes the caller's username and email.
func (s *Service) UpdateProfile(ctx context.Context, id int64, username, email string) (User, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if username == "" {
		return User{}, fmt.Errorf("%w: username is required", httpx.ErrValidation)
	}
	if email == "" {
		return User{}, fmt.Errorf("%w: email is required", httpx.ErrValidation)
	}
	return s.repo.UpdateProfile(ctx, id, username, email)
}

// ResolveSubject implements rbac.SubjectResolver for session users.
func (s *Service) ResolveSubject(ctx context.Context, userID int64) (*rbac.Subject, error) {
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return user.Subject(), nil
}

// Promote grants a role to the user named by identifier, which may be a
// username or an email. AssignAdd merges the role into the stored set,
// AssignReplace discards the stored set. Re-granting an already held
// role is a no-op and skips the write entirely.
func (s *Service) Promote(ctx context.Context, identifier, roleName string, mode rbac.AssignMode) (PromoteResult, error) {
	role, err := rbac.ParseRole(roleName)
	if err != nil {
		return PromoteResult{}, fmt.Errorf("%w: %v", httpx.ErrValidation, err)
	}
	if role == rbac.RoleUser {
		return PromoteResult{}, fmt.Errorf("%w: %s is implicit and cannot be granted", httpx.ErrValidation, rbac.RoleUser)
	}

	user, err := s.findByIdentifier(ctx, identifier)
	if err != nil {
		return PromoteResult{}, err
	}

	before := rbac.Canonical(user.Roles)
	next := rbac.ApplyRole(before, role, mode)
	if rbac.RolesEqual(before, next) {
		user.Roles = before
		return PromoteResult{User: user, Before: before, After: next}, nil
	}

	after, err := s.repo.ApplyRoles(ctx, user.ID, func(current []rbac.Role) ([]rbac.Role, error) {
		return rbac.ApplyRole(current, role, mode), nil
	})
	if err != nil {
		return PromoteResult{}, err
	}
	user.Roles = after
	return PromoteResult{User: user, Before: before, After: after, Changed: !rbac.RolesEqual(before, after)}, nil
}

// findByIdentifier resolves a username first and falls back to email,
// so promotions work with either.
func (s *Service) findByIdentifier(ctx context.Context, identifier string) (User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return User{}, fmt.Errorf("%w: identifier is required", httpx.ErrValidation)
	}
	user, err := s.repo.FindByUsername(ctx, identifier)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, httpx.ErrNotFound) {
		return User{}, err
	}
	user, err = s.repo.FindByEmail(ctx, identifier)
	if errors.Is(err, httpx.ErrNotFound) {
		return User{}, fmt.Errorf("%w: no user matches %q", httpx.ErrNotFound, identifier)
	}
	return user, err
}
