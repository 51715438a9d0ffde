package auth

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/tastebook/tastebook/internal/shared"
	"github.com/tastebook/tastebook/internal/users"
)

// Service wraps authentication business rules.
type Service struct {
	repo Repository
}

// NewService constructs a new Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Authenticate validates credentials. The identifier may be a username
// or an email address. Lookup failures and password mismatches collapse
// into the same error so the response does not leak which part failed.
func (s *Service) Authenticate(ctx context.Context, identifier, password string) (*users.User, error) {
	identifier = strings.TrimSpace(identifier)
	user, err := s.repo.FindByUsername(ctx, identifier)
	if errors.Is(err, shared.ErrNotFound) {
		user, err = s.repo.FindByEmail(ctx, identifier)
	}
	if err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	return user, nil
}

// Register creates a new account. New accounts carry no stored roles;
// the implicit USER role lets them browse, search and review.
func (s *Service) Register(ctx context.Context, username, email, password string) (*users.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return s.repo.CreateUser(ctx, strings.TrimSpace(username), strings.TrimSpace(email), string(hash))
}
