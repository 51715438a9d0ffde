package categories

import (
	"context"
	"fmt"
	"strings"

	"github.com/tastebook/tastebook/internal/platform/httpx"
)

// Service wraps category business rules.
type Service struct {
	repo Repository
}

// NewService constructs a Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns all categories ordered by name.
func (s *Service) List(ctx context.Context) ([]Category, error) {
	return s.repo.List(ctx)
}

// Get fetches a category by ID.
func (s *Service) Get(ctx context.Context, id int64) (Category, error) {
	return s.repo.Get(ctx, id)
}

// Create inserts a new category with a trimmed, non-empty name.
func (s *Service) Create(ctx context.Context, name string) (Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Category{}, fmt.Errorf("%w: name is required", httpx.ErrValidation)
	}
	return s.repo.Create(ctx, name)
}
