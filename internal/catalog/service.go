package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tastebook/tastebook/internal/observability"
	"github.com/tastebook/tastebook/internal/platform/httpx"
	"github.com/tastebook/tastebook/internal/rbac"
	"github.com/tastebook/tastebook/internal/search"
	"github.com/tastebook/tastebook/internal/shared"
)

// RepositoryPort defines data access methods for recipes and reviews.
type RepositoryPort interface {
	Search(ctx context.Context, q search.Query, limit, offset int) ([]Recipe, int, error)
	Get(ctx context.Context, id int64) (Recipe, error)
	Create(ctx context.Context, authorID int64, input RecipeInput) (Recipe, error)
	Update(ctx context.Context, id int64, input RecipeInput) (Recipe, error)
	Delete(ctx context.Context, id int64) error
	ListByAuthor(ctx context.Context, authorID int64) ([]Recipe, error)
	CreateReview(ctx context.Context, recipeID, authorID int64, rating int, comment string) (Review, error)
	HasReview(ctx context.Context, recipeID, authorID int64) (bool, error)
	ListReviews(ctx context.Context, recipeID int64) ([]Review, error)
}

// RatingRefreshEnqueuer schedules an asynchronous rebuild of the rating
// stats view after review writes.
type RatingRefreshEnqueuer interface {
	EnqueueRatingRefresh(ctx context.Context) error
}

// Service handles recipe business logic and enforces the access policy
// on every mutating operation.
type Service struct {
	repo     RepositoryPort
	enqueuer RatingRefreshEnqueuer
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// NewService builds a Service instance. Enqueuer and metrics may be nil.
func NewService(repo RepositoryPort, enqueuer RatingRefreshEnqueuer, metrics *observability.Metrics, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, enqueuer: enqueuer, metrics: metrics, logger: logger}
}

// Search composes the criteria into a predicate and executes it.
// Malformed criteria surface as validation errors, never as a silently
// widened result set.
func (s *Service) Search(ctx context.Context, criteria search.Criteria, page int) (SearchResult, error) {
	spec, order, err := search.Compose(criteria)
	if err != nil {
		var verr *search.ValidationError
		if errors.As(err, &verr) {
			return SearchResult{}, fmt.Errorf("%w: %s: %s", httpx.ErrValidation, verr.Field, verr.Reason)
		}
		return SearchResult{}, err
	}

	if s.metrics != nil {
		s.metrics.CountSearch(spec.NeedsAggregation())
	}

	pagination := shared.NewPagination(page, 0, 0)
	q := search.Render(spec, order)
	recipes, total, err := s.repo.Search(ctx, q, pagination.PerPage, (pagination.Page-1)*pagination.PerPage)
	if err != nil {
		return SearchResult{}, err
	}
	return SearchResult{
		Recipes:    recipes,
		Pagination: shared.NewPagination(pagination.Page, pagination.PerPage, total),
	}, nil
}

// Get loads a recipe. Viewing requires no subject; the catalog is
// readable by anyone who can reach it.
func (s *Service) Get(ctx context.Context, id int64) (Recipe, error) {
	return s.repo.Get(ctx, id)
}

// GetForSubject loads a recipe after a view-policy check. The JSON API
// serves recipe details to authenticated callers only; the web catalog
// stays public via Get.
func (s *Service) GetForSubject(ctx context.Context, subject *rbac.Subject, id int64) (Recipe, error) {
	recipe, err := s.repo.Get(ctx, id)
	if err != nil {
		return Recipe{}, err
	}
	if err := s.authorize(subject, rbac.ActionView, &rbac.Resource{ID: recipe.ID, OwnerID: recipe.AuthorID}); err != nil {
		return Recipe{}, err
	}
	return recipe, nil
}

// ReviewsForSubject lists a recipe's reviews after the same view-policy
// check as GetForSubject.
func (s *Service) ReviewsForSubject(ctx context.Context, subject *rbac.Subject, recipeID int64) ([]Review, error) {
	recipe, err := s.repo.Get(ctx, recipeID)
	if err != nil {
		return nil, err
	}
	if err := s.authorize(subject, rbac.ActionView, &rbac.Resource{ID: recipe.ID, OwnerID: recipe.AuthorID}); err != nil {
		return nil, err
	}
	return s.repo.ListReviews(ctx, recipeID)
}

// Create inserts a recipe owned by the subject.
func (s *Service) Create(ctx context.Context, subject *rbac.Subject, input RecipeInput) (Recipe, error) {
	if err := s.authorize(subject, rbac.ActionCreate, nil); err != nil {
		return Recipe{}, err
	}
	if err := validateInput(&input); err != nil {
		return Recipe{}, err
	}
	return s.repo.Create(ctx, subject.ID, input)
}

// Update rewrites a recipe after an edit-policy check against the
// stored owner.
func (s *Service) Update(ctx context.Context, subject *rbac.Subject, id int64, input RecipeInput) (Recipe, error) {
	recipe, err := s.repo.Get(ctx, id)
	if err != nil {
		return Recipe{}, err
	}
	if err := s.authorize(subject, rbac.ActionEdit, &rbac.Resource{ID: recipe.ID, OwnerID: recipe.AuthorID}); err != nil {
		return Recipe{}, err
	}
	if err := validateInput(&input); err != nil {
		return Recipe{}, err
	}
	return s.repo.Update(ctx, id, input)
}

// Delete removes a recipe after a delete-policy check.
func (s *Service) Delete(ctx context.Context, subject *rbac.Subject, id int64) error {
	recipe, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.authorize(subject, rbac.ActionDelete, &rbac.Resource{ID: recipe.ID, OwnerID: recipe.AuthorID}); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

// ListMine returns the subject's own recipes.
func (s *Service) ListMine(ctx context.Context, subject *rbac.Subject) ([]Recipe, error) {
	if subject == nil {
		return nil, fmt.Errorf("%w: sign in to continue", httpx.ErrUnauthorized)
	}
	return s.repo.ListByAuthor(ctx, subject.ID)
}

// AddReview records a rating. One review per user per recipe; authors
// cannot rate their own recipes.
func (s *Service) AddReview(ctx context.Context, subject *rbac.Subject, recipeID int64, rating int, comment string) (Review, error) {
	if subject == nil {
		return Review{}, fmt.Errorf("%w: sign in to review", httpx.ErrUnauthorized)
	}
	if rating < 1 || rating > 5 {
		return Review{}, fmt.Errorf("%w: rating must be between 1 and 5", httpx.ErrValidation)
	}

	recipe, err := s.repo.Get(ctx, recipeID)
	if err != nil {
		return Review{}, err
	}
	if recipe.AuthorID == subject.ID {
		return Review{}, fmt.Errorf("%w: you cannot review your own recipe", httpx.ErrValidation)
	}

	reviewed, err := s.repo.HasReview(ctx, recipeID, subject.ID)
	if err != nil {
		return Review{}, err
	}
	if reviewed {
		return Review{}, fmt.Errorf("%w: you already reviewed this recipe", httpx.ErrDuplicate)
	}

	review, err := s.repo.CreateReview(ctx, recipeID, subject.ID, rating, strings.TrimSpace(comment))
	if err != nil {
		return Review{}, err
	}

	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueRatingRefresh(ctx); err != nil {
			s.logger.Warn("enqueue rating refresh", slog.Int64("recipe_id", recipeID), slog.Any("error", err))
		}
	}
	return review, nil
}

// Reviews lists a recipe's reviews.
func (s *Service) Reviews(ctx context.Context, recipeID int64) ([]Review, error) {
	return s.repo.ListReviews(ctx, recipeID)
}

// CanEdit and CanDelete drive template affordances; policy errors
// collapse to a plain no.
func (s *Service) CanEdit(subject *rbac.Subject, recipe Recipe) bool {
	decision, err := rbac.Evaluate(subject, rbac.ActionEdit, &rbac.Resource{ID: recipe.ID, OwnerID: recipe.AuthorID})
	return err == nil && decision == rbac.Allow
}

// CanDelete reports whether the subject may delete the recipe.
func (s *Service) CanDelete(subject *rbac.Subject, recipe Recipe) bool {
	decision, err := rbac.Evaluate(subject, rbac.ActionDelete, &rbac.Resource{ID: recipe.ID, OwnerID: recipe.AuthorID})
	return err == nil && decision == rbac.Allow
}

func (s *Service) authorize(subject *rbac.Subject, action rbac.Action, resource *rbac.Resource) error {
	decision, err := rbac.Evaluate(subject, action, resource)
	if err != nil {
		return fmt.Errorf("%w: %v", httpx.ErrInvalidRequest, err)
	}
	if decision != rbac.Allow {
		if subject == nil {
			return fmt.Errorf("%w: sign in to continue", httpx.ErrUnauthorized)
		}
		return fmt.Errorf("%w: insufficient privileges for %s", httpx.ErrForbidden, action)
	}
	return nil
}

func validateInput(input *RecipeInput) error {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.Instructions = strings.TrimSpace(input.Instructions)

	switch {
	case input.Title == "":
		return fmt.Errorf("%w: title is required", httpx.ErrValidation)
	case input.Instructions == "":
		return fmt.Errorf("%w: instructions are required", httpx.ErrValidation)
	case input.CategoryID <= 0:
		return fmt.Errorf("%w: category is required", httpx.ErrValidation)
	case input.Difficulty < 1 || input.Difficulty > 5:
		return fmt.Errorf("%w: difficulty must be between 1 and 5", httpx.ErrValidation)
	case input.PrepTimeMinutes != nil && *input.PrepTimeMinutes <= 0:
		return fmt.Errorf("%w: preparation time must be positive", httpx.ErrValidation)
	}
	return nil
}
