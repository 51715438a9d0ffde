package catalog

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tastebook/tastebook/internal/platform/httpx"
	"github.com/tastebook/tastebook/internal/rbac"
	"github.com/tastebook/tastebook/internal/search"
)

type mockRepo struct {
	recipes   map[int64]Recipe
	reviews   []Review
	nextID    int64
	lastQuery search.Query
}

func newMockRepo(recipes ...Recipe) *mockRepo {
	m := &mockRepo{recipes: make(map[int64]Recipe), nextID: 100}
	for _, recipe := range recipes {
		m.recipes[recipe.ID] = recipe
	}
	return m
}

func (m *mockRepo) Search(_ context.Context, q search.Query, limit, offset int) ([]Recipe, int, error) {
	m.lastQuery = q
	var out []Recipe
	for _, recipe := range m.recipes {
		out = append(out, recipe)
	}
	if offset >= len(out) {
		return nil, len(out), nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], len(m.recipes), nil
}

func (m *mockRepo) Get(_ context.Context, id int64) (Recipe, error) {
	recipe, ok := m.recipes[id]
	if !ok {
		return Recipe{}, fmt.Errorf("%w: recipe %d", httpx.ErrNotFound, id)
	}
	return recipe, nil
}

func (m *mockRepo) Create(_ context.Context, authorID int64, input RecipeInput) (Recipe, error) {
	m.nextID++
	recipe := Recipe{
		ID: m.nextID, AuthorID: authorID, CategoryID: input.CategoryID,
		Title: input.Title, Description: input.Description, Instructions: input.Instructions,
		Difficulty: input.Difficulty, PrepTimeMinutes: input.PrepTimeMinutes,
	}
	m.recipes[recipe.ID] = recipe
	return recipe, nil
}

func (m *mockRepo) Update(_ context.Context, id int64, input RecipeInput) (Recipe, error) {
	recipe, ok := m.recipes[id]
	if !ok {
		return Recipe{}, fmt.Errorf("%w: recipe %d", httpx.ErrNotFound, id)
	}
	recipe.Title = input.Title
	recipe.Description = input.Description
	recipe.Instructions = input.Instructions
	recipe.CategoryID = input.CategoryID
	recipe.Difficulty = input.Difficulty
	recipe.PrepTimeMinutes = input.PrepTimeMinutes
	m.recipes[id] = recipe
	return recipe, nil
}

func (m *mockRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.recipes[id]; !ok {
		return fmt.Errorf("%w: recipe %d", httpx.ErrNotFound, id)
	}
	delete(m.recipes, id)
	return nil
}

func (m *mockRepo) ListByAuthor(_ context.Context, authorID int64) ([]Recipe, error) {
	var out []Recipe
	for _, recipe := range m.recipes {
		if recipe.AuthorID == authorID {
			out = append(out, recipe)
		}
	}
	return out, nil
}

func (m *mockRepo) CreateReview(_ context.Context, recipeID, authorID int64, rating int, comment string) (Review, error) {
	review := Review{ID: int64(len(m.reviews) + 1), RecipeID: recipeID, AuthorID: authorID, Rating: rating, Comment: comment}
	m.reviews = append(m.reviews, review)
	return review, nil
}

func (m *mockRepo) HasReview(_ context.Context, recipeID, authorID int64) (bool, error) {
	for _, review := range m.reviews {
		if review.RecipeID == recipeID && review.AuthorID == authorID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) ListReviews(_ context.Context, recipeID int64) ([]Review, error) {
	var out []Review
	for _, review := range m.reviews {
		if review.RecipeID == recipeID {
			out = append(out, review)
		}
	}
	return out, nil
}

type spyEnqueuer struct {
	calls int
}

func (s *spyEnqueuer) EnqueueRatingRefresh(context.Context) error {
	s.calls++
	return nil
}

func subjectWith(id int64, roles ...rbac.Role) *rbac.Subject {
	return &rbac.Subject{ID: id, Roles: roles}
}

func validInput() RecipeInput {
	return RecipeInput{
		Title:        "Pancakes",
		Description:  "Fluffy breakfast pancakes",
		Instructions: "Mix. Fry. Serve.",
		CategoryID:   1,
		Difficulty:   2,
	}
}

func TestCreateRequiresStudent(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.Create(context.Background(), nil, validInput())
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)

	_, err = svc.Create(context.Background(), subjectWith(1), validInput())
	assert.ErrorIs(t, err, httpx.ErrForbidden)

	recipe, err := svc.Create(context.Background(), subjectWith(1, rbac.RoleStudent), validInput())
	require.NoError(t, err)
	assert.Equal(t, int64(1), recipe.AuthorID)

	_, err = svc.Create(context.Background(), subjectWith(2, rbac.RoleModerator), validInput())
	require.NoError(t, err, "moderator inherits student privileges")
}

func TestUpdatePolicy(t *testing.T) {
	repo := newMockRepo(Recipe{ID: 10, AuthorID: 1, Title: "Soup", Instructions: "Boil.", CategoryID: 1, Difficulty: 1})
	svc := NewService(repo, nil, nil, nil)
	input := validInput()

	_, err := svc.Update(context.Background(), subjectWith(2, rbac.RoleStudent), 10, input)
	assert.ErrorIs(t, err, httpx.ErrForbidden, "non-owner student cannot edit")

	_, err = svc.Update(context.Background(), subjectWith(1, rbac.RoleStudent), 10, input)
	require.NoError(t, err, "owner can edit")

	_, err = svc.Update(context.Background(), subjectWith(3, rbac.RoleModerator), 10, input)
	require.NoError(t, err, "moderator can edit any recipe")

	_, err = svc.Update(context.Background(), nil, 10, input)
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)
}

func TestDeletePolicy(t *testing.T) {
	repo := newMockRepo(
		Recipe{ID: 10, AuthorID: 1},
		Recipe{ID: 11, AuthorID: 2},
		Recipe{ID: 12, AuthorID: 3},
	)
	svc := NewService(repo, nil, nil, nil)

	err := svc.Delete(context.Background(), subjectWith(2, rbac.RoleModerator), 10)
	assert.ErrorIs(t, err, httpx.ErrForbidden, "moderator cannot delete a foreign recipe")

	err = svc.Delete(context.Background(), subjectWith(2, rbac.RoleModerator), 11)
	require.NoError(t, err, "moderator can delete their own recipe")

	err = svc.Delete(context.Background(), subjectWith(99, rbac.RoleAdmin), 12)
	require.NoError(t, err, "admin can delete anything")

	err = svc.Delete(context.Background(), subjectWith(1, rbac.RoleStudent), 10)
	require.NoError(t, err, "owner can delete")
}

func TestGetForSubjectRequiresAuth(t *testing.T) {
	repo := newMockRepo(Recipe{ID: 10, AuthorID: 1, Title: "Soup"})
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.GetForSubject(context.Background(), nil, 10)
	assert.ErrorIs(t, err, httpx.ErrUnauthorized, "anonymous callers get no recipe details")

	recipe, err := svc.GetForSubject(context.Background(), subjectWith(2), 10)
	require.NoError(t, err, "any authenticated subject may view")
	assert.Equal(t, "Soup", recipe.Title)

	_, err = svc.GetForSubject(context.Background(), subjectWith(2), 404)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestReviewsForSubjectRequiresAuth(t *testing.T) {
	repo := newMockRepo(Recipe{ID: 10, AuthorID: 1})
	repo.reviews = append(repo.reviews, Review{ID: 1, RecipeID: 10, AuthorID: 2, Rating: 4})
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.ReviewsForSubject(context.Background(), nil, 10)
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)

	reviews, err := svc.ReviewsForSubject(context.Background(), subjectWith(3), 10)
	require.NoError(t, err)
	assert.Len(t, reviews, 1)
}

func TestUpdateMissingRecipe(t *testing.T) {
	svc := NewService(newMockRepo(), nil, nil, nil)
	_, err := svc.Update(context.Background(), subjectWith(1, rbac.RoleAdmin), 404, validInput())
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestCreateValidatesInput(t *testing.T) {
	svc := NewService(newMockRepo(), nil, nil, nil)
	subject := subjectWith(1, rbac.RoleStudent)

	cases := []struct {
		name   string
		mutate func(*RecipeInput)
	}{
		{"empty title", func(in *RecipeInput) { in.Title = "  " }},
		{"empty instructions", func(in *RecipeInput) { in.Instructions = "" }},
		{"missing category", func(in *RecipeInput) { in.CategoryID = 0 }},
		{"difficulty too high", func(in *RecipeInput) { in.Difficulty = 6 }},
		{"difficulty too low", func(in *RecipeInput) { in.Difficulty = 0 }},
		{"negative prep time", func(in *RecipeInput) { minutes := -5; in.PrepTimeMinutes = &minutes }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)
			_, err := svc.Create(context.Background(), subject, input)
			assert.ErrorIs(t, err, httpx.ErrValidation)
		})
	}
}

func TestSearchRejectsInvalidCriteria(t *testing.T) {
	svc := NewService(newMockRepo(), nil, nil, nil)

	difficulty := 9
	_, err := svc.Search(context.Background(), search.Criteria{Difficulty: &difficulty}, 1)
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestSearchRendersAggregationForMinRating(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo, nil, nil, nil)

	rating := 4.0
	_, err := svc.Search(context.Background(), search.Criteria{MinAverageRating: &rating}, 1)
	require.NoError(t, err)

	assert.True(t, repo.lastQuery.JoinReviews)
	assert.Equal(t, "r.id", repo.lastQuery.GroupBy)
	assert.Contains(t, repo.lastQuery.Having, "AVG(rv.rating)")
	assert.Contains(t, repo.lastQuery.OrderBy, "AVG(rv.rating) DESC")
}

func TestSearchDefaultsPagination(t *testing.T) {
	repo := newMockRepo(Recipe{ID: 1, AuthorID: 1})
	svc := NewService(repo, nil, nil, nil)

	result, err := svc.Search(context.Background(), search.Criteria{}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Pagination.Page)
	assert.Equal(t, 12, result.Pagination.PerPage)
	assert.Equal(t, 1, result.Pagination.Total)
}

func TestAddReviewRules(t *testing.T) {
	repo := newMockRepo(Recipe{ID: 10, AuthorID: 1})
	enqueuer := &spyEnqueuer{}
	svc := NewService(repo, enqueuer, nil, nil)

	_, err := svc.AddReview(context.Background(), nil, 10, 5, "nice")
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)

	_, err = svc.AddReview(context.Background(), subjectWith(2), 10, 0, "nice")
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.AddReview(context.Background(), subjectWith(1), 10, 4, "my own dish rules")
	assert.ErrorIs(t, err, httpx.ErrValidation, "authors cannot review their own recipes")

	review, err := svc.AddReview(context.Background(), subjectWith(2), 10, 4, "tasty")
	require.NoError(t, err)
	assert.Equal(t, 4, review.Rating)
	assert.Equal(t, 1, enqueuer.calls, "review write schedules a rating refresh")

	_, err = svc.AddReview(context.Background(), subjectWith(2), 10, 5, "again")
	assert.ErrorIs(t, err, httpx.ErrDuplicate)
	assert.Equal(t, 1, enqueuer.calls)
}

func TestListMineRequiresAuth(t *testing.T) {
	repo := newMockRepo(Recipe{ID: 10, AuthorID: 7}, Recipe{ID: 11, AuthorID: 8})
	svc := NewService(repo, nil, nil, nil)

	_, err := svc.ListMine(context.Background(), nil)
	assert.ErrorIs(t, err, httpx.ErrUnauthorized)

	recipes, err := svc.ListMine(context.Background(), subjectWith(7))
	require.NoError(t, err)
	require.Len(t, recipes, 1)
	assert.Equal(t, int64(10), recipes[0].ID)
}
