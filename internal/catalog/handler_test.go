package catalog

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tastebook/tastebook/internal/platform/httpx"
	"github.com/tastebook/tastebook/internal/search"
)

func criteriaRequest(t *testing.T, query string) *http.Request {
	t.Helper()
	return httptest.NewRequest(http.MethodGet, "/recipes?"+query, nil)
}

func TestParseCriteriaMapsAllFields(t *testing.T) {
	criteria, page, err := parseCriteria(criteriaRequest(t,
		"q=soup&category=3&difficulty=2&time=45&min_rating=3.5&dietary=vegan&dietary=gluten_free&page=2"))
	require.NoError(t, err)

	assert.Equal(t, "soup", criteria.Text)
	require.NotNil(t, criteria.CategoryID)
	assert.Equal(t, int64(3), *criteria.CategoryID)
	require.NotNil(t, criteria.Difficulty)
	assert.Equal(t, 2, *criteria.Difficulty)
	require.NotNil(t, criteria.MaxPrepTimeMinutes)
	assert.Equal(t, 45, *criteria.MaxPrepTimeMinutes)
	require.NotNil(t, criteria.MinAverageRating)
	assert.InDelta(t, 3.5, *criteria.MinAverageRating, 0.001)
	assert.Equal(t, []search.DietaryTag{search.TagVegan, search.TagGlutenFree}, criteria.DietaryTags)
	assert.Equal(t, 2, page)
}

func TestParseCriteriaRejectsMalformedValues(t *testing.T) {
	cases := []struct {
		name  string
		query string
		field string
	}{
		{"non-numeric difficulty", "difficulty=abc", "difficulty"},
		{"non-numeric prep time", "time=soon", "maxPrepTimeMinutes"},
		{"non-numeric rating", "min_rating=bogus", "minAverageRating"},
		{"non-numeric category", "category=desserts", "category"},
		{"unknown dietary tag", "dietary=PALEO", "dietaryTags"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := parseCriteria(criteriaRequest(t, tc.query))
			require.Error(t, err, "malformed values must not widen the result set")
			assert.ErrorIs(t, err, httpx.ErrValidation)
			assert.Contains(t, err.Error(), tc.field)
		})
	}
}

func TestParseCriteriaIgnoresBlankParameters(t *testing.T) {
	criteria, page, err := parseCriteria(criteriaRequest(t, "q=&category=&difficulty=&time=&min_rating="))
	require.NoError(t, err)
	assert.Empty(t, criteria.Text)
	assert.Nil(t, criteria.CategoryID)
	assert.Nil(t, criteria.Difficulty)
	assert.Nil(t, criteria.MaxPrepTimeMinutes)
	assert.Nil(t, criteria.MinAverageRating)
	assert.Empty(t, criteria.DietaryTags)
	assert.Zero(t, page)
}
