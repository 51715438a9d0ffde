package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int          { return &v }
func int64Ptr(v int64) *int64    { return &v }
func floatPtr(v float64) *float64 { return &v }

func TestComposeEmptyCriteriaMatchesAll(t *testing.T) {
	spec, order, err := Compose(Criteria{})
	require.NoError(t, err)
	assert.True(t, spec.Empty())
	assert.False(t, spec.NeedsAggregation())
	assert.Equal(t, OrderByCreated, order.Key)
}

func TestComposeBlankTextIsAbsent(t *testing.T) {
	spec, _, err := Compose(Criteria{Text: "   "})
	require.NoError(t, err)
	assert.True(t, spec.Empty())
}

func TestComposeTextAndPrepTime(t *testing.T) {
	spec, order, err := Compose(Criteria{Text: " Cake ", MaxPrepTimeMinutes: intPtr(30)})
	require.NoError(t, err)
	require.Len(t, spec.Clauses, 2)

	assert.Equal(t, ClauseText, spec.Clauses[0].Kind)
	assert.Equal(t, "Cake", spec.Clauses[0].Text, "text is trimmed")
	assert.Equal(t, ClauseMaxPrepTime, spec.Clauses[1].Kind)
	assert.Equal(t, 30, spec.Clauses[1].MaxPrepTime)
	assert.Equal(t, OrderByCreated, order.Key)
}

func TestComposeMinRatingSwitchesToAggregateOrdering(t *testing.T) {
	spec, order, err := Compose(Criteria{MinAverageRating: floatPtr(4.0)})
	require.NoError(t, err)
	assert.True(t, spec.NeedsAggregation())
	assert.Equal(t, OrderByRating, order.Key)
}

func TestComposeCategoryAndDifficulty(t *testing.T) {
	spec, _, err := Compose(Criteria{CategoryID: int64Ptr(7), Difficulty: intPtr(3)})
	require.NoError(t, err)
	require.Len(t, spec.Clauses, 2)
	assert.Equal(t, int64(7), spec.Clauses[0].CategoryID)
	assert.Equal(t, 3, spec.Clauses[1].Difficulty)
}

func TestComposeDietaryTagsFormSingleOrGroup(t *testing.T) {
	spec, _, err := Compose(Criteria{DietaryTags: []DietaryTag{TagVegan, TagGlutenFree, TagVegan}})
	require.NoError(t, err)
	require.Len(t, spec.Clauses, 1)
	assert.Equal(t, ClauseDietary, spec.Clauses[0].Kind)
	assert.Equal(t, []DietaryTag{TagVegan, TagGlutenFree}, spec.Clauses[0].Tags, "duplicates dropped, order kept")
}

func TestComposeRejectsMalformedValues(t *testing.T) {
	cases := []struct {
		name     string
		criteria Criteria
		field    string
	}{
		{"difficulty too low", Criteria{Difficulty: intPtr(0)}, "difficulty"},
		{"difficulty too high", Criteria{Difficulty: intPtr(6)}, "difficulty"},
		{"negative prep time", Criteria{MaxPrepTimeMinutes: intPtr(-5)}, "maxPrepTimeMinutes"},
		{"zero prep time", Criteria{MaxPrepTimeMinutes: intPtr(0)}, "maxPrepTimeMinutes"},
		{"rating above scale", Criteria{MinAverageRating: floatPtr(5.5)}, "minAverageRating"},
		{"negative rating", Criteria{MinAverageRating: floatPtr(-1)}, "minAverageRating"},
		{"unknown tag", Criteria{DietaryTags: []DietaryTag{"PALEO"}}, "dietaryTags"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Compose(tc.criteria)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tc.field, verr.Field)
		})
	}
}

func TestComposeZeroRatingIsPresent(t *testing.T) {
	// 0 is inside the valid range and still triggers aggregation, which
	// excludes unreviewed recipes.
	spec, order, err := Compose(Criteria{MinAverageRating: floatPtr(0)})
	require.NoError(t, err)
	assert.True(t, spec.NeedsAggregation())
	assert.Equal(t, OrderByRating, order.Key)
}

func TestParseDietaryTag(t *testing.T) {
	tag, err := ParseDietaryTag(" gluten_free ")
	require.NoError(t, err)
	assert.Equal(t, TagGlutenFree, tag)

	_, err = ParseDietaryTag("keto")
	require.Error(t, err)
}
