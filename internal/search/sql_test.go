package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustCompose(t *testing.T, criteria Criteria) (PredicateSpec, OrderSpec) {
	t.Helper()
	spec, order, err := Compose(criteria)
	require.NoError(t, err)
	return spec, order
}

func TestRenderMatchAll(t *testing.T) {
	q := Render(mustCompose(t, Criteria{}))
	assert.Empty(t, q.Where)
	assert.Empty(t, q.GroupBy)
	assert.Empty(t, q.Having)
	assert.False(t, q.JoinReviews)
	assert.Equal(t, "r.created_at DESC", q.OrderBy)
	assert.Empty(t, q.Args)
}

func TestRenderTextReusesOneParameter(t *testing.T) {
	q := Render(mustCompose(t, Criteria{Text: "Cake"}))
	assert.Equal(t, "(r.title ILIKE $1 OR r.description ILIKE $1 OR r.instructions ILIKE $1)", q.Where)
	assert.Equal(t, []any{"%Cake%"}, q.Args)
}

func TestRenderTextAndPrepTime(t *testing.T) {
	q := Render(mustCompose(t, Criteria{Text: "Cake", MaxPrepTimeMinutes: intPtr(30)}))
	assert.Equal(t,
		"(r.title ILIKE $1 OR r.description ILIKE $1 OR r.instructions ILIKE $1)"+
			" AND (r.prep_time_minutes IS NOT NULL AND r.prep_time_minutes <= $2)",
		q.Where)
	assert.Equal(t, []any{"%Cake%", 30}, q.Args)
	assert.False(t, q.JoinReviews)
}

func TestRenderMinRatingGroupsAndOrdersByAggregate(t *testing.T) {
	q := Render(mustCompose(t, Criteria{MinAverageRating: floatPtr(4.0)}))
	assert.Empty(t, q.Where)
	assert.True(t, q.JoinReviews)
	assert.Equal(t, "r.id", q.GroupBy)
	assert.Equal(t, "AVG(rv.rating) >= $1", q.Having)
	assert.Equal(t, "AVG(rv.rating) DESC, r.created_at DESC", q.OrderBy, "created_at stays the tie-break")
	assert.Equal(t, []any{4.0}, q.Args)
}

func TestRenderDietaryGroupIsUnionOfSingleTagTests(t *testing.T) {
	single := func(tag DietaryTag) string {
		q := Render(mustCompose(t, Criteria{DietaryTags: []DietaryTag{tag}}))
		return q.Where
	}
	vegan := single(TagVegan)
	gluten := single(TagGlutenFree)
	assert.Equal(t, "((r.title ILIKE $1 OR r.description ILIKE $1 OR c.name ILIKE $1))", vegan,
		"vegan also matches the category name")
	assert.Equal(t, "((r.title ILIKE $1 OR r.description ILIKE $1))", gluten)

	both := Render(mustCompose(t, Criteria{DietaryTags: []DietaryTag{TagVegan, TagGlutenFree}}))
	assert.Equal(t,
		"((r.title ILIKE $1 OR r.description ILIKE $1 OR c.name ILIKE $1)"+
			" OR (r.title ILIKE $2 OR r.description ILIKE $2))",
		both.Where)
	assert.Equal(t, []any{"%vegan%", "%gluten-free%"}, both.Args)
}

func TestRenderDietaryGroupParticipatesInTopLevelAnd(t *testing.T) {
	q := Render(mustCompose(t, Criteria{
		CategoryID:  int64Ptr(2),
		DietaryTags: []DietaryTag{TagLowCarb},
	}))
	assert.Equal(t, "r.category_id = $1 AND ((r.title ILIKE $2 OR r.description ILIKE $2))", q.Where)
	assert.Equal(t, []any{int64(2), "%low-carb%"}, q.Args)
}
