package search

import (
	"strconv"
	"strings"
)

// Query holds the rendered SQL fragments for a composed search. The
// repository owns the SELECT list and joins; aliases are fixed: recipes
// r, categories c, reviews rv.
type Query struct {
	// Where is the filter expression without the WHERE keyword, or ""
	// for a match-all predicate.
	Where string
	// GroupBy and Having are set when the predicate needs aggregation
	// over reviews.
	GroupBy string
	Having  string
	// OrderBy always carries a deterministic ordering.
	OrderBy string
	// JoinReviews reports whether the reviews join is required.
	JoinReviews bool
	Args        []any
}

// Render translates a predicate and ordering spec into parameterized
// Postgres fragments.
func Render(spec PredicateSpec, order OrderSpec) Query {
	var q Query
	var where []string

	arg := func(value any) string {
		q.Args = append(q.Args, value)
		return "$" + strconv.Itoa(len(q.Args))
	}

	for _, clause := range spec.Clauses {
		switch clause.Kind {
		case ClauseText:
			p := arg("%" + clause.Text + "%")
			where = append(where, "(r.title ILIKE "+p+" OR r.description ILIKE "+p+" OR r.instructions ILIKE "+p+")")
		case ClauseCategory:
			where = append(where, "r.category_id = "+arg(clause.CategoryID))
		case ClauseDifficulty:
			where = append(where, "r.difficulty = "+arg(clause.Difficulty))
		case ClauseMaxPrepTime:
			p := arg(clause.MaxPrepTime)
			where = append(where, "(r.prep_time_minutes IS NOT NULL AND r.prep_time_minutes <= "+p+")")
		case ClauseMinRating:
			q.JoinReviews = true
			q.GroupBy = "r.id"
			q.Having = "AVG(rv.rating) >= " + arg(clause.MinRating)
		case ClauseDietary:
			var tests []string
			for _, tag := range clause.Tags {
				kw := tagKeywords[tag]
				p := arg("%" + kw.keyword + "%")
				test := "r.title ILIKE " + p + " OR r.description ILIKE " + p
				if kw.matchCategory {
					test += " OR c.name ILIKE " + p
				}
				tests = append(tests, "("+test+")")
			}
			if len(tests) > 0 {
				where = append(where, "("+strings.Join(tests, " OR ")+")")
			}
		}
	}

	q.Where = strings.Join(where, " AND ")

	switch order.Key {
	case OrderByRating:
		q.JoinReviews = true
		if q.GroupBy == "" {
			q.GroupBy = "r.id"
		}
		q.OrderBy = "AVG(rv.rating) DESC, r.created_at DESC"
	default:
		q.OrderBy = "r.created_at DESC"
	}
	return q
}
