package search

// ClauseKind enumerates the closed set of filter clause variants.
type ClauseKind int

const (
	// ClauseText matches a case-insensitive substring against title,
	// description and instructions (ORed).
	ClauseText ClauseKind = iota + 1
	// ClauseCategory matches a category identifier exactly.
	ClauseCategory
	// ClauseDifficulty matches a difficulty level exactly.
	ClauseDifficulty
	// ClauseMaxPrepTime is an inclusive upper bound on preparation
	// time. Recipes with unset prep time do not match.
	ClauseMaxPrepTime
	// ClauseMinRating is a lower bound on the aggregate review rating.
	// Recipes without reviews do not match.
	ClauseMinRating
	// ClauseDietary is an OR-group over dietary tag keyword tests; a
	// recipe matching any requested tag qualifies.
	ClauseDietary
)

// Clause is one node of the predicate tree. Exactly the fields for its
// Kind are set.
type Clause struct {
	Kind        ClauseKind
	Text        string
	CategoryID  int64
	Difficulty  int
	MaxPrepTime int
	MinRating   float64
	Tags        []DietaryTag
}

// PredicateSpec is an AND-combination of clauses. An empty spec matches
// every recipe. The dietary OR-group participates as a single compound
// clause.
type PredicateSpec struct {
	Clauses []Clause
}

// Empty reports whether the spec matches everything.
func (p PredicateSpec) Empty() bool {
	return len(p.Clauses) == 0
}

// NeedsAggregation reports whether executing the spec requires grouping
// over reviews.
func (p PredicateSpec) NeedsAggregation() bool {
	for _, clause := range p.Clauses {
		if clause.Kind == ClauseMinRating {
			return true
		}
	}
	return false
}

// OrderKey selects the primary ordering of search results.
type OrderKey int

const (
	// OrderByCreated orders by creation time, newest first.
	OrderByCreated OrderKey = iota
	// OrderByRating orders by aggregate review rating, highest first.
	OrderByRating
)

// OrderSpec is the result ordering. Creation time descending is always
// the deterministic tie-break so paging stays stable.
type OrderSpec struct {
	Key OrderKey
}
