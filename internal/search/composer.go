package search

import "strings"

// Compose builds the predicate and ordering specification for the given
// criteria. Absent fields contribute no clause; a fully empty Criteria
// yields a match-all predicate ordered by creation time descending.
// Malformed values are rejected with a *ValidationError naming the
// offending field.
func Compose(criteria Criteria) (PredicateSpec, OrderSpec, error) {
	var spec PredicateSpec

	if text := strings.TrimSpace(criteria.Text); text != "" {
		spec.Clauses = append(spec.Clauses, Clause{Kind: ClauseText, Text: text})
	}

	if criteria.CategoryID != nil {
		spec.Clauses = append(spec.Clauses, Clause{Kind: ClauseCategory, CategoryID: *criteria.CategoryID})
	}

	if criteria.Difficulty != nil {
		if *criteria.Difficulty < 1 || *criteria.Difficulty > 5 {
			return PredicateSpec{}, OrderSpec{}, &ValidationError{Field: "difficulty", Reason: "must be between 1 and 5"}
		}
		spec.Clauses = append(spec.Clauses, Clause{Kind: ClauseDifficulty, Difficulty: *criteria.Difficulty})
	}

	if criteria.MaxPrepTimeMinutes != nil {
		if *criteria.MaxPrepTimeMinutes <= 0 {
			return PredicateSpec{}, OrderSpec{}, &ValidationError{Field: "maxPrepTimeMinutes", Reason: "must be positive"}
		}
		spec.Clauses = append(spec.Clauses, Clause{Kind: ClauseMaxPrepTime, MaxPrepTime: *criteria.MaxPrepTimeMinutes})
	}

	if criteria.MinAverageRating != nil {
		if *criteria.MinAverageRating < 0 || *criteria.MinAverageRating > 5 {
			return PredicateSpec{}, OrderSpec{}, &ValidationError{Field: "minAverageRating", Reason: "must be between 0 and 5"}
		}
		spec.Clauses = append(spec.Clauses, Clause{Kind: ClauseMinRating, MinRating: *criteria.MinAverageRating})
	}

	if len(criteria.DietaryTags) > 0 {
		tags := make([]DietaryTag, 0, len(criteria.DietaryTags))
		seen := make(map[DietaryTag]struct{}, len(criteria.DietaryTags))
		for _, tag := range criteria.DietaryTags {
			if !tag.Valid() {
				return PredicateSpec{}, OrderSpec{}, &ValidationError{Field: "dietaryTags", Reason: "unknown tag " + string(tag)}
			}
			if _, ok := seen[tag]; ok {
				continue
			}
			seen[tag] = struct{}{}
			tags = append(tags, tag)
		}
		spec.Clauses = append(spec.Clauses, Clause{Kind: ClauseDietary, Tags: tags})
	}

	order := OrderSpec{Key: OrderByCreated}
	if criteria.MinAverageRating != nil {
		order.Key = OrderByRating
	}
	return spec, order, nil
}
