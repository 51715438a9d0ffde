// Package search turns sparse recipe search criteria into a predicate
// and ordering specification that the catalog repository executes. The
// composer is a pure function; it performs no I/O and is safe for
// concurrent use.
package search

import (
	"fmt"
	"strings"
)

// DietaryTag is a best-effort dietary preference. Tags map to keyword
// substring tests against recipe text, not to a structured dietary
// classification; matches are recall-oriented and not guaranteed
// accurate.
type DietaryTag string

const (
	TagVegetarian DietaryTag = "VEGETARIAN"
	TagVegan      DietaryTag = "VEGAN"
	TagGlutenFree DietaryTag = "GLUTEN_FREE"
	TagDairyFree  DietaryTag = "DAIRY_FREE"
	TagLowCarb    DietaryTag = "LOW_CARB"
)

// tagKeywords maps each tag to its match keyword and whether the
// category name also participates in the match.
var tagKeywords = map[DietaryTag]struct {
	keyword       string
	matchCategory bool
}{
	TagVegetarian: {"vegetarian", true},
	TagVegan:      {"vegan", true},
	TagGlutenFree: {"gluten-free", false},
	TagDairyFree:  {"dairy-free", false},
	TagLowCarb:    {"low-carb", false},
}

// ParseDietaryTag normalizes and validates a tag name.
func ParseDietaryTag(name string) (DietaryTag, error) {
	tag := DietaryTag(strings.ToUpper(strings.TrimSpace(name)))
	if _, ok := tagKeywords[tag]; !ok {
		return "", fmt.Errorf("search: unknown dietary tag %q", name)
	}
	return tag, nil
}

// Valid reports whether the tag is one of the known names.
func (t DietaryTag) Valid() bool {
	_, ok := tagKeywords[t]
	return ok
}

// Criteria is the sparse search input. Every field is optional; nil or
// empty fields contribute no filter clause.
type Criteria struct {
	Text               string
	CategoryID         *int64
	Difficulty         *int
	MaxPrepTimeMinutes *int
	MinAverageRating   *float64
	DietaryTags        []DietaryTag
}

// ValidationError reports a malformed criteria value. The composer
// rejects out-of-range input instead of clamping it.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("search: invalid %s: %s", e.Field, e.Reason)
}
