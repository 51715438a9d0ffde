package catalog

import (
	"time"

	"github.com/tastebook/tastebook/internal/shared"
)

// Recipe is the central catalog entity. AuthorID is set at creation and
// never changes; ownership decisions key off it.
type Recipe struct {
	ID           int64
	AuthorID     int64
	AuthorName   string
	CategoryID   int64
	CategoryName string
	Title        string
	Description  string
	Instructions string
	// Difficulty ranges 1 (easiest) to 5.
	Difficulty int
	// PrepTimeMinutes is optional. Recipes without it never match a
	// max-prep-time filter.
	PrepTimeMinutes *int
	CreatedAt       time.Time
	UpdatedAt       time.Time

	// AverageRating and ReviewCount come from the rating stats view and
	// may lag live reviews until the next refresh. Nil means unrated.
	AverageRating *float64
	ReviewCount   int
}

// Review is a user's rating of a recipe, one per user per recipe.
type Review struct {
	ID         int64
	RecipeID   int64
	AuthorID   int64
	AuthorName string
	// Rating ranges 1 to 5.
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// RecipeInput carries the writable recipe fields for create and update.
type RecipeInput struct {
	Title           string
	Description     string
	Instructions    string
	CategoryID      int64
	Difficulty      int
	PrepTimeMinutes *int
}

// SearchResult is one page of recipes matching a search.
type SearchResult struct {
	Recipes    []Recipe
	Pagination shared.Pagination
}
