package categories

import "time"

// Category groups recipes, e.g. "Desserts" or "Vegan mains". Category
// names also feed the best-effort dietary keyword matching.
type Category struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}
