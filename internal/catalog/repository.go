package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tastebook/tastebook/internal/platform/httpx"
	"github.com/tastebook/tastebook/internal/search"
)

const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// recipeSelect is the shared SELECT list. Aliases match the rendered
// search fragments: recipes r, categories c, reviews rv. Rating display
// values come from the recipe_rating_stats materialized view.
const recipeSelect = `r.id, r.author_id, u.username, r.category_id, c.name,
	r.title, r.description, r.instructions, r.difficulty, r.prep_time_minutes,
	r.created_at, r.updated_at, rs.avg_rating, COALESCE(rs.review_count, 0)`

const recipeFrom = ` FROM recipes r
	JOIN categories c ON c.id = r.category_id
	JOIN users u ON u.id = r.author_id
	LEFT JOIN recipe_rating_stats rs ON rs.recipe_id = r.id`

// Repository provides PostgreSQL backed persistence for recipes and
// reviews.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Search executes a rendered search query and returns one page of
// recipes plus the total match count.
func (r *Repository) Search(ctx context.Context, q search.Query, limit, offset int) ([]Recipe, int, error) {
	var body strings.Builder
	body.WriteString(recipeFrom)
	if q.JoinReviews {
		body.WriteString(" LEFT JOIN reviews rv ON rv.recipe_id = r.id")
	}
	if q.Where != "" {
		body.WriteString(" WHERE " + q.Where)
	}

	groupBy := ""
	if q.GroupBy != "" {
		// Non-aggregated display columns must join the GROUP BY list.
		groupBy = " GROUP BY " + q.GroupBy + ", u.username, c.name, rs.avg_rating, rs.review_count"
	}
	having := ""
	if q.Having != "" {
		having = " HAVING " + q.Having
	}

	total, err := r.countMatches(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	args := append(append([]any{}, q.Args...), limit, offset)
	pageSQL := "SELECT " + recipeSelect + body.String() + groupBy + having +
		" ORDER BY " + q.OrderBy +
		" LIMIT $" + strconv.Itoa(len(q.Args)+1) + " OFFSET $" + strconv.Itoa(len(q.Args)+2)

	rows, err := r.pool.Query(ctx, pageSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var recipes []Recipe
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, 0, err
		}
		recipes = append(recipes, recipe)
	}
	return recipes, total, rows.Err()
}

// countMatches counts distinct matching recipes. The subquery form
// keeps GROUP BY and HAVING semantics intact.
func (r *Repository) countMatches(ctx context.Context, q search.Query) (int, error) {
	var body strings.Builder
	body.WriteString("SELECT r.id" + recipeFrom)
	if q.JoinReviews {
		body.WriteString(" LEFT JOIN reviews rv ON rv.recipe_id = r.id")
	}
	if q.Where != "" {
		body.WriteString(" WHERE " + q.Where)
	}
	if q.GroupBy != "" {
		body.WriteString(" GROUP BY " + q.GroupBy + ", u.username, c.name, rs.avg_rating, rs.review_count")
	}
	if q.Having != "" {
		body.WriteString(" HAVING " + q.Having)
	}

	var total int
	err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM ("+body.String()+") matched", q.Args...).Scan(&total)
	return total, err
}

// Get loads a recipe by ID.
func (r *Repository) Get(ctx context.Context, id int64) (Recipe, error) {
	row := r.pool.QueryRow(ctx, "SELECT "+recipeSelect+recipeFrom+" WHERE r.id = $1", id)
	recipe, err := scanRecipe(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Recipe{}, fmt.Errorf("%w: recipe %d", httpx.ErrNotFound, id)
	}
	return recipe, err
}

// Create inserts a recipe and reloads the display row.
func (r *Repository) Create(ctx context.Context, authorID int64, input RecipeInput) (Recipe, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO recipes (author_id, category_id, title, description, instructions, difficulty, prep_time_minutes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		authorID, input.CategoryID, input.Title, input.Description, input.Instructions,
		input.Difficulty, input.PrepTimeMinutes).Scan(&id)
	if err != nil {
		return Recipe{}, mapWriteError(err)
	}
	return r.Get(ctx, id)
}

// Update rewrites the writable fields of a recipe.
func (r *Repository) Update(ctx context.Context, id int64, input RecipeInput) (Recipe, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE recipes
		 SET category_id = $1, title = $2, description = $3, instructions = $4,
		     difficulty = $5, prep_time_minutes = $6, updated_at = now()
		 WHERE id = $7`,
		input.CategoryID, input.Title, input.Description, input.Instructions,
		input.Difficulty, input.PrepTimeMinutes, id)
	if err != nil {
		return Recipe{}, mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return Recipe{}, fmt.Errorf("%w: recipe %d", httpx.ErrNotFound, id)
	}
	return r.Get(ctx, id)
}

// Delete removes a recipe. Reviews cascade at the schema level.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM recipes WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: recipe %d", httpx.ErrNotFound, id)
	}
	return nil
}

// ListByAuthor returns all recipes of one author, newest first.
func (r *Repository) ListByAuthor(ctx context.Context, authorID int64) ([]Recipe, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+recipeSelect+recipeFrom+" WHERE r.author_id = $1 ORDER BY r.created_at DESC", authorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipes []Recipe
	for rows.Next() {
		recipe, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, recipe)
	}
	return recipes, rows.Err()
}

// CreateReview inserts a review. The unique (recipe_id, author_id)
// index enforces one review per user per recipe.
func (r *Repository) CreateReview(ctx context.Context, recipeID, authorID int64, rating int, comment string) (Review, error) {
	var review Review
	err := r.pool.QueryRow(ctx,
		`INSERT INTO reviews (recipe_id, author_id, rating, comment)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, recipe_id, author_id, rating, comment, created_at`,
		recipeID, authorID, rating, comment).
		Scan(&review.ID, &review.RecipeID, &review.AuthorID, &review.Rating, &review.Comment, &review.CreatedAt)
	if err != nil {
		return Review{}, mapWriteError(err)
	}
	return review, nil
}

// HasReview reports whether the user already reviewed the recipe.
func (r *Repository) HasReview(ctx context.Context, recipeID, authorID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM reviews WHERE recipe_id = $1 AND author_id = $2)`,
		recipeID, authorID).Scan(&exists)
	return exists, err
}

// ListReviews returns a recipe's reviews, newest first.
func (r *Repository) ListReviews(ctx context.Context, recipeID int64) ([]Review, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT rv.id, rv.recipe_id, rv.author_id, u.username, rv.rating, rv.comment, rv.created_at
		 FROM reviews rv
		 JOIN users u ON u.id = rv.author_id
		 WHERE rv.recipe_id = $1
		 ORDER BY rv.created_at DESC`, recipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reviews []Review
	for rows.Next() {
		var review Review
		if err := rows.Scan(&review.ID, &review.RecipeID, &review.AuthorID, &review.AuthorName,
			&review.Rating, &review.Comment, &review.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}
	return reviews, rows.Err()
}

func scanRecipe(row pgx.Row) (Recipe, error) {
	var recipe Recipe
	err := row.Scan(&recipe.ID, &recipe.AuthorID, &recipe.AuthorName, &recipe.CategoryID, &recipe.CategoryName,
		&recipe.Title, &recipe.Description, &recipe.Instructions, &recipe.Difficulty, &recipe.PrepTimeMinutes,
		&recipe.CreatedAt, &recipe.UpdatedAt, &recipe.AverageRating, &recipe.ReviewCount)
	return recipe, err
}

func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s", httpx.ErrDuplicate, pgErr.ConstraintName)
		case foreignKeyViolation:
			return fmt.Errorf("%w: referenced row does not exist", httpx.ErrValidation)
		}
	}
	return err
}
