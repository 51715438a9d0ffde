package catalog

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tastebook/tastebook/internal/platform/httpx"
	"github.com/tastebook/tastebook/internal/rbac"
)

// APIHandler serves the JSON recipe API. It reuses the web service so
// both surfaces enforce the same policy.
type APIHandler struct {
	service *Service
	policy  rbac.Middleware
}

// NewAPIHandler constructs an APIHandler.
func NewAPIHandler(service *Service, policy rbac.Middleware) *APIHandler {
	return &APIHandler{service: service, policy: policy}
}

// MountRoutes registers the JSON API under the given router.
func (h *APIHandler) MountRoutes(r chi.Router) {
	r.Route("/recipes", func(r chi.Router) {
		r.Get("/", h.search)
		r.Get("/search", h.search)
		// Recipe details require an authenticated viewer on the API
		// surface; only the listing and the web pages are public.
		r.Get("/{id}", h.get)
		r.Get("/{id}/reviews", h.reviews)
		r.Group(func(r chi.Router) {
			r.Use(h.policy.RequireAuthenticated)
			r.Get("/my", h.mine)
			r.Post("/", h.create)
			r.Put("/{id}", h.update)
			r.Delete("/{id}", h.delete)
			r.Post("/{id}/reviews", h.addReview)
		})
	})
}

type recipeDTO struct {
	ID              int64     `json:"id"`
	AuthorID        int64     `json:"author_id"`
	AuthorName      string    `json:"author_name"`
	CategoryID      int64     `json:"category_id"`
	CategoryName    string    `json:"category_name"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Instructions    string    `json:"instructions"`
	Difficulty      int       `json:"difficulty"`
	PrepTimeMinutes *int      `json:"prep_time_minutes,omitempty"`
	AverageRating   *float64  `json:"average_rating,omitempty"`
	ReviewCount     int       `json:"review_count"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type recipeInputDTO struct {
	Title           string `json:"title"`
	Description     string `json:"description"`
	Instructions    string `json:"instructions"`
	CategoryID      int64  `json:"category_id"`
	Difficulty      int    `json:"difficulty"`
	PrepTimeMinutes *int   `json:"prep_time_minutes"`
}

type reviewDTO struct {
	ID         int64     `json:"id"`
	RecipeID   int64     `json:"recipe_id"`
	AuthorID   int64     `json:"author_id"`
	AuthorName string    `json:"author_name,omitempty"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type reviewInputDTO struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type searchResponse struct {
	Recipes    []recipeDTO `json:"recipes"`
	Page       int         `json:"page"`
	PerPage    int         `json:"per_page"`
	Total      int         `json:"total"`
	TotalPages int         `json:"total_pages"`
}

func (h *APIHandler) search(w http.ResponseWriter, r *http.Request) {
	criteria, page, err := parseCriteria(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.Search(r.Context(), criteria, page)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, searchResponse{
		Recipes:    toRecipeDTOs(result.Recipes),
		Page:       result.Pagination.Page,
		PerPage:    result.Pagination.PerPage,
		Total:      result.Pagination.Total,
		TotalPages: result.Pagination.TotalPages,
	})
}

func (h *APIHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	recipe, err := h.service.GetForSubject(r.Context(), rbac.SubjectFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRecipeDTO(recipe))
}

func (h *APIHandler) mine(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.service.ListMine(r.Context(), rbac.SubjectFromContext(r.Context()))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"recipes": toRecipeDTOs(recipes)})
}

func (h *APIHandler) create(w http.ResponseWriter, r *http.Request) {
	var body recipeInputDTO
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	recipe, err := h.service.Create(r.Context(), rbac.SubjectFromContext(r.Context()), body.toInput())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toRecipeDTO(recipe))
}

func (h *APIHandler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var body recipeInputDTO
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	recipe, err := h.service.Update(r.Context(), rbac.SubjectFromContext(r.Context()), id, body.toInput())
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toRecipeDTO(recipe))
}

func (h *APIHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), rbac.SubjectFromContext(r.Context()), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) reviews(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	reviews, err := h.service.ReviewsForSubject(r.Context(), rbac.SubjectFromContext(r.Context()), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	out := make([]reviewDTO, len(reviews))
	for i, review := range reviews {
		out[i] = toReviewDTO(review)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"reviews": out})
}

func (h *APIHandler) addReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var body reviewInputDTO
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	review, err := h.service.AddReview(r.Context(), rbac.SubjectFromContext(r.Context()), id, body.Rating, body.Comment)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toReviewDTO(review))
}

func (d recipeInputDTO) toInput() RecipeInput {
	return RecipeInput{
		Title:           d.Title,
		Description:     d.Description,
		Instructions:    d.Instructions,
		CategoryID:      d.CategoryID,
		Difficulty:      d.Difficulty,
		PrepTimeMinutes: d.PrepTimeMinutes,
	}
}

func toRecipeDTO(recipe Recipe) recipeDTO {
	return recipeDTO{
		ID:              recipe.ID,
		AuthorID:        recipe.AuthorID,
		AuthorName:      recipe.AuthorName,
		CategoryID:      recipe.CategoryID,
		CategoryName:    recipe.CategoryName,
		Title:           recipe.Title,
		Description:     recipe.Description,
		Instructions:    recipe.Instructions,
		Difficulty:      recipe.Difficulty,
		PrepTimeMinutes: recipe.PrepTimeMinutes,
		AverageRating:   recipe.AverageRating,
		ReviewCount:     recipe.ReviewCount,
		CreatedAt:       recipe.CreatedAt,
		UpdatedAt:       recipe.UpdatedAt,
	}
}

func toRecipeDTOs(recipes []Recipe) []recipeDTO {
	out := make([]recipeDTO, len(recipes))
	for i, recipe := range recipes {
		out[i] = toRecipeDTO(recipe)
	}
	return out
}

func toReviewDTO(review Review) reviewDTO {
	return reviewDTO{
		ID:         review.ID,
		RecipeID:   review.RecipeID,
		AuthorID:   review.AuthorID,
		AuthorName: review.AuthorName,
		Rating:     review.Rating,
		Comment:    review.Comment,
		CreatedAt:  review.CreatedAt,
	}
}
