package catalog

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/tastebook/tastebook/internal/categories"
	"github.com/tastebook/tastebook/internal/platform/httpx"
	"github.com/tastebook/tastebook/internal/rbac"
	"github.com/tastebook/tastebook/internal/search"
	"github.com/tastebook/tastebook/internal/shared"
	"github.com/tastebook/tastebook/internal/view"
)

// Handler serves the recipe web pages.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	categories *categories.Service
	templates  *view.Engine
	csrf       *shared.CSRFManager
	policy     rbac.Middleware
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, cats *categories.Service, templates *view.Engine, csrf *shared.CSRFManager, policy rbac.Middleware) *Handler {
	return &Handler{
		logger:     logger,
		service:    service,
		categories: cats,
		templates:  templates,
		csrf:       csrf,
		policy:     policy,
	}
}

// MountRoutes registers recipe routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.home)
	r.Route("/recipes", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.policy.RequireAuthenticated)
			r.With(h.policy.RequireAction(rbac.ActionCreate)).Get("/new", h.newForm)
			r.Post("/", h.create)
			r.Get("/my", h.myRecipes)
			r.Get("/{id}/edit", h.editForm)
			r.Post("/{id}", h.update)
			r.Post("/{id}/delete", h.delete)
			r.Post("/{id}/reviews", h.addReview)
		})
		r.Get("/{id}", h.detail)
	})
}

// home renders the landing page with the search form and results.
func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	criteria, page, err := parseCriteria(r)
	var result SearchResult
	if err == nil {
		result, err = h.service.Search(r.Context(), criteria, page)
	}
	if err != nil && !errors.Is(err, httpx.ErrValidation) {
		h.logger.Error("search recipes", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}

	cats, catErr := h.categories.List(r.Context())
	if catErr != nil {
		h.logger.Warn("list categories", slog.Any("error", catErr))
	}

	data := map[string]any{
		"Query":      r.URL.Query().Get("q"),
		"Categories": cats,
		"Recipes":    result.Recipes,
		"Pagination": result.Pagination,
	}
	if err != nil {
		data["SearchError"] = "Some search filters were invalid and no results were returned."
	}
	h.render(w, r, "pages/home.html", "Tastebook", data)
}

func (h *Handler) detail(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var (
		recipe  Recipe
		reviews []Review
	)
	g, gctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		recipe, err = h.service.Get(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		reviews, err = h.service.Reviews(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		httpx.RespondError(w, err)
		return
	}

	subject := rbac.SubjectFromContext(r.Context())
	h.render(w, r, "pages/recipe_detail.html", recipe.Title, map[string]any{
		"Recipe":    recipe,
		"Reviews":   reviews,
		"CanEdit":   h.service.CanEdit(subject, recipe),
		"CanDelete": h.service.CanDelete(subject, recipe),
	})
}

func (h *Handler) newForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, nil, "/recipes", nil)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	input, formErrors := parseRecipeForm(r)
	subject := rbac.SubjectFromContext(r.Context())

	if len(formErrors) == 0 {
		recipe, err := h.service.Create(r.Context(), subject, input)
		switch {
		case errors.Is(err, httpx.ErrValidation):
			formErrors["general"] = err.Error()
		case err != nil:
			httpx.RespondError(w, err)
			return
		default:
			h.flash(r, "success", "Recipe created.")
			http.Redirect(w, r, "/recipes/"+strconv.FormatInt(recipe.ID, 10), http.StatusSeeOther)
			return
		}
	}
	h.renderForm(w, r, nil, "/recipes", formErrors)
}

func (h *Handler) editForm(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	recipe, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	subject := rbac.SubjectFromContext(r.Context())
	if !h.service.CanEdit(subject, recipe) {
		httpx.RespondError(w, httpx.ErrForbidden)
		return
	}
	h.renderForm(w, r, &recipe, "/recipes/"+strconv.FormatInt(id, 10), nil)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	input, formErrors := parseRecipeForm(r)
	subject := rbac.SubjectFromContext(r.Context())

	if len(formErrors) == 0 {
		recipe, err := h.service.Update(r.Context(), subject, id, input)
		switch {
		case errors.Is(err, httpx.ErrValidation):
			formErrors["general"] = err.Error()
		case err != nil:
			httpx.RespondError(w, err)
			return
		default:
			h.flash(r, "success", "Recipe updated.")
			http.Redirect(w, r, "/recipes/"+strconv.FormatInt(recipe.ID, 10), http.StatusSeeOther)
			return
		}
	}
	existing := Recipe{ID: id, Title: input.Title, Description: input.Description,
		Instructions: input.Instructions, Difficulty: input.Difficulty, PrepTimeMinutes: input.PrepTimeMinutes}
	h.renderForm(w, r, &existing, "/recipes/"+strconv.FormatInt(id, 10), formErrors)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	subject := rbac.SubjectFromContext(r.Context())
	if err := h.service.Delete(r.Context(), subject, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.flash(r, "success", "Recipe deleted.")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) myRecipes(w http.ResponseWriter, r *http.Request) {
	subject := rbac.SubjectFromContext(r.Context())
	recipes, err := h.service.ListMine(r.Context(), subject)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	h.render(w, r, "pages/my_recipes.html", "My recipes", map[string]any{"Recipes": recipes})
}

func (h *Handler) addReview(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	rating, _ := strconv.Atoi(r.PostFormValue("rating"))
	subject := rbac.SubjectFromContext(r.Context())

	_, err = h.service.AddReview(r.Context(), subject, id, rating, r.PostFormValue("comment"))
	switch {
	case errors.Is(err, httpx.ErrValidation) || errors.Is(err, httpx.ErrDuplicate):
		h.flash(r, "error", err.Error())
	case err != nil:
		httpx.RespondError(w, err)
		return
	default:
		h.flash(r, "success", "Review posted.")
	}
	http.Redirect(w, r, "/recipes/"+strconv.FormatInt(id, 10), http.StatusSeeOther)
}

func (h *Handler) renderForm(w http.ResponseWriter, r *http.Request, recipe *Recipe, action string, formErrors map[string]string) {
	cats, err := h.categories.List(r.Context())
	if err != nil {
		h.logger.Warn("list categories", slog.Any("error", err))
	}
	title := "New recipe"
	if recipe != nil {
		title = "Edit recipe"
	}
	h.render(w, r, "pages/recipe_form.html", title, map[string]any{
		"Recipe":     recipe,
		"Categories": cats,
		"Action":     action,
		"Errors":     formErrors,
	})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, page, title string, data map[string]any) {
	sess := shared.SessionFromContext(r.Context())
	token := ""
	var flash *shared.FlashMessage
	if sess != nil {
		token, _ = h.csrf.EnsureToken(r.Context(), sess)
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:         title,
		CSRFToken:     token,
		Flash:         flash,
		CurrentPath:   r.URL.Path,
		Authenticated: sess != nil && sess.UserID() != 0,
		Data:          data,
	}
	if err := h.templates.Render(w, page, viewData); err != nil {
		h.logger.Error("render page", slog.String("page", page), slog.Any("error", err))
	}
}

func (h *Handler) flash(r *http.Request, kind, message string) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash(kind, message)
	}
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, httpx.ErrNotFound
	}
	return id, nil
}

// parseRecipeForm reads the recipe form fields. Range checks live in
// the service; this only reports unparseable numbers.
func parseRecipeForm(r *http.Request) (RecipeInput, map[string]string) {
	formErrors := make(map[string]string)
	if err := r.ParseForm(); err != nil {
		formErrors["general"] = "Invalid form submission."
		return RecipeInput{}, formErrors
	}

	input := RecipeInput{
		Title:        r.PostFormValue("title"),
		Description:  r.PostFormValue("description"),
		Instructions: r.PostFormValue("instructions"),
	}
	if raw := r.PostFormValue("category_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			formErrors["general"] = "Invalid category."
		}
		input.CategoryID = id
	}
	if raw := r.PostFormValue("difficulty"); raw != "" {
		difficulty, err := strconv.Atoi(raw)
		if err != nil {
			formErrors["difficulty"] = "Difficulty must be a number between 1 and 5."
		}
		input.Difficulty = difficulty
	}
	if raw := r.PostFormValue("prep_time"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil {
			formErrors["prep_time"] = "Prep time must be a whole number of minutes."
		} else {
			input.PrepTimeMinutes = &minutes
		}
	}
	return input, formErrors
}

// parseCriteria maps search query parameters onto sparse criteria.
// Blank parameters contribute nothing; malformed values are rejected
// with the offending field named, never silently dropped into a wider
// result set.
func parseCriteria(r *http.Request) (search.Criteria, int, error) {
	q := r.URL.Query()
	criteria := search.Criteria{Text: q.Get("q")}

	if raw := q.Get("category"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return search.Criteria{}, 0, fmt.Errorf("%w: category: must be an integer", httpx.ErrValidation)
		}
		criteria.CategoryID = &id
	}
	if raw := q.Get("difficulty"); raw != "" {
		difficulty, err := strconv.Atoi(raw)
		if err != nil {
			return search.Criteria{}, 0, fmt.Errorf("%w: difficulty: must be an integer", httpx.ErrValidation)
		}
		criteria.Difficulty = &difficulty
	}
	if raw := q.Get("time"); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil {
			return search.Criteria{}, 0, fmt.Errorf("%w: maxPrepTimeMinutes: must be an integer", httpx.ErrValidation)
		}
		criteria.MaxPrepTimeMinutes = &minutes
	}
	if raw := q.Get("min_rating"); raw != "" {
		rating, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return search.Criteria{}, 0, fmt.Errorf("%w: minAverageRating: must be a number", httpx.ErrValidation)
		}
		criteria.MinAverageRating = &rating
	}
	for _, raw := range q["dietary"] {
		tag, err := search.ParseDietaryTag(raw)
		if err != nil {
			return search.Criteria{}, 0, fmt.Errorf("%w: dietaryTags: unknown tag %q", httpx.ErrValidation, raw)
		}
		criteria.DietaryTags = append(criteria.DietaryTags, tag)
	}

	page, _ := strconv.Atoi(q.Get("page"))
	return criteria, page, nil
}
