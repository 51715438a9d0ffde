package app

import (
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tastebook/tastebook/internal/auth"
	"github.com/tastebook/tastebook/internal/catalog"
	"github.com/tastebook/tastebook/internal/observability"
	"github.com/tastebook/tastebook/internal/rbac"
	"github.com/tastebook/tastebook/internal/shared"
	"github.com/tastebook/tastebook/internal/users"
	"github.com/tastebook/tastebook/internal/view"
	"github.com/tastebook/tastebook/jobs"
	"github.com/tastebook/tastebook/web"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	SessionManager *shared.SessionManager
	CSRFManager    *shared.CSRFManager
	RBACMiddleware rbac.Middleware

	AuthHandler      *auth.Handler
	RecipeHandler    *catalog.Handler
	RecipeAPIHandler *catalog.APIHandler
	UsersHandler     *users.Handler
	JobHandler       *jobs.Handler
	Metrics          *observability.Metrics
}

// NewRouter constructs the chi.Router with Tastebook defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:         params.Logger,
		Config:         params.Config,
		SessionManager: params.SessionManager,
		CSRFManager:    params.CSRFManager,
		Metrics:        params.Metrics,
	}) {
		r.Use(mw)
	}

	// Subject resolution rides on the session, so it comes after the
	// session middleware from the stack above.
	r.Use(params.RBACMiddleware.WithSubject)
	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/auth", params.AuthHandler.MountRoutes)

	// Home, recipe pages and review forms.
	params.RecipeHandler.MountRoutes(r)

	if params.UsersHandler != nil {
		r.Group(func(r chi.Router) {
			r.Use(params.RBACMiddleware.RequireAuthenticated)
			r.Get("/profile", params.UsersHandler.Profile)
			r.Post("/profile", params.UsersHandler.UpdateProfile)
		})
	}

	if params.RecipeAPIHandler != nil {
		r.Route("/api", params.RecipeAPIHandler.MountRoutes)
	}

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		params.Logger.Error("create static sub filesystem", slog.Any("error", err))
	} else {
		fileServer := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))
		r.Handle("/static/*", staticCacheHandler(fileServer))
	}

	return r
}

// staticCacheHandler wraps a file server with Cache-Control headers so
// browsers hold assets for an hour.
func staticCacheHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		next.ServeHTTP(w, r)
	})
}
