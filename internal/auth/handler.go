package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/tastebook/tastebook/internal/shared"
	"github.com/tastebook/tastebook/internal/view"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager) *Handler {
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		validator:      validator.New(),
	}
}

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/login", h.showLogin)
	r.Post("/login", h.handleLogin)
	r.Get("/register", h.showRegister)
	r.Post("/register", h.handleRegister)
	r.Post("/logout", h.handleLogout)
}

type loginForm struct {
	Identifier string `validate:"required"`
	Password   string `validate:"required,min=8"`
}

type registerForm struct {
	Username string `validate:"required,min=3,max=60"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

type authPageData struct {
	Form   any
	Errors map[string]string
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "pages/login.html", "Log in", http.StatusOK, authPageData{Form: loginForm{}})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())

	form := loginForm{
		Identifier: r.PostFormValue("identifier"),
		Password:   r.PostFormValue("password"),
	}
	formErrors := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				switch fe.Field() {
				case "Identifier":
					formErrors["identifier"] = "Username or email is required."
				case "Password":
					formErrors["password"] = "Password must be at least 8 characters."
				}
			}
		}
	}

	if len(formErrors) == 0 {
		user, err := h.service.Authenticate(r.Context(), form.Identifier, form.Password)
		if err != nil {
			formErrors["general"] = "Invalid username/email or password."
		} else {
			if sess == nil {
				h.logger.Error("session missing during login")
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			sess.SetUserID(user.ID)
			sess.AddFlash("success", "Welcome back, "+user.Username+".")
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
	}

	form.Password = ""
	h.renderPage(w, r, "pages/login.html", "Log in", http.StatusBadRequest, authPageData{Form: form, Errors: formErrors})
}

func (h *Handler) showRegister(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "pages/register.html", "Register", http.StatusOK, authPageData{Form: registerForm{}})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	sess := shared.SessionFromContext(r.Context())

	form := registerForm{
		Username: r.PostFormValue("username"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	}
	formErrors := make(map[string]string)
	if err := h.validator.Struct(form); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				switch fe.Field() {
				case "Username":
					formErrors["username"] = "Username must be between 3 and 60 characters."
				case "Email":
					formErrors["email"] = "A valid email address is required."
				case "Password":
					formErrors["password"] = "Password must be at least 8 characters."
				}
			}
		}
	}

	if len(formErrors) == 0 {
		user, err := h.service.Register(r.Context(), form.Username, form.Email, form.Password)
		switch {
		case errors.Is(err, shared.ErrDuplicateAccount):
			formErrors["general"] = "That username or email is already registered."
		case err != nil:
			h.logger.Error("register user", slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		default:
			if sess != nil {
				sess.SetUserID(user.ID)
				sess.AddFlash("success", "Account created. Happy cooking!")
			}
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
	}

	form.Password = ""
	h.renderPage(w, r, "pages/register.html", "Register", http.StatusBadRequest, authPageData{Form: form, Errors: formErrors})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, page, title string, status int, data authPageData) {
	sess := shared.SessionFromContext(r.Context())
	token := ""
	var flash *shared.FlashMessage
	if sess != nil {
		token, _ = h.csrfManager.EnsureToken(r.Context(), sess)
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
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := h.templates.Render(w, page, viewData); err != nil {
		h.logger.Error("render auth page", slog.String("page", page), slog.Any("error", err))
	}
}

// ShowLoginForTest exposes the GET handler for tests.
func (h *Handler) ShowLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.showLogin(w, r)
}

// HandleLoginForTest exposes the POST handler for tests.
func (h *Handler) HandleLoginForTest(w http.ResponseWriter, r *http.Request) {
	h.handleLogin(w, r)
}

// HandleRegisterForTest exposes the POST handler for tests.
func (h *Handler) HandleRegisterForTest(w http.ResponseWriter, r *http.Request) {
	h.handleRegister(w, r)
}
