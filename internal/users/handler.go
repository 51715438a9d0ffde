package users

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/tastebook/tastebook/internal/platform/httpx"
	"github.com/tastebook/tastebook/internal/rbac"
	"github.com/tastebook/tastebook/internal/shared"
	"github.com/tastebook/tastebook/internal/view"
)

// Handler serves the profile pages. Routes behind it require an
// authenticated subject.
type Handler struct {
	svc      *Service
	views    *view.Engine
	csrf     *shared.CSRFManager
	validate *validator.Validate
	logger   *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, views *view.Engine, csrf *shared.CSRFManager, logger *slog.Logger) *Handler {
	return &Handler{
		svc:      svc,
		views:    views,
		csrf:     csrf,
		validate: validator.New(),
		logger:   logger,
	}
}

type profileForm struct {
	Username string `validate:"required,min=3,max=60"`
	Email    string `validate:"required,email"`
}

// Profile renders the account page with the effective role set.
func (h *Handler) Profile(w http.ResponseWriter, r *http.Request) {
	subject := rbac.SubjectFromContext(r.Context())
	user, err := h.svc.Get(r.Context(), subject.ID)
	if err != nil {
		h.logger.Error("load profile", slog.Int64("user_id", subject.ID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.render(w, r, user, nil)
}

// UpdateProfile applies username and email changes.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	subject := rbac.SubjectFromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}

	form := profileForm{
		Username: r.PostFormValue("username"),
		Email:    r.PostFormValue("email"),
	}
	current := User{ID: subject.ID, Username: form.Username, Email: form.Email, Roles: subject.Roles}

	if err := h.validate.Struct(form); err != nil {
		h.render(w, r, current, profileErrors(err))
		return
	}

	if _, err := h.svc.UpdateProfile(r.Context(), subject.ID, form.Username, form.Email); err != nil {
		h.logger.Warn("update profile", slog.Int64("user_id", subject.ID), slog.Any("error", err))
		h.render(w, r, current, map[string]string{"general": "Could not save profile. The username or email may be taken."})
		return
	}

	if sess := shared.SessionFromContext(r.Context()); sess != nil {
		sess.AddFlash("success", "Profile updated.")
	}
	http.Redirect(w, r, "/profile", http.StatusSeeOther)
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, user User, formErrors map[string]string) {
	sess := shared.SessionFromContext(r.Context())
	token := ""
	if sess != nil {
		token, _ = h.csrf.EnsureToken(r.Context(), sess)
	}
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}

	data := view.TemplateData{
		Title:         "Profile",
		CSRFToken:     token,
		Flash:         flash,
		CurrentPath:   r.URL.Path,
		Authenticated: true,
		Data: map[string]any{
			"User":           user,
			"EffectiveRoles": user.Subject().EffectiveRoles(),
			"Errors":         formErrors,
		},
	}
	if err := h.views.Render(w, "pages/profile.html", data); err != nil {
		h.logger.Error("render profile", slog.Any("error", err))
	}
}

func profileErrors(err error) map[string]string {
	out := make(map[string]string)
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		out["general"] = "Invalid input."
		return out
	}
	for _, fe := range verrs {
		switch fe.Field() {
		case "Username":
			out["username"] = "Username must be between 3 and 60 characters."
		case "Email":
			out["email"] = "A valid email address is required."
		}
	}
	return out
}
