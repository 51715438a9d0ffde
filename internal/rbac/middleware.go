package rbac

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/tastebook/tastebook/internal/shared"
)

// SubjectResolver loads the acting subject for a session user ID.
type SubjectResolver interface {
	ResolveSubject(ctx context.Context, userID int64) (*Subject, error)
}

type subjectContextKey struct{}

// ContextWithSubject stores the resolved subject in context.
func ContextWithSubject(ctx context.Context, subject *Subject) context.Context {
	return context.WithValue(ctx, subjectContextKey{}, subject)
}

// SubjectFromContext extracts the subject from context. Nil means
// anonymous.
func SubjectFromContext(ctx context.Context) *Subject {
	subject, _ := ctx.Value(subjectContextKey{}).(*Subject)
	return subject
}

// Middleware wires policy checks into the HTTP layer.
type Middleware struct {
	Resolver SubjectResolver
	Logger   *slog.Logger
}

// WithSubject resolves the session user into a Subject and stores it in
// the request context. Anonymous requests pass through with no subject.
func (m Middleware) WithSubject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := m.sessionUserID(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		subject, err := m.Resolver.ResolveSubject(r.Context(), userID)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Warn("resolve subject", slog.Int64("user_id", userID), slog.Any("error", err))
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithSubject(r.Context(), subject)))
	})
}

// RequireAuthenticated rejects anonymous requests with 401.
func (m Middleware) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SubjectFromContext(r.Context()) == nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAction gates a route on a resource-less policy decision, i.e.
// CREATE. Resource-bound actions are decided in the service layer where
// the resource is loaded.
func (m Middleware) RequireAction(action Action) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject := SubjectFromContext(r.Context())
			if subject == nil {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			decision, err := Evaluate(subject, action, nil)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("evaluate policy", slog.String("action", string(action)), slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if decision != Allow {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) sessionUserID(r *http.Request) (int64, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.UserID() == 0 {
		return 0, false
	}
	return sess.UserID(), true
}
