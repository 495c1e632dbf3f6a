package authz

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/aegis-auth/aegis/internal/sessions"
	"github.com/aegis-auth/aegis/internal/shared"
)

type userContextKey struct{}

// ContextWithUser stores the authenticated user id in context.
func ContextWithUser(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, userContextKey{}, userID)
}

// UserFromContext extracts the authenticated user id from context.
func UserFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(userContextKey{}).(int64)
	return id, ok
}

// Middleware guards HTTP routes with permission checks.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// Require ensures the caller's session grants access to objectID.
func (m Middleware) Require(objectID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			decision, err := m.Service.Check(r.Context(), sessions.BearerToken(r), objectID)
			if err != nil {
				if shared.IsRetryable(err) {
					if m.Logger != nil {
						m.Logger.Error("authz check", slog.Any("error", err))
					}
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			if !decision.Allowed {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			if decision.Rotated {
				w.Header().Set(sessions.RotatedTokenHeader, decision.Token)
			}
			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), decision.UserID)))
		})
	}
}
