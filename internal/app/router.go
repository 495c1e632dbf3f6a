package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aegis-auth/aegis/internal/accounts"
	"github.com/aegis-auth/aegis/internal/authz"
	"github.com/aegis-auth/aegis/internal/observability"
	"github.com/aegis-auth/aegis/internal/permissions"
	"github.com/aegis-auth/aegis/internal/roles"
	"github.com/aegis-auth/aegis/internal/sessions"
)

// Administrative object ids guarding the admin surface. They are ordinary
// permission objects; seed them against an administrator role.
const (
	ObjectAdminRoles       = "admin.roles"
	ObjectAdminPermissions = "admin.permissions"
	ObjectAdminUsers       = "admin.users"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	AccountsHandler    *accounts.Handler
	SessionsHandler    *sessions.Handler
	RolesHandler       *roles.Handler
	PermissionsHandler *permissions.Handler
	AuthzHandler       *authz.Handler
	AuthzMiddleware    authz.Middleware
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with Aegis defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/auth", func(r chi.Router) {
		params.AccountsHandler.MountAuthRoutes(r)
		params.SessionsHandler.MountRoutes(r)
	})

	r.Route("/authz", func(r chi.Router) {
		params.AuthzHandler.MountRoutes(r)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Route("/roles", func(r chi.Router) {
			r.Use(params.AuthzMiddleware.Require(ObjectAdminRoles))
			params.RolesHandler.MountRoutes(r)
			params.PermissionsHandler.MountRoleRoutes(r)
		})
		r.Route("/permissions", func(r chi.Router) {
			r.Use(params.AuthzMiddleware.Require(ObjectAdminPermissions))
			params.PermissionsHandler.MountRoutes(r)
		})
		r.Route("/users", func(r chi.Router) {
			r.Use(params.AuthzMiddleware.Require(ObjectAdminUsers))
			params.AccountsHandler.MountAdminRoutes(r)
		})
	})

	return r
}
