package authz

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aegis-auth/aegis/internal/platform/httpx"
	"github.com/aegis-auth/aegis/internal/sessions"
)

// Handler wires the authorization check endpoint.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers authz routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/check", h.check)
}

type checkRequest struct {
	ObjectID string `json:"object_id" validate:"required"`
}

type checkResponse struct {
	Allowed bool  `json:"allowed"`
	UserID  int64 `json:"user_id,omitempty"`
	RoleID  int64 `json:"role_id"`
}

func (h *Handler) check(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	decision, err := h.service.Check(r.Context(), sessions.BearerToken(r), req.ObjectID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if decision.Rotated {
		w.Header().Set(sessions.RotatedTokenHeader, decision.Token)
	}
	httpx.JSON(w, http.StatusOK, checkResponse{
		Allowed: decision.Allowed,
		UserID:  decision.UserID,
		RoleID:  decision.RoleID,
	})
}
