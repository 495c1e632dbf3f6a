package permissions

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aegis-auth/aegis/internal/platform/httpx"
)

// Handler wires HTTP endpoints for permission administration.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers permission routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.grant)
	r.Delete("/{id}", h.revoke)
}

// MountRoleRoutes registers the per-role listing under the roles subtree.
func (h *Handler) MountRoleRoutes(r chi.Router) {
	r.Get("/{id}/permissions", h.listByRole)
}

type grantRequest struct {
	ID       int64  `json:"id" validate:"required,gt=0"`
	RoleID   int64  `json:"role_id" validate:"required,gt=0"`
	ObjectID string `json:"object_id" validate:"required"`
}

type permissionResponse struct {
	ID       int64  `json:"id"`
	RoleID   int64  `json:"role_id"`
	ObjectID string `json:"object_id"`
}

func (h *Handler) grant(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.Grant(r.Context(), req.ID, req.RoleID, req.ObjectID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, permissionResponse(req))
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid permission id")
		return
	}
	if err := h.service.Revoke(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listByRole(w http.ResponseWriter, r *http.Request) {
	roleID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid role id")
		return
	}
	perms, err := h.service.ListByRole(r.Context(), roleID)
	if err != nil {
		h.logger.Error("list role permissions", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]permissionResponse, 0, len(perms))
	for _, p := range perms {
		out = append(out, permissionResponse{ID: p.ID, RoleID: p.RoleID, ObjectID: p.ObjectID})
	}
	httpx.JSON(w, http.StatusOK, out)
}
