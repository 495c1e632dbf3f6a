package accounts

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aegis-auth/aegis/internal/platform/httpx"
)

// AttemptResetter clears the failed-login counter; the session manager owns
// that row, so the admin unlock endpoint delegates to it.
type AttemptResetter interface {
	ResetAttempts(ctx context.Context, userID int64) error
}

// Handler wires HTTP endpoints for registration, activation, and user admin.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	unlocker  AttemptResetter
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, unlocker AttemptResetter) *Handler {
	return &Handler{logger: logger, service: service, unlocker: unlocker, validator: validator.New()}
}

// MountAuthRoutes registers the public registration/activation routes.
func (h *Handler) MountAuthRoutes(r chi.Router) {
	r.Post("/register", h.register)
	r.Post("/activate", h.activate)
}

// MountAdminRoutes registers the user administration routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/{id}", h.getUser)
	r.Put("/{id}/status", h.setStatus)
	r.Post("/{id}/unlock", h.unlock)
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	RoleID   int64  `json:"role_id" validate:"required,gt=0"`
}

type activateRequest struct {
	Token string `json:"token" validate:"required"`
}

type setStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=inactive active suspended"`
}

type userResponse struct {
	ID     int64  `json:"id"`
	Email  string `json:"email"`
	Status string `json:"status"`
	RoleID int64  `json:"role_id"`
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	id, err := h.service.Register(r.Context(), req.Email, req.Password, req.RoleID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"id": id, "status": StatusInactive.String()})
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	var req activateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	id, err := h.service.Activate(r.Context(), req.Token)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"id": id, "status": StatusActive.String()})
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	user, err := h.service.Find(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, userResponse{
		ID:     user.ID,
		Email:  user.Email,
		Status: user.Status.String(),
		RoleID: user.RoleID,
	})
}

func (h *Handler) setStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req setStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.SetStatus(r.Context(), id, parseStatus(req.Status)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) unlock(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	if err := h.unlocker.ResetAttempts(r.Context(), id); err != nil {
		h.logger.Error("unlock user", slog.Int64("user_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid user id")
		return 0, false
	}
	return id, true
}

func parseStatus(s string) Status {
	switch s {
	case "active":
		return StatusActive
	case "suspended":
		return StatusSuspended
	default:
		return StatusInactive
	}
}
