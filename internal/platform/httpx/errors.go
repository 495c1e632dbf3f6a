package httpx

import (
	"errors"
	"net/http"

	"github.com/aegis-auth/aegis/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, shared.ErrDuplicate):
		Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, shared.ErrCycle):
		Problem(w, http.StatusConflict, "Role Cycle", err.Error())
	case errors.Is(err, shared.ErrExpired):
		Problem(w, http.StatusGone, "Expired", err.Error())
	case errors.Is(err, shared.ErrLocked):
		Problem(w, http.StatusLocked, "Locked", err.Error())
	case errors.Is(err, shared.ErrAuth):
		Problem(w, http.StatusUnauthorized, "Unauthorized", err.Error())
	default:
		// Backend failures carry internals; do not leak them to callers.
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
