package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	apperrors "poker-lab/errors"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps the rejection taxonomy onto HTTP statuses. Unrecognized
// errors become 500s with a generic body so internals never leak.
func (a *API) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := err.Error()

	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, apperrors.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, apperrors.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrUsernameTaken),
		errors.Is(err, apperrors.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, apperrors.ErrMalformed), errors.Is(err, apperrors.ErrInvalidPassword),
		errors.Is(err, apperrors.ErrInvalidEstimate):
		status = http.StatusBadRequest
	case errors.Is(err, apperrors.ErrBackpressure), errors.Is(err, apperrors.ErrSessionClosed):
		status = http.StatusServiceUnavailable
	default:
		a.log.Error("Request failed", "error", err)
		message = "internal error"
	}

	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
