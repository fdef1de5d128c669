package handlers

import (
	"commute-eta-service/internal/api/dto"
	"commute-eta-service/internal/domain"
	"commute-eta-service/internal/platform/log"
	"commute-eta-service/internal/platform/obs"
	"commute-eta-service/internal/services"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// maxBodyBytes caps request bodies, including import files.
const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error(err, "encode failed", "method", r.Method, "path", r.URL.Path)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, dto.ErrorResponse{Error: msg})
}

// writeServiceError maps the error taxonomy onto HTTP statuses. Unknown
// errors are logged and answered with a generic message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *domain.ValidationError

	switch {
	case errors.As(err, &ve):
		writeJSON(w, r, http.StatusUnprocessableEntity, dto.ErrorResponse{
			Error:  domain.UserMessage(err),
			Fields: ve.Fields,
		})
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrProvider):
		writeError(w, r, http.StatusUnprocessableEntity, domain.UserMessage(err))
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, r, http.StatusNotFound, domain.UserMessage(err))
	case errors.Is(err, domain.ErrPermissionDenied):
		writeError(w, r, http.StatusForbidden, domain.UserMessage(err))
	case errors.Is(err, domain.ErrInvalidFormat):
		writeError(w, r, http.StatusBadRequest, domain.UserMessage(err))
	case errors.Is(err, services.ErrCycleInProgress):
		writeError(w, r, http.StatusConflict, "a refresh is already in progress")
	case errors.Is(err, services.ErrNoCurrentUser):
		writeError(w, r, http.StatusUnauthorized, "no current user")
	default:
		log.Error(err, "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", obs.RequestID(r.Context()),
		)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads exactly one JSON object into v. It writes the 400 reply
// itself and reports false when the body is unusable.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return false
	}
	return true
}
