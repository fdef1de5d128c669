package handlers

import (
	"commute-eta-service/internal/api/dto"
	"commute-eta-service/internal/services"
	"net/http"
)

type NotificationHandler struct {
	Routes *services.RouteService
}

func (h *NotificationHandler) Permission(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, dto.PermissionResponse{State: h.Routes.PermissionState()})
}

// RequestPermission asks the sink for permission. A denied or unsupported
// sink answers 403.
func (h *NotificationHandler) RequestPermission(w http.ResponseWriter, r *http.Request) {
	state, err := h.Routes.RequestPermission(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.PermissionResponse{State: state})
}

func (h *NotificationHandler) SendTest(w http.ResponseWriter, r *http.Request) {
	if err := h.Routes.SendTestNotification(r.Context()); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
