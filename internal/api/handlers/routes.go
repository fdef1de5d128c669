package handlers

import (
	"commute-eta-service/internal/api/dto"
	"commute-eta-service/internal/domain"
	"commute-eta-service/internal/services"
	"net/http"

	"github.com/gorilla/mux"
)

type RouteHandler struct {
	Routes *services.RouteService
}

func (h *RouteHandler) List(w http.ResponseWriter, r *http.Request) {
	routes, err := h.Routes.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if routes == nil {
		routes = []*domain.Route{}
	}
	writeJSON(w, r, http.StatusOK, dto.RoutesResponse{Routes: routes})
}

func (h *RouteHandler) Get(w http.ResponseWriter, r *http.Request) {
	route, err := h.Routes.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, route)
}

// Create validates and stores a new route. Enabling notifications on
// creation asks for permission first.
func (h *RouteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in domain.RouteInput
	if !decodeJSON(w, r, &in) {
		return
	}

	route, err := h.Routes.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Location", "/routes/"+route.ID)
	writeJSON(w, r, http.StatusCreated, route)
}

func (h *RouteHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch domain.RoutePatch
	if !decodeJSON(w, r, &patch) {
		return
	}

	route, err := h.Routes.Update(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, route)
}

func (h *RouteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Routes.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Clear removes every route of the current user.
func (h *RouteHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.Routes.Clear(r.Context()); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RouteHandler) ToggleNotifications(w http.ResponseWriter, r *http.Request) {
	route, err := h.Routes.ToggleNotifications(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, route)
}
