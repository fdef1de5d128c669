package handlers

import (
	"commute-eta-service/internal/api/dto"
	"commute-eta-service/internal/services"
	"context"
	"net/http"
	"time"
)

// DepartureBoard is the orchestrator surface the API reads from.
type DepartureBoard interface {
	Snapshot() services.Snapshot
	Refresh(ctx context.Context) (services.CycleReport, error)
}

type DepartureHandler struct {
	Routes *services.RouteService
	Board  DepartureBoard
	Policy services.NotificationPolicy
	Now    func() time.Time
}

// List returns one card per route in creation order. Routes the
// orchestrator has not computed yet are marked pending.
func (h *DepartureHandler) List(w http.ResponseWriter, r *http.Request) {
	routes, err := h.Routes.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	now := h.now()
	snap := h.Board.Snapshot()

	res := dto.DeparturesResponse{
		Departures: make([]dto.DepartureView, 0, len(routes)),
		LastCycle:  snap.LastCycle,
		Running:    snap.Running,
		Now:        now,
	}
	for _, route := range routes {
		res.Departures = append(res.Departures, dto.NewDepartureView(route, snap, h.Policy, now))
	}
	writeJSON(w, r, http.StatusOK, res)
}

// Refresh runs a cycle synchronously and returns its report.
func (h *DepartureHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	report, err := h.Board.Refresh(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}

func (h *DepartureHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
