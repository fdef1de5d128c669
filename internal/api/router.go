package api

import (
	"commute-eta-service/internal/api/handlers"
	"commute-eta-service/internal/platform/log"
	"commute-eta-service/internal/services"
	"net/http"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps are the services the HTTP layer is built on.
type Deps struct {
	Routes *services.RouteService
	Board  handlers.DepartureBoard
	Policy services.NotificationPolicy
	// Now is the clock in the user's location. Default time.Now.
	Now func() time.Time
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(deps Deps) http.Handler {
	if deps.Now == nil {
		deps.Now = time.Now
	}

	routeHandler := &handlers.RouteHandler{Routes: deps.Routes}
	departureHandler := &handlers.DepartureHandler{
		Routes: deps.Routes,
		Board:  deps.Board,
		Policy: deps.Policy,
		Now:    deps.Now,
	}
	notificationHandler := &handlers.NotificationHandler{Routes: deps.Routes}
	transferHandler := &handlers.TransferHandler{Routes: deps.Routes, Now: deps.Now}

	r := mux.NewRouter()

	r.HandleFunc("/health", handlers.Health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	r.HandleFunc("/routes", routeHandler.List).Methods(http.MethodGet)
	r.HandleFunc("/routes", routeHandler.Create).Methods(http.MethodPost)
	r.HandleFunc("/routes", routeHandler.Clear).Methods(http.MethodDelete)
	r.HandleFunc("/routes/{id}", routeHandler.Get).Methods(http.MethodGet)
	r.HandleFunc("/routes/{id}", routeHandler.Update).Methods(http.MethodPatch)
	r.HandleFunc("/routes/{id}", routeHandler.Delete).Methods(http.MethodDelete)
	r.HandleFunc("/routes/{id}/notifications/toggle", routeHandler.ToggleNotifications).Methods(http.MethodPost)

	r.HandleFunc("/departures", departureHandler.List).Methods(http.MethodGet)
	r.HandleFunc("/departures/refresh", departureHandler.Refresh).Methods(http.MethodPost)

	r.HandleFunc("/notifications/permission", notificationHandler.Permission).Methods(http.MethodGet)
	r.HandleFunc("/notifications/permission", notificationHandler.RequestPermission).Methods(http.MethodPost)
	r.HandleFunc("/notifications/test", notificationHandler.SendTest).Methods(http.MethodPost)

	r.HandleFunc("/export", transferHandler.Export).Methods(http.MethodGet)
	r.HandleFunc("/import", transferHandler.Import).Methods(http.MethodPost)

	var h http.Handler = r
	h = loggingMiddleware(log.WithName("http"))(h)
	h = requestIDMiddleware(h)
	return gziphandler.GzipHandler(h)
}
