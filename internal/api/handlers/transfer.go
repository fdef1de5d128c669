package handlers

import (
	"commute-eta-service/internal/api/dto"
	"commute-eta-service/internal/services"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

type TransferHandler struct {
	Routes *services.RouteService
	Now    func() time.Time
}

// Export serves the current user's routes as a downloadable backup.
func (h *TransferHandler) Export(w http.ResponseWriter, r *http.Request) {
	exp, err := h.Routes.Export(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	now := time.Now
	if h.Now != nil {
		now = h.Now
	}
	name := fmt.Sprintf("commute-routes-%s.json", now().Format(time.DateOnly))
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	writeJSON(w, r, http.StatusOK, exp)
}

// Import replaces the current user's routes with the uploaded backup.
// Nothing changes unless the whole file is valid.
func (h *TransferHandler) Import(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, "import file is too large")
			return
		}
		writeError(w, r, http.StatusBadRequest, "could not read body")
		return
	}

	routes, err := h.Routes.Import(r.Context(), data)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, dto.ImportResponse{Imported: len(routes), Routes: routes})
}
