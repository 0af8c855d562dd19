package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/osservaprezzi/fuelwatch/internal/models"
)

// StationSource provides station snapshots for the status endpoint and the
// projections. Implemented by the poller registry.
type StationSource interface {
	Statuses() []models.StationStatus
	Projection(recordID string, stationID int) (models.StationStatus, bool)
}

// StatusHandler handles the /status endpoint.
type StatusHandler struct {
	source    StationSource
	store     models.ConfigStoreStatus
	startTime time.Time
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(source StationSource, store models.ConfigStoreStatus) *StatusHandler {
	return &StatusHandler{
		source:    source,
		store:     store,
		startTime: time.Now(),
	}
}

// ServeHTTP implements the http.Handler interface.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	stations := h.source.Statuses()

	status := "healthy"
	for _, st := range stations {
		if !st.LastSuccess {
			status = "degraded"
			break
		}
	}

	response := models.StatusResponse{
		Status:        status,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		ConfigStore:   h.store,
		Stations:      stations,
	}

	writeJSON(w, response)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
