package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osservaprezzi/fuelwatch/internal/models"
)

type sourceStub struct {
	statuses []models.StationStatus
}

func (s *sourceStub) Statuses() []models.StationStatus {
	return s.statuses
}

func (s *sourceStub) Projection(recordID string, stationID int) (models.StationStatus, bool) {
	for _, st := range s.statuses {
		if st.RecordID == recordID && st.StationID == stationID {
			return st, true
		}
	}
	return models.StationStatus{}, false
}

func healthyStation() models.StationStatus {
	return models.StationStatus{
		RecordID:        "rec-1",
		StationID:       48524,
		Name:            "Stazione A",
		IntervalSeconds: 3600,
		LastSuccess:     true,
	}
}

func TestStatusHandlerHealthy(t *testing.T) {
	source := &sourceStub{statuses: []models.StationStatus{healthyStation()}}
	handler := NewStatusHandler(source, models.ConfigStoreStatus{Dir: "./stations.d", RecordCount: 1})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp models.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.Equal(t, 1, resp.ConfigStore.RecordCount)
	require.Len(t, resp.Stations, 1)
	assert.Equal(t, 48524, resp.Stations[0].StationID)
}

func TestStatusHandlerDegraded(t *testing.T) {
	unhealthy := healthyStation()
	unhealthy.StationID = 33211
	unhealthy.LastSuccess = false
	unhealthy.Error = "unavailable"

	source := &sourceStub{statuses: []models.StationStatus{healthyStation(), unhealthy}}
	handler := NewStatusHandler(source, models.ConfigStoreStatus{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	var resp models.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
}

func TestServerStationsRoutes(t *testing.T) {
	source := &sourceStub{statuses: []models.StationStatus{healthyStation()}}
	srv := NewServer(":0", source, models.ConfigStoreStatus{}, nil, zerolog.Nop())

	t.Run("list", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stations", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var statuses []models.StationStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &statuses))
		require.Len(t, statuses, 1)
	})

	t.Run("projection", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stations/rec-1/48524", nil))

		require.Equal(t, http.StatusOK, rec.Code)
		var status models.StationStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
		assert.Equal(t, "Stazione A", status.Name)
	})

	t.Run("unknown station", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stations/rec-1/999", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("bad station id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/stations/rec-1/abc", nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("health", func(t *testing.T) {
		rec := httptest.NewRecorder()
		srv.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "OK", rec.Body.String())
	})
}
