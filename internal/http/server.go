package http

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/osservaprezzi/fuelwatch/internal/models"
)

// Server represents the HTTP server for metrics, status and station
// projections.
type Server struct {
	server  *http.Server
	logger  zerolog.Logger
	metrics *Metrics
}

// NewServer creates a new HTTP server. The metrics are created by the
// caller so they can be shared with the poller registry.
func NewServer(addr string, source StationSource, store models.ConfigStoreStatus, metrics *Metrics, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/status", NewStatusHandler(source, store))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			panic(err)
		}
	})

	mux.HandleFunc("GET /stations", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, source.Statuses())
	})
	mux.HandleFunc("GET /stations/{record}/{station}", func(w http.ResponseWriter, r *http.Request) {
		stationID, err := strconv.Atoi(r.PathValue("station"))
		if err != nil {
			http.Error(w, "invalid station id", http.StatusBadRequest)
			return
		}
		status, ok := source.Projection(r.PathValue("record"), stationID)
		if !ok {
			http.Error(w, "station not found", http.StatusNotFound)
			return
		}
		writeJSON(w, status)
	})

	return &Server{
		server: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger:  logger.With().Str("component", "http").Logger(),
		metrics: metrics,
	}
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("starting HTTP server")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Metrics returns the Prometheus metrics.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}
