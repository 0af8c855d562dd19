// Package http provides the operational HTTP surface: Prometheus metrics,
// status and read-only station projections.
package http

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the monitor. It implements the
// poller's MetricsRecorder.
type Metrics struct {
	StationFetchesTotal  *prometheus.CounterVec
	FetchDuration        *prometheus.HistogramVec
	StationHealthy       *prometheus.GaugeVec
	LastRefreshTimestamp *prometheus.GaugeVec
	FuelPriceEUR         *prometheus.GaugeVec
}

// NewMetrics creates and registers Prometheus metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		StationFetchesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fuelwatch_station_fetches_total",
				Help: "Total number of station detail fetches by station and status",
			},
			[]string{"station", "status"},
		),
		FetchDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fuelwatch_fetch_duration_seconds",
				Help:    "Station fetch duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"station"},
		),
		StationHealthy: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fuelwatch_station_healthy",
				Help: "Whether the last fetch for a station succeeded (1) or failed (0)",
			},
			[]string{"record", "station"},
		),
		LastRefreshTimestamp: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fuelwatch_last_refresh_timestamp",
				Help: "Unix timestamp of the last successful refresh",
			},
			[]string{"station"},
		),
		FuelPriceEUR: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fuelwatch_fuel_price_eur",
				Help: "Current fuel price in EUR per liter by station, fuel and service mode",
			},
			[]string{"station", "fuel", "mode"},
		),
	}
}

// RecordFetch records one station fetch attempt.
func (m *Metrics) RecordFetch(stationID int, status string, seconds float64) {
	station := strconv.Itoa(stationID)
	m.StationFetchesTotal.WithLabelValues(station, status).Inc()
	m.FetchDuration.WithLabelValues(station).Observe(seconds)
}

// RecordStationHealth records the health of a station's last fetch.
func (m *Metrics) RecordStationHealth(recordID string, stationID int, healthy bool) {
	v := 0.0
	if healthy {
		v = 1.0
	}
	m.StationHealthy.WithLabelValues(recordID, strconv.Itoa(stationID)).Set(v)
}

// RecordLastRefresh records the timestamp of a successful refresh.
func (m *Metrics) RecordLastRefresh(stationID int, at time.Time) {
	m.LastRefreshTimestamp.WithLabelValues(strconv.Itoa(stationID)).Set(float64(at.Unix()))
}

// RecordFuelPrice records the current price of one fuel quote.
func (m *Metrics) RecordFuelPrice(stationID int, fuel, mode string, price float64) {
	m.FuelPriceEUR.WithLabelValues(strconv.Itoa(stationID), fuel, mode).Set(price)
}
