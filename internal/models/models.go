// Package models provides shared data types for the fuel station monitor.
package models

import (
	"time"
)

// Option is one selectable entry in the region/province/town hierarchy.
type Option struct {
	// ID is the upstream identifier (numeric for regions, a code for
	// provinces and towns). Kept as a string because the registry mixes both.
	ID string `json:"id"`
	// Label is the human-readable name used for sorting and display.
	Label string `json:"label"`
}

// StationCandidate is a station returned by an area search. It only lives
// within one wizard session.
type StationCandidate struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Brand   string `json:"brand,omitempty"`
	Address string `json:"address,omitempty"`
	Company string `json:"company,omitempty"`
}

// MonitoredStationConfig is the minimal persisted entry for one station.
type MonitoredStationConfig struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Record is one persisted configuration record: the stations to monitor,
// how often, and a display title.
type Record struct {
	// ID identifies the record within the process (derived from the file
	// name by the store, never part of the persisted JSON).
	ID string `json:"-"`

	Title        string                   `json:"title"`
	Stations     []MonitoredStationConfig `json:"stations"`
	ScanInterval int                      `json:"scan_interval"`
}

// Coordinates is a resolved latitude/longitude pair. Either both axes are
// present or the pair is absent entirely.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Contacts holds the optional contact fields of a station.
type Contacts struct {
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Website string `json:"website,omitempty"`
}

// FuelQuote is one priced fuel type at a station. The pair (normalized
// name, IsSelf) identifies a quote within one record.
type FuelQuote struct {
	Name         string     `json:"name"`
	IsSelf       bool       `json:"is_self"`
	Price        *float64   `json:"price,omitempty"`
	ValidityDate *time.Time `json:"validity_date,omitempty"`
}

// Service is one station amenity. The upstream lists services either as bare
// strings or as objects; the resolver normalizes both into this shape.
type Service struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// CanonicalStationRecord is the normalized snapshot of one station fetch,
// produced by the field resolver. String fields are empty when absent.
type CanonicalStationRecord struct {
	Name            string       `json:"name,omitempty"`
	Company         string       `json:"company,omitempty"`
	Brand           string       `json:"brand,omitempty"`
	BrandID         string       `json:"brand_id,omitempty"`
	Address         string       `json:"address,omitempty"`
	Coordinates     *Coordinates `json:"coordinates,omitempty"`
	StationType     string       `json:"station_type,omitempty"`
	InsertDate      *time.Time   `json:"insert_date,omitempty"`
	Contacts        Contacts     `json:"contacts"`
	OpeningHoursRaw string       `json:"opening_hours_raw,omitempty"`
	Services        []Service    `json:"services,omitempty"`
	Fuels           []FuelQuote  `json:"fuels"`
}

// BrandLogo is one brand image fetched from the logos endpoint. Image is a
// data URI or an asset path.
type BrandLogo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// StationStatus is the operational snapshot of one poller, exposed on the
// status endpoint and the station projections.
type StationStatus struct {
	RecordID        string                  `json:"record_id"`
	StationID       int                     `json:"station_id"`
	Name            string                  `json:"name"`
	IntervalSeconds int                     `json:"interval_seconds"`
	LastAttemptAt   *time.Time              `json:"last_attempt_at,omitempty"`
	LastSuccess     bool                    `json:"last_success"`
	Error           string                  `json:"error,omitempty"`
	BrandLogo       string                  `json:"brand_logo,omitempty"`
	Record          *CanonicalStationRecord `json:"record,omitempty"`
}

// ConfigStoreStatus describes the configuration store on the status endpoint.
type ConfigStoreStatus struct {
	Dir         string `json:"dir"`
	RecordCount int    `json:"record_count"`
}

// StatusResponse is the response for the /status endpoint.
type StatusResponse struct {
	Status        string            `json:"status"`
	UptimeSeconds int64             `json:"uptime_seconds"`
	ConfigStore   ConfigStoreStatus `json:"config_store"`
	Stations      []StationStatus   `json:"stations"`
}
