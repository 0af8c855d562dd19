package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/osservaprezzi/fuelwatch/internal/models"
)

// rawRecord covers both persisted shapes: the canonical list form and the
// legacy single-station form {"station_id"|"id": ..., "name": ...}.
type rawRecord struct {
	Title        string                          `json:"title"`
	Stations     []models.MonitoredStationConfig `json:"stations"`
	ScanInterval int                             `json:"scan_interval"`

	StationID *int   `json:"station_id"`
	ID        *int   `json:"id"`
	Name      string `json:"name"`
}

// ParseRecord decodes one configuration record, normalizing the legacy
// single-station shape to the list form. Station ids must be unique within
// the record.
func ParseRecord(data []byte) (models.Record, error) {
	var raw rawRecord
	if err := json.Unmarshal(data, &raw); err != nil {
		return models.Record{}, fmt.Errorf("decoding record: %w", err)
	}

	rec := models.Record{
		Title:        raw.Title,
		Stations:     raw.Stations,
		ScanInterval: raw.ScanInterval,
	}

	if len(rec.Stations) == 0 {
		id := raw.StationID
		if id == nil {
			id = raw.ID
		}
		if id == nil {
			return models.Record{}, fmt.Errorf("record has no stations")
		}
		rec.Stations = []models.MonitoredStationConfig{{ID: *id, Name: raw.Name}}
	}

	if rec.ScanInterval <= 0 {
		rec.ScanInterval = DefaultScanInterval
	}

	seen := make(map[int]bool, len(rec.Stations))
	for _, st := range rec.Stations {
		if seen[st.ID] {
			return models.Record{}, fmt.Errorf("duplicate station id %d in record", st.ID)
		}
		seen[st.ID] = true
	}

	return rec, nil
}

// LoadRecords reads every *.json file in dir as a configuration record. The
// record id is the file name without extension. Records are returned sorted
// by id for deterministic startup order.
func LoadRecords(dir string) ([]models.Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading config dir %s: %w", dir, err)
	}

	var records []models.Record
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		rec, err := ParseRecord(data)
		if err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
		rec.ID = strings.TrimSuffix(e.Name(), ".json")
		records = append(records, rec)
	}

	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}

// WriteRecord persists a configuration record in the canonical list shape.
// The file name is the record id plus a .json extension.
func WriteRecord(dir string, rec models.Record) (string, error) {
	if rec.ID == "" {
		return "", fmt.Errorf("record id is empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating config dir %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding record: %w", err)
	}

	path := filepath.Join(dir, rec.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
