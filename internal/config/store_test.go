package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osservaprezzi/fuelwatch/internal/models"
)

func TestParseRecordCanonicalShape(t *testing.T) {
	data := []byte(`{
		"title": "Pendolari",
		"stations": [
			{"id": 48524, "name": "Stazione A"},
			{"id": 33211, "name": "Stazione B"}
		],
		"scan_interval": 1800
	}`)

	rec, err := ParseRecord(data)
	require.NoError(t, err)
	assert.Equal(t, "Pendolari", rec.Title)
	assert.Equal(t, 1800, rec.ScanInterval)
	require.Len(t, rec.Stations, 2)
	assert.Equal(t, 48524, rec.Stations[0].ID)
	assert.Equal(t, "Stazione B", rec.Stations[1].Name)
}

func TestParseRecordLegacyStationID(t *testing.T) {
	rec, err := ParseRecord([]byte(`{"station_id": 48524, "name": "Stazione A"}`))
	require.NoError(t, err)
	require.Len(t, rec.Stations, 1)
	assert.Equal(t, 48524, rec.Stations[0].ID)
	assert.Equal(t, "Stazione A", rec.Stations[0].Name)
	assert.Equal(t, DefaultScanInterval, rec.ScanInterval)
}

func TestParseRecordLegacyID(t *testing.T) {
	rec, err := ParseRecord([]byte(`{"id": 7, "name": "Stazione C"}`))
	require.NoError(t, err)
	require.Len(t, rec.Stations, 1)
	assert.Equal(t, 7, rec.Stations[0].ID)
}

func TestParseRecordNoStations(t *testing.T) {
	_, err := ParseRecord([]byte(`{"title": "vuoto"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no stations")
}

func TestParseRecordDuplicateStationID(t *testing.T) {
	data := []byte(`{
		"stations": [
			{"id": 48524, "name": "A"},
			{"id": 48524, "name": "B"}
		]
	}`)
	_, err := ParseRecord(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate station id 48524")
}

func TestParseRecordInvalidJSON(t *testing.T) {
	_, err := ParseRecord([]byte(`{`))
	require.Error(t, err)
}

func TestLoadRecordsSortedAndFiltered(t *testing.T) {
	dir := t.TempDir()

	writeFile(t, dir, "b-record.json", `{"station_id": 2, "name": "B"}`)
	writeFile(t, dir, "a-record.json", `{"station_id": 1, "name": "A"}`)
	writeFile(t, dir, "notes.txt", `ignore me`)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.json"), 0o755))

	records, err := LoadRecords(dir)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a-record", records[0].ID)
	assert.Equal(t, "b-record", records[1].ID)
	assert.Equal(t, 1, records[0].Stations[0].ID)
}

func TestLoadRecordsBadFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.json", `{`)

	_, err := LoadRecords(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.json")
}

func TestLoadRecordsMissingDir(t *testing.T) {
	_, err := LoadRecords(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestWriteRecordRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "stations.d")

	rec := models.Record{
		ID:           "stations-20250901-070000",
		Title:        "Casa",
		Stations:     []models.MonitoredStationConfig{{ID: 48524, Name: "Stazione A"}},
		ScanInterval: 3600,
	}

	path, err := WriteRecord(dir, rec)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "stations-20250901-070000.json"), path)

	records, err := LoadRecords(dir)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.ID, records[0].ID)
	assert.Equal(t, rec.Title, records[0].Title)
	assert.Equal(t, rec.Stations, records[0].Stations)
	assert.Equal(t, rec.ScanInterval, records[0].ScanInterval)
}

func TestWriteRecordEmptyID(t *testing.T) {
	_, err := WriteRecord(t.TempDir(), models.Record{})
	require.Error(t, err)
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}
