package poller

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/osservaprezzi/fuelwatch/internal/logocache"
	"github.com/osservaprezzi/fuelwatch/internal/models"
)

// Registry owns all pollers and the logo cache they share. Pollers are
// keyed by (configuration record, station id), so the same station id under
// two records never collides.
type Registry struct {
	fetcher     Fetcher
	metrics     MetricsRecorder
	refreshHour int
	logos       *logocache.Cache
	logger      zerolog.Logger

	mu      sync.RWMutex
	pollers map[string]map[int]*Poller
}

// NewRegistry creates an empty registry with a fresh shared logo cache.
func NewRegistry(fetcher Fetcher, metrics MetricsRecorder, refreshHour int, logger zerolog.Logger) *Registry {
	return &Registry{
		fetcher:     fetcher,
		metrics:     metrics,
		refreshHour: refreshHour,
		logos:       logocache.New(),
		logger:      logger.With().Str("component", "registry").Logger(),
		pollers:     make(map[string]map[int]*Poller),
	}
}

// Logos exposes the shared brand-logo cache.
func (r *Registry) Logos() *logocache.Cache { return r.logos }

// LoadRecord activates one poller per station in the record. Loading a
// record id that is already active replaces its pollers.
func (r *Registry) LoadRecord(ctx context.Context, rec models.Record) error {
	r.UnloadRecord(rec.ID)

	active := make(map[int]*Poller, len(rec.Stations))
	for _, st := range rec.Stations {
		p := New(rec.ID, st, rec.ScanInterval, r.refreshHour, r.fetcher, r.logos, r.metrics, r.logger)
		if err := p.Start(ctx); err != nil {
			for _, started := range active {
				started.Stop()
			}
			return err
		}
		active[st.ID] = p
	}

	r.mu.Lock()
	r.pollers[rec.ID] = active
	r.mu.Unlock()

	r.logger.Info().
		Str("record", rec.ID).
		Str("title", rec.Title).
		Int("stations", len(active)).
		Msg("configuration record loaded")
	return nil
}

// UnloadRecord stops and removes every poller of one record.
func (r *Registry) UnloadRecord(recordID string) {
	r.mu.Lock()
	active, ok := r.pollers[recordID]
	delete(r.pollers, recordID)
	r.mu.Unlock()

	if !ok {
		return
	}
	for _, p := range active {
		p.Stop()
	}
	r.logger.Info().Str("record", recordID).Msg("configuration record unloaded")
}

// Close stops every poller.
func (r *Registry) Close() {
	r.mu.Lock()
	all := r.pollers
	r.pollers = make(map[string]map[int]*Poller)
	r.mu.Unlock()

	for _, active := range all {
		for _, p := range active {
			p.Stop()
		}
	}
}

// Statuses returns a snapshot of every station, ordered by record then
// station id.
func (r *Registry) Statuses() []models.StationStatus {
	r.mu.RLock()
	var statuses []models.StationStatus
	for _, active := range r.pollers {
		for _, p := range active {
			statuses = append(statuses, p.Snapshot())
		}
	}
	r.mu.RUnlock()

	sort.Slice(statuses, func(i, j int) bool {
		if statuses[i].RecordID != statuses[j].RecordID {
			return statuses[i].RecordID < statuses[j].RecordID
		}
		return statuses[i].StationID < statuses[j].StationID
	})
	return statuses
}

// Projection returns the snapshot of one station, if active.
func (r *Registry) Projection(recordID string, stationID int) (models.StationStatus, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	active, ok := r.pollers[recordID]
	if !ok {
		return models.StationStatus{}, false
	}
	p, ok := active[stationID]
	if !ok {
		return models.StationStatus{}, false
	}
	return p.Snapshot(), true
}
