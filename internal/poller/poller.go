// Package poller provides the per-station polling engine: periodic refresh,
// a forced daily refresh at a fixed hour, per-station failure isolation and
// the shared brand-logo cache.
package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/osservaprezzi/fuelwatch/internal/logocache"
	"github.com/osservaprezzi/fuelwatch/internal/models"
	"github.com/osservaprezzi/fuelwatch/internal/resolver"
)

// Fetcher is the registry surface a poller needs.
type Fetcher interface {
	StationDetails(ctx context.Context, stationID int) (map[string]any, error)
	BrandLogos(ctx context.Context) ([]models.BrandLogo, error)
}

// MetricsRecorder receives per-tick operational metrics. Implemented by the
// HTTP layer's Prometheus metrics.
type MetricsRecorder interface {
	RecordFetch(stationID int, status string, seconds float64)
	RecordStationHealth(recordID string, stationID int, healthy bool)
	RecordFuelPrice(stationID int, fuel, mode string, price float64)
	RecordLastRefresh(stationID int, at time.Time)
}

// FetchError is the typed per-tick failure surfaced to the scheduling
// layer. It is never fatal; the next scheduled tick retries.
type FetchError struct {
	StationID int
	Err       error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("refreshing station %d: %v", e.StationID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Poller owns the refresh lifecycle of one monitored station within one
// configuration record.
type Poller struct {
	recordID    string
	station     models.MonitoredStationConfig
	interval    time.Duration
	refreshHour int

	fetcher Fetcher
	logos   *logocache.Cache
	metrics MetricsRecorder
	logger  zerolog.Logger

	scheduler gocron.Scheduler

	// refreshMu serializes ticks: a trigger firing while a refresh is in
	// flight waits for it, so no two fetches for the same station overlap.
	refreshMu sync.Mutex

	mu          sync.RWMutex
	last        *models.CanonicalStationRecord
	lastSuccess bool
	lastAttempt time.Time
}

// New creates a poller for one station entry.
func New(recordID string, station models.MonitoredStationConfig, intervalSeconds, refreshHour int, fetcher Fetcher, logos *logocache.Cache, metrics MetricsRecorder, logger zerolog.Logger) *Poller {
	return &Poller{
		recordID:    recordID,
		station:     station,
		interval:    time.Duration(intervalSeconds) * time.Second,
		refreshHour: refreshHour,
		fetcher:     fetcher,
		logos:       logos,
		metrics:     metrics,
		logger: logger.With().
			Str("component", "poller").
			Str("record", recordID).
			Int("station", station.ID).
			Logger(),
	}
}

// Start performs one synchronous first refresh and registers the two
// triggers: the periodic job at the configured interval and the daily job
// at the fixed refresh hour. A failing first refresh does not block
// activation; the station starts unhealthy and recovers on a later tick.
func (p *Poller) Start(ctx context.Context) error {
	if err := p.Refresh(ctx); err != nil {
		p.logger.Warn().Err(err).Msg("first refresh failed, station starts unhealthy")
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("creating scheduler for station %d: %w", p.station.ID, err)
	}

	onError := gocron.WithEventListeners(
		gocron.AfterJobRunsWithError(func(_ uuid.UUID, jobName string, err error) {
			p.logger.Error().Err(err).Str("job", jobName).Msg("scheduled refresh failed")
		}),
	)

	if _, err := s.NewJob(
		gocron.DurationJob(p.interval),
		gocron.NewTask(p.runScheduled),
		gocron.WithName(fmt.Sprintf("station-%d-interval", p.station.ID)),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		onError,
	); err != nil {
		return fmt.Errorf("registering interval job: %w", err)
	}

	if _, err := s.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(uint(p.refreshHour), 0, 0))),
		gocron.NewTask(p.runScheduled),
		gocron.WithName(fmt.Sprintf("station-%d-daily", p.station.ID)),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		onError,
	); err != nil {
		return fmt.Errorf("registering daily job: %w", err)
	}

	s.Start()
	p.scheduler = s

	p.logger.Info().
		Dur("interval", p.interval).
		Int("refreshHour", p.refreshHour).
		Msg("poller started")
	return nil
}

// runScheduled is the shared task of both triggers.
func (p *Poller) runScheduled() error {
	return p.Refresh(context.Background())
}

// Refresh performs one tick: fetch, resolve, store. On failure the previous
// record is kept and a *FetchError returned. After a successful fetch an
// empty logo cache is populated opportunistically; a failure there is
// logged and swallowed, never affecting station health.
func (p *Poller) Refresh(ctx context.Context) error {
	p.refreshMu.Lock()
	defer p.refreshMu.Unlock()

	start := time.Now()
	payload, err := p.fetcher.StationDetails(ctx, p.station.ID)
	elapsed := time.Since(start)
	now := time.Now()

	if err != nil {
		p.mu.Lock()
		p.lastSuccess = false
		p.lastAttempt = now
		p.mu.Unlock()

		if p.metrics != nil {
			p.metrics.RecordFetch(p.station.ID, "error", elapsed.Seconds())
			p.metrics.RecordStationHealth(p.recordID, p.station.ID, false)
		}
		p.logger.Error().Err(err).Dur("duration", elapsed).Msg("station fetch failed")
		return &FetchError{StationID: p.station.ID, Err: err}
	}

	rec := resolver.Resolve(payload)

	p.mu.Lock()
	p.last = &rec
	p.lastSuccess = true
	p.lastAttempt = now
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.RecordFetch(p.station.ID, "success", elapsed.Seconds())
		p.metrics.RecordStationHealth(p.recordID, p.station.ID, true)
		p.metrics.RecordLastRefresh(p.station.ID, now)
		for _, q := range rec.Fuels {
			if q.Price == nil {
				continue
			}
			mode := "attended"
			if q.IsSelf {
				mode = "self"
			}
			p.metrics.RecordFuelPrice(p.station.ID, resolver.NormalizeName(q.Name), mode, *q.Price)
		}
	}

	p.logger.Debug().
		Int("fuels", len(rec.Fuels)).
		Dur("duration", elapsed).
		Msg("station refreshed")

	p.populateLogos(ctx)
	return nil
}

// populateLogos fills the shared cache when it is observed empty. A
// concurrent duplicate populate is idempotent, so no coordination beyond
// the cache's own lock is needed.
func (p *Poller) populateLogos(ctx context.Context) {
	if !p.logos.Empty() {
		return
	}

	logos, err := p.fetcher.BrandLogos(ctx)
	if err != nil {
		p.logger.Warn().Err(err).Msg("brand logo fetch failed, will retry on a later tick")
		return
	}
	if len(logos) == 0 {
		return
	}
	p.logos.Populate(logos)
	p.logger.Info().Int("count", len(logos)).Msg("brand logo cache populated")
}

// Stop shuts down both triggers. The snapshot state stays readable.
func (p *Poller) Stop() {
	if p.scheduler == nil {
		return
	}
	if err := p.scheduler.Shutdown(); err != nil {
		p.logger.Warn().Err(err).Msg("scheduler shutdown failed")
	}
	p.scheduler = nil
}

// Snapshot returns the current status of the station. On an unhealthy
// station the last good record is retained and an explicit error marker is
// set instead of blanking prior data.
func (p *Poller) Snapshot() models.StationStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()

	status := models.StationStatus{
		RecordID:        p.recordID,
		StationID:       p.station.ID,
		Name:            p.station.Name,
		IntervalSeconds: int(p.interval / time.Second),
		LastSuccess:     p.lastSuccess,
		Record:          p.last,
	}
	if !p.lastAttempt.IsZero() {
		at := p.lastAttempt
		status.LastAttemptAt = &at
	}
	if !p.lastSuccess {
		status.Error = "unavailable"
	}
	if p.last != nil {
		if img, ok := p.logos.Lookup(p.last.BrandID, p.last.Brand); ok {
			status.BrandLogo = img
		}
	}
	return status
}
