// Package wizard implements the station-discovery flow as an explicit state
// machine. A Session is a plain serializable value passed into and returned
// from every transition; the Wizard itself holds only collaborators and is
// safe to share across sessions. Rendering the steps to a user is the
// caller's concern.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/osservaprezzi/fuelwatch/internal/models"
	"github.com/osservaprezzi/fuelwatch/internal/validator"
)

// State names the wizard steps.
type State string

const (
	StateMethodChoice   State = "method_choice"
	StateRegionSelect   State = "region_select"
	StateProvinceSelect State = "province_select"
	StateTownSelect     State = "town_select"
	StateStationSelect  State = "station_select"
	StateManualEntry    State = "manual_entry"
	StateConfirmPartial State = "confirm_partial"
	StateCreated        State = "created"
	StateAborted        State = "aborted"
)

// Method selects between the search flow and manual identifier entry.
type Method string

const (
	MethodSearch Method = "search"
	MethodManual Method = "manual"
)

// AbortReason explains a terminal abort.
type AbortReason string

const (
	AbortNoStationsFound AbortReason = "no_stations_found"
	AbortByUser          AbortReason = "aborted_by_user"
)

// DefaultTitle is used when the user supplies no title and no better name
// is available.
const DefaultTitle = "Osservaprezzi Carburanti"

var (
	// ErrInvalidState signals a transition called on the wrong step.
	ErrInvalidState = errors.New("transition not valid in current state")
	// ErrInvalidOption signals a selection outside the offered option set.
	// The calling boundary must reject it; sessions are never advanced.
	ErrInvalidOption = errors.New("selected value not among offered options")
	// ErrNoSelection signals an empty station multi-select.
	ErrNoSelection = errors.New("at least one station must be selected")
	// ErrNoValidStations signals a proceed decision with an empty valid
	// subset; a configuration record without stations is never created.
	ErrNoValidStations = errors.New("no valid stations to create")
	// ErrUnknownMethod signals a method outside {search, manual}.
	ErrUnknownMethod = errors.New("unknown discovery method")
)

// ValidatedStation is one accepted candidate, with the names needed for the
// title rule at creation.
type ValidatedStation struct {
	Entry        models.MonitoredStationConfig `json:"entry"`
	Preview      string                        `json:"preview"`
	Company      string                        `json:"company,omitempty"`
	ResolvedName string                        `json:"resolved_name,omitempty"`
}

// Session is the complete state of one discovery run.
type Session struct {
	State  State  `json:"state"`
	Method Method `json:"method,omitempty"`

	Region   models.Option `json:"region,omitzero"`
	Province models.Option `json:"province,omitzero"`
	Town     models.Option `json:"town,omitzero"`

	// Options is the set currently offered to the user on a select step.
	Options []models.Option `json:"options,omitempty"`
	// Candidates are the area-search results on the station select step.
	Candidates []models.StationCandidate `json:"candidates,omitempty"`

	Valid      []ValidatedStation `json:"valid,omitempty"`
	InvalidIDs []string           `json:"invalid_ids,omitempty"`

	ScanInterval int    `json:"scan_interval,omitempty"`
	Title        string `json:"title,omitempty"`

	AbortReason AbortReason    `json:"abort_reason,omitempty"`
	Result      *models.Record `json:"result,omitempty"`
}

// RegistryClient is the location-hierarchy surface the wizard consumes.
// Listing calls return empty sets on failure; only the search propagates
// errors.
type RegistryClient interface {
	Regions(ctx context.Context) []models.Option
	Provinces(ctx context.Context, regionID string) []models.Option
	Towns(ctx context.Context, provinceID string) []models.Option
	SearchByArea(ctx context.Context, regionID, provinceID, townID string) ([]models.StationCandidate, error)
}

// CandidateValidator validates one candidate station id.
type CandidateValidator interface {
	Validate(ctx context.Context, stationID int, providedName string) validator.Result
}

// Wizard orchestrates discovery sessions.
type Wizard struct {
	registry        RegistryClient
	validator       CandidateValidator
	defaultInterval int
	logger          zerolog.Logger
}

// New creates a Wizard.
func New(registry RegistryClient, v CandidateValidator, defaultInterval int, logger zerolog.Logger) *Wizard {
	return &Wizard{
		registry:        registry,
		validator:       v,
		defaultInterval: defaultInterval,
		logger:          logger.With().Str("component", "wizard").Logger(),
	}
}

// Start opens a new session at the method choice step.
func (w *Wizard) Start() Session {
	return Session{State: StateMethodChoice}
}

// ChooseMethod moves to the first step of the chosen flow. The search flow
// immediately offers the region list.
func (w *Wizard) ChooseMethod(ctx context.Context, s Session, m Method) (Session, error) {
	if err := requireState(s, StateMethodChoice); err != nil {
		return s, err
	}

	switch m {
	case MethodSearch:
		s.Method = m
		s.Options = sortedOptions(w.registry.Regions(ctx))
		s.State = StateRegionSelect
		return s, nil
	case MethodManual:
		s.Method = m
		s.Options = nil
		s.State = StateManualEntry
		return s, nil
	default:
		return s, fmt.Errorf("%w: %q", ErrUnknownMethod, m)
	}
}

// SelectRegion picks a region from the offered set and offers its provinces.
func (w *Wizard) SelectRegion(ctx context.Context, s Session, optionID string) (Session, error) {
	if err := requireState(s, StateRegionSelect); err != nil {
		return s, err
	}
	opt, ok := findOption(s.Options, optionID)
	if !ok {
		return s, fmt.Errorf("%w: region %q", ErrInvalidOption, optionID)
	}

	s.Region = opt
	s.Options = sortedOptions(w.registry.Provinces(ctx, opt.ID))
	s.State = StateProvinceSelect
	return s, nil
}

// SelectProvince picks a province from the offered set and offers its towns.
func (w *Wizard) SelectProvince(ctx context.Context, s Session, optionID string) (Session, error) {
	if err := requireState(s, StateProvinceSelect); err != nil {
		return s, err
	}
	opt, ok := findOption(s.Options, optionID)
	if !ok {
		return s, fmt.Errorf("%w: province %q", ErrInvalidOption, optionID)
	}

	s.Province = opt
	s.Options = sortedOptions(w.registry.Towns(ctx, opt.ID))
	s.State = StateTownSelect
	return s, nil
}

// SelectTown picks a town and runs the area search. A search failure leaves
// the session on the town step so it can be retried; zero results terminate
// the flow with no_stations_found.
func (w *Wizard) SelectTown(ctx context.Context, s Session, optionID string) (Session, error) {
	if err := requireState(s, StateTownSelect); err != nil {
		return s, err
	}
	opt, ok := findOption(s.Options, optionID)
	if !ok {
		return s, fmt.Errorf("%w: town %q", ErrInvalidOption, optionID)
	}

	candidates, err := w.registry.SearchByArea(ctx, s.Region.ID, s.Province.ID, opt.ID)
	if err != nil {
		w.logger.Error().Err(err).
			Str("region", s.Region.ID).
			Str("province", s.Province.ID).
			Str("town", opt.ID).
			Msg("area search failed")
		return s, fmt.Errorf("area search: %w", err)
	}

	s.Town = opt
	s.Options = nil

	if len(candidates) == 0 {
		s.State = StateAborted
		s.AbortReason = AbortNoStationsFound
		return s, nil
	}

	sort.Slice(candidates, func(i, j int) bool { return candidates[i].Name < candidates[j].Name })
	s.Candidates = candidates
	s.State = StateStationSelect
	return s, nil
}

// SelectStations accepts one or more candidates from the search results and
// creates the configuration record.
func (w *Wizard) SelectStations(s Session, stationIDs []int, scanInterval int, title string) (Session, error) {
	if err := requireState(s, StateStationSelect); err != nil {
		return s, err
	}
	if len(stationIDs) == 0 {
		return s, ErrNoSelection
	}

	byID := make(map[int]models.StationCandidate, len(s.Candidates))
	for _, c := range s.Candidates {
		byID[c.ID] = c
	}

	var valid []ValidatedStation
	seen := make(map[int]bool, len(stationIDs))
	for _, id := range stationIDs {
		c, ok := byID[id]
		if !ok {
			return s, fmt.Errorf("%w: station %d", ErrInvalidOption, id)
		}
		// station ids are unique within a record, a repeated pick collapses
		if seen[id] {
			continue
		}
		seen[id] = true
		valid = append(valid, ValidatedStation{
			Entry:        models.MonitoredStationConfig{ID: c.ID, Name: c.Name},
			Company:      c.Company,
			ResolvedName: c.Name,
		})
	}

	s.Valid = valid
	s.ScanInterval = scanInterval
	s.Title = title
	return w.create(s), nil
}

// SubmitManualEntry parses and validates a free-text candidate block. Every
// id is validated independently; one failure never aborts the others. With
// at least one invalid candidate the session moves to the confirmation
// step, otherwise the record is created directly.
func (w *Wizard) SubmitManualEntry(ctx context.Context, s Session, block string, scanInterval int, title string) (Session, error) {
	if err := requireState(s, StateManualEntry); err != nil {
		return s, err
	}

	candidates, err := validator.ParseCandidates(block)
	if err != nil {
		return s, err
	}

	var valid []ValidatedStation
	var invalid []string
	seen := make(map[int]bool, len(candidates))
	for _, c := range candidates {
		if c.ParseErr {
			invalid = append(invalid, c.Raw)
			continue
		}
		// a repeated id contributes one station entry, first line wins
		if seen[c.ID] {
			continue
		}
		seen[c.ID] = true
		res := w.validator.Validate(ctx, c.ID, c.Name)
		if !res.Valid {
			invalid = append(invalid, strconv.Itoa(c.ID))
			continue
		}
		valid = append(valid, ValidatedStation{
			Entry:        res.Entry,
			Preview:      res.Preview,
			Company:      res.Company,
			ResolvedName: res.ResolvedName,
		})
	}

	s.Valid = valid
	s.InvalidIDs = invalid
	s.ScanInterval = scanInterval
	s.Title = title

	if len(invalid) > 0 {
		w.logger.Info().
			Int("valid", len(valid)).
			Strs("invalid", invalid).
			Msg("partial validation, confirmation required")
		s.State = StateConfirmPartial
		return s, nil
	}
	return w.create(s), nil
}

// ConfirmPartial applies the user's explicit decision after a partial
// validation: proceed with the valid subset only, or abort discarding
// everything.
func (w *Wizard) ConfirmPartial(s Session, proceed bool) (Session, error) {
	if err := requireState(s, StateConfirmPartial); err != nil {
		return s, err
	}

	if !proceed {
		return w.Abort(s), nil
	}
	if len(s.Valid) == 0 {
		return s, ErrNoValidStations
	}
	return w.create(s), nil
}

// Abort terminates the session at any step, discarding all session state.
// Nothing is ever persisted on abort.
func (w *Wizard) Abort(s Session) Session {
	return Session{
		State:       StateAborted,
		Method:      s.Method,
		AbortReason: AbortByUser,
	}
}

// create finalizes the session into a configuration record.
func (w *Wizard) create(s Session) Session {
	interval := s.ScanInterval
	if interval <= 0 {
		interval = w.defaultInterval
	}

	stations := make([]models.MonitoredStationConfig, 0, len(s.Valid))
	for _, v := range s.Valid {
		stations = append(stations, v.Entry)
	}

	s.Result = &models.Record{
		Title:        w.titleFor(s),
		Stations:     stations,
		ScanInterval: interval,
	}
	s.State = StateCreated

	w.logger.Info().
		Int("stations", len(stations)).
		Str("title", s.Result.Title).
		Msg("configuration record created")

	return s
}

// titleFor applies the title-selection rule: with exactly one station the
// validated company name wins, then the resolved display name, then the
// user-supplied title; with several stations the user title always wins.
// The generic default closes both chains.
func (w *Wizard) titleFor(s Session) string {
	if len(s.Valid) == 1 {
		v := s.Valid[0]
		for _, t := range []string{v.Company, v.ResolvedName, s.Title} {
			if t != "" {
				return t
			}
		}
		return DefaultTitle
	}
	if s.Title != "" {
		return s.Title
	}
	return DefaultTitle
}

func requireState(s Session, want State) error {
	if s.State != want {
		return fmt.Errorf("%w: in %q, expected %q", ErrInvalidState, s.State, want)
	}
	return nil
}

func findOption(options []models.Option, id string) (models.Option, bool) {
	for _, o := range options {
		if o.ID == id {
			return o, true
		}
	}
	return models.Option{}, false
}

func sortedOptions(options []models.Option) []models.Option {
	sort.Slice(options, func(i, j int) bool { return options[i].Label < options[j].Label })
	return options
}
