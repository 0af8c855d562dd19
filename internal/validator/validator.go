// Package validator checks candidate station identifiers against the remote
// registry and builds the human-readable previews shown during discovery.
package validator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/osservaprezzi/fuelwatch/internal/models"
	"github.com/osservaprezzi/fuelwatch/internal/resolver"
)

// ErrNoCandidates is returned when a manual-entry block yields no candidate
// at all. The caller re-offers the same step.
var ErrNoCandidates = errors.New("no candidate identifiers found")

// DetailFetcher is the single registry call validation needs.
type DetailFetcher interface {
	StationDetails(ctx context.Context, stationID int) (map[string]any, error)
}

// Candidate is one parsed manual-entry line.
type Candidate struct {
	ID   int
	Name string
	// Raw is the original id token, kept for reporting lines whose id did
	// not parse.
	Raw string
	// ParseErr marks a candidate that failed parsing before any remote call.
	ParseErr bool
}

// Result is the outcome of validating one candidate id.
type Result struct {
	Valid        bool
	Entry        models.MonitoredStationConfig
	Preview      string
	Company      string
	ResolvedName string
}

// Validator validates station candidates against the registry.
type Validator struct {
	fetcher DetailFetcher
	logger  zerolog.Logger
}

// New creates a Validator.
func New(fetcher DetailFetcher, logger zerolog.Logger) *Validator {
	return &Validator{
		fetcher: fetcher,
		logger:  logger.With().Str("component", "validator").Logger(),
	}
}

// Validate fetches the detail record for one candidate id. A transport
// error, non-success status, or a payload missing the identifier field
// yields an invalid result, never an error: one bad id must not abort the
// validation of its siblings.
func (v *Validator) Validate(ctx context.Context, stationID int, providedName string) Result {
	payload, err := v.fetcher.StationDetails(ctx, stationID)
	if err != nil {
		v.logger.Warn().Err(err).Int("station", stationID).Msg("candidate validation failed")
		return Result{}
	}

	if _, ok := resolver.IntField(payload, "id"); !ok {
		v.logger.Warn().Int("station", stationID).Msg("candidate payload missing identifier")
		return Result{}
	}

	rec := resolver.Resolve(payload)
	name := providedName
	if name == "" {
		name = rec.Name
	}

	return Result{
		Valid:        true,
		Entry:        models.MonitoredStationConfig{ID: stationID, Name: name},
		Preview:      BuildPreview(stationID, rec),
		Company:      rec.Company,
		ResolvedName: rec.Name,
	}
}

// BuildPreview renders one candidate as a single line, omitting absent
// parts: "48524: Stazione A (Coop) brand=Enercoop addr=Via Roma 1
// coord=45.160000,10.800000".
func BuildPreview(stationID int, rec models.CanonicalStationRecord) string {
	parts := []string{fmt.Sprintf("%d:", stationID)}
	if rec.Name != "" {
		parts = append(parts, rec.Name)
	}
	if rec.Company != "" {
		parts = append(parts, fmt.Sprintf("(%s)", rec.Company))
	}
	if rec.Brand != "" {
		parts = append(parts, "brand="+rec.Brand)
	}
	// the resolver falls back to the display name for an absent address
	if rec.Address != "" && rec.Address != rec.Name {
		parts = append(parts, "addr="+rec.Address)
	}
	if rec.Coordinates != nil {
		parts = append(parts, fmt.Sprintf("coord=%.6f,%.6f", rec.Coordinates.Lat, rec.Coordinates.Lon))
	}
	return strings.Join(parts, " ")
}

// ParseCandidates splits a free-text block into candidates, one per line,
// with an optional name after a comma or semicolon. Blank lines are
// skipped. Lines whose id token is not an integer are kept as pre-failed
// candidates so they surface in the invalid partition instead of being
// silently dropped. A block yielding zero parseable identifiers is a
// validation error.
func ParseCandidates(block string) ([]Candidate, error) {
	var candidates []Candidate
	parseable := 0

	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		idToken := line
		name := ""
		if i := strings.IndexAny(line, ",;"); i >= 0 {
			idToken = strings.TrimSpace(line[:i])
			name = strings.TrimSpace(line[i+1:])
		}

		id, err := strconv.Atoi(idToken)
		if err != nil {
			candidates = append(candidates, Candidate{Raw: idToken, Name: name, ParseErr: true})
			continue
		}
		candidates = append(candidates, Candidate{ID: id, Name: name, Raw: idToken})
		parseable++
	}

	if parseable == 0 {
		return nil, ErrNoCandidates
	}
	return candidates, nil
}
