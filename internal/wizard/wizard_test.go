package wizard

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/osservaprezzi/fuelwatch/internal/models"
	"github.com/osservaprezzi/fuelwatch/internal/validator"
)

type registryStub struct {
	regions    []models.Option
	provinces  []models.Option
	towns      []models.Option
	candidates []models.StationCandidate
	searchErr  error
}

func (r *registryStub) Regions(context.Context) []models.Option { return r.regions }
func (r *registryStub) Provinces(_ context.Context, regionID string) []models.Option {
	return r.provinces
}
func (r *registryStub) Towns(_ context.Context, provinceID string) []models.Option {
	return r.towns
}
func (r *registryStub) SearchByArea(_ context.Context, _, _, _ string) ([]models.StationCandidate, error) {
	if r.searchErr != nil {
		return nil, r.searchErr
	}
	return r.candidates, nil
}

type validatorStub struct {
	results map[int]validator.Result
}

func (v *validatorStub) Validate(_ context.Context, stationID int, providedName string) validator.Result {
	res, ok := v.results[stationID]
	if !ok {
		return validator.Result{}
	}
	if providedName != "" {
		res.Entry.Name = providedName
	}
	return res
}

func validResult(id int, name, company string) validator.Result {
	return validator.Result{
		Valid:        true,
		Entry:        models.MonitoredStationConfig{ID: id, Name: name},
		Preview:      name,
		Company:      company,
		ResolvedName: name,
	}
}

func newTestWizard(registry *registryStub, v *validatorStub) *Wizard {
	if v == nil {
		v = &validatorStub{}
	}
	return New(registry, v, 3600, zerolog.Nop())
}

func searchSession(t *testing.T, w *Wizard) Session {
	t.Helper()
	ctx := context.Background()

	s, err := w.ChooseMethod(ctx, w.Start(), MethodSearch)
	require.NoError(t, err)
	require.Equal(t, StateRegionSelect, s.State)

	s, err = w.SelectRegion(ctx, s, s.Options[0].ID)
	require.NoError(t, err)
	require.Equal(t, StateProvinceSelect, s.State)

	s, err = w.SelectProvince(ctx, s, s.Options[0].ID)
	require.NoError(t, err)
	require.Equal(t, StateTownSelect, s.State)
	return s
}

func testRegistry() *registryStub {
	return &registryStub{
		regions:   []models.Option{{ID: "9", Label: "Lombardia"}},
		provinces: []models.Option{{ID: "MN", Label: "Mantova"}},
		towns:     []models.Option{{ID: "123", Label: "Mantova"}},
		candidates: []models.StationCandidate{
			{ID: 48524, Name: "Stazione A", Company: "Coop"},
			{ID: 14922, Name: "Stazione B"},
		},
	}
}

func TestSearchFlowCreatesRecord(t *testing.T) {
	w := newTestWizard(testRegistry(), nil)
	s := searchSession(t, w)

	s, err := w.SelectTown(context.Background(), s, "123")
	require.NoError(t, err)
	require.Equal(t, StateStationSelect, s.State)
	require.Len(t, s.Candidates, 2)

	s, err = w.SelectStations(s, []int{48524, 14922}, 900, "My Stations")
	require.NoError(t, err)
	require.Equal(t, StateCreated, s.State)

	require.NotNil(t, s.Result)
	assert.Equal(t, "My Stations", s.Result.Title)
	assert.Equal(t, 900, s.Result.ScanInterval)
	require.Len(t, s.Result.Stations, 2)
	assert.Equal(t, 48524, s.Result.Stations[0].ID)
}

func TestSearchZeroResultsAborts(t *testing.T) {
	registry := testRegistry()
	registry.candidates = nil
	w := newTestWizard(registry, nil)
	s := searchSession(t, w)

	s, err := w.SelectTown(context.Background(), s, "123")
	require.NoError(t, err)

	assert.Equal(t, StateAborted, s.State)
	assert.Equal(t, AbortNoStationsFound, s.AbortReason)
	assert.Nil(t, s.Result)
}

func TestSearchFailureStaysOnTownStep(t *testing.T) {
	registry := testRegistry()
	registry.searchErr = errors.New("upstream down")
	w := newTestWizard(registry, nil)
	s := searchSession(t, w)

	next, err := w.SelectTown(context.Background(), s, "123")
	require.Error(t, err)
	assert.Equal(t, StateTownSelect, next.State)
	assert.Equal(t, s.Options, next.Options)
}

func TestSelectOutsideOfferedSetRejected(t *testing.T) {
	w := newTestWizard(testRegistry(), nil)
	ctx := context.Background()

	s, err := w.ChooseMethod(ctx, w.Start(), MethodSearch)
	require.NoError(t, err)

	_, err = w.SelectRegion(ctx, s, "999")
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestSelectStationsRequiresSelection(t *testing.T) {
	w := newTestWizard(testRegistry(), nil)
	s := searchSession(t, w)

	s, err := w.SelectTown(context.Background(), s, "123")
	require.NoError(t, err)

	_, err = w.SelectStations(s, nil, 0, "")
	assert.ErrorIs(t, err, ErrNoSelection)

	_, err = w.SelectStations(s, []int{1}, 0, "")
	assert.ErrorIs(t, err, ErrInvalidOption)
}

func TestOptionsSortedByLabel(t *testing.T) {
	registry := testRegistry()
	registry.regions = []models.Option{
		{ID: "2", Label: "Veneto"},
		{ID: "1", Label: "Abruzzo"},
		{ID: "3", Label: "Lombardia"},
	}
	w := newTestWizard(registry, nil)

	s, err := w.ChooseMethod(context.Background(), w.Start(), MethodSearch)
	require.NoError(t, err)

	labels := make([]string, 0, len(s.Options))
	for _, o := range s.Options {
		labels = append(labels, o.Label)
	}
	assert.Equal(t, []string{"Abruzzo", "Lombardia", "Veneto"}, labels)
}

func TestManualEntryPartialFailure(t *testing.T) {
	v := &validatorStub{results: map[int]validator.Result{
		1: validResult(1, "Stazione A", ""),
	}}
	w := newTestWizard(testRegistry(), v)
	ctx := context.Background()

	s, err := w.ChooseMethod(ctx, w.Start(), MethodManual)
	require.NoError(t, err)
	require.Equal(t, StateManualEntry, s.State)

	s, err = w.SubmitManualEntry(ctx, s, "1,A\n2,B", 600, "Title")
	require.NoError(t, err)
	require.Equal(t, StateConfirmPartial, s.State)

	require.Len(t, s.Valid, 1)
	assert.Equal(t, []string{"2"}, s.InvalidIDs)

	s, err = w.ConfirmPartial(s, true)
	require.NoError(t, err)
	require.Equal(t, StateCreated, s.State)

	require.Len(t, s.Result.Stations, 1)
	assert.Equal(t, 1, s.Result.Stations[0].ID)
}

func TestManualEntryDuplicateIDsCollapse(t *testing.T) {
	v := &validatorStub{results: map[int]validator.Result{
		5: validResult(5, "Stazione A", ""),
	}}
	w := newTestWizard(testRegistry(), v)
	ctx := context.Background()

	s, err := w.ChooseMethod(ctx, w.Start(), MethodManual)
	require.NoError(t, err)

	s, err = w.SubmitManualEntry(ctx, s, "5,A\n5,B", 0, "")
	require.NoError(t, err)
	require.Equal(t, StateCreated, s.State)

	require.Len(t, s.Result.Stations, 1)
	assert.Equal(t, 5, s.Result.Stations[0].ID)
	assert.Equal(t, "A", s.Result.Stations[0].Name)
}

func TestSelectStationsDuplicateSelectionCollapses(t *testing.T) {
	w := newTestWizard(testRegistry(), nil)
	s := searchSession(t, w)

	s, err := w.SelectTown(context.Background(), s, "123")
	require.NoError(t, err)

	s, err = w.SelectStations(s, []int{48524, 48524, 14922}, 0, "Both")
	require.NoError(t, err)
	require.Equal(t, StateCreated, s.State)

	require.Len(t, s.Result.Stations, 2)
	assert.Equal(t, 48524, s.Result.Stations[0].ID)
	assert.Equal(t, 14922, s.Result.Stations[1].ID)
}

func TestManualEntryAllValidCreatesDirectly(t *testing.T) {
	v := &validatorStub{results: map[int]validator.Result{
		1: validResult(1, "Stazione A", ""),
		2: validResult(2, "Stazione B", ""),
	}}
	w := newTestWizard(testRegistry(), v)
	ctx := context.Background()

	s, err := w.ChooseMethod(ctx, w.Start(), MethodManual)
	require.NoError(t, err)

	s, err = w.SubmitManualEntry(ctx, s, "1\n2", 0, "Both")
	require.NoError(t, err)
	assert.Equal(t, StateCreated, s.State)
	require.Len(t, s.Result.Stations, 2)
	assert.Equal(t, 3600, s.Result.ScanInterval)
}

func TestManualEntryEmptyBlockStaysOnStep(t *testing.T) {
	w := newTestWizard(testRegistry(), nil)
	ctx := context.Background()

	s, err := w.ChooseMethod(ctx, w.Start(), MethodManual)
	require.NoError(t, err)

	next, err := w.SubmitManualEntry(ctx, s, "\n\n", 0, "")
	assert.ErrorIs(t, err, validator.ErrNoCandidates)
	assert.Equal(t, StateManualEntry, next.State)
}

func TestConfirmPartialAbortDiscardsEverything(t *testing.T) {
	v := &validatorStub{results: map[int]validator.Result{
		1: validResult(1, "Stazione A", ""),
	}}
	w := newTestWizard(testRegistry(), v)
	ctx := context.Background()

	s, err := w.ChooseMethod(ctx, w.Start(), MethodManual)
	require.NoError(t, err)
	s, err = w.SubmitManualEntry(ctx, s, "1\nbad-id", 0, "")
	require.NoError(t, err)
	require.Equal(t, StateConfirmPartial, s.State)

	s, err = w.ConfirmPartial(s, false)
	require.NoError(t, err)
	assert.Equal(t, StateAborted, s.State)
	assert.Equal(t, AbortByUser, s.AbortReason)
	assert.Nil(t, s.Result)
	assert.Empty(t, s.Valid)
}

func TestConfirmPartialProceedWithoutValidStations(t *testing.T) {
	w := newTestWizard(testRegistry(), &validatorStub{})
	ctx := context.Background()

	s, err := w.ChooseMethod(ctx, w.Start(), MethodManual)
	require.NoError(t, err)
	s, err = w.SubmitManualEntry(ctx, s, "1\n2", 0, "")
	require.NoError(t, err)
	require.Equal(t, StateConfirmPartial, s.State)

	_, err = w.ConfirmPartial(s, true)
	assert.ErrorIs(t, err, ErrNoValidStations)
}

func TestTitleRuleSingleStation(t *testing.T) {
	tests := []struct {
		name    string
		company string
		station string
		title   string
		want    string
	}{
		{"company wins", "Coop", "Stazione A", "User Title", "Coop"},
		{"resolved name next", "", "Stazione A", "User Title", "Stazione A"},
		{"user title next", "", "", "User Title", "User Title"},
		{"default last", "", "", "", DefaultTitle},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := &validatorStub{results: map[int]validator.Result{
				1: {
					Valid:        true,
					Entry:        models.MonitoredStationConfig{ID: 1, Name: tt.station},
					Company:      tt.company,
					ResolvedName: tt.station,
				},
			}}
			w := newTestWizard(testRegistry(), v)
			ctx := context.Background()

			s, err := w.ChooseMethod(ctx, w.Start(), MethodManual)
			require.NoError(t, err)
			s, err = w.SubmitManualEntry(ctx, s, "1", 0, tt.title)
			require.NoError(t, err)
			require.Equal(t, StateCreated, s.State)
			assert.Equal(t, tt.want, s.Result.Title)
		})
	}
}

func TestTitleRuleMultipleStationsIgnoresCompany(t *testing.T) {
	v := &validatorStub{results: map[int]validator.Result{
		1: validResult(1, "Stazione A", "Coop"),
		2: validResult(2, "Stazione B", "Coop"),
	}}
	w := newTestWizard(testRegistry(), v)
	ctx := context.Background()

	s, err := w.ChooseMethod(ctx, w.Start(), MethodManual)
	require.NoError(t, err)
	s, err = w.SubmitManualEntry(ctx, s, "1\n2", 0, "")
	require.NoError(t, err)

	assert.Equal(t, DefaultTitle, s.Result.Title)
}

func TestChooseMethodRejectsUnknown(t *testing.T) {
	w := newTestWizard(testRegistry(), nil)
	_, err := w.ChooseMethod(context.Background(), w.Start(), Method("carrier-pigeon"))
	assert.ErrorIs(t, err, ErrUnknownMethod)
}

func TestTransitionOnWrongStateRejected(t *testing.T) {
	w := newTestWizard(testRegistry(), nil)
	_, err := w.SelectRegion(context.Background(), w.Start(), "9")
	assert.ErrorIs(t, err, ErrInvalidState)
}
