package session_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/flowmap-core/internal/dataset"
	"github.com/couchcryptid/flowmap-core/internal/domain"
	"github.com/couchcryptid/flowmap-core/internal/interaction"
	"github.com/couchcryptid/flowmap-core/internal/observability"
	"github.com/couchcryptid/flowmap-core/internal/session"
	"github.com/couchcryptid/flowmap-core/internal/state"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (m *mockNotifier) Notify(message string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, message)
}

func (m *mockNotifier) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

type mockGeocoder struct {
	calls int
}

func (m *mockGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (domain.GeocodingResult, error) {
	m.calls++
	return domain.GeocodingResult{PlaceName: "Somewhere"}, nil
}

// --- fixtures ---

func texas() *dataset.Dataset {
	return &dataset.Dataset{
		Locations: []domain.Location{
			{ID: "AUS", Name: "Austin", Lat: 30.2672, Lon: -97.7431},
			{ID: "RRK", Name: "Round Rock", Lat: 30.5083, Lon: -97.6789},
			{ID: "DAL", Name: "Dallas", Lat: 32.7767, Lon: -96.7970},
			{ID: "FTW", Name: "Fort Worth", Lat: 32.7555, Lon: -97.3308},
			{ID: "ELP", Name: "El Paso", Lat: 31.7619, Lon: -106.4850},
			{ID: "HOU", Name: "Houston", Lat: 29.7604, Lon: -95.3698},
		},
		Flows: []domain.Flow{
			{Origin: "AUS", Dest: "DAL", Count: 10},
			{Origin: "RRK", Dest: "FTW", Count: 4},
			{Origin: "DAL", Dest: "AUS", Count: 7},
			{Origin: "AUS", Dest: "RRK", Count: 3},
			{Origin: "ELP", Dest: "AUS", Count: 1},
		},
		Config: domain.Config{},
	}
}

type fixture struct {
	clock    *clockwork.FakeClock
	metrics  *observability.Metrics
	notifier *mockNotifier
	session  *session.Session
}

func newFixture(t *testing.T, query string, geocoder domain.Geocoder) *fixture {
	t.Helper()
	f := &fixture{
		clock:    clockwork.NewFakeClock(),
		metrics:  observability.NewMetricsForTesting(),
		notifier: &mockNotifier{},
	}
	f.session = session.New(uuid.New(), session.Options{
		Interaction:  interaction.Options{ViewportWidth: 800, ViewportHeight: 600},
		SyncDelay:    250 * time.Millisecond,
		InitialQuery: query,
	}, session.Deps{
		Clock:    f.clock,
		Notifier: f.notifier,
		Geocoder: geocoder,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:  f.metrics,
	})
	t.Cleanup(f.session.Close)
	return f
}

// --- tests ---

func TestSession_NotReadyBeforeLoad(t *testing.T) {
	f := newFixture(t, "", nil)

	assert.Error(t, f.session.CheckReadiness(context.Background()))
	_, err := f.session.Layers()
	assert.ErrorIs(t, err, session.ErrNotReady)
	_, err = f.session.Diagnostics()
	assert.ErrorIs(t, err, session.ErrNotReady)
	_, err = f.session.Search("", 10)
	assert.ErrorIs(t, err, session.ErrNotReady)
}

func TestSession_LoadFitsViewToLocations(t *testing.T) {
	f := newFixture(t, "", nil)

	d := f.session.LoadData(context.Background(), texas())

	assert.True(t, d.Empty())
	assert.Equal(t, 0, f.notifier.count())
	require.NoError(t, f.session.CheckReadiness(context.Background()))

	vs := f.session.State().ViewState
	assert.InDelta(t, -101.64, vs.Longitude, 0.1)
	assert.InDelta(t, 31.5, vs.Latitude, 0.5)
	assert.Greater(t, vs.Zoom, 4.0)
	assert.Less(t, vs.Zoom, 7.0)
}

func TestSession_QueryViewStateWins(t *testing.T) {
	f := newFixture(t, "v=10,20,3&d=1", nil)

	ds := texas()
	ds.Config = domain.Config{domain.ConfigDarkMode: "no", domain.ConfigClustering: "no"}
	f.session.LoadData(context.Background(), ds)

	s := f.session.State()
	assert.Equal(t, domain.ViewState{Latitude: 10, Longitude: 20, Zoom: 3}, s.ViewState)
	assert.True(t, s.DarkMode, "query overrides the dataset config")
	assert.False(t, s.ClusteringEnabled, "dataset config overrides the defaults")
}

func TestSession_ConfigAppliedOnlyOnFirstLoad(t *testing.T) {
	f := newFixture(t, "", nil)
	ds := texas()
	ds.Config = domain.Config{domain.ConfigColorScheme: "Teal"}
	f.session.LoadData(context.Background(), ds)
	require.Equal(t, "Teal", f.session.State().ColorSchemeKey)

	require.NoError(t, f.session.Coordinator().Dispatch(state.SetColorScheme{ColorSchemeKey: "Blues"}))
	f.session.LoadData(context.Background(), ds)

	assert.Equal(t, "Blues", f.session.State().ColorSchemeKey)
}

func TestSession_ReportsDiagnostics(t *testing.T) {
	f := newFixture(t, "", nil)
	ds := texas()
	ds.Locations = append(ds.Locations, domain.Location{ID: "BAD", Lat: 97, Lon: 30})
	ds.Flows = append(ds.Flows, domain.Flow{Origin: "BAD", Dest: "AUS", Count: 1})

	d := f.session.LoadData(context.Background(), ds)

	assert.Equal(t, []string{"BAD"}, d.InvalidLocationIDs)
	assert.Equal(t, 1, d.OmittedFlows())
	assert.Equal(t, 2, f.notifier.count())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.InvalidLocations))
}

func TestSession_IgnoreErrorsSilencesNotifications(t *testing.T) {
	f := newFixture(t, "", nil)
	ds := texas()
	ds.Config = domain.Config{domain.ConfigIgnoreErrors: "yes"}
	ds.Flows = append(ds.Flows, domain.Flow{Origin: "NOPE", Dest: "AUS", Count: 1})

	d := f.session.LoadData(context.Background(), ds)

	assert.Equal(t, []string{"NOPE"}, d.UnknownLocationIDs)
	assert.Equal(t, 0, f.notifier.count())
}

func TestSession_NamesUnnamedLocations(t *testing.T) {
	geocoder := &mockGeocoder{}
	f := newFixture(t, "", geocoder)
	ds := texas()
	ds.Locations[0].Name = ""

	f.session.LoadData(context.Background(), ds)

	assert.Equal(t, 1, geocoder.calls)
	n, ok := f.session.Pipeline().NodeByID("AUS")
	require.True(t, ok)
	assert.Equal(t, "Somewhere", n.NodeName())
	assert.Equal(t, "", ds.Locations[0].Name, "input dataset is not modified")
}

func TestSession_LayersAndSearch(t *testing.T) {
	f := newFixture(t, "v=31,-100,20", nil)
	f.session.LoadData(context.Background(), texas())

	spec, err := f.session.Layers()
	require.NoError(t, err)
	assert.Len(t, spec.Locations, 5, "locations without flows are not drawn")
	assert.NotEmpty(t, spec.Flows)
	assert.Equal(t, "flow-map-arrows-withTotals-Default-dark-45", spec.ID)

	box, err := f.session.Search("dal", 10)
	require.NoError(t, err)
	require.Len(t, box.Unselected, 1)
	assert.Equal(t, "DAL", box.Unselected[0].NodeID())
	assert.Nil(t, box.Selected)
}

func TestSession_SyncsShareableState(t *testing.T) {
	f := newFixture(t, "", nil)
	f.session.LoadData(context.Background(), texas())

	require.NoError(t, f.session.Coordinator().ZoomIn())
	f.clock.Advance(250 * time.Millisecond)

	require.Eventually(t, func() bool {
		return f.session.SyncedQuery() == f.session.Share()
	}, time.Second, time.Millisecond)
}

func TestSession_CloseFlushesPendingSync(t *testing.T) {
	f := newFixture(t, "", nil)
	f.session.LoadData(context.Background(), texas())
	require.NoError(t, f.session.Coordinator().ZoomOut())

	f.session.Close()

	assert.Equal(t, f.session.Share(), f.session.SyncedQuery())
	assert.ErrorIs(t, f.session.Coordinator().ZoomIn(), interaction.ErrClosed)
}

func TestSession_AnimationFollowsState(t *testing.T) {
	f := newFixture(t, "a=1", nil)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AnimationRunning))

	require.NoError(t, f.session.Coordinator().Dispatch(state.SetAnimationEnabled{Enabled: false}))
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.AnimationRunning))

	f.session.Close()
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.AnimationRunning))
}
