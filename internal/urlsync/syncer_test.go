package urlsync_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/flowmap-core/internal/domain"
	"github.com/couchcryptid/flowmap-core/internal/observability"
	"github.com/couchcryptid/flowmap-core/internal/state"
	"github.com/couchcryptid/flowmap-core/internal/urlsync"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockPublisher struct {
	name string
	err  error

	mu      sync.Mutex
	queries []string
}

func (m *mockPublisher) Name() string { return m.name }

func (m *mockPublisher) Publish(_ context.Context, query string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, query)
	return m.err
}

func (m *mockPublisher) published() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.queries...)
}

type failingTarget struct{}

func (failingTarget) Current() string      { return "" }
func (failingTarget) Replace(string) error { return errors.New("history unavailable") }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	store   *state.Store
	clock   *clockwork.FakeClock
	history *urlsync.History
	metrics *observability.Metrics
	syncer  *urlsync.Syncer
}

func newFixture(t *testing.T, sinks ...urlsync.Publisher) *fixture {
	t.Helper()
	f := &fixture{
		store:   state.NewStore(state.Defaults(), nil),
		clock:   clockwork.NewFakeClock(),
		history: urlsync.NewHistory(state.EncodeQuery(state.Defaults())),
		metrics: observability.NewMetricsForTesting(),
	}
	f.syncer = urlsync.New(f.history, f.clock, 250*time.Millisecond, discardLogger(), f.metrics, sinks...)
	f.store.Subscribe(f.syncer.Listen)
	t.Cleanup(f.syncer.Close)
	return f
}

// --- tests ---

func TestSyncer_DebouncesToLastState(t *testing.T) {
	f := newFixture(t)

	for i := 1; i <= 3; i++ {
		f.store.Dispatch(state.SetViewState{ViewState: domain.ViewState{Latitude: float64(i), Zoom: 4}})
		f.clock.Advance(100 * time.Millisecond)
	}
	f.clock.Advance(149 * time.Millisecond)
	assert.Never(t, func() bool { return len(f.history.Entries()) > 1 }, 20*time.Millisecond, 5*time.Millisecond)

	f.clock.Advance(time.Millisecond)
	require.Eventually(t, func() bool { return len(f.history.Entries()) == 2 }, time.Second, time.Millisecond)

	assert.Equal(t, state.EncodeQuery(f.store.State()), f.history.Current())
	assert.Contains(t, f.history.Current(), "v=3%2C0%2C4%2C0%2C0")
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.StateSyncWrites.WithLabelValues("target")))
}

func TestSyncer_SkipsUnchangedString(t *testing.T) {
	f := newFixture(t)

	f.store.Dispatch(state.SetHighlight{Highlight: state.LocationHighlight{LocationID: "AUS"}})
	f.clock.Advance(time.Second)

	assert.Never(t, func() bool { return len(f.history.Entries()) > 1 }, 30*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, 0.0, testutil.ToFloat64(f.metrics.StateSyncWrites.WithLabelValues("target")))
}

func TestSyncer_PublishesActualWrites(t *testing.T) {
	good := &mockPublisher{name: "kafka"}
	bad := &mockPublisher{name: "broken", err: errors.New("broker down")}
	f := newFixture(t, good, bad)

	f.store.Dispatch(state.SetDarkMode{Enabled: false})
	require.NoError(t, f.syncer.Flush())

	want := state.EncodeQuery(f.store.State())
	assert.Equal(t, []string{want}, good.published())
	assert.Equal(t, []string{want}, bad.published())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.StateSyncWrites.WithLabelValues("kafka")))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.StateSyncErrors.WithLabelValues("broken")))

	require.NoError(t, f.syncer.Flush(), "nothing new to write")
	assert.Len(t, good.published(), 1)
}

func TestSyncer_FlushCancelsPendingWrite(t *testing.T) {
	f := newFixture(t)

	f.store.Dispatch(state.ZoomIn{})
	require.NoError(t, f.syncer.Flush())
	require.Len(t, f.history.Entries(), 2)

	f.clock.Advance(time.Second)
	assert.Never(t, func() bool { return len(f.history.Entries()) > 2 }, 30*time.Millisecond, 5*time.Millisecond)
}

func TestSyncer_CloseCancelsPendingWrite(t *testing.T) {
	f := newFixture(t)

	f.store.Dispatch(state.ZoomIn{})
	f.syncer.Close()
	f.store.Dispatch(state.ZoomIn{})
	f.clock.Advance(time.Second)

	assert.Never(t, func() bool { return len(f.history.Entries()) > 1 }, 30*time.Millisecond, 5*time.Millisecond)
	require.NoError(t, f.syncer.Flush())
	assert.Len(t, f.history.Entries(), 1)
}

func TestSyncer_TargetErrorIsCounted(t *testing.T) {
	metrics := observability.NewMetricsForTesting()
	s := urlsync.New(failingTarget{}, clockwork.NewFakeClock(), 0, discardLogger(), metrics)
	t.Cleanup(s.Close)

	s.Listen(state.Defaults(), state.ZoomIn{})
	assert.Error(t, s.Flush())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StateSyncErrors.WithLabelValues("target")))
}

func TestHistory(t *testing.T) {
	h := urlsync.NewHistory("a=1")
	require.NoError(t, h.Replace("a=2"))

	assert.Equal(t, "a=2", h.Current())
	assert.Equal(t, []string{"a=1", "a=2"}, h.Entries())
}
