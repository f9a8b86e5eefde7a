// Package session wires the state store, derivation pipeline, interaction
// coordinator, animation clock and shareable state sync of one flow map.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/couchcryptid/flowmap-core/internal/cluster"
	"github.com/couchcryptid/flowmap-core/internal/dataset"
	"github.com/couchcryptid/flowmap-core/internal/domain"
	"github.com/couchcryptid/flowmap-core/internal/geo"
	"github.com/couchcryptid/flowmap-core/internal/interaction"
	"github.com/couchcryptid/flowmap-core/internal/observability"
	"github.com/couchcryptid/flowmap-core/internal/pipeline"
	"github.com/couchcryptid/flowmap-core/internal/state"
	"github.com/couchcryptid/flowmap-core/internal/urlsync"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

// FitPadding is the share of each viewport side left free when fitting the
// view to the data.
const FitPadding = 0.1

// ErrNotReady is returned while the dataset or cluster index is not loaded.
var ErrNotReady = errors.New("session not ready")

// Options configures a session.
type Options struct {
	Pipeline      pipeline.Options
	Interaction   interaction.Options
	SyncDelay     time.Duration
	AnimationTick time.Duration
	// InitialQuery is the shareable string the session starts from.
	InitialQuery string
}

// Deps are the collaborators a session talks to. Clock, Logger and Metrics
// are required; the rest may be nil.
type Deps struct {
	Clock      clockwork.Clock
	Target     urlsync.Target
	Publishers []urlsync.Publisher
	Notifier   interaction.Notifier
	Geocoder   domain.Geocoder
	Logger     *slog.Logger
	Metrics    *observability.Metrics
}

// Session is one interactive flow map.
type Session struct {
	id       uuid.UUID
	opts     Options
	logger   *slog.Logger
	notifier interaction.Notifier
	geocoder domain.Geocoder

	store    *state.Store
	pipeline *pipeline.Pipeline
	coord    *interaction.Coordinator
	animator *interaction.Animator
	syncer   *urlsync.Syncer
	target   urlsync.Target

	mu          sync.Mutex
	configured  bool
	unsubscribe []func()
}

// New creates a session with an empty dataset.
func New(id uuid.UUID, opts Options, deps Deps) *Session {
	logger := deps.Logger.With("session_id", id)
	if opts.AnimationTick <= 0 {
		opts.AnimationTick = 16 * time.Millisecond
	}
	target := deps.Target
	if target == nil {
		target = urlsync.NewHistory(opts.InitialQuery)
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = interaction.LogNotifier{Logger: logger}
	}

	s := &Session{
		id:       id,
		opts:     opts,
		logger:   logger,
		notifier: notifier,
		geocoder: deps.Geocoder,
		target:   target,
		store:    state.NewStore(state.InitialState(nil, opts.InitialQuery), deps.Metrics.ActionsDispatched),
		pipeline: pipeline.New(opts.Pipeline, logger, deps.Metrics),
	}
	s.coord = interaction.NewCoordinator(
		s.store,
		s.pipeline,
		interaction.NewClockScheduler(deps.Clock),
		opts.Interaction,
		logger,
		deps.Metrics,
	)
	s.animator = interaction.NewAnimator(
		interaction.ClockTicks{Clock: deps.Clock, Interval: opts.AnimationTick},
		deps.Metrics,
		nil,
	)
	s.syncer = urlsync.New(target, deps.Clock, opts.SyncDelay, logger, deps.Metrics, deps.Publishers...)

	s.pipeline.OnIndexReady(func(ix *cluster.Index) {
		logger.Info("cluster index ready",
			"locations", ix.LocationCount(),
			"min_zoom", ix.Options().MinZoom,
			"leaf_zoom", ix.LeafZoom(),
		)
	})
	s.unsubscribe = append(s.unsubscribe,
		s.store.Subscribe(s.syncer.Listen),
		s.store.Subscribe(func(next state.State, _ state.Action) {
			s.animator.SetEnabled(next.AnimationEnabled)
		}),
	)
	s.animator.SetEnabled(s.store.State().AnimationEnabled)
	return s
}

// ID returns the session id.
func (s *Session) ID() uuid.UUID { return s.id }

// State returns the current state snapshot.
func (s *Session) State() state.State { return s.store.State() }

// Pipeline exposes the derivation pipeline.
func (s *Session) Pipeline() *pipeline.Pipeline { return s.pipeline }

// Coordinator exposes the interaction coordinator.
func (s *Session) Coordinator() *interaction.Coordinator { return s.coord }

// Handle routes a raw UI event through the coordinator.
func (s *Session) Handle(e interaction.Event) error { return s.coord.Handle(e) }

// Dispatch applies an action posted by an external widget.
func (s *Session) Dispatch(a state.Action) error { return s.coord.Dispatch(a) }

// LoadData installs a dataset. Unnamed locations are named by the geocoder
// when one is configured. On the first load the dataset configuration is
// layered under the initial query. When the state asks for it, the view is
// fitted to the locations. Diagnostics are reported through the notifier
// and returned.
func (s *Session) LoadData(ctx context.Context, ds *dataset.Dataset) pipeline.Diagnostics {
	locations := domain.NameLocations(ctx, ds.Locations, s.geocoder, s.logger)
	s.pipeline.SetData(pipeline.Data{Locations: locations, Flows: ds.Flows, Config: ds.Config})
	s.logger.Info("dataset loaded",
		"locations", len(locations),
		"flows", len(ds.Flows),
		"skipped_flows", ds.SkippedFlows,
	)

	s.applyConfig(ds.Config)

	if s.store.State().AdjustViewportToLocations {
		if err := s.coord.ViewStateChange(s.fitView()); err != nil {
			s.logger.Warn("fit view to locations", "error", err)
		}
	}

	d, _ := s.pipeline.Diagnostics()
	if n := interaction.ReportDiagnostics(s.notifier, ds.Config, d); n > 0 {
		s.logger.Warn("dataset has problems",
			"invalid_locations", len(d.InvalidLocationIDs),
			"unknown_locations", len(d.UnknownLocationIDs),
			"omitted_flows", d.OmittedFlows(),
		)
	}
	return d
}

func (s *Session) applyConfig(cfg domain.Config) {
	s.mu.Lock()
	first := !s.configured
	s.configured = true
	s.mu.Unlock()
	if !first {
		return
	}

	init := state.InitialState(cfg, s.opts.InitialQuery)
	for _, a := range []state.Action{
		state.SetColorScheme{ColorSchemeKey: init.ColorSchemeKey},
		state.SetDarkMode{Enabled: init.DarkMode},
		state.SetAnimationEnabled{Enabled: init.AnimationEnabled},
		state.SetClusteringEnabled{Enabled: init.ClusteringEnabled},
	} {
		if err := s.coord.Dispatch(a); err != nil {
			s.logger.Warn("apply dataset config", "action", a.Type(), "error", err)
			return
		}
	}
}

func (s *Session) fitView() domain.ViewState {
	points := geo.NodePoints(s.pipeline.LocationsHavingFlows())
	return geo.FitBounds(points, s.opts.Interaction.ViewportWidth, s.opts.Interaction.ViewportHeight, FitPadding)
}

// Layers returns the render-ready layer for the current state.
func (s *Session) Layers() (pipeline.LayerSpec, error) {
	spec, ok := s.pipeline.Layers(s.store.State(), s.animator.Time())
	if !ok {
		return pipeline.LayerSpec{}, ErrNotReady
	}
	return spec, nil
}

// Diagnostics returns the excluded records of the dataset.
func (s *Session) Diagnostics() (pipeline.Diagnostics, error) {
	d, ok := s.pipeline.Diagnostics()
	if !ok {
		return pipeline.Diagnostics{}, ErrNotReady
	}
	return d, nil
}

// Search returns up to limit unselected search box entries matching query,
// along with the selected entries.
func (s *Session) Search(query string, limit int) (pipeline.SearchBoxLocations, error) {
	box, ok := s.pipeline.LocationsForSearchBox(s.store.State())
	if !ok {
		return pipeline.SearchBoxLocations{}, ErrNotReady
	}
	box.Unselected = pipeline.FilterSearch(box.Unselected, query, limit)
	return box, nil
}

// Share returns the shareable string of the current state.
func (s *Session) Share() string {
	return state.EncodeQuery(s.store.State())
}

// SyncedQuery returns the string last written to the sync target.
func (s *Session) SyncedQuery() string {
	return s.target.Current()
}

// CheckReadiness implements the readiness probe.
func (s *Session) CheckReadiness(ctx context.Context) error {
	return s.pipeline.CheckReadiness(ctx)
}

// Close stops timers and the animation, and flushes the pending sync.
// Nothing is dispatched after Close returns.
func (s *Session) Close() {
	s.coord.Close()
	if err := s.syncer.Flush(); err != nil {
		s.logger.Warn("flush shareable state", "error", err)
	}
	s.syncer.Close()
	s.animator.Close()

	s.mu.Lock()
	unsubscribe := s.unsubscribe
	s.unsubscribe = nil
	s.mu.Unlock()
	for _, u := range unsubscribe {
		u()
	}
}
