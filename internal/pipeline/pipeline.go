// Package pipeline derives render-ready collections from the loaded dataset
// and the current interaction state. Every selector caches its last result
// keyed on the identity of its inputs, so state changes that do not touch a
// selector's inputs never recompute it.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/couchcryptid/flowmap-core/internal/cluster"
	"github.com/couchcryptid/flowmap-core/internal/domain"
	"github.com/couchcryptid/flowmap-core/internal/observability"
	"github.com/couchcryptid/flowmap-core/internal/state"
)

// Data is the static input of one dataset load. A nil slice means the
// collection has not been loaded yet.
type Data struct {
	Locations []domain.Location
	Flows     []domain.Flow
	Config    domain.Config
}

// Options configures cluster building.
type Options struct {
	Cluster cluster.Options
	// Background builds the cluster index on a goroutine; selectors report
	// "not ready" until it is published.
	Background bool
	// CacheSize bounds the number of zoom levels with cached aggregations.
	CacheSize int
}

type pairID struct {
	locations sliceID
	flows     sliceID
}

// Pipeline holds the current dataset and the selector caches over it.
type Pipeline struct {
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
	data    atomic.Pointer[Data]

	invalid   *memo[sliceID, []string]
	validByID *memo[sliceID, map[string]domain.Location]
	unknown   *memo[pairID, []string]
	known     *memo[pairID, []domain.Flow]
	having    *memo[pairID, []domain.Location]
	diffMode  *memo[sliceID, bool]
	flatNodes *memo[sliceID, []domain.Node]
	totals    *memo[totalsKey, map[string]domain.Totals]
	expanded  *memo[expandedKey, []string]
	search    *memo[searchKey, SearchBoxLocations]

	indexMu  sync.Mutex
	index    atomic.Pointer[indexEntry]
	pending  pairID
	building bool
	onIndex  func(*cluster.Index)
}

// New creates an empty pipeline. Selectors report "not ready" until SetData.
func New(opts Options, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 32
	}
	return &Pipeline{
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
		invalid:   newMemo[sliceID, []string]("invalid_locations", metrics),
		validByID: newMemo[sliceID, map[string]domain.Location]("valid_locations", metrics),
		unknown:   newMemo[pairID, []string]("unknown_locations", metrics),
		known:     newMemo[pairID, []domain.Flow]("flows_for_known_locations", metrics),
		having:    newMemo[pairID, []domain.Location]("locations_having_flows", metrics),
		diffMode:  newMemo[sliceID, bool]("diff_mode", metrics),
		flatNodes: newMemo[sliceID, []domain.Node]("unclustered_nodes", metrics),
		totals:    newMemo[totalsKey, map[string]domain.Totals]("location_totals", metrics),
		expanded:  newMemo[expandedKey, []string]("expanded_selection", metrics),
		search:    newMemo[searchKey, SearchBoxLocations]("search_box", metrics),
	}
}

// SetData replaces the dataset. Derived values are recomputed lazily.
func (p *Pipeline) SetData(d Data) {
	p.data.Store(&d)
	loaded := 0.0
	if d.Locations != nil && d.Flows != nil {
		loaded = 1
	}
	p.metrics.DatasetLoaded.Set(loaded)
}

// OnIndexReady registers fn to run after a background build is published.
func (p *Pipeline) OnIndexReady(fn func(*cluster.Index)) {
	p.indexMu.Lock()
	defer p.indexMu.Unlock()
	p.onIndex = fn
}

func (p *Pipeline) current() Data {
	if d := p.data.Load(); d != nil {
		return *d
	}
	return Data{}
}

// CheckReadiness returns nil once both locations and flows are loaded.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	d := p.current()
	if d.Locations == nil || d.Flows == nil {
		return errors.New("dataset has not been loaded yet")
	}
	return nil
}

// Config returns the configuration of the current dataset.
func (p *Pipeline) Config() domain.Config {
	return p.current().Config
}

// Locations returns all loaded locations, or nil.
func (p *Pipeline) Locations() []domain.Location {
	return p.current().Locations
}

// Flows returns all loaded flows, or nil.
func (p *Pipeline) Flows() []domain.Flow {
	return p.current().Flows
}

// InvalidLocationIDs lists locations with invalid coordinates.
func (p *Pipeline) InvalidLocationIDs() []string {
	locations := p.Locations()
	if locations == nil {
		return nil
	}
	return p.invalid.get(idOf(locations), func() []string {
		return domain.InvalidLocationIDs(locations)
	})
}

// UnknownLocationIDs lists, sorted, ids referenced by flows that are not in
// the location set.
func (p *Pipeline) UnknownLocationIDs() []string {
	d, key, ok := p.dataKey()
	if !ok {
		return nil
	}
	return p.unknown.get(key, func() []string {
		return domain.UnknownLocationIDs(d.Locations, d.Flows)
	})
}

// FlowsForKnownLocations keeps flows whose endpoints are both valid locations.
func (p *Pipeline) FlowsForKnownLocations() []domain.Flow {
	d, key, ok := p.dataKey()
	if !ok {
		return nil
	}
	return p.knownFlows(d, key)
}

// LocationsHavingFlows keeps valid locations that are an endpoint of a
// retained flow.
func (p *Pipeline) LocationsHavingFlows() []domain.Location {
	d, key, ok := p.dataKey()
	if !ok {
		return nil
	}
	return p.locationsHavingFlows(d, key)
}

func (p *Pipeline) dataKey() (Data, pairID, bool) {
	d := p.current()
	if d.Locations == nil || d.Flows == nil {
		return d, pairID{}, false
	}
	return d, pairID{idOf(d.Locations), idOf(d.Flows)}, true
}

// The helpers below derive from one Data snapshot so callers running
// concurrently with SetData never mix two datasets.

func (p *Pipeline) validLocations(d Data) map[string]domain.Location {
	return p.validByID.get(idOf(d.Locations), func() map[string]domain.Location {
		return domain.ValidLocationsByID(d.Locations)
	})
}

func (p *Pipeline) knownFlows(d Data, key pairID) []domain.Flow {
	valid := p.validLocations(d)
	return p.known.get(key, func() []domain.Flow {
		return domain.FlowsForKnownLocations(d.Flows, valid)
	})
}

func (p *Pipeline) locationsHavingFlows(d Data, key pairID) []domain.Location {
	flows := p.knownFlows(d, key)
	return p.having.get(key, func() []domain.Location {
		return domain.LocationsHavingFlows(d.Locations, flows)
	})
}

// DiffMode reports whether any retained flow is negative.
func (p *Pipeline) DiffMode() bool {
	flows := p.FlowsForKnownLocations()
	if flows == nil {
		return false
	}
	return p.diffMode.get(idOf(flows), func() bool {
		return domain.HasNegativeCounts(flows)
	})
}

// Default basemap styles.
const (
	DarkMapStyle  = "mapbox://styles/mapbox/dark-v10"
	LightMapStyle = "mapbox://styles/mapbox/light-v10"
)

// MapStyle returns the configured basemap style, or a default that matches
// the dark mode setting.
func (p *Pipeline) MapStyle(s state.State) string {
	if style := p.Config().Get(domain.ConfigMapboxMapStyle); style != "" {
		return style
	}
	if s.DarkMode {
		return DarkMapStyle
	}
	return LightMapStyle
}
