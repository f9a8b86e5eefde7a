package pipeline

import (
	"fmt"
	"slices"
	"time"

	"github.com/couchcryptid/flowmap-core/internal/cluster"
	"github.com/couchcryptid/flowmap-core/internal/domain"
	"github.com/couchcryptid/flowmap-core/internal/state"
)

type indexEntry struct {
	key        pairID
	index      *cluster.Index
	aggregator *cluster.FlowAggregator
}

// ClusterIndex returns the cluster hierarchy for the current dataset, or nil
// when the data is not loaded or a background build has not finished. The
// index is rebuilt only when the dataset changes.
func (p *Pipeline) ClusterIndex() *cluster.Index {
	if e := p.indexEntry(); e != nil {
		return e.index
	}
	return nil
}

func (p *Pipeline) indexEntry() *indexEntry {
	d, key, ok := p.dataKey()
	if !ok {
		return nil
	}
	if e := p.index.Load(); e != nil && e.key == key {
		return e
	}

	p.indexMu.Lock()
	defer p.indexMu.Unlock()

	if !p.opts.Background {
		// another caller may have built it while we waited
		if e := p.index.Load(); e != nil && e.key == key {
			return e
		}
		e := p.build(d, key, "sync")
		if e != nil {
			p.index.Store(e)
		}
		return e
	}

	p.pending = key
	if !p.building {
		p.building = true
		go p.buildLoop(d, key)
	}
	return nil
}

// buildLoop builds indexes in the background until the result matches the
// latest requested dataset. Builds for replaced data are discarded, so the
// published index is always complete and never older than one it replaced.
func (p *Pipeline) buildLoop(d Data, key pairID) {
	for {
		e := p.build(d, key, "background")

		p.indexMu.Lock()
		if p.pending == key {
			if e != nil {
				p.index.Store(e)
				p.metrics.ClusterBuilds.WithLabelValues("background", "published").Inc()
			}
			p.building = false
			onIndex := p.onIndex
			p.indexMu.Unlock()

			if onIndex != nil && e != nil {
				onIndex(e.index)
			}
			return
		}
		p.metrics.ClusterBuilds.WithLabelValues("background", "superseded").Inc()
		p.logger.Debug("discarding superseded cluster index")

		var ok bool
		d, key, ok = p.dataKey()
		if !ok {
			p.building = false
			p.indexMu.Unlock()
			return
		}
		p.pending = key
		p.indexMu.Unlock()
	}
}

func (p *Pipeline) build(d Data, key pairID, mode string) *indexEntry {
	start := time.Now()
	locations := p.locationsHavingFlows(d, key)
	flows := p.knownFlows(d, key)

	ix := cluster.Build(locations, flows, p.opts.Cluster)
	aggregator, err := cluster.NewFlowAggregator(ix, flows, p.opts.CacheSize)
	if err != nil {
		p.logger.Error("failed to create flow aggregator", "error", err)
		return nil
	}
	p.metrics.ClusterBuildDuration.Observe(time.Since(start).Seconds())
	if mode == "sync" {
		p.metrics.ClusterBuilds.WithLabelValues(mode, "published").Inc()
	}
	p.logger.Info("cluster index built",
		"mode", mode,
		"locations", ix.LocationCount(),
		"flows", len(flows),
		"duration", time.Since(start),
	)
	return &indexEntry{key: key, index: ix, aggregator: aggregator}
}

// ClusterZoom maps the view zoom to the hierarchy level to read. The second
// result is false while no index is available.
func (p *Pipeline) ClusterZoom(s state.State) (int, bool) {
	_, z, ok := p.indexAt(s)
	return z, ok
}

func (p *Pipeline) indexAt(s state.State) (*cluster.Index, int, bool) {
	ix := p.ClusterIndex()
	if ix == nil {
		return nil, 0, false
	}
	return ix, ix.ClusterZoomFor(s.ViewState.Zoom), true
}

// ClusterNodes returns the nodes to render: the representative nodes at the
// cluster zoom when clustering is on, the locations having flows otherwise.
func (p *Pipeline) ClusterNodes(s state.State) ([]domain.Node, bool) {
	if !s.ClusteringEnabled {
		locations := p.LocationsHavingFlows()
		if locations == nil {
			return nil, false
		}
		return p.flatNodes.get(idOf(locations), func() []domain.Node {
			nodes := make([]domain.Node, len(locations))
			for i, l := range locations {
				nodes[i] = l
			}
			return nodes
		}), true
	}
	ix, z, ok := p.indexAt(s)
	if !ok {
		return nil, false
	}
	return ix.ClusterNodesFor(z), true
}

// Aggregation returns the flows between the rendered nodes. With clustering
// off every retained flow is passed through unchanged.
func (p *Pipeline) Aggregation(s state.State) (cluster.Aggregation, bool) {
	if !s.ClusteringEnabled {
		flows := p.FlowsForKnownLocations()
		if flows == nil {
			return cluster.Aggregation{}, false
		}
		return cluster.Aggregation{Zoom: -1, Flows: flows}, true
	}
	e := p.indexEntry()
	if e == nil {
		return cluster.Aggregation{}, false
	}
	agg, hit := e.aggregator.At(e.index.ClusterZoomFor(s.ViewState.Zoom))
	result := "miss"
	if hit {
		result = "hit"
	}
	p.metrics.DerivationCache.WithLabelValues("aggregated_flows", result).Inc()
	return agg, true
}

// AggregatedFlows is Aggregation without the self-loop report.
func (p *Pipeline) AggregatedFlows(s state.State) ([]domain.Flow, bool) {
	agg, ok := p.Aggregation(s)
	return agg.Flows, ok
}

type totalsKey struct {
	flows sliceID
	index *cluster.Index
	zoom  int
}

// LocationTotals sums incoming, outgoing and internal flow per rendered node.
// Flows folded into a cluster count as within that cluster.
func (p *Pipeline) LocationTotals(s state.State) (map[string]domain.Totals, bool) {
	agg, ok := p.Aggregation(s)
	if !ok {
		return nil, false
	}
	var ix *cluster.Index
	if s.ClusteringEnabled {
		ix = p.ClusterIndex()
	}
	key := totalsKey{flows: idOf(agg.Flows), index: ix, zoom: agg.Zoom}
	return p.totals.get(key, func() map[string]domain.Totals {
		totals := domain.LocationTotals(agg.Flows)
		if ix == nil || agg.SelfLoops == 0 {
			return totals
		}
		// flows inside one node were dropped from the aggregation
		for _, f := range p.FlowsForKnownLocations() {
			origin, okOrigin := ix.FindClusterFor(f.Origin, agg.Zoom)
			dest, okDest := ix.FindClusterFor(f.Dest, agg.Zoom)
			if !okOrigin || !okDest || origin != dest {
				continue
			}
			t := totals[origin]
			t.Within += f.Count
			totals[origin] = t
		}
		return totals
	}), true
}

type expandedKey struct {
	selection sliceID
	index     *cluster.Index
	zoom      int
}

// ExpandedSelection maps selected ids to the nodes that currently represent
// them, so a selection stays visible after its locations are clustered.
func (p *Pipeline) ExpandedSelection(s state.State) []string {
	if s.SelectedLocations == nil || !s.ClusteringEnabled {
		return s.SelectedLocations
	}
	ix, z, ok := p.indexAt(s)
	if !ok {
		return s.SelectedLocations
	}
	key := expandedKey{selection: idOf(s.SelectedLocations), index: ix, zoom: z}
	return p.expanded.get(key, func() []string {
		out := make([]string, 0, len(s.SelectedLocations))
		for _, id := range s.SelectedLocations {
			if rep, ok := ix.FindClusterFor(id, z); ok {
				id = rep
			}
			if !slices.Contains(out, id) {
				out = append(out, id)
			}
		}
		return out
	})
}

// HighlightForZoom returns the highlight if its target is drawn as itself at
// the current cluster zoom, nil otherwise. A flow highlight needs both of its
// endpoints to be drawn as themselves; a flow between two clusters is never
// re-targeted.
func (p *Pipeline) HighlightForZoom(s state.State) state.Highlight {
	if s.Highlight == nil || !s.ClusteringEnabled {
		return s.Highlight
	}
	ix, z, ok := p.indexAt(s)
	if !ok {
		return nil
	}
	visible := func(id string) bool {
		if _, ok := ix.ClusterByID(id); ok {
			return ix.IsRepresentative(id, z)
		}
		if rep, ok := ix.FindClusterFor(id, z); ok && rep == id {
			return true
		}
		// ids the index does not know are never clustered away
		minZoom, ok := ix.MinZoomForLocation(id)
		return !ok || minZoom <= z
	}

	switch h := s.Highlight.(type) {
	case state.LocationHighlight:
		if visible(h.LocationID) {
			return h
		}
	case state.FlowHighlight:
		if visible(h.Origin) && visible(h.Dest) {
			return h
		}
	default:
		panic(fmt.Sprintf("pipeline: unknown highlight variant %T", h))
	}
	return nil
}

// NodeByID looks up a cluster of the current index or a valid location.
func (p *Pipeline) NodeByID(id string) (domain.Node, bool) {
	if ix := p.ClusterIndex(); ix != nil {
		if c, ok := ix.ClusterByID(id); ok {
			return c, true
		}
	}
	d := p.current()
	if d.Locations == nil {
		return nil, false
	}
	if l, ok := p.validLocations(d)[id]; ok {
		return l, true
	}
	return nil, false
}
