package cluster

import (
	"sort"

	"github.com/couchcryptid/flowmap-core/internal/domain"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Aggregation is the flow set between the representative nodes of one zoom.
type Aggregation struct {
	Zoom  int           `json:"zoom"`
	Flows []domain.Flow `json:"flows"`
	// SelfLoops counts the input flows whose endpoints share a representative.
	SelfLoops     int     `json:"self_loops"`
	SelfLoopCount float64 `json:"self_loop_count"`
	// Unmatched counts flows with an endpoint missing from the index.
	Unmatched int `json:"unmatched"`
}

type pair struct{ origin, dest string }

// AggregateFlows sums flows between the nodes representing their endpoints at
// zoom z. Self-loops are dropped and reported. The result is ordered by
// origin, then dest.
func (ix *Index) AggregateFlows(flows []domain.Flow, z int) Aggregation {
	lv := ix.levelAt(z)
	agg := Aggregation{Zoom: ix.ClusterZoomFor(float64(z))}

	sums := make(map[pair]float64)
	for _, f := range flows {
		origin, okOrigin := lv.repr[f.Origin]
		dest, okDest := lv.repr[f.Dest]
		if !okOrigin || !okDest {
			agg.Unmatched++
			continue
		}
		if origin == dest {
			agg.SelfLoops++
			agg.SelfLoopCount += f.Count
			continue
		}
		sums[pair{origin, dest}] += f.Count
	}

	agg.Flows = make([]domain.Flow, 0, len(sums))
	for p, count := range sums {
		agg.Flows = append(agg.Flows, domain.Flow{Origin: p.origin, Dest: p.dest, Count: count})
	}
	sort.Slice(agg.Flows, func(i, j int) bool {
		a, b := agg.Flows[i], agg.Flows[j]
		if a.Origin != b.Origin {
			return a.Origin < b.Origin
		}
		return a.Dest < b.Dest
	})
	return agg
}

// FlowAggregator caches aggregations of one flow set per zoom level.
type FlowAggregator struct {
	index *Index
	flows []domain.Flow
	cache *lru.Cache[int, Aggregation]
}

// NewFlowAggregator creates an aggregator holding up to size zoom levels.
func NewFlowAggregator(index *Index, flows []domain.Flow, size int) (*FlowAggregator, error) {
	cache, err := lru.New[int, Aggregation](size)
	if err != nil {
		return nil, err
	}
	return &FlowAggregator{index: index, flows: flows, cache: cache}, nil
}

// At returns the aggregation for zoom z. The second result reports a cache hit.
func (a *FlowAggregator) At(z int) (Aggregation, bool) {
	z = a.index.ClusterZoomFor(float64(z))
	if agg, ok := a.cache.Get(z); ok {
		return agg, true
	}
	agg := a.index.AggregateFlows(a.flows, z)
	a.cache.Add(z, agg)
	return agg, false
}
