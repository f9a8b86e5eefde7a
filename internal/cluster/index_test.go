package cluster

import (
	"fmt"
	"math"
	"reflect"
	"sort"
	"testing"

	"github.com/couchcryptid/flowmap-core/internal/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fixtures ---

// texas places two tight groups far apart.
func texas() ([]domain.Location, []domain.Flow) {
	locations := []domain.Location{
		{ID: "AUS", Name: "Austin", Lat: 30.2672, Lon: -97.7431},
		{ID: "RRK", Name: "Round Rock", Lat: 30.5083, Lon: -97.6789},
		{ID: "DAL", Name: "Dallas", Lat: 32.7767, Lon: -96.7970},
		{ID: "FTW", Name: "Fort Worth", Lat: 32.7555, Lon: -97.3308},
		{ID: "ELP", Name: "El Paso", Lat: 31.7619, Lon: -106.4850},
	}
	flows := []domain.Flow{
		{Origin: "AUS", Dest: "DAL", Count: 10},
		{Origin: "RRK", Dest: "FTW", Count: 4},
		{Origin: "DAL", Dest: "AUS", Count: 7},
		{Origin: "AUS", Dest: "RRK", Count: 3},
		{Origin: "ELP", Dest: "AUS", Count: 1},
		{Origin: "AUS", Dest: "DAL", Count: 2},
	}
	return locations, flows
}

func nodeIDs(nodes []domain.Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.NodeID()
	}
	return ids
}

// --- hierarchy ---

func TestBuild_LeafLevelIsUnclustered(t *testing.T) {
	locations, flows := texas()
	ix := Build(locations, flows, Options{})

	nodes := ix.ClusterNodesFor(ix.LeafZoom())
	assert.Equal(t, []string{"AUS", "DAL", "ELP", "FTW", "RRK"}, nodeIDs(nodes))
	for _, n := range nodes {
		assert.False(t, n.IsCluster())
	}
	assert.Equal(t, nodes, ix.ClusterNodesFor(domain.MaxZoomLevel), "zooms above the leaf level read the leaves")
}

func TestBuild_MergesNeighboursWhenZoomedOut(t *testing.T) {
	locations, flows := texas()
	ix := Build(locations, flows, Options{})

	nodes := ix.ClusterNodesFor(0)
	require.Len(t, nodes, 1)
	c, ok := nodes[0].(domain.ClusterNode)
	require.True(t, ok)
	assert.Equal(t, 5, c.LeafCount)
	assert.Equal(t, []string{"AUS", "DAL", "ELP", "FTW", "RRK"}, ix.Leaves(c.ID))
	assert.Equal(t, "Austin and 4 others", c.Name, "heaviest location names the cluster")
	assert.Equal(t, 0, c.MinZoom)
}

func TestBuild_Deterministic(t *testing.T) {
	locations, flows := texas()
	reversed := make([]domain.Location, len(locations))
	for i, l := range locations {
		reversed[len(locations)-1-i] = l
	}

	a := Build(locations, flows, Options{})
	b := Build(reversed, flows, Options{})

	for z := 0; z <= a.LeafZoom(); z++ {
		if diff := cmp.Diff(a.ClusterNodesFor(z), b.ClusterNodesFor(z)); diff != "" {
			t.Errorf("zoom %d mismatch (-a +b):\n%s", z, diff)
		}
	}
}

func TestBuild_SkipsInvalidLocations(t *testing.T) {
	ix := Build([]domain.Location{
		{ID: "A", Lat: 0, Lon: 0},
		{ID: "B", Lat: 200, Lon: 0},
	}, nil, Options{})

	assert.Equal(t, 1, ix.LocationCount())
	_, ok := ix.MinZoomForLocation("B")
	assert.False(t, ok)
}

func TestIndex_ClusterLifetimeMatchesLevels(t *testing.T) {
	locations, flows := texas()
	ix := Build(locations, flows, Options{})

	for z := 0; z <= ix.LeafZoom(); z++ {
		for _, n := range ix.ClusterNodesFor(z) {
			assert.True(t, ix.IsRepresentative(n.NodeID(), z), "%s at zoom %d", n.NodeID(), z)
			if c, ok := n.(domain.ClusterNode); ok {
				assert.LessOrEqual(t, c.MinZoom, z)
				assert.GreaterOrEqual(t, c.Zoom, z)
				got, found := ix.ClusterByID(c.ID)
				require.True(t, found)
				assert.Equal(t, c, got)
			}
		}
	}
}

func TestIndex_FindClusterFor(t *testing.T) {
	locations, flows := texas()
	ix := Build(locations, flows, Options{})

	id, ok := ix.FindClusterFor("AUS", ix.LeafZoom())
	require.True(t, ok)
	assert.Equal(t, "AUS", id)

	top, ok := ix.FindClusterFor("RRK", 0)
	require.True(t, ok)
	assert.Equal(t, ix.ClusterNodesFor(0)[0].NodeID(), top)

	// a cluster resolves to itself or an ancestor, never below its formation zoom
	c, _ := ix.ClusterByID(top)
	self, ok := ix.FindClusterFor(top, c.Zoom)
	require.True(t, ok)
	assert.Equal(t, top, self)
	_, ok = ix.FindClusterFor(top, c.Zoom+1)
	assert.False(t, ok)

	_, ok = ix.FindClusterFor("nope", 3)
	assert.False(t, ok)
}

func TestIndex_MinZoomForLocation(t *testing.T) {
	locations, flows := texas()
	ix := Build(locations, flows, Options{})

	for _, l := range locations {
		minZoom, ok := ix.MinZoomForLocation(l.ID)
		require.True(t, ok)
		for z := 0; z <= ix.LeafZoom(); z++ {
			repr, _ := ix.FindClusterFor(l.ID, z)
			assert.Equal(t, z >= minZoom, repr == l.ID, "%s at zoom %d", l.ID, z)
		}
	}
}

func TestIndex_ClusterZoomFor(t *testing.T) {
	ix := Build(nil, nil, Options{MinZoom: 2, MaxZoom: 10})

	assert.Equal(t, 2, ix.ClusterZoomFor(0.5))
	assert.Equal(t, 5, ix.ClusterZoomFor(5.99))
	assert.Equal(t, 11, ix.ClusterZoomFor(18))
}

func TestIndex_Stats(t *testing.T) {
	locations, flows := texas()
	ix := Build(locations, flows, Options{})

	stats := ix.Stats()
	require.Len(t, stats, ix.LeafZoom()+1)
	assert.Equal(t, LevelStats{Zoom: 0, Nodes: 1, Clusters: 1}, stats[0])
	assert.Equal(t, LevelStats{Zoom: ix.LeafZoom(), Nodes: 5}, stats[len(stats)-1])
}

// --- aggregation ---

func TestAggregateFlows_LeafLevelSumsPairs(t *testing.T) {
	locations, flows := texas()
	ix := Build(locations, flows, Options{})

	agg := ix.AggregateFlows(flows, ix.LeafZoom())

	assert.Equal(t, []domain.Flow{
		{Origin: "AUS", Dest: "DAL", Count: 12},
		{Origin: "AUS", Dest: "RRK", Count: 3},
		{Origin: "DAL", Dest: "AUS", Count: 7},
		{Origin: "ELP", Dest: "AUS", Count: 1},
		{Origin: "RRK", Dest: "FTW", Count: 4},
	}, agg.Flows)
	assert.Zero(t, agg.SelfLoops)
}

func TestAggregateFlows_FullyClusteredIsAllSelfLoops(t *testing.T) {
	locations, flows := texas()
	ix := Build(locations, flows, Options{})

	agg := ix.AggregateFlows(flows, 0)

	assert.Empty(t, agg.Flows)
	assert.Equal(t, len(flows), agg.SelfLoops)
	assert.InDelta(t, 27, agg.SelfLoopCount, 1e-9)
}

func TestAggregateFlows_Unmatched(t *testing.T) {
	locations, flows := texas()
	ix := Build(locations, flows, Options{})

	agg := ix.AggregateFlows(append(flows, domain.Flow{Origin: "AUS", Dest: "XXX", Count: 1}), ix.LeafZoom())
	assert.Equal(t, 1, agg.Unmatched)
}

func TestFlowAggregator_CachesPerZoom(t *testing.T) {
	locations, flows := texas()
	ix := Build(locations, flows, Options{})
	a, err := NewFlowAggregator(ix, flows, 4)
	require.NoError(t, err)

	first, hit := a.At(5)
	assert.False(t, hit)
	second, hit := a.At(5)
	assert.True(t, hit)
	assert.Equal(t, first, second)

	_, err = NewFlowAggregator(ix, flows, 0)
	assert.Error(t, err)
}

// --- properties ---

type fixture struct {
	locations []domain.Location
	flows     []domain.Flow
}

var (
	reflectLocation = reflect.TypeOf(domain.Location{})
	reflectFlow     = reflect.TypeOf(domain.Flow{})
	reflectFixture  = reflect.TypeOf(fixture{})
)

func genFixture() gopter.Gen {
	return gen.SliceOf(gen.Struct(reflectLocation, map[string]gopter.Gen{
		"Lat": gen.Float64Range(-80, 80),
		"Lon": gen.Float64Range(-180, 180),
	})).FlatMap(func(v any) gopter.Gen {
		locs := v.([]domain.Location)
		for i := range locs {
			locs[i].ID = fmt.Sprintf("L%04d", i)
		}
		n := len(locs)
		if n == 0 {
			return gen.Const(fixture{})
		}
		return gen.SliceOf(gen.Struct(reflectFlow, map[string]gopter.Gen{
			"Origin": gen.IntRange(0, n-1).Map(func(i int) string { return locs[i].ID }),
			"Dest":   gen.IntRange(0, n-1).Map(func(i int) string { return locs[i].ID }),
			"Count":  gen.Float64Range(-50, 100),
		})).Map(func(flows []domain.Flow) fixture {
			return fixture{locations: locs, flows: flows}
		})
	}, reflectFixture)
}

func TestProperty_NodesPartitionLocations(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("every location is covered exactly once", prop.ForAll(
		func(fx fixture) bool {
			ix := Build(fx.locations, fx.flows, Options{MaxZoom: 8})
			for z := 0; z <= ix.LeafZoom(); z++ {
				var covered []string
				for _, n := range ix.ClusterNodesFor(z) {
					if n.IsCluster() {
						covered = append(covered, ix.Leaves(n.NodeID())...)
					} else {
						covered = append(covered, n.NodeID())
					}
				}
				sort.Strings(covered)
				if len(covered) != len(fx.locations) {
					return false
				}
				for i, id := range covered {
					if id != fx.locations[i].ID {
						return false
					}
				}
			}
			return true
		},
		genFixture(),
	))

	properties.TestingRun(t)
}

func TestProperty_AggregationConservesCounts(t *testing.T) {
	properties := gopter.NewProperties(gopter.DefaultTestParameters())

	properties.Property("aggregated plus self-loop counts equal raw total", prop.ForAll(
		func(fx fixture, z int) bool {
			ix := Build(fx.locations, fx.flows, Options{MaxZoom: 8})
			agg := ix.AggregateFlows(fx.flows, z)

			var raw, total float64
			for _, f := range fx.flows {
				raw += f.Count
			}
			for _, f := range agg.Flows {
				total += f.Count
				if f.Origin == f.Dest {
					return false
				}
			}
			return agg.Unmatched == 0 && math.Abs(raw-(total+agg.SelfLoopCount)) < 1e-6
		},
		genFixture(),
		gen.IntRange(0, 10),
	))

	properties.TestingRun(t)
}
