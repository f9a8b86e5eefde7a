// Package cluster builds a zoom-level hierarchy over flow map locations and
// aggregates flows between the nodes that represent them at each level.
package cluster

import (
	"fmt"
	"math"
	"sort"

	"github.com/couchcryptid/flowmap-core/internal/domain"
	"github.com/couchcryptid/flowmap-core/internal/geo"
)

// Options controls the hierarchy. Zero values take the defaults.
type Options struct {
	MinZoom  int
	MaxZoom  int
	Radius   float64 // cluster radius in pixels
	Extent   int     // tile extent the radius is relative to
	NodeSize int     // kd-tree leaf size
}

// DefaultOptions returns the options used when none are configured.
func DefaultOptions() Options {
	return Options{MinZoom: 0, MaxZoom: 16, Radius: 40, Extent: 512, NodeSize: 64}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MinZoom < domain.MinZoomLevel {
		o.MinZoom = domain.MinZoomLevel
	}
	if o.MaxZoom <= 0 {
		o.MaxZoom = d.MaxZoom
	}
	if o.MaxZoom >= domain.MaxZoomLevel {
		o.MaxZoom = domain.MaxZoomLevel - 1
	}
	if o.MinZoom > o.MaxZoom {
		o.MinZoom = o.MaxZoom
	}
	if o.Radius <= 0 {
		o.Radius = d.Radius
	}
	if o.Extent <= 0 {
		o.Extent = d.Extent
	}
	if o.NodeSize <= 0 {
		o.NodeSize = d.NodeSize
	}
	return o
}

// Index is an immutable cluster hierarchy. Level MaxZoom+1 holds the
// unclustered locations; each lower level merges neighbours of the one above.
type Index struct {
	opts      Options
	levels    []level // levels[z-MinZoom]
	clusters  map[string]*domain.ClusterNode
	locations map[string]domain.Location
	minZoom   map[string]int
}

type level struct {
	nodes []domain.Node
	repr  map[string]string // location id -> representative node id
}

// item is a node while the hierarchy is being built.
type item struct {
	id     string
	x, y   float64
	weight float64
	leaves []string
	seed   string // leaf the item is named after
	node   *domain.ClusterNode
}

// Build clusters the valid locations. Flow magnitudes weight the centroids
// and decide which location seeds a cluster. Identical inputs always produce
// identical hierarchies and cluster ids.
func Build(locations []domain.Location, flows []domain.Flow, opts Options) *Index {
	opts = opts.withDefaults()

	weights := make(map[string]float64)
	for _, f := range flows {
		weights[f.Origin] += math.Abs(f.Count)
		if f.Dest != f.Origin {
			weights[f.Dest] += math.Abs(f.Count)
		}
	}

	ix := &Index{
		opts:      opts,
		levels:    make([]level, opts.MaxZoom-opts.MinZoom+2),
		clusters:  make(map[string]*domain.ClusterNode),
		locations: domain.ValidLocationsByID(locations),
		minZoom:   make(map[string]int),
	}

	ids := make([]string, 0, len(ix.locations))
	for id := range ix.locations {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	items := make([]*item, len(ids))
	for i, id := range ids {
		l := ix.locations[id]
		items[i] = &item{
			id:     id,
			x:      geo.ProjectX(l.Lon),
			y:      geo.ProjectY(l.Lat),
			weight: weights[id],
			leaves: []string{id},
			seed:   id,
		}
	}

	// MinZoom of a cluster is only final once the levels below it are built,
	// so nodes are materialised afterwards.
	byLevel := make([][]*item, len(ix.levels))
	byLevel[len(byLevel)-1] = items
	for z := opts.MaxZoom; z >= opts.MinZoom; z-- {
		items = ix.clusterLevel(items, z)
		byLevel[z-opts.MinZoom] = items
	}
	for i := len(byLevel) - 1; i >= 0; i-- {
		ix.setLevel(opts.MinZoom+i, byLevel[i])
	}
	return ix
}

// clusterLevel merges items within the zoom radius of each other. Seeds are
// visited heaviest first, ties by id.
func (ix *Index) clusterLevel(items []*item, z int) []*item {
	xs := make([]float64, len(items))
	ys := make([]float64, len(items))
	for i, it := range items {
		xs[i], ys[i] = it.x, it.y
	}
	tree := newKDTree(xs, ys, ix.opts.NodeSize)
	r := ix.opts.Radius / (float64(ix.opts.Extent) * math.Pow(2, float64(z)))

	order := make([]int, len(items))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ia, ib := items[order[a]], items[order[b]]
		if ia.weight != ib.weight {
			return ia.weight > ib.weight
		}
		return ia.id < ib.id
	})

	visited := make([]bool, len(items))
	next := make([]*item, 0, len(items))
	for _, i := range order {
		if visited[i] {
			continue
		}
		visited[i] = true

		var members []*item
		for _, j := range tree.within(items[i].x, items[i].y, r) {
			if !visited[j] {
				visited[j] = true
				members = append(members, items[j])
			}
		}
		if len(members) == 0 {
			next = append(next, items[i])
			continue
		}
		sort.Slice(members, func(a, b int) bool { return members[a].id < members[b].id })
		next = append(next, ix.merge(items[i], members, z))
	}

	sort.Slice(next, func(a, b int) bool { return next[a].id < next[b].id })
	return next
}

func (ix *Index) merge(seed *item, members []*item, z int) *item {
	all := append([]*item{seed}, members...)

	var sumX, sumY, weight float64
	var leaves []string
	children := make([]string, 0, len(all))
	for _, it := range all {
		sumX += it.x * it.weight
		sumY += it.y * it.weight
		weight += it.weight
		leaves = append(leaves, it.leaves...)
		children = append(children, it.id)

		// the child stops being shown as itself below this level
		if it.node != nil {
			it.node.MinZoom = z + 1
		}
	}
	div := weight
	if weight == 0 {
		sumX, sumY = 0, 0
		for _, it := range all {
			sumX += it.x
			sumY += it.y
		}
		div = float64(len(all))
	}
	x, y := sumX/div, sumY/div

	node := &domain.ClusterNode{
		ID:        fmt.Sprintf("cluster:%d:%s", z, seed.seed),
		Name:      clusterName(ix.locations[seed.seed].NodeName(), len(leaves)),
		Lat:       geo.UnprojectY(y),
		Lon:       geo.UnprojectX(x),
		Zoom:      z,
		MinZoom:   ix.opts.MinZoom,
		Children:  children,
		LeafCount: len(leaves),
	}
	ix.clusters[node.ID] = node

	return &item{
		id:     node.ID,
		x:      x,
		y:      y,
		weight: weight,
		leaves: leaves,
		seed:   seed.seed,
		node:   node,
	}
}

func clusterName(lead string, leafCount int) string {
	others := leafCount - 1
	if others == 1 {
		return lead + " and 1 other"
	}
	return fmt.Sprintf("%s and %d others", lead, others)
}

func (ix *Index) setLevel(z int, items []*item) {
	lv := level{
		nodes: make([]domain.Node, len(items)),
		repr:  make(map[string]string, len(ix.locations)),
	}
	for i, it := range items {
		if it.node != nil {
			lv.nodes[i] = *it.node
		} else {
			lv.nodes[i] = ix.locations[it.id]
			ix.minZoom[it.id] = z
		}
		for _, leaf := range it.leaves {
			lv.repr[leaf] = it.id
		}
	}
	ix.levels[z-ix.opts.MinZoom] = lv
}

// Options returns the effective options the index was built with.
func (ix *Index) Options() Options { return ix.opts }

// LeafZoom is the first level at which no location is clustered.
func (ix *Index) LeafZoom() int { return ix.opts.MaxZoom + 1 }

// ClusterZoomFor maps a continuous view zoom to the level to read.
func (ix *Index) ClusterZoomFor(viewZoom float64) int {
	z := int(math.Floor(viewZoom))
	if z < ix.opts.MinZoom {
		return ix.opts.MinZoom
	}
	if z > ix.LeafZoom() {
		return ix.LeafZoom()
	}
	return z
}

func (ix *Index) levelAt(z int) level {
	switch {
	case z < ix.opts.MinZoom:
		z = ix.opts.MinZoom
	case z > ix.LeafZoom():
		z = ix.LeafZoom()
	}
	return ix.levels[z-ix.opts.MinZoom]
}

// ClusterNodesFor returns the nodes representing every location at zoom z,
// ordered by id. Each location is covered by exactly one node. The slice is
// shared and must not be modified.
func (ix *Index) ClusterNodesFor(z int) []domain.Node {
	return ix.levelAt(z).nodes
}

// ClusterByID returns the cluster with the given id.
func (ix *Index) ClusterByID(id string) (domain.ClusterNode, bool) {
	c, ok := ix.clusters[id]
	if !ok {
		return domain.ClusterNode{}, false
	}
	return *c, true
}

// MinZoomForLocation returns the lowest zoom at which the location is still
// shown as itself.
func (ix *Index) MinZoomForLocation(id string) (int, bool) {
	z, ok := ix.minZoom[id]
	return z, ok
}

// FindClusterFor returns the id of the node representing id at zoom z. For a
// location this is itself or the cluster that absorbed it. For a cluster it is
// the cluster or its ancestor; a cluster asked for above the zoom it was
// formed at has no representative.
func (ix *Index) FindClusterFor(id string, z int) (string, bool) {
	lv := ix.levelAt(z)
	if _, ok := ix.locations[id]; ok {
		return lv.repr[id], true
	}
	c, ok := ix.clusters[id]
	if !ok || z > c.Zoom {
		return "", false
	}
	return lv.repr[ix.seedOf(c)], true
}

// IsRepresentative reports whether id is shown as itself at zoom z.
func (ix *Index) IsRepresentative(id string, z int) bool {
	if c, ok := ix.clusters[id]; ok {
		return c.MinZoom <= z && z <= c.Zoom
	}
	minZoom, ok := ix.minZoom[id]
	return ok && minZoom <= ix.clampZoom(z)
}

func (ix *Index) clampZoom(z int) int {
	if z > ix.LeafZoom() {
		return ix.LeafZoom()
	}
	return z
}

// seedOf returns any leaf of the cluster; all leaves share ancestors.
func (ix *Index) seedOf(c *domain.ClusterNode) string {
	for {
		child := c.Children[0]
		next, ok := ix.clusters[child]
		if !ok {
			return child
		}
		c = next
	}
}

// Leaves returns the location ids a cluster stands for, sorted.
func (ix *Index) Leaves(clusterID string) []string {
	c, ok := ix.clusters[clusterID]
	if !ok {
		return nil
	}
	var out []string
	stack := append([]string(nil), c.Children...)
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if child, ok := ix.clusters[id]; ok {
			stack = append(stack, child.Children...)
			continue
		}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// LocationCount is the number of valid locations in the index.
func (ix *Index) LocationCount() int { return len(ix.locations) }

// LevelStats summarises one zoom level.
type LevelStats struct {
	Zoom     int `json:"zoom"`
	Nodes    int `json:"nodes"`
	Clusters int `json:"clusters"`
}

// Stats returns node counts for every level, lowest zoom first.
func (ix *Index) Stats() []LevelStats {
	stats := make([]LevelStats, len(ix.levels))
	for i, lv := range ix.levels {
		s := LevelStats{Zoom: ix.opts.MinZoom + i, Nodes: len(lv.nodes)}
		for _, n := range lv.nodes {
			if n.IsCluster() {
				s.Clusters++
			}
		}
		stats[i] = s
	}
	return stats
}
