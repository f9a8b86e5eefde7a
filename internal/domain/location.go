package domain

import (
	"math"

	"github.com/paulmach/orb"
)

// Location is a named point that flows start or end at.
type Location struct {
	ID   string  `json:"id"`
	Name string  `json:"name,omitempty"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

// Flow is a movement magnitude between two locations.
type Flow struct {
	Origin string  `json:"origin"`
	Dest   string  `json:"dest"`
	Count  float64 `json:"count"`
}

// ClusterNode is a synthetic location standing for one or more merged locations.
type ClusterNode struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`

	// Zoom is the level the cluster was formed at, the highest zoom it is shown at.
	Zoom int `json:"zoom"`
	// MinZoom is the lowest zoom the cluster is still shown as itself.
	MinZoom int `json:"min_zoom"`

	Children  []string `json:"children"`
	LeafCount int      `json:"leaf_count"`
}

// Node is a location or a cluster as seen by the rendering layer.
type Node interface {
	NodeID() string
	NodeName() string
	Centroid() orb.Point
	IsCluster() bool
}

func (l Location) NodeID() string { return l.ID }

// NodeName falls back to the id for unnamed locations.
func (l Location) NodeName() string {
	if l.Name != "" {
		return l.Name
	}
	return l.ID
}

func (l Location) Centroid() orb.Point { return orb.Point{l.Lon, l.Lat} }
func (l Location) IsCluster() bool     { return false }

// Valid reports whether the coordinates are finite and within WGS-84 bounds.
func (l Location) Valid() bool {
	if math.IsNaN(l.Lat) || math.IsNaN(l.Lon) || math.IsInf(l.Lat, 0) || math.IsInf(l.Lon, 0) {
		return false
	}
	return l.Lat >= -90 && l.Lat <= 90 && l.Lon >= -180 && l.Lon <= 180
}

func (c ClusterNode) NodeID() string      { return c.ID }
func (c ClusterNode) NodeName() string    { return c.Name }
func (c ClusterNode) Centroid() orb.Point { return orb.Point{c.Lon, c.Lat} }
func (c ClusterNode) IsCluster() bool     { return true }

// HasNegativeCounts reports whether any flow encodes a decrease.
func HasNegativeCounts(flows []Flow) bool {
	for _, f := range flows {
		if f.Count < 0 {
			return true
		}
	}
	return false
}

// Totals are the summed flow magnitudes touching one node.
type Totals struct {
	Incoming float64 `json:"incoming"`
	Outgoing float64 `json:"outgoing"`
	Within   float64 `json:"within"`
}
