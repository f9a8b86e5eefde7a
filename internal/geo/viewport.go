package geo

import (
	"math"

	"github.com/couchcryptid/flowmap-core/internal/domain"
	"github.com/paulmach/orb"
)

const (
	// DefaultFitPadding is the share of each viewport side kept free when
	// fitting locations.
	DefaultFitPadding = 0.1
	// MaxFitZoom caps the zoom chosen for tightly packed or single locations.
	MaxFitZoom = 12
)

// Viewport is a view state rendered onto a screen of a given size.
type Viewport struct {
	domain.ViewState
	Width  float64
	Height float64
}

func (v Viewport) worldSize() float64 {
	return TileSize * math.Pow(2, v.Zoom)
}

// Project converts a coordinate to screen pixels relative to the top-left
// corner. Pitch and bearing are not applied.
func (v Viewport) Project(lon, lat float64) (x, y float64) {
	ws := v.worldSize()
	x = (ProjectX(lon)-ProjectX(v.Longitude))*ws + v.Width/2
	y = (ProjectY(lat)-ProjectY(v.Latitude))*ws + v.Height/2
	return x, y
}

// Unproject converts screen pixels back to a coordinate.
func (v Viewport) Unproject(x, y float64) (lon, lat float64) {
	ws := v.worldSize()
	lon = UnprojectX(ProjectX(v.Longitude) + (x-v.Width/2)/ws)
	lat = UnprojectY(ProjectY(v.Latitude) + (y-v.Height/2)/ws)
	return lon, lat
}

// FitBounds returns the view state that shows every point inside a
// width×height screen, leaving pad (a fraction of each side) free. With no
// points it falls back to zoom 1 over 0,0.
func FitBounds(points []orb.Point, width, height, pad float64) domain.ViewState {
	if len(points) == 0 || width <= 0 || height <= 0 {
		return domain.ViewState{Zoom: 1}
	}

	b := orb.MultiPoint(points).Bound()
	minX, maxX := ProjectX(b.Min.Lon()), ProjectX(b.Max.Lon())
	minY, maxY := ProjectY(b.Max.Lat()), ProjectY(b.Min.Lat())

	vs := domain.ViewState{
		Longitude: UnprojectX((minX + maxX) / 2),
		Latitude:  UnprojectY((minY + maxY) / 2),
		Zoom:      MaxFitZoom,
	}

	availW := width * (1 - 2*pad)
	availH := height * (1 - 2*pad)
	dx, dy := (maxX-minX)*TileSize, (maxY-minY)*TileSize
	scale := math.Inf(1)
	if dx > 0 {
		scale = availW / dx
	}
	if dy > 0 {
		scale = math.Min(scale, availH/dy)
	}
	if !math.IsInf(scale, 1) {
		vs.Zoom = math.Min(math.Log2(scale), MaxFitZoom)
	}
	vs.Zoom = domain.ClampZoom(vs.Zoom)
	return vs
}

// NodePoints collects the centroids of nodes.
func NodePoints[N domain.Node](nodes []N) []orb.Point {
	points := make([]orb.Point, len(nodes))
	for i, n := range nodes {
		points[i] = n.Centroid()
	}
	return points
}
