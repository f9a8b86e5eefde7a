// Package geo holds the web-mercator math shared by clustering, picking and
// viewport fitting.
package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// TileSize is the width in pixels of the world at zoom 0.
const TileSize = 512

// worldMeters is the width of the pseudo-mercator plane.
const worldMeters = 2 * orb.EarthRadius * math.Pi

// ProjectX maps a longitude to normalised mercator x in [0, 1].
func ProjectX(lon float64) float64 {
	return project.WGS84.ToMercator(orb.Point{lon, 0}).X()/worldMeters + 0.5
}

// ProjectY maps a latitude to normalised mercator y in [0, 1], with 0 at the
// north edge. Latitudes beyond the mercator limit are clamped.
func ProjectY(lat float64) float64 {
	y := 0.5 - project.WGS84.ToMercator(orb.Point{0, lat}).Y()/worldMeters
	return math.Max(0, math.Min(1, y))
}

// UnprojectX is the inverse of ProjectX.
func UnprojectX(x float64) float64 {
	return project.Mercator.ToWGS84(orb.Point{(x - 0.5) * worldMeters, 0}).Lon()
}

// UnprojectY is the inverse of ProjectY.
func UnprojectY(y float64) float64 {
	return project.Mercator.ToWGS84(orb.Point{0, (0.5 - y) * worldMeters}).Lat()
}
