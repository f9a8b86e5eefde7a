package domain

// Zoom limits shared by the map controller, the reducer and the cluster index.
const (
	MinZoomLevel = 0
	MaxZoomLevel = 20
)

// ViewState is the map camera.
type ViewState struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Zoom      float64 `json:"zoom"`
	Pitch     float64 `json:"pitch"`
	Bearing   float64 `json:"bearing"`
}

// ClampZoom limits z to [MinZoomLevel, MaxZoomLevel].
func ClampZoom(z float64) float64 {
	switch {
	case z < MinZoomLevel:
		return MinZoomLevel
	case z > MaxZoomLevel:
		return MaxZoomLevel
	default:
		return z
	}
}
