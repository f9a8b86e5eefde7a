package pipeline

import (
	"strconv"
	"strings"

	"github.com/couchcryptid/flowmap-core/internal/domain"
	"github.com/couchcryptid/flowmap-core/internal/state"
)

// Layer rendering constants.
const (
	MaxLocationCircleSize = 15
	ShowOnlyTopFlows      = 10000
)

// LayerSpec is everything the renderer needs to draw the flow map layer.
type LayerSpec struct {
	ID                   string                   `json:"id"`
	Locations            []domain.Node            `json:"locations"`
	Flows                []domain.Flow            `json:"flows"`
	LocationTotals       map[string]domain.Totals `json:"location_totals,omitempty"`
	SelectedLocationIDs  []string                 `json:"selected_location_ids,omitempty"`
	HighlightedLocation  string                   `json:"highlighted_location_id,omitempty"`
	HighlightedFlow      *state.FlowHighlight     `json:"highlighted_flow,omitempty"`
	Animate              bool                     `json:"animate"`
	AnimationCurrentTime float64                  `json:"animation_current_time"`
	DiffMode             bool                     `json:"diff_mode"`
	DarkMode             bool                     `json:"dark_mode"`
	ColorSchemeKey       string                   `json:"color_scheme_key"`
	FadeAmount           float64                  `json:"fade_amount"`
	MaxLocationCircle    float64                  `json:"max_location_circle_size"`
	ShowOnlyTopFlows     int                      `json:"show_only_top_flows"`
	ClusterZoom          *int                     `json:"cluster_zoom,omitempty"`
	MapStyle             string                   `json:"map_style"`
}

// LayerID identifies a layer configuration so the renderer recreates the
// layer when any of its static parameters change.
func LayerID(s state.State) string {
	mode := "arrows"
	if s.AnimationEnabled {
		mode = "animated"
	}
	totals := ""
	if s.LocationTotalsEnabled {
		totals = "withTotals"
	}
	theme := "light"
	if s.DarkMode {
		theme = "dark"
	}
	return strings.Join([]string{
		"flow-map",
		mode,
		totals,
		s.ColorSchemeKey,
		theme,
		strconv.FormatFloat(s.FadeAmount, 'f', -1, 64),
	}, "-")
}

// Layers assembles the layer for s. The second result is false while the
// data or the cluster index is not ready.
func (p *Pipeline) Layers(s state.State, animationTime float64) (LayerSpec, bool) {
	nodes, ok := p.ClusterNodes(s)
	if !ok {
		return LayerSpec{}, false
	}
	agg, ok := p.Aggregation(s)
	if !ok {
		return LayerSpec{}, false
	}

	spec := LayerSpec{
		ID:                  LayerID(s),
		Locations:           nodes,
		Flows:               agg.Flows,
		SelectedLocationIDs: p.ExpandedSelection(s),
		Animate:             s.AnimationEnabled,
		DiffMode:            p.DiffMode(),
		DarkMode:            s.DarkMode,
		ColorSchemeKey:      s.ColorSchemeKey,
		FadeAmount:          s.FadeAmount,
		ShowOnlyTopFlows:    ShowOnlyTopFlows,
		MapStyle:            p.MapStyle(s),
	}
	if s.AnimationEnabled {
		spec.AnimationCurrentTime = animationTime
	}
	if s.LocationTotalsEnabled {
		spec.MaxLocationCircle = MaxLocationCircleSize
		spec.LocationTotals, _ = p.LocationTotals(s)
	}
	if s.ClusteringEnabled {
		z := agg.Zoom
		spec.ClusterZoom = &z
	}

	switch h := p.HighlightForZoom(s).(type) {
	case state.LocationHighlight:
		spec.HighlightedLocation = h.LocationID
	case state.FlowHighlight:
		spec.HighlightedFlow = &h
	}
	return spec, true
}
