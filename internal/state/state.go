// Package state owns the interaction state of a flow map: a value type, the
// closed set of actions that change it, a pure reducer, and the store that
// serialises dispatch.
package state

import (
	"encoding/json"
	"slices"

	"github.com/couchcryptid/flowmap-core/internal/domain"
)

// Default display settings.
const (
	DefaultColorScheme = "Default"
	DefaultFadeAmount  = 45
	DefaultZoom        = 1
	ZoomStep           = 1
)

// State is one immutable snapshot. Reducers return a new value and never
// modify slices of the previous one.
type State struct {
	ViewState domain.ViewState `json:"view_state"`
	// SelectedLocations is an ordered set; nil means nothing is selected.
	SelectedLocations []string  `json:"selected_locations,omitempty"`
	Highlight         Highlight `json:"highlight,omitempty"`
	Tooltip           *Tooltip  `json:"tooltip,omitempty"`

	ClusteringEnabled         bool    `json:"clustering_enabled"`
	AnimationEnabled          bool    `json:"animation_enabled"`
	LocationTotalsEnabled     bool    `json:"location_totals_enabled"`
	DarkMode                  bool    `json:"dark_mode"`
	AdjustViewportToLocations bool    `json:"adjust_viewport_to_locations"`
	ColorSchemeKey            string  `json:"color_scheme_key"`
	FadeAmount                float64 `json:"fade_amount"`
}

// Defaults is the state before any configuration or query is applied.
func Defaults() State {
	return State{
		ViewState:                 domain.ViewState{Zoom: DefaultZoom},
		ClusteringEnabled:         true,
		LocationTotalsEnabled:     true,
		DarkMode:                  true,
		AdjustViewportToLocations: true,
		ColorSchemeKey:            DefaultColorScheme,
		FadeAmount:                DefaultFadeAmount,
	}
}

// IsSelected reports whether id is in the selection.
func (s State) IsSelected(id string) bool {
	return slices.Contains(s.SelectedLocations, id)
}

// Highlight is the hovered element. A nil Highlight means nothing is hovered.
type Highlight interface {
	isHighlight()
}

// LocationHighlight highlights a location or a cluster.
type LocationHighlight struct {
	LocationID string
}

// FlowHighlight highlights the flow between two nodes.
type FlowHighlight struct {
	Origin string
	Dest   string
}

func (LocationHighlight) isHighlight() {}
func (FlowHighlight) isHighlight()     {}

func (h LocationHighlight) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"type": "location", "location_id": h.LocationID})
}

func (h FlowHighlight) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"type": "flow", "origin": h.Origin, "dest": h.Dest})
}

// Bounds is a screen rectangle in pixels.
type Bounds struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Placement positions a tooltip relative to its target.
type Placement string

const (
	PlacementTop    Placement = "top"
	PlacementBottom Placement = "bottom"
	PlacementLeft   Placement = "left"
	PlacementRight  Placement = "right"
)

// Tooltip is a hover popover anchored at a screen rectangle.
type Tooltip struct {
	Target    Bounds         `json:"target"`
	Placement Placement      `json:"placement"`
	Content   TooltipContent `json:"content"`
}

// TooltipContent describes what a tooltip shows.
type TooltipContent interface {
	isTooltipContent()
}

// FlowTooltipContent describes a hovered flow.
type FlowTooltipContent struct {
	Origin     string  `json:"origin"`
	OriginName string  `json:"origin_name"`
	Dest       string  `json:"dest"`
	DestName   string  `json:"dest_name"`
	Count      float64 `json:"count"`
}

// LocationTooltipContent describes a hovered location or cluster.
type LocationTooltipContent struct {
	LocationID string        `json:"location_id"`
	Name       string        `json:"name"`
	Totals     domain.Totals `json:"totals"`
}

func (FlowTooltipContent) isTooltipContent()     {}
func (LocationTooltipContent) isTooltipContent() {}
