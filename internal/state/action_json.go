package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/couchcryptid/flowmap-core/internal/domain"
)

// ErrUnknownAction is returned by ParseAction for unsupported action types.
var ErrUnknownAction = errors.New("unknown action type")

type actionJSON struct {
	Type           ActionType        `json:"type"`
	ViewState      *domain.ViewState `json:"view_state"`
	LocationID     string            `json:"location_id"`
	LocationIDs    []string          `json:"location_ids"`
	Incremental    bool              `json:"incremental"`
	Enabled        *bool             `json:"enabled"`
	FadeAmount     *float64          `json:"fade_amount"`
	ColorSchemeKey *string           `json:"color_scheme_key"`
	Highlight      *highlightJSON    `json:"highlight"`
}

type highlightJSON struct {
	Type       string `json:"type"`
	LocationID string `json:"location_id"`
	Origin     string `json:"origin"`
	Dest       string `json:"dest"`
}

// ParseAction decodes an action posted by an external widget such as the
// settings panel or the search box. Tooltips are owned by the interaction
// layer and cannot be set this way.
func ParseAction(data []byte) (Action, error) {
	var raw actionJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode action: %w", err)
	}

	switch raw.Type {
	case ActionSetViewState:
		if raw.ViewState == nil {
			return nil, missing(raw.Type, "view_state")
		}
		vs := *raw.ViewState
		vs.Zoom = domain.ClampZoom(vs.Zoom)
		return SetViewState{ViewState: vs}, nil
	case ActionSetHighlight:
		h, err := raw.Highlight.highlight()
		if err != nil {
			return nil, err
		}
		return SetHighlight{Highlight: h}, nil
	case ActionClearSelection:
		return ClearSelection{}, nil
	case ActionSelectLocation:
		if raw.LocationID == "" {
			return nil, missing(raw.Type, "location_id")
		}
		return SelectLocation{LocationID: raw.LocationID, Incremental: raw.Incremental}, nil
	case ActionSetSelectedLocations:
		return SetSelectedLocations{LocationIDs: raw.LocationIDs}, nil
	case ActionToggleClustering:
		return ToggleClustering{}, nil
	case ActionZoomIn:
		return ZoomIn{}, nil
	case ActionZoomOut:
		return ZoomOut{}, nil
	case ActionSetFadeAmount:
		if raw.FadeAmount == nil {
			return nil, missing(raw.Type, "fade_amount")
		}
		return SetFadeAmount{FadeAmount: *raw.FadeAmount}, nil
	case ActionSetColorScheme:
		if raw.ColorSchemeKey == nil {
			return nil, missing(raw.Type, "color_scheme_key")
		}
		return SetColorScheme{ColorSchemeKey: *raw.ColorSchemeKey}, nil
	case ActionSetClusteringEnabled, ActionSetAnimationEnabled, ActionSetLocationTotalsEnabled,
		ActionSetAdjustViewportToLocations, ActionSetDarkMode:
		if raw.Enabled == nil {
			return nil, missing(raw.Type, "enabled")
		}
		return toggleAction(raw.Type, *raw.Enabled), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, raw.Type)
	}
}

func toggleAction(t ActionType, enabled bool) Action {
	switch t {
	case ActionSetClusteringEnabled:
		return SetClusteringEnabled{Enabled: enabled}
	case ActionSetAnimationEnabled:
		return SetAnimationEnabled{Enabled: enabled}
	case ActionSetLocationTotalsEnabled:
		return SetLocationTotalsEnabled{Enabled: enabled}
	case ActionSetAdjustViewportToLocations:
		return SetAdjustViewportToLocations{Enabled: enabled}
	default:
		return SetDarkMode{Enabled: enabled}
	}
}

func (h *highlightJSON) highlight() (Highlight, error) {
	if h == nil {
		return nil, nil
	}
	switch h.Type {
	case "location":
		if h.LocationID == "" {
			return nil, missing(ActionSetHighlight, "highlight.location_id")
		}
		return LocationHighlight{LocationID: h.LocationID}, nil
	case "flow":
		if h.Origin == "" || h.Dest == "" {
			return nil, missing(ActionSetHighlight, "highlight.origin/dest")
		}
		return FlowHighlight{Origin: h.Origin, Dest: h.Dest}, nil
	default:
		return nil, fmt.Errorf("decode action: unknown highlight type %q", h.Type)
	}
}

func missing(t ActionType, field string) error {
	return fmt.Errorf("decode action %s: missing %s", t, field)
}
