package state

import "github.com/couchcryptid/flowmap-core/internal/domain"

// ActionType names an action for logging, metrics and JSON decoding.
type ActionType string

const (
	ActionSetViewState                 ActionType = "SET_VIEW_STATE"
	ActionSetHighlight                 ActionType = "SET_HIGHLIGHT"
	ActionSetTooltip                   ActionType = "SET_TOOLTIP"
	ActionClearSelection               ActionType = "CLEAR_SELECTION"
	ActionSelectLocation               ActionType = "SELECT_LOCATION"
	ActionSetSelectedLocations         ActionType = "SET_SELECTED_LOCATIONS"
	ActionSetClusteringEnabled         ActionType = "SET_CLUSTERING_ENABLED"
	ActionToggleClustering             ActionType = "TOGGLE_CLUSTERING"
	ActionSetAnimationEnabled          ActionType = "SET_ANIMATION_ENABLED"
	ActionSetLocationTotalsEnabled     ActionType = "SET_LOCATION_TOTALS_ENABLED"
	ActionSetAdjustViewportToLocations ActionType = "SET_ADJUST_VIEWPORT_TO_LOCATIONS"
	ActionSetDarkMode                  ActionType = "SET_DARK_MODE"
	ActionSetFadeAmount                ActionType = "SET_FADE_AMOUNT"
	ActionSetColorScheme               ActionType = "SET_COLOR_SCHEME"
	ActionZoomIn                       ActionType = "ZOOM_IN"
	ActionZoomOut                      ActionType = "ZOOM_OUT"
)

// Action is a discrete intent applied by Reduce. The set is closed: only
// types in this package implement it.
type Action interface {
	Type() ActionType
	action()
}

type (
	// SetViewState replaces the viewport. Callers clamp the zoom.
	SetViewState struct{ ViewState domain.ViewState }
	// SetHighlight replaces the highlight; nil clears it.
	SetHighlight struct{ Highlight Highlight }
	// SetTooltip replaces the tooltip; nil clears it.
	SetTooltip struct{ Tooltip *Tooltip }
	// ClearSelection drops the selection, highlight and tooltip.
	ClearSelection struct{}
	// SelectLocation replaces the selection with one id, or toggles the id
	// when Incremental is set.
	SelectLocation struct {
		LocationID  string
		Incremental bool
	}
	// SetSelectedLocations replaces the selection; an empty list clears it.
	SetSelectedLocations struct{ LocationIDs []string }

	SetClusteringEnabled         struct{ Enabled bool }
	ToggleClustering             struct{}
	SetAnimationEnabled          struct{ Enabled bool }
	SetLocationTotalsEnabled     struct{ Enabled bool }
	SetAdjustViewportToLocations struct{ Enabled bool }
	SetDarkMode                  struct{ Enabled bool }
	SetFadeAmount                struct{ FadeAmount float64 }
	SetColorScheme               struct{ ColorSchemeKey string }
	ZoomIn                       struct{}
	ZoomOut                      struct{}
)

func (SetViewState) Type() ActionType                 { return ActionSetViewState }
func (SetHighlight) Type() ActionType                 { return ActionSetHighlight }
func (SetTooltip) Type() ActionType                   { return ActionSetTooltip }
func (ClearSelection) Type() ActionType               { return ActionClearSelection }
func (SelectLocation) Type() ActionType               { return ActionSelectLocation }
func (SetSelectedLocations) Type() ActionType         { return ActionSetSelectedLocations }
func (SetClusteringEnabled) Type() ActionType         { return ActionSetClusteringEnabled }
func (ToggleClustering) Type() ActionType             { return ActionToggleClustering }
func (SetAnimationEnabled) Type() ActionType          { return ActionSetAnimationEnabled }
func (SetLocationTotalsEnabled) Type() ActionType     { return ActionSetLocationTotalsEnabled }
func (SetAdjustViewportToLocations) Type() ActionType { return ActionSetAdjustViewportToLocations }
func (SetDarkMode) Type() ActionType                  { return ActionSetDarkMode }
func (SetFadeAmount) Type() ActionType                { return ActionSetFadeAmount }
func (SetColorScheme) Type() ActionType               { return ActionSetColorScheme }
func (ZoomIn) Type() ActionType                       { return ActionZoomIn }
func (ZoomOut) Type() ActionType                      { return ActionZoomOut }

func (SetViewState) action()                 {}
func (SetHighlight) action()                 {}
func (SetTooltip) action()                   {}
func (ClearSelection) action()               {}
func (SelectLocation) action()               {}
func (SetSelectedLocations) action()         {}
func (SetClusteringEnabled) action()         {}
func (ToggleClustering) action()             {}
func (SetAnimationEnabled) action()          {}
func (SetLocationTotalsEnabled) action()     {}
func (SetAdjustViewportToLocations) action() {}
func (SetDarkMode) action()                  {}
func (SetFadeAmount) action()                {}
func (SetColorScheme) action()               {}
func (ZoomIn) action()                       {}
func (ZoomOut) action()                      {}
