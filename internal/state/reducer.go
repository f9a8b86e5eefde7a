package state

import (
	"fmt"
	"slices"

	"github.com/couchcryptid/flowmap-core/internal/domain"
)

// Reduce applies one action and returns the next snapshot. It is pure and
// total over the action set; an action of an unknown type is a programming
// error and panics.
func Reduce(s State, a Action) State {
	switch a := a.(type) {
	case SetViewState:
		s.ViewState = a.ViewState
		s.Highlight = nil
		s.Tooltip = nil
	case SetHighlight:
		s.Highlight = a.Highlight
	case SetTooltip:
		s.Tooltip = a.Tooltip
	case ClearSelection:
		s.SelectedLocations = nil
		s.Highlight = nil
		s.Tooltip = nil
	case SelectLocation:
		s.SelectedLocations = selectLocation(s.SelectedLocations, a.LocationID, a.Incremental)
		s.Highlight = nil
		s.Tooltip = nil
	case SetSelectedLocations:
		s.SelectedLocations = normalizeSelection(a.LocationIDs)
		s.Highlight = nil
		s.Tooltip = nil
	case SetClusteringEnabled:
		s.ClusteringEnabled = a.Enabled
	case ToggleClustering:
		s.ClusteringEnabled = !s.ClusteringEnabled
	case SetAnimationEnabled:
		s.AnimationEnabled = a.Enabled
	case SetLocationTotalsEnabled:
		s.LocationTotalsEnabled = a.Enabled
	case SetAdjustViewportToLocations:
		s.AdjustViewportToLocations = a.Enabled
	case SetDarkMode:
		s.DarkMode = a.Enabled
	case SetFadeAmount:
		s.FadeAmount = a.FadeAmount
	case SetColorScheme:
		s.ColorSchemeKey = a.ColorSchemeKey
	case ZoomIn:
		s.ViewState.Zoom = domain.ClampZoom(s.ViewState.Zoom + ZoomStep)
	case ZoomOut:
		s.ViewState.Zoom = domain.ClampZoom(s.ViewState.Zoom - ZoomStep)
	default:
		panic(fmt.Sprintf("state: unknown action %T", a))
	}
	return s
}

func selectLocation(current []string, id string, incremental bool) []string {
	if !incremental {
		return []string{id}
	}
	if i := slices.Index(current, id); i >= 0 {
		next := slices.Delete(slices.Clone(current), i, i+1)
		if len(next) == 0 {
			return nil
		}
		return next
	}
	next := make([]string, len(current), len(current)+1)
	copy(next, current)
	return append(next, id)
}

// normalizeSelection copies ids dropping duplicates; empty becomes nil.
func normalizeSelection(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
