package interaction

import (
	"encoding/json"
	"fmt"

	"github.com/couchcryptid/flowmap-core/internal/domain"
)

// EventType names a raw UI event.
type EventType string

const (
	EventHover           EventType = "hover"
	EventClick           EventType = "click"
	EventKeyDown         EventType = "keydown"
	EventViewState       EventType = "view_state"
	EventZoomIn          EventType = "zoom_in"
	EventZoomOut         EventType = "zoom_out"
	EventMouseLeave      EventType = "mouse_leave"
	EventSelectLocations EventType = "select_locations"
	EventClearSelection  EventType = "clear_selection"
	EventFullscreen      EventType = "fullscreen"
)

// Event is a raw UI event as posted by a client.
type Event struct {
	Type        EventType         `json:"type"`
	Pick        PickInfo          `json:"pick"`
	Shift       bool              `json:"shift,omitempty"`
	Key         string            `json:"key,omitempty"`
	ViewState   *domain.ViewState `json:"view_state,omitempty"`
	LocationIDs []string          `json:"location_ids,omitempty"`
}

// ParseEvent decodes an event.
func ParseEvent(data []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(data, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return e, nil
}

// Handle routes e to the matching handler. Fullscreen requests have no
// effect here; the host environment may not support them.
func (c *Coordinator) Handle(e Event) error {
	switch e.Type {
	case EventHover:
		return c.Hover(e.Pick)
	case EventClick:
		return c.Click(e.Pick, e.Shift)
	case EventKeyDown:
		return c.KeyDown(e.Key)
	case EventViewState:
		if e.ViewState == nil {
			return fmt.Errorf("%s event without view_state", e.Type)
		}
		return c.ViewStateChange(*e.ViewState)
	case EventZoomIn:
		return c.ZoomIn()
	case EventZoomOut:
		return c.ZoomOut()
	case EventMouseLeave:
		return c.MouseLeave()
	case EventSelectLocations:
		return c.SelectLocations(e.LocationIDs)
	case EventClearSelection:
		return c.KeyDown("Escape")
	case EventFullscreen:
		c.logger.Debug("fullscreen is not available, ignoring request")
		return nil
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
}
