package interaction

import (
	"fmt"

	"github.com/couchcryptid/flowmap-core/internal/domain"
)

// PickKind is the kind of object under the pointer.
type PickKind int

const (
	PickNone PickKind = iota
	PickFlow
	PickLocation
	// PickLocationArea is the clickable area around a location circle.
	PickLocationArea
)

var pickKindNames = map[PickKind]string{
	PickNone:         "none",
	PickFlow:         "flow",
	PickLocation:     "location",
	PickLocationArea: "location_area",
}

func (k PickKind) String() string {
	if name, ok := pickKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("PickKind(%d)", int(k))
}

func (k PickKind) MarshalText() ([]byte, error) {
	name, ok := pickKindNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown pick kind %d", int(k))
	}
	return []byte(name), nil
}

func (k *PickKind) UnmarshalText(text []byte) error {
	for kind, name := range pickKindNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown pick kind %q", text)
}

// PickInfo is a picking result reported by the renderer. Flow is set for
// PickFlow and LocationID for the location kinds; a nil or empty object means
// the pointer is over the layer but not over an object.
type PickInfo struct {
	Kind         PickKind     `json:"kind"`
	Flow         *domain.Flow `json:"flow,omitempty"`
	LocationID   string       `json:"location_id,omitempty"`
	X            float64      `json:"x"`
	Y            float64      `json:"y"`
	CircleRadius float64      `json:"circle_radius,omitempty"`
}
