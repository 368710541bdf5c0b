package portal

// EventType names an outbound event as it appears in the wire payload's
// "type" key.
type EventType string

const (
	EventLikeButton     EventType = "LIKE_BUTTON"
	EventMessageButton  EventType = "MESSAGE_BUTTON"
	EventMapToggle      EventType = "MAP_TOGGLE"
	EventMetadataToggle EventType = "METADATA_TOGGLE"
	EventZoomDial       EventType = "ZOOM_DIAL"
)

// Switch state values reported for toggle inputs.
const (
	SwitchOn  = "ON"
	SwitchOff = "OFF"
)

// Event is one outbound record. Value is nil for bare edge events, a switch
// state string for value-carrying toggles and a float64 for the dial.
// Events are immutable once constructed and serialized exactly once per
// emission, by the broadcast worker.
type Event struct {
	Type  EventType `json:"type"`
	Value any       `json:"value,omitempty"`
}
