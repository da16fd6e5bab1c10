package event

import "encoding/json"

// Live event types pushed to viewer connections. Events are transient:
// they exist only on the wire, never in storage.
const (
	TypeMessageCreated  = "message-created"
	TypeReactionAdded   = "reaction-added"
	TypeReactionRemoved = "reaction-removed"
	TypeProfileUpdated  = "profile-updated"
)

// Event is the frame pushed over a viewer connection. Payload carries the
// full denormalized payload so viewers can update without a re-fetch.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func New(eventType string, payload any) Event {
	return Event{Type: eventType, Payload: payload}
}

func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}
