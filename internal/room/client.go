package room

import "finnie/internal/app"

// Outbound is one server-to-player envelope. Exactly one of the payload
// groups is populated, keyed by Type.
type Outbound struct {
	Type      string        `json:"type"`
	Message   string        `json:"message,omitempty"`
	Seat      *int          `json:"seat,omitempty"`
	RoomID    string        `json:"roomId,omitempty"`
	State     *app.Snapshot `json:"state,omitempty"`
	Occupancy []int         `json:"occupancy,omitempty"`
}

// Client is a player's outbound channel, owned by the transport. Deliver may
// be called only from the room's own goroutine; a returned error means the
// peer is gone and the room treats it as an implicit leave.
type Client interface {
	Deliver(msg Outbound) error
}
