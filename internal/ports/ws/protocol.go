package ws

import (
	"encoding/json"

	"finnie/internal/domain"
)

// inbound is one client-to-server envelope. joinRoom carries the room
// fields, playerAction wraps the action payload untouched for the app
// decoder.
type inbound struct {
	Type   string          `json:"type"`
	RoomID string          `json:"roomId"`
	Seat   *int            `json:"seat"`
	Mode   domain.Mode     `json:"mode"`
	Action json.RawMessage `json:"action"`
}
