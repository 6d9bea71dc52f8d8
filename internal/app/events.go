package app

// EventKind identifies emitted room events for transport dispatch.
type EventKind string

const (
	// EventJoined confirms a seat assignment to the joining player.
	EventJoined EventKind = "joined"
	// EventGameState carries the full match state after an accepted mutation.
	EventGameState EventKind = "gameState"
	// EventRedealScheduled instructs the room runner to replay startGame
	// after the configured delay. It is never sent to players.
	EventRedealScheduled EventKind = "redealScheduled"
)

// Event is a room event with optional targeted recipients.
type Event struct {
	Kind       EventKind
	Payload    any
	Recipients []int // seat indices; empty means broadcast
}

// JoinedPayload confirms the seat and room to a newly joined player.
type JoinedPayload struct {
	Seat      int       `json:"seat"`
	RoomID    string    `json:"roomId"`
	State     *Snapshot `json:"state"`
	Occupancy []int     `json:"occupancy"`
}

// GameStatePayload is the broadcast state plus the occupied seat set.
type GameStatePayload struct {
	State     *Snapshot `json:"state"`
	Occupancy []int     `json:"occupancy"`
}
