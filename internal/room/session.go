package room

import "github.com/google/uuid"

// Session is the handle a player receives at join time. Every later action
// must present it; seat identity is never inferred from the transport
// connection.
type Session struct {
	ID     string
	RoomID string
	Seat   int
}

func newSession(roomID string, seat int) *Session {
	return &Session{ID: uuid.NewString(), RoomID: roomID, Seat: seat}
}
