package ws

import (
	"context"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"finnie/internal/room"
)

// client adapts one websocket connection to the room.Client contract. Writes
// race between the read loop (direct error notices) and the room goroutine
// (broadcasts); the websocket package serializes them internally.
type client struct {
	conn    *websocket.Conn
	timeout time.Duration
}

func newClient(conn *websocket.Conn, timeout time.Duration) *client {
	return &client{conn: conn, timeout: timeout}
}

// Deliver writes one envelope with a bounded deadline so a stalled peer
// surfaces as an error instead of wedging the room.
func (c *client) Deliver(msg room.Outbound) error {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	return wsjson.Write(ctx, c.conn, msg)
}

func (c *client) deliverError(text string) {
	_ = c.Deliver(room.Outbound{Type: "error", Message: text})
}
