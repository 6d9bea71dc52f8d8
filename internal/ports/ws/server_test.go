package ws

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"finnie/internal/app"
	"finnie/internal/room"
)

func startServer(t *testing.T) *httptest.Server {
	t.Helper()
	svc := app.NewService(rand.New(rand.NewSource(1)))
	reg := room.NewRegistry(svc, zap.NewNop(), 10*time.Millisecond)
	srv := NewServer(reg, zap.NewNop(), time.Second)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

type testConn struct {
	t    *testing.T
	conn *websocket.Conn
	ctx  context.Context
}

func dial(t *testing.T, ts *httptest.Server) *testConn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return &testConn{t: t, conn: conn, ctx: ctx}
}

func (c *testConn) send(v any) {
	c.t.Helper()
	if err := wsjson.Write(c.ctx, c.conn, v); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

func (c *testConn) recv() room.Outbound {
	c.t.Helper()
	var msg room.Outbound
	if err := wsjson.Read(c.ctx, c.conn, &msg); err != nil {
		c.t.Fatalf("read: %v", err)
	}
	return msg
}

// recvType reads until the given envelope type arrives, skipping interleaved
// broadcasts.
func (c *testConn) recvType(typ string) room.Outbound {
	c.t.Helper()
	for i := 0; i < 20; i++ {
		msg := c.recv()
		if msg.Type == typ {
			return msg
		}
	}
	c.t.Fatalf("no %q envelope arrived", typ)
	return room.Outbound{}
}

func TestHealthz(t *testing.T) {
	ts := startServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d, want 200", resp.StatusCode)
	}
}

func TestJoinAndStartGame(t *testing.T) {
	ts := startServer(t)

	seat0 := dial(t, ts)
	seat0.send(map[string]any{"type": "joinRoom", "roomId": "t", "seat": 0, "mode": "2-player"})

	joined := seat0.recvType("joined")
	if joined.Seat == nil || *joined.Seat != 0 || joined.RoomID != "t" {
		t.Fatalf("joined envelope %+v", joined)
	}
	if joined.State.Phase != "waiting" {
		t.Fatalf("phase %s, want waiting", joined.State.Phase)
	}

	seat1 := dial(t, ts)
	seat1.send(map[string]any{"type": "joinRoom", "roomId": "t", "seat": 1, "mode": "2-player"})
	seat1.recvType("joined")

	// Both hear the table fill.
	full := seat0.recvType("gameState")
	for full.State.Phase != "setup" {
		full = seat0.recvType("gameState")
	}
	if len(full.Occupancy) != 2 {
		t.Fatalf("occupancy %v, want both seats", full.Occupancy)
	}

	seat0.send(map[string]any{"type": "playerAction", "action": map[string]any{"type": "startGame"}})
	state := seat1.recvType("gameState")
	for state.State.Phase != "bidding" {
		state = seat1.recvType("gameState")
	}
	if len(state.State.Players[0].Cards) != 9 {
		t.Fatalf("dealt %d cards, want 9", len(state.State.Players[0].Cards))
	}

	// Dealer 0 means seat 1 opens; seat 0 acting now is out of turn.
	seat0.send(map[string]any{"type": "playerAction", "action": map[string]any{"type": "bid", "bidAmount": 3}})
	if msg := seat0.recvType("error"); msg.Message != "It is not your turn" {
		t.Fatalf("error %q", msg.Message)
	}
}

func TestJoinRejections(t *testing.T) {
	ts := startServer(t)

	c := dial(t, ts)
	c.send(map[string]any{"type": "joinRoom", "roomId": "t", "seat": 5, "mode": "2-player"})
	if msg := c.recvType("error"); msg.Message != "Invalid player index" {
		t.Fatalf("error %q", msg.Message)
	}

	c.send(map[string]any{"type": "joinRoom", "roomId": "t", "seat": 0, "mode": "2-player"})
	c.recvType("joined")

	other := dial(t, ts)
	other.send(map[string]any{"type": "joinRoom", "roomId": "t", "seat": 0, "mode": "2-player"})
	if msg := other.recvType("error"); msg.Message != "Player slot already taken" {
		t.Fatalf("error %q", msg.Message)
	}

	mismatched := dial(t, ts)
	mismatched.send(map[string]any{"type": "joinRoom", "roomId": "t", "seat": 1, "mode": "4-player"})
	if msg := mismatched.recvType("error"); msg.Message != "Room was created with a different game mode" {
		t.Fatalf("error %q", msg.Message)
	}
}

func TestActionBeforeJoin(t *testing.T) {
	ts := startServer(t)
	c := dial(t, ts)

	c.send(map[string]any{"type": "playerAction", "action": map[string]any{"type": "startGame"}})
	if msg := c.recvType("error"); msg.Message != "Player not found in any room" {
		t.Fatalf("error %q", msg.Message)
	}
}

func TestMalformedEnvelope(t *testing.T) {
	ts := startServer(t)
	c := dial(t, ts)

	if err := c.conn.Write(c.ctx, websocket.MessageText, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if msg := c.recvType("error"); msg.Message != "Invalid message format" {
		t.Fatalf("error %q", msg.Message)
	}

	c.send(map[string]any{"type": "teleport"})
	if msg := c.recvType("error"); msg.Message != "Invalid message format" {
		t.Fatalf("error %q", msg.Message)
	}
}

func TestDisconnectFreesSeat(t *testing.T) {
	ts := startServer(t)

	a := dial(t, ts)
	a.send(map[string]any{"type": "joinRoom", "roomId": "t", "seat": 0, "mode": "2-player"})
	a.recvType("joined")

	b := dial(t, ts)
	b.send(map[string]any{"type": "joinRoom", "roomId": "t", "seat": 1, "mode": "2-player"})
	b.recvType("joined")

	b.conn.Close(websocket.StatusNormalClosure, "")

	// Seat 1 frees up once the server notices the closure.
	deadline := time.Now().Add(2 * time.Second)
	for {
		c := dial(t, ts)
		c.send(map[string]any{"type": "joinRoom", "roomId": "t", "seat": 1, "mode": "2-player"})
		msg := c.recv()
		if msg.Type == "joined" {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("seat never freed, last reply %+v", msg)
		}
		time.Sleep(20 * time.Millisecond)
	}
}
