package integration

import (
	"context"
	"math/rand"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"finnie/internal/app"
	"finnie/internal/ports/ws"
	"finnie/internal/room"
)

// StartServer boots the full stack in-process: service, registry and
// websocket transport behind an httptest listener.
func StartServer(t *testing.T, seed int64) *httptest.Server {
	t.Helper()
	svc := app.NewService(rand.New(rand.NewSource(seed)))
	reg := room.NewRegistry(svc, zap.NewNop(), 20*time.Millisecond)
	srv := ws.NewServer(reg, zap.NewNop(), 2*time.Second)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

// TestClient is one seated player: a websocket connection plus a pump that
// tracks the latest broadcast state.
type TestClient struct {
	t    *testing.T
	conn *websocket.Conn
	ctx  context.Context
	seat int

	mu     sync.Mutex
	cond   *sync.Cond
	latest room.Outbound
	rev    int
	errs   []string
	joined bool
}

// Connect dials the server and seats the client.
func Connect(t *testing.T, ts *httptest.Server, roomID string, seat int, mode string) *TestClient {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	t.Cleanup(cancel)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })

	c := &TestClient{t: t, conn: conn, ctx: ctx, seat: seat}
	c.cond = sync.NewCond(&c.mu)
	go c.pump()

	c.send(map[string]any{"type": "joinRoom", "roomId": roomID, "seat": seat, "mode": mode})
	c.wait(func(c *TestClient) bool { return c.joined }, "join confirmation")
	return c
}

func (c *TestClient) pump() {
	for {
		var msg room.Outbound
		if err := wsjson.Read(c.ctx, c.conn, &msg); err != nil {
			return
		}
		c.mu.Lock()
		switch msg.Type {
		case "joined":
			c.joined = true
			c.latest = msg
		case "gameState":
			c.latest = msg
			c.rev++
		case "error":
			c.errs = append(c.errs, msg.Message)
		}
		c.cond.Broadcast()
		c.mu.Unlock()
	}
}

func (c *TestClient) send(v any) {
	c.t.Helper()
	if err := wsjson.Write(c.ctx, c.conn, v); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

// Act sends one playerAction envelope.
func (c *TestClient) Act(action map[string]any) {
	c.t.Helper()
	c.send(map[string]any{"type": "playerAction", "action": action})
}

// wait blocks until pred holds over the client's tracked state.
func (c *TestClient) wait(pred func(*TestClient) bool, what string) {
	c.t.Helper()
	deadline := time.Now().Add(10 * time.Second)

	c.mu.Lock()
	defer c.mu.Unlock()
	for !pred(c) {
		if time.Now().After(deadline) {
			c.t.Fatalf("timed out waiting for %s (last state %+v, errors %v)", what, c.latest.State, c.errs)
		}
		// Poll; cond.Wait has no deadline and a missed broadcast would hang
		// the test forever.
		c.mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		c.mu.Lock()
	}
}

// WaitPhase blocks until the given phase is broadcast and returns the
// snapshot.
func (c *TestClient) WaitPhase(phase string) *app.Snapshot {
	c.t.Helper()
	c.wait(func(c *TestClient) bool {
		return c.latest.State != nil && string(c.latest.State.Phase) == phase
	}, "phase "+phase)
	return c.snapshot()
}

// WaitTurn blocks until it is this client's turn in the given phase.
func (c *TestClient) WaitTurn(phase string) *app.Snapshot {
	c.t.Helper()
	c.wait(func(c *TestClient) bool {
		return c.latest.State != nil &&
			string(c.latest.State.Phase) == phase &&
			c.latest.State.CurrentSeat == c.seat
	}, "turn in "+phase)
	return c.snapshot()
}

// Rev returns how many gameState broadcasts have arrived.
func (c *TestClient) Rev() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rev
}

// WaitRevAbove blocks until a broadcast newer than rev arrives and returns
// the snapshot.
func (c *TestClient) WaitRevAbove(rev int) *app.Snapshot {
	c.t.Helper()
	c.wait(func(c *TestClient) bool { return c.rev > rev }, "next broadcast")
	return c.snapshot()
}

func (c *TestClient) snapshot() *app.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.latest.State
}

// Errors returns the direct error notices received so far.
func (c *TestClient) Errors() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string{}, c.errs...)
}
