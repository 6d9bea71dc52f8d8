package room

import (
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"finnie/internal/app"
	"finnie/internal/domain"
)

// fakeClient records everything delivered to it; flipping fail makes every
// delivery error, simulating a dead peer.
type fakeClient struct {
	mu   sync.Mutex
	msgs []Outbound
	fail bool
}

func (c *fakeClient) Deliver(msg Outbound) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("peer gone")
	}
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *fakeClient) setFail(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail = v
}

func (c *fakeClient) last() (Outbound, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.msgs) == 0 {
		return Outbound{}, false
	}
	return c.msgs[len(c.msgs)-1], true
}

func (c *fakeClient) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.msgs)
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func newRegistry() *Registry {
	svc := app.NewService(rand.New(rand.NewSource(1)))
	return NewRegistry(svc, zap.NewNop(), 10*time.Millisecond)
}

func TestJoinCreatesRoomAndConfirms(t *testing.T) {
	reg := newRegistry()
	c := &fakeClient{}

	sess, err := reg.Join("table-1", 0, domain.ModeHeadsUp, c)
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if sess.ID == "" || sess.RoomID != "table-1" || sess.Seat != 0 {
		t.Fatalf("bad session %+v", sess)
	}
	if reg.Count() != 1 {
		t.Fatalf("room count %d, want 1", reg.Count())
	}

	// First message is the direct join confirmation, then the broadcast.
	if len(c.msgs) < 2 {
		t.Fatalf("got %d messages, want joined + gameState", len(c.msgs))
	}
	if c.msgs[0].Type != "joined" || *c.msgs[0].Seat != 0 {
		t.Fatalf("first message %+v, want joined for seat 0", c.msgs[0])
	}
	if c.msgs[1].Type != "gameState" || c.msgs[1].State.Phase != domain.PhaseWaiting {
		t.Fatalf("second message %+v, want waiting gameState", c.msgs[1])
	}
}

func TestJoinRejections(t *testing.T) {
	reg := newRegistry()
	a, b := &fakeClient{}, &fakeClient{}

	if _, err := reg.Join("t", 0, domain.ModeHeadsUp, a); err != nil {
		t.Fatalf("join: %v", err)
	}

	if _, err := reg.Join("t", 0, domain.ModeHeadsUp, b); !errors.Is(err, app.ErrSeatTaken) {
		t.Errorf("same seat: got %v, want ErrSeatTaken", err)
	}
	if _, err := reg.Join("t", 3, domain.ModeHeadsUp, b); !errors.Is(err, app.ErrInvalidSeat) {
		t.Errorf("seat 3 heads-up: got %v, want ErrInvalidSeat", err)
	}
	if _, err := reg.Join("t", 1, domain.ModeTeams, b); !errors.Is(err, app.ErrModeMismatch) {
		t.Errorf("mode mismatch: got %v, want ErrModeMismatch", err)
	}
	if _, err := reg.Join("u", 1, domain.Mode("3-player"), b); !errors.Is(err, app.ErrMalformedAction) {
		t.Errorf("bogus mode: got %v, want ErrMalformedAction", err)
	}
}

func TestFullTableFlows(t *testing.T) {
	reg := newRegistry()
	a, b := &fakeClient{}, &fakeClient{}

	sa, err := reg.Join("t", 0, domain.ModeHeadsUp, a)
	if err != nil {
		t.Fatalf("join a: %v", err)
	}
	sb, err := reg.Join("t", 1, domain.ModeHeadsUp, b)
	if err != nil {
		t.Fatalf("join b: %v", err)
	}

	if msg, ok := a.last(); !ok || msg.State.Phase != domain.PhaseSetup {
		t.Fatalf("table full should broadcast setup, got %+v", msg)
	}

	if err := reg.Act(sa, app.StartGame{}); err != nil {
		t.Fatalf("startGame: %v", err)
	}
	if msg, _ := b.last(); msg.State.Phase != domain.PhaseBidding {
		t.Fatalf("expected bidding broadcast, got %+v", msg)
	}

	// Seat 1 opens the bidding with dealer 0.
	if err := reg.Act(sa, app.Bid{Amount: 3}); !errors.Is(err, app.ErrNotYourTurn) {
		t.Fatalf("out-of-turn bid: got %v, want ErrNotYourTurn", err)
	}
	before := a.count()
	if err := reg.Act(sb, app.Bid{Amount: 3}); err != nil {
		t.Fatalf("bid: %v", err)
	}
	if a.count() != before+1 {
		t.Fatalf("accepted bid should broadcast exactly once, got %d new messages", a.count()-before)
	}
}

func TestUnknownSessionRejected(t *testing.T) {
	reg := newRegistry()
	c := &fakeClient{}
	sess, err := reg.Join("t", 0, domain.ModeHeadsUp, c)
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	forged := &Session{ID: "not-a-real-handle", RoomID: sess.RoomID, Seat: 0}
	if err := reg.Act(forged, app.StartGame{}); !errors.Is(err, ErrUnknownSession) {
		t.Fatalf("forged session: got %v, want ErrUnknownSession", err)
	}
}

func TestLeaveDestroysEmptyRoom(t *testing.T) {
	reg := newRegistry()
	c := &fakeClient{}
	sess, err := reg.Join("t", 0, domain.ModeHeadsUp, c)
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	reg.Leave(sess)
	if reg.Count() != 0 {
		t.Fatalf("room count %d after last leave, want 0", reg.Count())
	}
	if err := reg.Act(sess, app.StartGame{}); !errors.Is(err, ErrRoomClosed) {
		t.Fatalf("act on destroyed room: got %v, want ErrRoomClosed", err)
	}

	// The identifier is reusable; a fresh join builds a fresh room.
	if _, err := reg.Join("t", 0, domain.ModeTeams, &fakeClient{}); err != nil {
		t.Fatalf("rejoin after destroy: %v", err)
	}
	if reg.Count() != 1 {
		t.Fatalf("room count %d, want 1", reg.Count())
	}
}

func TestDeliveryFailureEvictsSeat(t *testing.T) {
	reg := newRegistry()
	a, b := &fakeClient{}, &fakeClient{}

	sa, _ := reg.Join("t", 0, domain.ModeHeadsUp, a)
	if _, err := reg.Join("t", 1, domain.ModeHeadsUp, b); err != nil {
		t.Fatalf("join b: %v", err)
	}

	b.setFail(true)
	if err := reg.Act(sa, app.StartGame{}); err != nil {
		t.Fatalf("startGame: %v", err)
	}

	// The dead peer's eviction drops the match back to waiting and the
	// survivor hears about it.
	waitFor(t, func() bool {
		msg, ok := a.last()
		return ok && msg.State != nil && msg.State.Phase == domain.PhaseWaiting
	}, "waiting broadcast after eviction")

	// Seat 1 is free again.
	if _, err := reg.Join("t", 1, domain.ModeHeadsUp, &fakeClient{}); err != nil {
		t.Fatalf("rejoin evicted seat: %v", err)
	}
}

func TestAllPassRedealRunsThroughQueue(t *testing.T) {
	reg := newRegistry()
	a, b := &fakeClient{}, &fakeClient{}

	sa, _ := reg.Join("t", 0, domain.ModeHeadsUp, a)
	sb, _ := reg.Join("t", 1, domain.ModeHeadsUp, b)

	if err := reg.Act(sa, app.StartGame{}); err != nil {
		t.Fatalf("startGame: %v", err)
	}
	if err := reg.Act(sb, app.Bid{Amount: 0}); err != nil {
		t.Fatalf("bid b: %v", err)
	}
	if err := reg.Act(sa, app.Bid{Amount: 0}); err != nil {
		t.Fatalf("bid a: %v", err)
	}

	if msg, _ := a.last(); msg.State.Phase != domain.PhaseSetup {
		t.Fatalf("all-pass should drop to setup, got %+v", msg)
	}

	waitFor(t, func() bool {
		msg, ok := a.last()
		return ok && msg.State.Phase == domain.PhaseBidding
	}, "scheduled redeal to restart bidding")

	if msg, _ := a.last(); msg.State.HighestBid != 0 {
		t.Fatalf("redeal should reset bidding, got %+v", msg)
	}
}

func TestParallelRoomsDealConcurrently(t *testing.T) {
	reg := newRegistry()

	seatRoom := func(id string) *Session {
		sa, err := reg.Join(id, 0, domain.ModeHeadsUp, &fakeClient{})
		if err != nil {
			t.Fatalf("join %s seat 0: %v", id, err)
		}
		if _, err := reg.Join(id, 1, domain.ModeHeadsUp, &fakeClient{}); err != nil {
			t.Fatalf("join %s seat 1: %v", id, err)
		}
		return sa
	}

	// Both rooms share one app.Service, so every deal below draws from the
	// same rng from two room goroutines at once.
	sessions := []*Session{seatRoom("north"), seatRoom("south")}

	var wg sync.WaitGroup
	for _, sess := range sessions {
		wg.Add(1)
		go func(sess *Session) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				if err := reg.Act(sess, app.StartGame{}); err != nil {
					t.Errorf("startGame in %s: %v", sess.RoomID, err)
					return
				}
				if err := reg.Act(sess, app.StartNewGame{}); err != nil {
					t.Errorf("startNewGame in %s: %v", sess.RoomID, err)
					return
				}
			}
		}(sess)
	}
	wg.Wait()
}

func TestJoinSurvivesImmediateDeliveryFailure(t *testing.T) {
	reg := newRegistry()
	c := &fakeClient{fail: true}

	// The join confirmation fails to deliver, so the seat is evicted and the
	// room torn down inside the join op itself. That must read as a completed
	// join, not a closed room, or the registry would retry forever against
	// rooms that die the same way.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sess, err := reg.Join("t", 0, domain.ModeHeadsUp, c)
		if err != nil {
			t.Errorf("join: %v", err)
			return
		}
		if sess == nil || sess.Seat != 0 {
			t.Errorf("bad session %+v", sess)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("join never returned")
	}

	if reg.Count() != 0 {
		t.Fatalf("room count %d, want 0 after teardown", reg.Count())
	}
}
