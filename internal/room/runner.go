package room

import (
	"errors"
	"time"

	"go.uber.org/zap"

	"finnie/internal/app"
	"finnie/internal/domain"
)

// ErrRoomClosed means the room emptied and was torn down between lookup and
// use; callers retry against a fresh room.
var ErrRoomClosed = errors.New("room closed")

// ErrUnknownSession means the presented session handle does not belong to
// this room.
var ErrUnknownSession = errors.New("unknown session")

type seatClient struct {
	client  Client
	session string
}

// runner owns one room: its match state, its connected clients and a single
// goroutine that applies operations strictly in arrival order. Everything
// that touches the game funnels through ops, including the delayed all-pass
// redeal.
type runner struct {
	id          string
	svc         *app.Service
	game        *domain.Game
	log         *zap.Logger
	redealDelay time.Duration

	ops    chan func()
	closed chan struct{}

	// onEmpty runs on the room goroutine after the last seat leaves.
	onEmpty func(id string)

	// clients is touched only from the room goroutine.
	clients map[int]seatClient
}

func newRunner(id string, mode domain.Mode, svc *app.Service, log *zap.Logger, redealDelay time.Duration, onEmpty func(string)) *runner {
	r := &runner{
		id:          id,
		svc:         svc,
		game:        domain.NewGame(mode),
		log:         log.With(zap.String("room", id), zap.String("mode", string(mode))),
		redealDelay: redealDelay,
		ops:         make(chan func()),
		closed:      make(chan struct{}),
		onEmpty:     onEmpty,
		clients:     make(map[int]seatClient),
	}
	go r.loop()
	return r
}

func (r *runner) loop() {
	for {
		select {
		case op := <-r.ops:
			op()
		case <-r.closed:
			return
		}
	}
}

// do runs f on the room goroutine and waits for it to finish. Once the send
// succeeds the loop has taken the op and runs it to completion, even when f
// itself empties and closes the room, so the result must come from done and
// never from closed.
func (r *runner) do(f func()) error {
	done := make(chan struct{})
	select {
	case r.ops <- func() { f(); close(done) }:
	case <-r.closed:
		return ErrRoomClosed
	}
	<-done
	return nil
}

// enqueue is the non-blocking variant for timer callbacks.
func (r *runner) enqueue(f func()) {
	go func() {
		select {
		case r.ops <- f:
		case <-r.closed:
		}
	}()
}

// Join seats a client. The returned session is the client's proof of
// identity for every later call.
func (r *runner) Join(mode domain.Mode, seat int, c Client) (*Session, error) {
	var (
		sess *Session
		err  error
	)
	doErr := r.do(func() {
		if mode != r.game.Mode {
			err = app.ErrModeMismatch
			return
		}

		var evs []app.Event
		evs, err = r.svc.Join(r.game, seat)
		if err != nil {
			return
		}

		sess = newSession(r.id, seat)
		r.clients[seat] = seatClient{client: c, session: sess.ID}
		r.log.Info("player joined", zap.Int("seat", seat), zap.Int("occupied", r.game.OccupiedCount()))

		r.dispatch(append([]app.Event{app.JoinedEvent(r.game, seat, r.id)}, evs...))
	})
	if doErr != nil {
		return nil, doErr
	}
	return sess, err
}

// Act applies one player action. Rejections come back as app sentinels for
// the transport to answer directly; state is untouched.
func (r *runner) Act(sess *Session, action app.Action) error {
	var err error
	doErr := r.do(func() {
		if !r.validSession(sess) {
			err = ErrUnknownSession
			return
		}

		var evs []app.Event
		evs, err = r.svc.Apply(r.game, sess.Seat, action)
		if err != nil {
			r.log.Debug("action rejected", zap.Int("seat", sess.Seat), zap.Error(err))
			return
		}
		r.dispatch(evs)
	})
	if doErr != nil {
		return doErr
	}
	return err
}

// Leave vacates the session's seat. Idempotent; a stale session is ignored.
func (r *runner) Leave(sess *Session) {
	_ = r.do(func() {
		if !r.validSession(sess) {
			return
		}
		r.evict(sess.Seat)
	})
}

func (r *runner) validSession(sess *Session) bool {
	if sess == nil {
		return false
	}
	sc, ok := r.clients[sess.Seat]
	return ok && sc.session == sess.ID
}

// evict runs on the room goroutine: drops the seat, notifies the table and
// closes the room once it empties.
func (r *runner) evict(seat int) {
	if _, ok := r.clients[seat]; !ok {
		return
	}
	delete(r.clients, seat)
	r.log.Info("player left", zap.Int("seat", seat), zap.Int("occupied", r.game.OccupiedCount()-1))

	r.dispatch(r.svc.Leave(r.game, seat))

	if len(r.clients) == 0 {
		close(r.closed)
		if r.onEmpty != nil {
			r.onEmpty(r.id)
		}
	}
}

// dispatch fans events out to their recipients. A failed delivery degrades
// that seat to disconnected and never interrupts the rest.
func (r *runner) dispatch(events []app.Event) {
	for _, ev := range events {
		switch ev.Kind {
		case app.EventGameState:
			p := ev.Payload.(app.GameStatePayload)
			r.fanOut(ev.Recipients, Outbound{
				Type:      "gameState",
				State:     p.State,
				Occupancy: p.Occupancy,
			})
		case app.EventJoined:
			p := ev.Payload.(app.JoinedPayload)
			seat := p.Seat
			r.fanOut(ev.Recipients, Outbound{
				Type:      "joined",
				Seat:      &seat,
				RoomID:    p.RoomID,
				State:     p.State,
				Occupancy: p.Occupancy,
			})
		case app.EventRedealScheduled:
			r.scheduleRedeal()
		}
	}
}

func (r *runner) fanOut(recipients []int, msg Outbound) {
	var failed []int
	if len(recipients) == 0 {
		for seat, sc := range r.clients {
			if err := sc.client.Deliver(msg); err != nil {
				r.log.Warn("delivery failed", zap.Int("seat", seat), zap.Error(err))
				failed = append(failed, seat)
			}
		}
	} else {
		for _, seat := range recipients {
			sc, ok := r.clients[seat]
			if !ok {
				continue
			}
			if err := sc.client.Deliver(msg); err != nil {
				r.log.Warn("delivery failed", zap.Int("seat", seat), zap.Error(err))
				failed = append(failed, seat)
			}
		}
	}
	for _, seat := range failed {
		r.evict(seat)
	}
}

// scheduleRedeal arms the all-pass redeal. The timer callback goes through
// the same serial queue as every other mutation, so it cannot race a join or
// action that lands first.
func (r *runner) scheduleRedeal() {
	time.AfterFunc(r.redealDelay, func() {
		r.enqueue(func() {
			evs, err := r.svc.Redeal(r.game)
			if err != nil {
				r.log.Error("scheduled redeal failed", zap.Error(err))
				return
			}
			r.dispatch(evs)
		})
	})
}
