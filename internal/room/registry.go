package room

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"finnie/internal/app"
	"finnie/internal/domain"
)

// Registry owns every live room, keyed by room identifier. Rooms come into
// being on first join and disappear when the last seat leaves; nothing about
// them is persisted.
type Registry struct {
	svc         *app.Service
	log         *zap.Logger
	redealDelay time.Duration

	mu    sync.Mutex
	rooms map[string]*runner
}

// NewRegistry constructs an empty registry sharing one app service across
// rooms.
func NewRegistry(svc *app.Service, log *zap.Logger, redealDelay time.Duration) *Registry {
	return &Registry{
		svc:         svc,
		log:         log,
		redealDelay: redealDelay,
		rooms:       make(map[string]*runner),
	}
}

// Join seats a client in the named room, creating the room with the given
// mode on first reference. A later join must present the same mode or is
// rejected outright.
func (reg *Registry) Join(roomID string, seat int, mode domain.Mode, c Client) (*Session, error) {
	if !mode.Valid() {
		return nil, app.ErrMalformedAction
	}

	for {
		r := reg.room(roomID, mode)
		sess, err := r.Join(mode, seat, c)
		if err == ErrRoomClosed {
			// Lost the race against a room teardown; take a fresh one.
			continue
		}
		return sess, err
	}
}

// Act routes an action to the session's room.
func (reg *Registry) Act(sess *Session, action app.Action) error {
	r := reg.lookup(sess)
	if r == nil {
		return ErrRoomClosed
	}
	return r.Act(sess, action)
}

// Leave vacates the session's seat; the room is destroyed when it empties.
func (reg *Registry) Leave(sess *Session) {
	if r := reg.lookup(sess); r != nil {
		r.Leave(sess)
	}
}

// Count returns the number of live rooms.
func (reg *Registry) Count() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.rooms)
}

func (reg *Registry) room(roomID string, mode domain.Mode) *runner {
	reg.mu.Lock()
	defer reg.mu.Unlock()

	if r, ok := reg.rooms[roomID]; ok {
		return r
	}
	r := newRunner(roomID, mode, reg.svc, reg.log, reg.redealDelay, reg.remove)
	reg.rooms[roomID] = r
	reg.log.Info("room created", zap.String("room", roomID), zap.String("mode", string(mode)))
	return r
}

func (reg *Registry) lookup(sess *Session) *runner {
	if sess == nil {
		return nil
	}
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.rooms[sess.RoomID]
}

func (reg *Registry) remove(roomID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	delete(reg.rooms, roomID)
	reg.log.Info("room destroyed", zap.String("room", roomID))
}
