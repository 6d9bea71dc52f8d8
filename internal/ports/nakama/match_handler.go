package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"strconv"

	"github.com/heroiclabs/nakama-common/runtime"

	"finnie/internal/app"
	"finnie/internal/domain"
)

const (
	// tickRate is how many times per second MatchLoop runs.
	tickRate = 10
	// defaultRedealDelaySec matches the pause the table expects between an
	// all-pass round and the fresh deal.
	defaultRedealDelaySec = 2
)

// Label is the match label advertised for room queries.
type Label struct {
	Open  bool   `json:"open"`
	Game  string `json:"game"`
	Mode  string `json:"mode"`
	Phase string `json:"phase"`
}

// MatchState holds authoritative state for one Finnie table.
type MatchState struct {
	Tick int64

	App  *app.Service
	Game *domain.Game

	Seats     []string // seat index -> userID or ""
	Presences map[string]runtime.Presence

	// Reserved carries seat grants from MatchJoinAttempt to MatchJoin.
	Reserved map[string]int

	// RedealAtTick is the tick the scheduled all-pass redeal fires, 0 when
	// none is pending. Routing it through MatchLoop keeps it serialized with
	// every other mutation.
	RedealAtTick     int64
	redealDelayTicks int64
}

func (ms *MatchState) seatOf(userID string) int {
	for i, uid := range ms.Seats {
		if uid == userID && uid != "" {
			return i
		}
	}
	return -1
}

// NewMatch constructs the match handler for Nakama registration.
func NewMatch(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule) (runtime.Match, error) {
	return &matchHandler{}, nil
}

type matchHandler struct{}

// MatchInit is called when the match is created. The table mode arrives in
// the creation params and is fixed for the life of the match.
func (mh *matchHandler) MatchInit(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, params map[string]interface{}) (interface{}, int, string) {
	mode := domain.ModeTeams
	if v, ok := params["mode"].(string); ok && domain.Mode(v).Valid() {
		mode = domain.Mode(v)
	}

	redealDelaySec := defaultRedealDelaySec
	if env, ok := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string); ok {
		if v, ok := env["finnie_redeal_delay_sec"]; ok {
			if i, err := strconv.Atoi(v); err == nil && i > 0 {
				redealDelaySec = i
			}
		}
	}

	state := &MatchState{
		App:              app.NewService(nil),
		Game:             domain.NewGame(mode),
		Seats:            make([]string, mode.Seats()),
		Presences:        make(map[string]runtime.Presence),
		Reserved:         make(map[string]int),
		redealDelayTicks: int64(redealDelaySec * tickRate),
	}

	labelBytes, _ := json.Marshal(Label{Open: true, Game: "finnie", Mode: string(mode), Phase: string(state.Game.Phase)})
	return state, tickRate, string(labelBytes)
}

// MatchJoinAttempt validates seat and mode before the presence is admitted.
// The granted seat is reserved so MatchJoin can honor it.
func (mh *matchHandler) MatchJoinAttempt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presence runtime.Presence, metadata map[string]string) (interface{}, bool, string) {
	s, ok := state.(*MatchState)
	if !ok {
		return state, false, "state not found"
	}

	if wantMode, ok := metadata["mode"]; ok && wantMode != string(s.Game.Mode) {
		return state, false, "mode_mismatch"
	}

	seat, err := strconv.Atoi(metadata["seat"])
	if err != nil || seat < 0 || seat >= s.Game.Mode.Seats() {
		return state, false, "invalid_seat"
	}
	if s.Seats[seat] != "" {
		return state, false, "seat_taken"
	}
	for uid, reserved := range s.Reserved {
		if reserved == seat && uid != presence.GetUserId() {
			return state, false, "seat_taken"
		}
	}
	if s.Game.Full() {
		return state, false, "room_full"
	}

	s.Reserved[presence.GetUserId()] = seat
	return state, true, ""
}

// MatchJoin seats admitted presences and broadcasts the updated table.
func (mh *matchHandler) MatchJoin(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	s, ok := state.(*MatchState)
	if !ok {
		logger.Error("MatchJoin: state not found")
		return state
	}

	matchID, _ := ctx.Value(runtime.RUNTIME_CTX_MATCH_ID).(string)

	for _, p := range presences {
		uid := p.GetUserId()
		seat, reserved := s.Reserved[uid]
		if !reserved {
			logger.Warn("MatchJoin: user %s arrived without a reserved seat", uid)
			continue
		}
		delete(s.Reserved, uid)

		evs, err := s.App.Join(s.Game, seat)
		if err != nil {
			logger.Error("MatchJoin: seat %d rejected after admission: %v", seat, err)
			continue
		}

		s.Seats[seat] = uid
		s.Presences[uid] = p
		logger.Info("MatchJoin: user %s seated at %d", uid, seat)

		mh.dispatch(s, dispatcher, logger, append([]app.Event{app.JoinedEvent(s.Game, seat, matchID)}, evs...))
	}

	mh.updateLabel(s, dispatcher, logger)
	return s
}

// MatchLeave vacates the departing presences' seats. An empty table ends the
// match.
func (mh *matchHandler) MatchLeave(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, presences []runtime.Presence) interface{} {
	s, ok := state.(*MatchState)
	if !ok {
		return state
	}

	for _, p := range presences {
		uid := p.GetUserId()
		seat := s.seatOf(uid)
		if seat < 0 {
			delete(s.Reserved, uid)
			continue
		}

		s.Seats[seat] = ""
		delete(s.Presences, uid)
		logger.Info("MatchLeave: user %s left seat %d", uid, seat)

		mh.dispatch(s, dispatcher, logger, s.App.Leave(s.Game, seat))
	}

	mh.updateLabel(s, dispatcher, logger)

	if len(s.Presences) == 0 {
		logger.Info("MatchLeave: table empty, terminating match")
		return nil
	}
	return s
}

// MatchLoop applies queued player actions in arrival order and fires any due
// scheduled redeal.
func (mh *matchHandler) MatchLoop(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, messages []runtime.MatchData) interface{} {
	s, ok := state.(*MatchState)
	if !ok {
		return state
	}
	s.Tick = tick

	for _, msg := range messages {
		if msg.GetOpCode() != OpPlayerAction {
			continue
		}
		uid := msg.GetUserId()
		seat := s.seatOf(uid)
		if seat < 0 {
			mh.sendError(s, dispatcher, logger, uid, "Player not found in any room")
			continue
		}

		action, err := app.DecodeAction(msg.GetData())
		if err != nil {
			mh.sendError(s, dispatcher, logger, uid, app.ErrorMessage(err))
			continue
		}

		evs, err := s.App.Apply(s.Game, seat, action)
		if err != nil {
			mh.sendError(s, dispatcher, logger, uid, app.ErrorMessage(err))
			continue
		}
		mh.dispatch(s, dispatcher, logger, evs)
	}

	if s.RedealAtTick > 0 && tick >= s.RedealAtTick {
		s.RedealAtTick = 0
		evs, err := s.App.Redeal(s.Game)
		if err != nil {
			logger.Error("MatchLoop: scheduled redeal failed: %v", err)
		} else {
			mh.dispatch(s, dispatcher, logger, evs)
		}
	}

	return s
}

func (mh *matchHandler) MatchTerminate(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, graceSeconds int) interface{} {
	return state
}

func (mh *matchHandler) MatchSignal(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, dispatcher runtime.MatchDispatcher, tick int64, state interface{}, data string) (interface{}, string) {
	return state, ""
}

// dispatch fans app events out over the dispatcher. Recipients are seat
// indices; an event without recipients goes to the whole table.
func (mh *matchHandler) dispatch(s *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, events []app.Event) {
	for _, ev := range events {
		switch ev.Kind {
		case app.EventGameState:
			targets, ok := mh.recipients(s, ev.Recipients)
			if !ok {
				continue
			}
			data, err := json.Marshal(ev.Payload)
			if err != nil {
				logger.Error("dispatch: marshal gameState: %v", err)
				continue
			}
			if err := dispatcher.BroadcastMessage(OpGameState, data, targets, nil, true); err != nil {
				logger.Warn("dispatch: broadcast failed: %v", err)
			}
			mh.updateLabel(s, dispatcher, logger)

		case app.EventJoined:
			targets, ok := mh.recipients(s, ev.Recipients)
			if !ok {
				continue
			}
			data, err := json.Marshal(ev.Payload)
			if err != nil {
				logger.Error("dispatch: marshal joined: %v", err)
				continue
			}
			if err := dispatcher.BroadcastMessage(OpJoined, data, targets, nil, true); err != nil {
				logger.Warn("dispatch: joined send failed: %v", err)
			}

		case app.EventRedealScheduled:
			s.RedealAtTick = s.Tick + s.redealDelayTicks
			logger.Debug("dispatch: redeal scheduled for tick %d", s.RedealAtTick)
		}
	}
}

// recipients maps seat indices to their presences. A nil slice with ok means
// broadcast to the table; ok false means every targeted seat is gone and the
// event must be dropped rather than widened to a broadcast.
func (mh *matchHandler) recipients(s *MatchState, seats []int) ([]runtime.Presence, bool) {
	if len(seats) == 0 {
		return nil, true
	}
	out := make([]runtime.Presence, 0, len(seats))
	for _, seat := range seats {
		if seat < 0 || seat >= len(s.Seats) {
			continue
		}
		if p, ok := s.Presences[s.Seats[seat]]; ok {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, false
	}
	return out, true
}

// sendError delivers a direct error notice to a single user.
func (mh *matchHandler) sendError(s *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger, userID, message string) {
	p, ok := s.Presences[userID]
	if !ok {
		return
	}
	data, _ := json.Marshal(map[string]string{"message": message})
	if err := dispatcher.BroadcastMessage(OpError, data, []runtime.Presence{p}, nil, true); err != nil {
		logger.Warn("sendError: send failed: %v", err)
	}
}

func (mh *matchHandler) updateLabel(s *MatchState, dispatcher runtime.MatchDispatcher, logger runtime.Logger) {
	open := !s.Game.Full()
	b, _ := json.Marshal(Label{Open: open, Game: "finnie", Mode: string(s.Game.Mode), Phase: string(s.Game.Phase)})
	if err := dispatcher.MatchLabelUpdate(string(b)); err != nil {
		logger.Warn("updateLabel: %v", err)
	}
}
