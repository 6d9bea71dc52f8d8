package domain

import "fmt"

// Phase is the lifecycle stage of a match.
type Phase string

const (
	// PhaseWaiting blocks all play until every seat is occupied.
	PhaseWaiting Phase = "waiting"
	// PhaseSetup is the pre-deal state; startGame moves the match on.
	PhaseSetup Phase = "setup"
	// PhaseBidding runs one bid per seat starting left of the dealer.
	PhaseBidding Phase = "bidding"
	// PhaseTrumpSelection lets the bid winner pick trump and ranking order.
	PhaseTrumpSelection Phase = "trump_selection"
	// PhaseMulligan is the per-seat discard-and-redraw step.
	PhaseMulligan Phase = "mulligan"
	// PhasePlaying is trick-taking play.
	PhasePlaying Phase = "playing"
	// PhaseRoundEnd awaits startNextRound after a round resolves short of the target.
	PhaseRoundEnd Phase = "round_end"
	// PhaseGameEnd awaits startNewGame after a side reaches the target score.
	PhaseGameEnd Phase = "game_end"
)

// Player holds one seat's per-round state.
type Player struct {
	Name string
	Hand []Card
	// Bid is nil until the seat has acted this bidding phase; 0 records a pass.
	Bid *int
	// Selected holds hand indices marked for mulligan discard, in toggle order.
	Selected []int
}

// Game is the full authoritative state of one room's match. It is mutated
// only by the app service, one action at a time.
type Game struct {
	Phase Phase
	Mode  Mode

	Players   []*Player
	Connected []bool

	DealerSeat     int
	CurrentSeat    int
	LeadBidderSeat int

	HighestBid    int
	WinningBidder *int

	TrumpSuit string // "" until selected or when playing no-trump
	Order     Order

	CurrentTrick []TrickPlay
	Deck         []Card

	TricksWon map[string]int
	Scores    map[string]int

	CurrentRound int
	Started      bool
	Message      string
}

// NewGame returns a fresh match for the given table shape, in the waiting
// phase with all seats empty.
func NewGame(mode Mode) *Game {
	g := &Game{Mode: mode, Connected: make([]bool, mode.Seats())}
	g.resetMatch()
	g.Phase = PhaseWaiting
	return g
}

// ResetMatch reinitializes scores, round counter, dealer and all per-round
// state to the mode's defaults, keeping seat occupancy. The match lands in
// setup, ready for a fresh startGame.
func (g *Game) ResetMatch() {
	g.resetMatch()
}

func (g *Game) resetMatch() {
	n := g.Mode.Seats()
	keys := g.Mode.SideKeys()

	g.Phase = PhaseSetup
	g.Players = make([]*Player, n)
	for i := range g.Players {
		g.Players[i] = &Player{Name: fmt.Sprintf("Player %d", i+1), Hand: []Card{}, Selected: []int{}}
	}
	g.DealerSeat = 0
	g.CurrentSeat = 0
	g.LeadBidderSeat = 1 % n
	g.HighestBid = 0
	g.WinningBidder = nil
	g.TrumpSuit = ""
	g.Order = OrderHigh
	g.CurrentTrick = []TrickPlay{}
	g.Deck = []Card{}
	g.TricksWon = map[string]int{keys[0]: 0, keys[1]: 0}
	g.Scores = map[string]int{keys[0]: 0, keys[1]: 0}
	g.CurrentRound = 1
	g.Started = false
	g.Message = ""
}

// NextSeat returns the seat after s in play order.
func (g *Game) NextSeat(s int) int {
	return (s + 1) % g.Mode.Seats()
}

// OccupiedCount returns the number of connected seats.
func (g *Game) OccupiedCount() int {
	n := 0
	for _, c := range g.Connected {
		if c {
			n++
		}
	}
	return n
}

// Full reports whether every seat is occupied.
func (g *Game) Full() bool {
	return g.OccupiedCount() == g.Mode.Seats()
}

// Occupancy returns the connected seat indices in ascending order.
func (g *Game) Occupancy() []int {
	out := make([]int, 0, len(g.Connected))
	for i, c := range g.Connected {
		if c {
			out = append(out, i)
		}
	}
	return out
}

// AllBid reports whether every seat has recorded a bid this round.
func (g *Game) AllBid() bool {
	for _, p := range g.Players {
		if p.Bid == nil {
			return false
		}
	}
	return true
}

// HasSuit reports whether the seat holds at least one card of the suit.
func (g *Game) HasSuit(seat int, suit string) bool {
	for _, c := range g.Players[seat].Hand {
		if c.Suit == suit {
			return true
		}
	}
	return false
}

// TotalTricks returns the number of tricks credited so far this round.
func (g *Game) TotalTricks() int {
	keys := g.Mode.SideKeys()
	return g.TricksWon[keys[0]] + g.TricksWon[keys[1]]
}
