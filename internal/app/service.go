package app

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"finnie/internal/domain"
)

// Service applies player actions to a match and emits the resulting events.
// Callers own the *domain.Game and must serialize calls per room; the rng is
// the one piece of state shared across rooms, so it carries its own lock.
type Service struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewService constructs a Service with the provided rng or a time-seeded
// default.
func NewService(rng *rand.Rand) *Service {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Service{rng: rng}
}

// Join seats a player. The seat must be in range and free; a full table moves
// the match from waiting to setup.
func (s *Service) Join(g *domain.Game, seat int) ([]Event, error) {
	if seat < 0 || seat >= g.Mode.Seats() {
		return nil, ErrInvalidSeat
	}
	if g.Connected[seat] {
		return nil, ErrSeatTaken
	}
	if g.Full() {
		return nil, ErrRoomFull
	}

	g.Connected[seat] = true
	g.Players[seat].Name = fmt.Sprintf("Player %d", seat+1)

	if g.Full() {
		g.Phase = domain.PhaseSetup
		g.Message = "All players connected! Ready to start game."
	} else {
		g.Message = fmt.Sprintf("Waiting for %d more players...", g.Mode.Seats()-g.OccupiedCount())
	}

	return []Event{broadcastState(g)}, nil
}

// Leave vacates a seat. An in-progress match drops back to waiting until the
// seat refills; the rest of the state survives for reconnection.
func (s *Service) Leave(g *domain.Game, seat int) []Event {
	if seat < 0 || seat >= g.Mode.Seats() || !g.Connected[seat] {
		return nil
	}

	g.Connected[seat] = false
	if g.Phase != domain.PhaseWaiting {
		g.Phase = domain.PhaseWaiting
		g.Message = fmt.Sprintf("Player %d disconnected. Waiting for reconnection...", seat+1)
	}

	return []Event{broadcastState(g)}
}

// Apply runs one player action through the state machine. A rejection leaves
// the match untouched and returns the sentinel; the transport answers the
// acting seat directly. Actions that arrive in the wrong phase are dropped
// without a reply, the same as a stale button press.
func (s *Service) Apply(g *domain.Game, seat int, action Action) ([]Event, error) {
	switch a := action.(type) {
	case StartGame:
		return s.startGame(g)
	case Bid:
		if seat != g.CurrentSeat {
			return nil, ErrNotYourTurn
		}
		return s.bid(g, seat, a.Amount)
	case TrumpSelection:
		if seat != g.CurrentSeat {
			return nil, ErrNotYourTurn
		}
		return s.trumpSelection(g, a.Suit, a.Order)
	case CardSelection:
		return s.cardSelection(g, seat, a.Index)
	case ConfirmMulligan:
		if seat != g.CurrentSeat {
			return nil, ErrNotYourTurn
		}
		return s.confirmMulligan(g, seat)
	case PlayCard:
		if seat != g.CurrentSeat {
			return nil, ErrNotYourTurn
		}
		return s.playCard(g, seat, a.Index)
	case StartNextRound:
		return s.startNextRound(g)
	case StartNewGame:
		return s.startNewGame(g)
	default:
		return nil, ErrMalformedAction
	}
}

// Redeal replays the deal after an all-pass bidding round. The room runner
// invokes it from the scheduled action the all-pass emitted.
func (s *Service) Redeal(g *domain.Game) ([]Event, error) {
	return s.startGame(g)
}

func (s *Service) startGame(g *domain.Game) ([]Event, error) {
	if g.Phase != domain.PhaseSetup || !g.Full() {
		return nil, nil
	}

	s.mu.Lock()
	deck := domain.Shuffle(s.rng, domain.BuildDeck())
	s.mu.Unlock()
	hands, rest, err := domain.Deal(deck, g.Mode.Seats(), g.Mode.HandSize())
	if err != nil {
		return nil, err
	}

	for i, p := range g.Players {
		p.Hand = hands[i]
		p.Bid = nil
		p.Selected = []int{}
	}
	g.Deck = rest

	g.Phase = domain.PhaseBidding
	g.LeadBidderSeat = g.NextSeat(g.DealerSeat)
	g.CurrentSeat = g.LeadBidderSeat
	g.HighestBid = 0
	g.WinningBidder = nil
	g.Started = true
	g.Message = fmt.Sprintf("%s's turn to bid", g.Players[g.CurrentSeat].Name)

	return []Event{broadcastState(g)}, nil
}

func (s *Service) bid(g *domain.Game, seat, amount int) ([]Event, error) {
	if g.Phase != domain.PhaseBidding {
		return nil, nil
	}
	if amount != 0 && amount <= g.HighestBid {
		return nil, ErrInvalidBid
	}

	g.Players[seat].Bid = &amount
	if amount > g.HighestBid {
		g.HighestBid = amount
		w := seat
		g.WinningBidder = &w
	}

	if g.AllBid() {
		if g.HighestBid == 0 {
			g.Message = "All players passed! Dealing new hand..."
			g.Phase = domain.PhaseSetup
			return []Event{broadcastState(g), {Kind: EventRedealScheduled}}, nil
		}

		g.Phase = domain.PhaseTrumpSelection
		g.CurrentSeat = *g.WinningBidder
		g.Message = fmt.Sprintf("%s won the bid with %d! Choose trump suit and ranking.",
			g.Players[g.CurrentSeat].Name, g.HighestBid)
	} else {
		g.CurrentSeat = g.NextSeat(g.CurrentSeat)
		g.Message = fmt.Sprintf("%s's turn to bid", g.Players[g.CurrentSeat].Name)
	}

	return []Event{broadcastState(g)}, nil
}

func (s *Service) trumpSelection(g *domain.Game, suit string, order domain.Order) ([]Event, error) {
	if g.Phase != domain.PhaseTrumpSelection {
		return nil, nil
	}

	g.TrumpSuit = suit
	g.Order = order
	g.Phase = domain.PhaseMulligan
	g.CurrentSeat = g.NextSeat(g.DealerSeat)

	label := suit
	if label == "" {
		label = "No Trump"
	}
	g.Message = fmt.Sprintf("Trump: %s, %s ranking. Mulligan phase: select cards to discard.", label, order)

	return []Event{broadcastState(g)}, nil
}

func (s *Service) cardSelection(g *domain.Game, seat, index int) ([]Event, error) {
	if g.Phase != domain.PhaseMulligan {
		return nil, nil
	}
	if index < 0 || index >= len(g.Players[seat].Hand) {
		return nil, ErrMalformedAction
	}

	p := g.Players[seat]
	for i, v := range p.Selected {
		if v == index {
			p.Selected = append(p.Selected[:i], p.Selected[i+1:]...)
			return []Event{broadcastState(g)}, nil
		}
	}
	p.Selected = append(p.Selected, index)

	return []Event{broadcastState(g)}, nil
}

func (s *Service) confirmMulligan(g *domain.Game, seat int) ([]Event, error) {
	if g.Phase != domain.PhaseMulligan {
		return nil, nil
	}

	p := g.Players[seat]
	hand, deck, err := domain.Exchange(p.Hand, p.Selected, g.Deck)
	if err != nil {
		return nil, fmt.Errorf("%w: %d discards against %d deck cards", ErrInsufficientCards, len(p.Selected), len(g.Deck))
	}
	p.Hand = hand
	p.Selected = []int{}
	g.Deck = deck

	next := g.NextSeat(g.CurrentSeat)
	if next == g.NextSeat(g.DealerSeat) {
		// Mulligan cycle complete; the bid winner leads the first trick.
		g.Phase = domain.PhasePlaying
		g.CurrentSeat = *g.WinningBidder
		g.CurrentTrick = []domain.TrickPlay{}
		g.Message = fmt.Sprintf("%s leads the first trick", g.Players[g.CurrentSeat].Name)
	} else {
		g.CurrentSeat = next
		g.Message = fmt.Sprintf("%s's turn for mulligan", g.Players[next].Name)
	}

	return []Event{broadcastState(g)}, nil
}

func (s *Service) playCard(g *domain.Game, seat, index int) ([]Event, error) {
	if g.Phase != domain.PhasePlaying {
		return nil, nil
	}
	p := g.Players[seat]
	if index < 0 || index >= len(p.Hand) {
		return nil, ErrMalformedAction
	}

	card := p.Hand[index]
	if len(g.CurrentTrick) > 0 {
		leadSuit := g.CurrentTrick[0].Card.Suit
		if card.Suit != leadSuit && g.HasSuit(seat, leadSuit) {
			return nil, ErrMustFollowSuit
		}
	}

	p.Hand = append(append([]domain.Card{}, p.Hand[:index]...), p.Hand[index+1:]...)
	g.CurrentTrick = append(g.CurrentTrick, domain.TrickPlay{Card: card, Seat: seat})

	if len(g.CurrentTrick) == g.Mode.Seats() {
		s.resolveTrick(g)
	} else {
		g.CurrentSeat = g.NextSeat(g.CurrentSeat)
		g.Message = fmt.Sprintf("%s's turn", g.Players[g.CurrentSeat].Name)
	}

	return []Event{broadcastState(g)}, nil
}

func (s *Service) resolveTrick(g *domain.Game) {
	winner := domain.ResolveTrick(g.CurrentTrick, g.TrumpSuit, g.Order)

	if domain.IsVoidTrick(g.CurrentTrick, g.Mode.Seats()) {
		// Nobody scores, but the winner still leads.
		g.CurrentTrick = []domain.TrickPlay{}
		g.CurrentSeat = winner
		g.Message = fmt.Sprintf("All odd cards! Trick discarded. %s leads next.", g.Players[winner].Name)
		return
	}

	g.TricksWon[g.Mode.SideOfSeat(winner)]++

	if g.TotalTricks() == g.Mode.TrickCap() {
		s.resolveRound(g)
		return
	}

	g.CurrentTrick = []domain.TrickPlay{}
	g.CurrentSeat = winner
	g.Message = fmt.Sprintf("%s wins the trick and leads next", g.Players[winner].Name)
}

func (s *Service) resolveRound(g *domain.Game) {
	keys := g.Mode.SideKeys()
	bidderSide := g.Mode.SideOfSeat(*g.WinningBidder)

	g.Scores = domain.ApplyRound(g.Scores, g.TricksWon, keys, bidderSide, g.HighestBid)
	target := domain.TargetScore(g.Scores, keys)

	sideName := func(key string) string {
		if g.Mode == domain.ModeHeadsUp {
			if key == keys[0] {
				return "Player 1"
			}
			return "Player 2"
		}
		if key == keys[0] {
			return "Team 1"
		}
		return "Team 2"
	}

	if g.Scores[keys[0]] >= target || g.Scores[keys[1]] >= target {
		winner := keys[0]
		if g.Scores[keys[0]] < target {
			winner = keys[1]
		}
		g.Phase = domain.PhaseGameEnd
		g.Message = fmt.Sprintf("%s wins the game! Final score: %s: %d, %s: %d",
			sideName(winner), sideName(keys[0]), g.Scores[keys[0]], sideName(keys[1]), g.Scores[keys[1]])
		return
	}

	g.Phase = domain.PhaseRoundEnd
	g.DealerSeat = g.NextSeat(g.DealerSeat)
	g.CurrentRound++
	g.Message = fmt.Sprintf("Round %d complete! Score: %s: %d, %s: %d. Click to start next round.",
		g.CurrentRound-1, sideName(keys[0]), g.Scores[keys[0]], sideName(keys[1]), g.Scores[keys[1]])
}

func (s *Service) startNextRound(g *domain.Game) ([]Event, error) {
	if g.Phase != domain.PhaseRoundEnd {
		return nil, nil
	}

	keys := g.Mode.SideKeys()
	g.Phase = domain.PhaseSetup
	g.TricksWon = map[string]int{keys[0]: 0, keys[1]: 0}
	g.CurrentTrick = []domain.TrickPlay{}
	g.Message = `Click "Start Game" to begin the next round`

	return []Event{broadcastState(g)}, nil
}

func (s *Service) startNewGame(g *domain.Game) ([]Event, error) {
	g.ResetMatch()
	g.Message = "All players connected! Ready to start game."

	return []Event{broadcastState(g)}, nil
}

func broadcastState(g *domain.Game) Event {
	return Event{
		Kind: EventGameState,
		Payload: GameStatePayload{
			State:     BuildSnapshot(g),
			Occupancy: g.Occupancy(),
		},
	}
}

// JoinedEvent builds the direct confirmation for a freshly seated player.
func JoinedEvent(g *domain.Game, seat int, roomID string) Event {
	return Event{
		Kind: EventJoined,
		Payload: JoinedPayload{
			Seat:      seat,
			RoomID:    roomID,
			State:     BuildSnapshot(g),
			Occupancy: g.Occupancy(),
		},
		Recipients: []int{seat},
	}
}
