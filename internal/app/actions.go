package app

import (
	"encoding/json"
	"fmt"

	"finnie/internal/domain"
)

// Action is the closed set of player actions a room accepts. Decoding happens
// once at the transport boundary; past that point every action carries a
// typed payload.
type Action interface {
	actionKind() string
}

type StartGame struct{}

type Bid struct {
	Amount int
}

type TrumpSelection struct {
	// Suit is empty for a no-trump round.
	Suit  string
	Order domain.Order
}

type CardSelection struct {
	Index int
}

type ConfirmMulligan struct{}

type PlayCard struct {
	Index int
}

type StartNextRound struct{}

type StartNewGame struct{}

func (StartGame) actionKind() string       { return "startGame" }
func (Bid) actionKind() string             { return "bid" }
func (TrumpSelection) actionKind() string  { return "trumpSelection" }
func (CardSelection) actionKind() string   { return "cardSelection" }
func (ConfirmMulligan) actionKind() string { return "confirmMulligan" }
func (PlayCard) actionKind() string        { return "playCard" }
func (StartNextRound) actionKind() string  { return "startNextRound" }
func (StartNewGame) actionKind() string    { return "startNewGame" }

// actionEnvelope is the wire shape of an action: a type tag plus whichever
// payload fields the tag needs.
type actionEnvelope struct {
	Type      string       `json:"type"`
	BidAmount *int         `json:"bidAmount,omitempty"`
	Suit      *string      `json:"suit,omitempty"`
	Order     domain.Order `json:"order,omitempty"`
	CardIndex *int         `json:"cardIndex,omitempty"`
}

// DecodeAction parses a raw action envelope into its typed variant. Unknown
// tags, missing payload fields and invalid enum values all come back as
// ErrMalformedAction so the transport can answer with a single notice.
func DecodeAction(raw json.RawMessage) (Action, error) {
	var env actionEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedAction, err)
	}

	switch env.Type {
	case "startGame":
		return StartGame{}, nil
	case "bid":
		if env.BidAmount == nil || *env.BidAmount < 0 {
			return nil, fmt.Errorf("%w: bid needs a non-negative bidAmount", ErrMalformedAction)
		}
		return Bid{Amount: *env.BidAmount}, nil
	case "trumpSelection":
		if env.Suit == nil || !validSuit(*env.Suit) {
			return nil, fmt.Errorf("%w: trumpSelection needs a suit", ErrMalformedAction)
		}
		if env.Order != domain.OrderHigh && env.Order != domain.OrderLow {
			return nil, fmt.Errorf("%w: trumpSelection needs a high or low order", ErrMalformedAction)
		}
		return TrumpSelection{Suit: *env.Suit, Order: env.Order}, nil
	case "cardSelection":
		if env.CardIndex == nil {
			return nil, fmt.Errorf("%w: cardSelection needs a cardIndex", ErrMalformedAction)
		}
		return CardSelection{Index: *env.CardIndex}, nil
	case "confirmMulligan":
		return ConfirmMulligan{}, nil
	case "playCard":
		if env.CardIndex == nil {
			return nil, fmt.Errorf("%w: playCard needs a cardIndex", ErrMalformedAction)
		}
		return PlayCard{Index: *env.CardIndex}, nil
	case "startNextRound":
		return StartNextRound{}, nil
	case "startNewGame":
		return StartNewGame{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown action type %q", ErrMalformedAction, env.Type)
	}
}

func validSuit(s string) bool {
	if s == "" {
		return true
	}
	for _, suit := range domain.Suits {
		if s == suit {
			return true
		}
	}
	return false
}
