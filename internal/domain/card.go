package domain

import "math/rand"

// Suit identifiers for the standard 52-card pack.
const (
	SuitSpades   = "S"
	SuitHearts   = "H"
	SuitDiamonds = "D"
	SuitClubs    = "C"
)

// Suits lists the four suits in deck enumeration order.
var Suits = []string{SuitSpades, SuitHearts, SuitDiamonds, SuitClubs}

// Values lists the thirteen face values in deck enumeration order.
var Values = []string{"A", "2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K"}

// Card is a single playing card. A card has no intrinsic rank; rank depends
// on the ranking order chosen by the bid winner (see Rank).
type Card struct {
	Suit  string `json:"suit"`
	Value string `json:"value"`
}

// Order is the per-round value ladder chosen by the bid winner.
type Order string

const (
	// OrderHigh ranks 2 lowest and ace highest.
	OrderHigh Order = "high"
	// OrderLow ranks king highest down to 2. The ace does not appear in the
	// low ladder at all, so it ranks below every other card.
	OrderLow Order = "low"
)

var (
	highLadder = []string{"2", "3", "4", "5", "6", "7", "8", "9", "10", "J", "Q", "K", "A"}
	lowLadder  = []string{"K", "Q", "J", "10", "9", "8", "7", "6", "5", "4", "3", "2"}
)

// oddValues are the values that contribute to a void trick.
var oddValues = map[string]bool{
	"3": true, "5": true, "7": true, "9": true,
	"J": true, "K": true, "A": true,
}

// BuildDeck returns the full 52-card pack in deterministic suit-major order.
func BuildDeck() []Card {
	deck := make([]Card, 0, 52)
	for _, s := range Suits {
		for _, v := range Values {
			deck = append(deck, Card{Suit: s, Value: v})
		}
	}
	return deck
}

// Shuffle returns a uniformly shuffled copy of deck. The input is left intact.
func Shuffle(rng *rand.Rand, deck []Card) []Card {
	out := make([]Card, len(deck))
	copy(out, deck)
	rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	return out
}

// Rank returns the position of the card's value in the given order's ladder.
// Higher is stronger. A value absent from the ladder ranks -1 (the ace under
// OrderLow).
func Rank(c Card, order Order) int {
	ladder := highLadder
	if order == OrderLow {
		ladder = lowLadder
	}
	for i, v := range ladder {
		if v == c.Value {
			return i
		}
	}
	return -1
}

// IsTrump reports whether c belongs to the trump suit. An empty trumpSuit
// means the round is played without trump.
func IsTrump(c Card, trumpSuit string) bool {
	return trumpSuit != "" && c.Suit == trumpSuit
}

// IsOdd reports whether the card's value counts toward the void-trick rule.
func IsOdd(c Card) bool {
	return oddValues[c.Value]
}
