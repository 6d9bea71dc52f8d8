package domain

import (
	"errors"
	"sort"
)

// ErrInsufficientCards indicates a deal or exchange asked for more cards than
// the deck holds.
var ErrInsufficientCards = errors.New("not enough cards in deck")

// Deal splits the front of an already shuffled deck into seatCount hands of
// cardsPerSeat each and returns the hands plus the undealt remainder. The
// input deck is not mutated.
func Deal(deck []Card, seatCount, cardsPerSeat int) ([][]Card, []Card, error) {
	need := seatCount * cardsPerSeat
	if need > len(deck) {
		return nil, nil, ErrInsufficientCards
	}

	hands := make([][]Card, seatCount)
	for i := 0; i < seatCount; i++ {
		hands[i] = append([]Card{}, deck[i*cardsPerSeat:(i+1)*cardsPerSeat]...)
	}
	rest := append([]Card{}, deck[need:]...)
	return hands, rest, nil
}

// Exchange removes the given hand indices and draws an equal number of
// replacements from the front of the deck. Indices may arrive in any order;
// removal happens highest-first so earlier removals cannot shift later ones.
// Returns the new hand and the shrunk deck. The inputs are not mutated.
func Exchange(hand []Card, discardIndices []int, deck []Card) ([]Card, []Card, error) {
	if len(discardIndices) > len(deck) {
		return nil, nil, ErrInsufficientCards
	}

	idx := append([]int{}, discardIndices...)
	sort.Sort(sort.Reverse(sort.IntSlice(idx)))

	out := append([]Card{}, hand...)
	for _, i := range idx {
		out = append(out[:i], out[i+1:]...)
	}
	out = append(out, deck[:len(discardIndices)]...)

	rest := append([]Card{}, deck[len(discardIndices):]...)
	return out, rest, nil
}
