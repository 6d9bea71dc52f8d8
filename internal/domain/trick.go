package domain

// TrickPlay pairs a played card with the seat that played it.
type TrickPlay struct {
	Card Card `json:"card"`
	Seat int  `json:"playerIndex"`
}

// ResolveTrick determines the winning seat of a completed trick. Any trump
// beats every non-trump; among trumps (or, with no trump present, among cards
// matching the lead suit) the highest rank under the active order wins.
// Rank ties go to the earliest-played card. Returns -1 for an empty trick.
func ResolveTrick(trick []TrickPlay, trumpSuit string, order Order) int {
	if len(trick) == 0 {
		return -1
	}

	leadSuit := trick[0].Card.Suit
	winner := trick[0]

	candidates := matching(trick, func(c Card) bool { return IsTrump(c, trumpSuit) })
	if len(candidates) == 0 {
		candidates = matching(trick, func(c Card) bool { return c.Suit == leadSuit })
	}
	if len(candidates) > 0 {
		winner = candidates[0]
		for _, p := range candidates[1:] {
			if Rank(p.Card, order) > Rank(winner.Card, order) {
				winner = p
			}
		}
	}

	return winner.Seat
}

// IsVoidTrick reports whether a full trick of seatCount cards consists
// entirely of odd-valued cards. Void tricks are dropped from scoring but the
// resolved winner still leads the next trick.
func IsVoidTrick(trick []TrickPlay, seatCount int) bool {
	odd := 0
	for _, p := range trick {
		if IsOdd(p.Card) {
			odd++
		}
	}
	return odd == seatCount
}

func matching(trick []TrickPlay, keep func(Card) bool) []TrickPlay {
	var out []TrickPlay
	for _, p := range trick {
		if keep(p.Card) {
			out = append(out, p)
		}
	}
	return out
}
