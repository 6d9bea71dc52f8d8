package domain

// Mode is the table shape, fixed at room creation.
type Mode string

const (
	// ModeHeadsUp is the 2-seat head-to-head table.
	ModeHeadsUp Mode = "2-player"
	// ModeTeams is the 4-seat table with seats {0,2} vs {1,3}.
	ModeTeams Mode = "4-player"
)

// Valid reports whether m is one of the two supported table shapes.
func (m Mode) Valid() bool {
	return m == ModeHeadsUp || m == ModeTeams
}

// Seats returns the number of seats at the table.
func (m Mode) Seats() int {
	if m == ModeHeadsUp {
		return 2
	}
	return 4
}

// HandSize returns the cards dealt to each seat: 9 heads-up, 7 in teams.
func (m Mode) HandSize() int {
	if m == ModeHeadsUp {
		return 9
	}
	return 7
}

// TrickCap is the number of tricks that ends a round. It equals the hand
// size, so a round always plays the full hand out.
func (m Mode) TrickCap() int {
	return m.HandSize()
}

// SideKeys returns the two scoring-side keys in seat order: player1/player2
// heads-up, team1/team2 in teams mode.
func (m Mode) SideKeys() [2]string {
	if m == ModeHeadsUp {
		return [2]string{"player1", "player2"}
	}
	return [2]string{"team1", "team2"}
}

// SideOfSeat maps a seat index to its scoring-side key. In teams mode the
// even seats form team1 and the odd seats team2.
func (m Mode) SideOfSeat(seat int) string {
	keys := m.SideKeys()
	return keys[seat%2]
}

// BaseTarget is the score a side must reach to win before any escalation.
const BaseTarget = 21

// ApplyRound folds one round's trick counts into the cumulative scores.
// A made bid credits both sides with their own trick count; a failed bid
// costs the bidding side the bid amount while the other side still collects
// its tricks. Returns a fresh map; the input is not mutated.
func ApplyRound(scores, tricks map[string]int, keys [2]string, bidderSide string, bid int) map[string]int {
	otherSide := keys[0]
	if bidderSide == keys[0] {
		otherSide = keys[1]
	}

	out := map[string]int{
		keys[0]: scores[keys[0]],
		keys[1]: scores[keys[1]],
	}
	if tricks[bidderSide] >= bid {
		out[bidderSide] += tricks[bidderSide]
	} else {
		out[bidderSide] -= bid
	}
	out[otherSide] += tricks[otherSide]
	return out
}

// TargetScore computes the score needed to end the game. The target starts at
// 21; once both sides sit strictly above 21 it escalates to
// 31 + floor(leader/10)*10 - 21, recomputed from the current leader every
// round both remain over the baseline.
func TargetScore(scores map[string]int, keys [2]string) int {
	a, b := scores[keys[0]], scores[keys[1]]
	if a > BaseTarget && b > BaseTarget {
		leader := a
		if b > a {
			leader = b
		}
		return 31 + (leader/10)*10 - BaseTarget
	}
	return BaseTarget
}
