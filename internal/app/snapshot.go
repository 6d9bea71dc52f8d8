package app

import "finnie/internal/domain"

// PlayerSnapshot is one seat's serialized state. Hands are visible to the
// whole table, matching the trust model of a friendly game.
type PlayerSnapshot struct {
	Name          string        `json:"name"`
	Cards         []domain.Card `json:"cards"`
	Bid           *int          `json:"bid"`
	SelectedCards []int         `json:"selectedCards"`
}

// Snapshot is the full match state in its wire shape. Every accepted mutation
// broadcasts one of these.
type Snapshot struct {
	Phase          domain.Phase       `json:"phase"`
	GameMode       domain.Mode        `json:"gameMode"`
	Players        []PlayerSnapshot   `json:"players"`
	CurrentSeat    int                `json:"currentPlayerIndex"`
	DealerSeat     int                `json:"dealerIndex"`
	LeadBidderSeat int                `json:"biddingPlayerIndex"`
	HighestBid     int                `json:"highestBid"`
	WinningBidder  *int               `json:"winningBidder"`
	TrumpSuit      string             `json:"trumpSuit"`
	RankingOrder   domain.Order       `json:"rankingOrder"`
	CurrentTrick   []domain.TrickPlay `json:"currentTrick"`
	TricksWon      map[string]int     `json:"tricksWon"`
	Scores         map[string]int     `json:"scores"`
	CurrentRound   int                `json:"currentRound"`
	Deck           []domain.Card      `json:"deck"`
	GameStarted    bool               `json:"gameStarted"`
	Message        string             `json:"message"`
}

// BuildSnapshot copies the match state into its wire shape. The copy is deep
// enough that later mutations of the game never show through an event that
// has already been emitted.
func BuildSnapshot(g *domain.Game) *Snapshot {
	players := make([]PlayerSnapshot, len(g.Players))
	for i, p := range g.Players {
		players[i] = PlayerSnapshot{
			Name:          p.Name,
			Cards:         append([]domain.Card{}, p.Hand...),
			Bid:           copyInt(p.Bid),
			SelectedCards: append([]int{}, p.Selected...),
		}
	}

	keys := g.Mode.SideKeys()
	return &Snapshot{
		Phase:          g.Phase,
		GameMode:       g.Mode,
		Players:        players,
		CurrentSeat:    g.CurrentSeat,
		DealerSeat:     g.DealerSeat,
		LeadBidderSeat: g.LeadBidderSeat,
		HighestBid:     g.HighestBid,
		WinningBidder:  copyInt(g.WinningBidder),
		TrumpSuit:      g.TrumpSuit,
		RankingOrder:   g.Order,
		CurrentTrick:   append([]domain.TrickPlay{}, g.CurrentTrick...),
		TricksWon:      map[string]int{keys[0]: g.TricksWon[keys[0]], keys[1]: g.TricksWon[keys[1]]},
		Scores:         map[string]int{keys[0]: g.Scores[keys[0]], keys[1]: g.Scores[keys[1]]},
		CurrentRound:   g.CurrentRound,
		Deck:           append([]domain.Card{}, g.Deck...),
		GameStarted:    g.Started,
		Message:        g.Message,
	}
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
