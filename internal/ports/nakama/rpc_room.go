package nakama

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/heroiclabs/nakama-common/runtime"

	"finnie/internal/domain"
)

// FindRoomRequest selects the table shape the client wants to sit at.
type FindRoomRequest struct {
	Mode string `json:"mode"`
}

// FindRoomResponse is the payload returned to clients looking for a table.
type FindRoomResponse struct {
	MatchID string `json:"match_id"`
	IsNew   bool   `json:"is_new"`
}

// RegisterRPCs registers Nakama RPC endpoints.
func RegisterRPCs(initializer runtime.Initializer) error {
	return initializer.RegisterRpc(RpcFindRoom, rpcFindRoom)
}

func rpcFindRoom(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	var req FindRoomRequest
	if payload != "" {
		if err := json.Unmarshal([]byte(payload), &req); err != nil {
			return "", runtime.NewError("invalid payload", 3)
		}
	}
	mode := domain.Mode(req.Mode)
	if !mode.Valid() {
		mode = domain.ModeTeams
	}

	// Find any open table of the requested shape.
	query := `+label.open:T +label.game:finnie +label.mode:"` + string(mode) + `"`

	limit := 10
	authoritative := true
	minSize := 0
	maxSize := mode.Seats() - 1

	matches, err := nk.MatchList(ctx, limit, authoritative, "", &minSize, &maxSize, query)
	if err != nil {
		logger.Error("MatchList error: %v", err)
		return "", err
	}

	if len(matches) > 0 {
		b, _ := json.Marshal(FindRoomResponse{MatchID: matches[0].MatchId, IsNew: false})
		return string(b), nil
	}

	matchID, err := nk.MatchCreate(ctx, MatchName, map[string]interface{}{"mode": string(mode)})
	if err != nil {
		logger.Error("MatchCreate error: %v", err)
		return "", err
	}

	b, _ := json.Marshal(FindRoomResponse{MatchID: matchID, IsNew: true})
	return string(b), nil
}
