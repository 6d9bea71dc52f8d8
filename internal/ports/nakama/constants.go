package nakama

// MatchName is the authoritative match handler name registered with Nakama.
const MatchName = "finnie_match"

// RpcFindRoom is the RPC id clients call to find or create an open table.
const RpcFindRoom = "find_room"

// Op codes for client messages and server events.
const (
	// Client -> Server: one action envelope per message, same JSON shape as
	// the websocket transport.
	OpPlayerAction int64 = 1

	// Server -> Client events
	OpJoined    int64 = 101
	OpGameState int64 = 102
	OpError     int64 = 103
)
