package app

import "errors"

// Rejection sentinels. Each one leaves room state untouched and turns into a
// direct error notice for the acting seat only; nothing is broadcast.
var (
	ErrInvalidSeat       = errors.New("seat out of range for room mode")
	ErrSeatTaken         = errors.New("seat already occupied")
	ErrRoomFull          = errors.New("room is full")
	ErrModeMismatch      = errors.New("room was created with a different mode")
	ErrNotYourTurn       = errors.New("action out of turn")
	ErrInvalidBid        = errors.New("bid does not beat the highest bid")
	ErrMustFollowSuit    = errors.New("must follow the lead suit")
	ErrMalformedAction   = errors.New("malformed action")
	ErrInsufficientCards = errors.New("deck exhausted during exchange")
)

// ErrorMessage maps a rejection to the text shown to the player.
func ErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidSeat):
		return "Invalid player index"
	case errors.Is(err, ErrSeatTaken):
		return "Player slot already taken"
	case errors.Is(err, ErrRoomFull):
		return "Room is full"
	case errors.Is(err, ErrModeMismatch):
		return "Room was created with a different game mode"
	case errors.Is(err, ErrNotYourTurn):
		return "It is not your turn"
	case errors.Is(err, ErrInvalidBid):
		return "Bid must be higher than the current highest bid"
	case errors.Is(err, ErrMustFollowSuit):
		return "You must follow suit if possible!"
	case errors.Is(err, ErrInsufficientCards):
		return "Not enough cards left in the deck"
	case errors.Is(err, ErrMalformedAction):
		return "Invalid message format"
	default:
		return "Invalid message format"
	}
}
