package lobby

import "errors"

// Domain failures returned to callers as structured results. Controllers map
// these onto HTTP status codes and stable response codes; nothing here is ever
// surfaced as an opaque 500.
var (
	ErrNotFound       = errors.New("lobby not found")
	ErrUnknownTier    = errors.New("unknown tier")
	ErrQueueSize      = errors.New("queue size not offered for this tier")
	ErrDuplicateEntry = errors.New("user already holds a seat in this lobby")
	ErrNumberTaken    = errors.New("lucky number already taken in this lobby")
	ErrInvalidNumber  = errors.New("lucky number out of range for this lobby")
	ErrLobbyFull      = errors.New("lobby is full or already counting down")
	ErrLobbyClosed    = errors.New("lobby no longer accepts number changes")

	// ErrNoWinningSeat means the winning number mapped to no seated player.
	// That is a broken invariant, not a recoverable condition: resolution
	// halts and the lobby stays put for operator attention.
	ErrNoWinningSeat = errors.New("winning number matches no seated player")
)
