package game

import "errors"

var (
	ErrRoomNotFound     = errors.New("room-not-found")
	ErrRoomFull         = errors.New("room-full")
	ErrRoomExists       = errors.New("room-exists")
	ErrGameInProgress   = errors.New("game-in-progress")
	ErrGameEnded        = errors.New("game-ended")
	ErrAlreadyInRoom    = errors.New("already-in-room")
	ErrNotInRoom        = errors.New("not-in-room")
	ErrSendBufferFull   = errors.New("send-buffer-full")
	ErrClientClosed     = errors.New("client-closed")
	ErrRateLimited      = errors.New("rate-limited")
	ErrUnknownEvent     = errors.New("unknown-event")
	ErrMalformedPacket  = errors.New("malformed-packet")
	ErrNotEnoughPlayers = errors.New("not-enough-players")
	ErrNotDrawer        = errors.New("not-drawer")
	ErrSessionFailed    = errors.New("session-failed")
)

// Boundary validation errors.
var (
	ErrMissingJoinFields = errors.New("missing-join-fields")
	ErrInvalidPlayerName = errors.New("invalid-player-name")
	ErrInvalidRoomName   = errors.New("invalid-room-name")
	ErrInvalidStroke     = errors.New("invalid-stroke")
	ErrEmptyMessage      = errors.New("empty-message")
	ErrMessageTooLong    = errors.New("message-too-long")
)

// joinErrorMessage turns a join failure into the text shown to the player.
func joinErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrMissingJoinFields):
		return "Room ID and player name are required"
	case errors.Is(err, ErrInvalidPlayerName):
		return "Invalid player name"
	case errors.Is(err, ErrRoomNotFound):
		return "Room does not exist"
	case errors.Is(err, ErrRoomFull):
		return "Room is full"
	case errors.Is(err, ErrGameInProgress):
		return "Game is already in progress"
	case errors.Is(err, ErrGameEnded):
		return "Game has already ended"
	case errors.Is(err, ErrAlreadyInRoom):
		return "You are already in this room"
	default:
		return "Failed to join room"
	}
}

// eventErrorMessage is the text of an "error" event sent back to a client
// whose request was refused.
func eventErrorMessage(err error) string {
	switch {
	case errors.Is(err, ErrNotEnoughPlayers):
		return "Need at least 2 players to start"
	case errors.Is(err, ErrGameInProgress):
		return "Game is already in progress"
	case errors.Is(err, ErrGameEnded):
		return "Game has already ended"
	case errors.Is(err, ErrNotDrawer):
		return "Only the drawer can do that"
	case errors.Is(err, ErrNotInRoom):
		return "You are not in a room"
	case errors.Is(err, ErrRoomNotFound):
		return "Room does not exist"
	case errors.Is(err, ErrRateLimited):
		return "Too many messages, slow down"
	case errors.Is(err, ErrEmptyMessage):
		return "Message cannot be empty"
	case errors.Is(err, ErrMessageTooLong):
		return "Message is too long"
	case errors.Is(err, ErrInvalidStroke):
		return "Invalid drawing data"
	case errors.Is(err, ErrUnknownEvent):
		return "Unknown event"
	case errors.Is(err, ErrMalformedPacket):
		return "Malformed packet"
	default:
		return "Something went wrong"
	}
}
