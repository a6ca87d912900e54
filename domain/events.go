package domain

import "time"

type RoomEventType string

const (
	RoomCreated   RoomEventType = "created"
	RoomUpdated   RoomEventType = "updated"
	RoomDestroyed RoomEventType = "destroyed"
	RoomGameEnded RoomEventType = "game_ended"
)

// RoomEvent is a lifecycle notice about one room, fanned out to whoever
// watches rooms from outside the process.
type RoomEvent struct {
	Type        RoomEventType `json:"type"`
	RoomID      string        `json:"roomId"`
	PlayerCount int           `json:"playerCount"`
	GameState   string        `json:"gameState,omitempty"`
	MaxPlayers  int           `json:"maxPlayers,omitempty"`
	Result      *GameResult   `json:"result,omitempty"`
	At          time.Time     `json:"at"`
}
