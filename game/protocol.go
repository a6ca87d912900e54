package game

import (
	"encoding/json"
	"fmt"
)

// Inbound event names.
const (
	EventJoinRoom              = "joinRoom"
	EventLeaveRoom             = "leaveRoom"
	EventToggleReady           = "toggleReady"
	EventStartGame             = "startGame"
	EventDrawing               = "drawing"
	EventClearCanvas           = "clearCanvas"
	EventMakeGuess             = "makeGuess"
	EventSendMessage           = "sendMessage"
	EventRequestDrawingHistory = "requestDrawingHistory"
	EventRequestChatHistory    = "requestChatHistory"
)

// Outbound event names.
const (
	EventJoinedRoom             = "joinedRoom"
	EventJoinError              = "joinError"
	EventPlayerJoined           = "playerJoined"
	EventPlayerLeft             = "playerLeft"
	EventPlayerReadyChanged     = "playerReadyChanged"
	EventGameStarted            = "gameStarted"
	EventYourWord               = "yourWord"
	EventDrawingData            = "drawingData"
	EventCanvasCleared          = "canvasCleared"
	EventDrawingHistory         = "drawingHistory"
	EventCorrectGuess           = "correctGuess"
	EventPlayerGuessedCorrectly = "playerGuessedCorrectly"
	EventScoresUpdated          = "scoresUpdated"
	EventRoundEnded             = "roundEnded"
	EventGameEnded              = "gameEnded"
	EventNewMessage             = "newMessage"
	EventChatHistory            = "chatHistory"
	EventError                  = "error"
)

// Envelope is a single websocket frame in either direction.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type outboundEnvelope struct {
	Event string `json:"event"`
	Data  any    `json:"data,omitempty"`
}

func encodeEvent(event string, payload any) ([]byte, error) {
	return json.Marshal(outboundEnvelope{Event: event, Data: payload})
}

// ScoreEntry travels as a ["playerId", score] pair.
type ScoreEntry struct {
	PlayerID string
	Score    int
}

func (e ScoreEntry) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{e.PlayerID, e.Score})
}

func (e *ScoreEntry) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[0], &e.PlayerID); err != nil {
		return fmt.Errorf("score entry id: %w", err)
	}
	if err := json.Unmarshal(raw[1], &e.Score); err != nil {
		return fmt.Errorf("score entry score: %w", err)
	}
	return nil
}

// GameState is the public view of a room. It never carries the secret word.
type GameState struct {
	ID               string       `json:"id"`
	Players          []Player     `json:"players"`
	CurrentDrawer    *Player      `json:"currentDrawer"`
	GameState        Phase        `json:"gameState"`
	Round            int          `json:"round"`
	MaxRounds        int          `json:"maxRounds"`
	Scores           []ScoreEntry `json:"scores"`
	GuessedCorrectly []string     `json:"guessedCorrectly"`
	WordHint         string       `json:"wordHint,omitempty"`
}

// Inbound payloads.

type joinRoomInput struct {
	RoomID     string `json:"roomId"`
	PlayerName string `json:"playerName"`
}

type makeGuessInput struct {
	Guess string `json:"guess"`
}

type sendMessageInput struct {
	Message string `json:"message"`
	RoomID  string `json:"roomId"`
}

// Outbound payloads.

type messagePayload struct {
	Message string `json:"message"`
}

type joinedRoomPayload struct {
	RoomID    string    `json:"roomId"`
	Player    Player    `json:"player"`
	GameState GameState `json:"gameState"`
}

type playerPayload struct {
	Player    Player    `json:"player"`
	GameState GameState `json:"gameState"`
}

type readyChangedPayload struct {
	PlayerID  string    `json:"playerId"`
	IsReady   bool      `json:"isReady"`
	GameState GameState `json:"gameState"`
}

type gameStartedPayload struct {
	GameState     GameState `json:"gameState"`
	CurrentDrawer *Player   `json:"currentDrawer"`
	RoundTime     int       `json:"roundTime"`
}

type yourWordPayload struct {
	Word string `json:"word"`
}

type drawingHistoryPayload struct {
	DrawingData []Stroke `json:"drawingData"`
}

type correctGuessPayload struct {
	Points int `json:"points"`
	Score  int `json:"score"`
}

type guessedCorrectlyPayload struct {
	Player Player `json:"player"`
	Word   string `json:"word,omitempty"`
}

type scoresPayload struct {
	Scores []ScoreEntry `json:"scores"`
}

type roundEndedPayload struct {
	Word       string       `json:"word"`
	Scores     []ScoreEntry `json:"scores"`
	NextDrawer *Player      `json:"nextDrawer"`
}

type gameEndedPayload struct {
	FinalScores []ScoreEntry `json:"finalScores"`
	Winner      *ScoreEntry  `json:"winner"`
}

type chatHistoryPayload struct {
	Messages []ChatEvent `json:"messages"`
}
