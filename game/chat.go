package game

import "time"

type MessageType string

const (
	MessageTypeMessage      MessageType = "message"
	MessageTypeGuess        MessageType = "guess"
	MessageTypeCorrectGuess MessageType = "correct_guess"
	MessageTypeSystem       MessageType = "system"
)

const correctGuessText = "*** Guessed correctly! ***"

type ChatEvent struct {
	ID         string      `json:"id"`
	PlayerID   string      `json:"playerId,omitempty"`
	PlayerName string      `json:"playerName,omitempty"`
	Message    string      `json:"message"`
	Timestamp  time.Time   `json:"timestamp"`
	Type       MessageType `json:"type"`

	// restricted lines were only shown to the drawer and correct guessers.
	restricted bool
}

// ChatLog keeps the most recent chat events, evicting the oldest first.
type ChatLog struct {
	entries  []ChatEvent
	capacity int
}

func NewChatLog(capacity int) *ChatLog {
	return &ChatLog{
		entries:  make([]ChatEvent, 0, capacity),
		capacity: capacity,
	}
}

func (c *ChatLog) Append(e ChatEvent) {
	if c.capacity <= 0 {
		return
	}
	if len(c.entries) == c.capacity {
		copy(c.entries, c.entries[1:])
		c.entries = c.entries[:len(c.entries)-1]
	}
	c.entries = append(c.entries, e)
}

func (c *ChatLog) Len() int {
	return len(c.entries)
}

// Entries returns a copy of the log, oldest first. Restricted lines are
// left out unless includeRestricted is set.
func (c *ChatLog) Entries(includeRestricted bool) []ChatEvent {
	out := make([]ChatEvent, 0, len(c.entries))
	for _, e := range c.entries {
		if e.restricted && !includeRestricted {
			continue
		}
		out = append(out, e)
	}
	return out
}
