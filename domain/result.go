package domain

import "time"

// FinalScore is one line of a finished game's scoreboard.
type FinalScore struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
	Score      int    `json:"score"`
}

// GameResult is what is left of a room once its game reached the ended phase.
// Scores are sorted best first.
type GameResult struct {
	RoomID     string       `json:"roomId"`
	Rounds     int          `json:"rounds"`
	StartedAt  time.Time    `json:"startedAt"`
	FinishedAt time.Time    `json:"finishedAt"`
	Scores     []FinalScore `json:"scores"`
}

func (r GameResult) Winner() (FinalScore, bool) {
	if len(r.Scores) == 0 {
		return FinalScore{}, false
	}
	return r.Scores[0], true
}
