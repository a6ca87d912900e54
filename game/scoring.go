package game

// ScoringPolicy decides what a turn is worth. The session only asks it for
// numbers, so rules can change without touching turn logic.
type ScoringPolicy interface {
	DrawerBonus() int
	// GuesserPoints is called with the 1-based arrival rank of a correct guess.
	GuesserPoints(rank int) int
}

type DefaultScoring struct{}

func NewDefaultScoring() DefaultScoring {
	return DefaultScoring{}
}

func (DefaultScoring) DrawerBonus() int {
	return 10
}

func (DefaultScoring) GuesserPoints(rank int) int {
	return max(15-2*rank, 5)
}
