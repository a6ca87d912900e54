package game

import "time"

type Timer interface {
	Stop() bool
}

// TimerFactory schedules one-shot callbacks. Rooms only talk to timers
// through it so tests can fire them by hand.
type TimerFactory interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type timerGen struct{}

func NewTimerGen() timerGen {
	return timerGen{}
}

func (timerGen) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}
