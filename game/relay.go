package game

import (
	"time"

	"golang.org/x/time/rate"
)

const DefaultRelayInterval = 16 * time.Millisecond

// DrawingRelay stores the strokes of the current turn and decides which of
// them are forwarded. At most one stroke is forwarded per interval; a stroke
// arriving inside a spent window replaces any earlier pending one and is
// forwarded by Flush once the window reopens.
type DrawingRelay struct {
	strokes    []Stroke
	limiter    *rate.Limiter
	interval   time.Duration
	pending    *Stroke
	flushArmed bool
}

func NewDrawingRelay(interval time.Duration) *DrawingRelay {
	if interval <= 0 {
		interval = DefaultRelayInterval
	}
	return &DrawingRelay{
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		interval: interval,
	}
}

// Record appends s to the history. forward reports whether s goes out
// right away. A positive flushIn asks the caller to call Flush after that
// delay; it is returned once per throttled window.
func (r *DrawingRelay) Record(s Stroke, now time.Time) (forward bool, flushIn time.Duration) {
	r.strokes = append(r.strokes, s)

	if r.limiter.AllowN(now, 1) {
		r.pending = nil
		return true, 0
	}

	r.pending = &s
	if r.flushArmed {
		return false, 0
	}
	r.flushArmed = true
	return false, r.delay(now)
}

// Flush returns the pending stroke if the window allows it. When it is still
// too early the flush has to be retried after retryIn.
func (r *DrawingRelay) Flush(now time.Time) (out *Stroke, retryIn time.Duration) {
	r.flushArmed = false
	if r.pending == nil {
		return nil, 0
	}
	if !r.limiter.AllowN(now, 1) {
		r.flushArmed = true
		return nil, r.delay(now)
	}
	out, r.pending = r.pending, nil
	return out, 0
}

func (r *DrawingRelay) delay(now time.Time) time.Duration {
	res := r.limiter.ReserveN(now, 1)
	d := res.DelayFrom(now)
	res.CancelAt(now)
	if d <= 0 {
		d = r.interval
	}
	return d
}

// Clear wipes the canvas history.
func (r *DrawingRelay) Clear() {
	r.strokes = nil
	r.pending = nil
}

// Reset prepares the relay for a new turn.
func (r *DrawingRelay) Reset() {
	r.Clear()
	r.flushArmed = false
}

func (r *DrawingRelay) History() []Stroke {
	out := make([]Stroke, len(r.strokes))
	copy(out, r.strokes)
	return out
}

func (r *DrawingRelay) Len() int {
	return len(r.strokes)
}
