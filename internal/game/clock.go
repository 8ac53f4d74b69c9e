package game

import (
	"time"
)

// clock tracks both sides' remaining time. It is a passive value: the session
// loop drives it by calling tick with the current instant, so elapsed time is
// always a wall-clock delta and stays accurate under scheduling jitter.
type clock struct {
	remaining  map[Color]time.Duration
	increment  time.Duration
	turn       Color
	running    bool
	paused     bool
	lastUpdate time.Time
}

func newClock(base, increment time.Duration) *clock {
	return &clock{
		remaining: map[Color]time.Duration{
			White: base,
			Black: base,
		},
		increment: increment,
		turn:      White,
	}
}

func (c *clock) start(now time.Time) {
	c.running = true
	c.paused = false
	c.lastUpdate = now
}

func (c *clock) pause() {
	c.paused = true
}

func (c *clock) resume(now time.Time) {
	c.paused = false
	c.lastUpdate = now
}

func (c *clock) stop() {
	c.running = false
}

// tick charges wall-clock time elapsed since the last update to the side to
// move. It reports whether that side's flag fell. Remaining time is clamped
// at zero and zero is terminal.
func (c *clock) tick(now time.Time) bool {
	if !c.running || c.paused {
		return false
	}
	elapsed := now.Sub(c.lastUpdate)
	if elapsed < 0 {
		elapsed = 0
	}
	c.remaining[c.turn] -= elapsed
	c.lastUpdate = now
	if c.remaining[c.turn] <= 0 {
		c.remaining[c.turn] = 0
		return true
	}
	return false
}

// giveIncrement credits the mover's increment. Called exactly once per legal
// move, before the turn flips, never from the tick path.
func (c *clock) giveIncrement(mover Color) {
	c.remaining[mover] += c.increment
}

func (c *clock) flipTurn(now time.Time) {
	c.turn = c.turn.Other()
	c.lastUpdate = now
}

func (c *clock) timeLeft() TimeLeft {
	return TimeLeft{
		White: c.remaining[White],
		Black: c.remaining[Black],
	}
}

// ClockSnapshot is an immutable copy of the clock state.
type ClockSnapshot struct {
	White     time.Duration `json:"white"`
	Black     time.Duration `json:"black"`
	Increment time.Duration `json:"increment"`
	Turn      Color         `json:"turn"`
	Running   bool          `json:"running"`
	Paused    bool          `json:"paused"`
}

func (c *clock) snapshot() ClockSnapshot {
	return ClockSnapshot{
		White:     c.remaining[White],
		Black:     c.remaining[Black],
		Increment: c.increment,
		Turn:      c.turn,
		Running:   c.running,
		Paused:    c.paused,
	}
}
