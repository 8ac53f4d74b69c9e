package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClockChargesSideToMove(t *testing.T) {
	now := time.Now()
	c := newClock(time.Minute, 0)
	c.start(now)

	flagFell := c.tick(now.Add(10 * time.Second))
	assert.False(t, flagFell)
	assert.Equal(t, 50*time.Second, c.remaining[White])
	assert.Equal(t, time.Minute, c.remaining[Black])
}

func TestClockFlipTurnSwitchesCharging(t *testing.T) {
	now := time.Now()
	c := newClock(time.Minute, 0)
	c.start(now)

	now = now.Add(5 * time.Second)
	c.tick(now)
	c.flipTurn(now)

	c.tick(now.Add(3 * time.Second))
	assert.Equal(t, 55*time.Second, c.remaining[White])
	assert.Equal(t, 57*time.Second, c.remaining[Black])
}

func TestClockIncrementCreditedOnce(t *testing.T) {
	now := time.Now()
	c := newClock(time.Minute, 2*time.Second)
	c.start(now)

	now = now.Add(10 * time.Second)
	c.tick(now)
	c.giveIncrement(White)
	c.flipTurn(now)

	assert.Equal(t, 52*time.Second, c.remaining[White])
	assert.Equal(t, time.Minute, c.remaining[Black])
}

func TestClockPausedTicksAreFree(t *testing.T) {
	now := time.Now()
	c := newClock(time.Minute, 0)
	c.start(now)
	c.pause()

	flagFell := c.tick(now.Add(time.Hour))
	assert.False(t, flagFell)
	assert.Equal(t, time.Minute, c.remaining[White])

	// Resume resets the reference instant, so paused time is never charged.
	resumed := now.Add(time.Hour)
	c.resume(resumed)
	c.tick(resumed.Add(time.Second))
	assert.Equal(t, 59*time.Second, c.remaining[White])
}

func TestClockFlagFallClampsToZero(t *testing.T) {
	now := time.Now()
	c := newClock(time.Second, 0)
	c.start(now)

	flagFell := c.tick(now.Add(5 * time.Second))
	require.True(t, flagFell)
	assert.Equal(t, time.Duration(0), c.remaining[White])

	// Zero is terminal: later ticks keep reporting the fall, never go negative.
	flagFell = c.tick(now.Add(10 * time.Second))
	assert.True(t, flagFell)
	assert.Equal(t, time.Duration(0), c.remaining[White])
}

func TestClockStoppedNeverCharges(t *testing.T) {
	now := time.Now()
	c := newClock(time.Minute, 0)
	c.start(now)
	c.stop()

	assert.False(t, c.tick(now.Add(time.Hour)))
	assert.Equal(t, time.Minute, c.remaining[White])
}

func TestClockSnapshotCopiesState(t *testing.T) {
	now := time.Now()
	c := newClock(3*time.Minute, 2*time.Second)
	c.start(now)

	snap := c.snapshot()
	assert.Equal(t, 3*time.Minute, snap.White)
	assert.Equal(t, 3*time.Minute, snap.Black)
	assert.Equal(t, 2*time.Second, snap.Increment)
	assert.Equal(t, White, snap.Turn)
	assert.True(t, snap.Running)
	assert.False(t, snap.Paused)
}
