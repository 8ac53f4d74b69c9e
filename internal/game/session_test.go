package game

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *eventLog) publish(sessionID string, ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) count(kind EventKind) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, ev := range l.events {
		if ev.Kind() == kind {
			n++
		}
	}
	return n
}

func (l *eventLog) last(kind EventKind) (Event, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.events) - 1; i >= 0; i-- {
		if l.events[i].Kind() == kind {
			return l.events[i], true
		}
	}
	return nil, false
}

var (
	testWhite = PlayerInfo{ID: "w1", Username: "alice", Rating: 1500}
	testBlack = PlayerInfo{ID: "b1", Username: "bob", Rating: 1480}
)

func newTestSession(t *testing.T, opts Options) (*Session, *eventLog) {
	t.Helper()
	log := &eventLog{}
	opts.Publish = log.publish
	s := NewSession(testWhite, testBlack, TimeControl{Minutes: 5, Increment: 2}, opts)
	t.Cleanup(s.Close)
	return s, log
}

func TestSessionStartActivates(t *testing.T) {
	s, log := newTestSession(t, Options{})
	assert.True(t, s.Start())
	assert.False(t, s.Start(), "second start is a no-op")

	state, err := s.State()
	require.NoError(t, err)
	assert.Equal(t, StatusActive, state.Status)
	assert.Equal(t, White, state.Turn)
	assert.Equal(t, 1, log.count(EventGameStarted))

	clocks, err := s.ClockState()
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, clocks.White)
	assert.Equal(t, 5*time.Minute, clocks.Black)
}

func TestSessionColorsAssigned(t *testing.T) {
	s, _ := newTestSession(t, Options{})
	assert.Equal(t, White, s.White().Color)
	assert.Equal(t, Black, s.Black().Color)

	color, ok := s.PlayerColor("b1")
	require.True(t, ok)
	assert.Equal(t, Black, color)

	_, ok = s.PlayerColor("stranger")
	assert.False(t, ok)
}

func TestSessionMoveBeforeStartRejected(t *testing.T) {
	s, _ := newTestSession(t, Options{})
	_, _, _, err := s.ApplyMove("w1", "e2", "e4", "")
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestSessionTurnOrderEnforced(t *testing.T) {
	s, _ := newTestSession(t, Options{})
	s.Start()

	_, _, _, err := s.ApplyMove("b1", "e7", "e5", "")
	assert.ErrorIs(t, err, ErrNotYourTurn)

	_, state, _, err := s.ApplyMove("w1", "e2", "e4", "")
	require.NoError(t, err)
	assert.Equal(t, Black, state.Turn)

	_, _, _, err = s.ApplyMove("w1", "d2", "d4", "")
	assert.ErrorIs(t, err, ErrNotYourTurn)
}

func TestSessionNonParticipantRejected(t *testing.T) {
	s, _ := newTestSession(t, Options{})
	s.Start()
	_, _, _, err := s.ApplyMove("stranger", "e2", "e4", "")
	assert.ErrorIs(t, err, ErrNotParticipant)
}

func TestSessionRejectedMoveLeavesStateUntouched(t *testing.T) {
	s, log := newTestSession(t, Options{})
	s.Start()

	_, accepted, _, err := s.ApplyMove("w1", "e2", "e4", "")
	require.NoError(t, err)

	// Pawns cannot move sideways.
	_, _, _, err = s.ApplyMove("b1", "e7", "d5", "")
	assert.ErrorIs(t, err, ErrIllegalMove)

	state, err := s.State()
	require.NoError(t, err)
	assert.Equal(t, accepted.Fen, state.Fen)
	assert.Len(t, state.Moves, 1)
	assert.Equal(t, 1, log.count(EventMoveMade), "rejected moves are not broadcast")

	// The same side may retry with a legal move.
	_, state, _, err = s.ApplyMove("b1", "e7", "e5", "")
	require.NoError(t, err)
	assert.Len(t, state.Moves, 2)
}

func TestSessionMovePublishesSnapshot(t *testing.T) {
	s, log := newTestSession(t, Options{})
	s.Start()

	record, state, clocks, err := s.ApplyMove("w1", "e2", "e4", "")
	require.NoError(t, err)
	assert.Equal(t, "e4", record.San)
	assert.Equal(t, record.Fen, state.Fen)
	assert.Equal(t, Black, clocks.Turn)

	ev, ok := log.last(EventMoveMade)
	require.True(t, ok)
	made := ev.(MoveMade)
	assert.Equal(t, s.ID(), made.SessionID)
	assert.Equal(t, record.San, made.Move.San)
	assert.Equal(t, state.Fen, made.State.Fen)
}

func TestSessionIncrementAppliedPerMove(t *testing.T) {
	s, _ := newTestSession(t, Options{})
	s.Start()

	_, _, clocks, err := s.ApplyMove("w1", "e2", "e4", "")
	require.NoError(t, err)
	// The mover is credited the increment, less whatever thinking time elapsed.
	assert.Greater(t, clocks.White, 5*time.Minute)
	assert.LessOrEqual(t, clocks.White, 5*time.Minute+2*time.Second)
	assert.Equal(t, 5*time.Minute, clocks.Black)
}

func TestSessionCheckmateEndsGame(t *testing.T) {
	s, log := newTestSession(t, Options{})
	s.Start()

	moves := [][3]string{
		{"w1", "f2", "f3"},
		{"b1", "e7", "e5"},
		{"w1", "g2", "g4"},
	}
	for _, mv := range moves {
		_, _, _, err := s.ApplyMove(mv[0], mv[1], mv[2], "")
		require.NoError(t, err)
	}

	// The mating move's own reply already carries the finished state.
	_, returned, _, err := s.ApplyMove("b1", "d8", "h4", "")
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, returned.Status)
	assert.True(t, returned.GameOver)
	assert.Equal(t, BlackWon, returned.Outcome)
	assert.Equal(t, "checkmate", returned.Reason)

	state, err := s.State()
	require.NoError(t, err)
	assert.Equal(t, StatusFinished, state.Status)
	assert.True(t, state.GameOver)
	assert.True(t, state.Checkmate)
	assert.Equal(t, BlackWon, state.Outcome)
	assert.Equal(t, "checkmate", state.Reason)
	assert.False(t, state.EndedAt.IsZero())

	// The deciding move is broadcast, then the end.
	assert.Equal(t, 4, log.count(EventMoveMade))
	assert.Equal(t, 1, log.count(EventGameEnded))

	_, _, _, err = s.ApplyMove("w1", "e2", "e4", "")
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestSessionResign(t *testing.T) {
	ended := make(chan Outcome, 1)
	s, log := newTestSession(t, Options{
		OnEnd: func(_ *Session, outcome Outcome, _ string) {
			ended <- outcome
		},
	})
	s.Start()

	assert.False(t, s.Resign("stranger"))
	assert.True(t, s.Resign("w1"))
	assert.False(t, s.Resign("b1"), "game already over")

	state, err := s.State()
	require.NoError(t, err)
	assert.Equal(t, BlackWon, state.Outcome)
	assert.Equal(t, "resignation", state.Reason)
	assert.Equal(t, 1, log.count(EventGameEnded))

	select {
	case outcome := <-ended:
		assert.Equal(t, BlackWon, outcome)
	case <-time.After(time.Second):
		t.Fatal("OnEnd hook never ran")
	}
}

func TestSessionDrawAccept(t *testing.T) {
	s, log := newTestSession(t, Options{})
	s.Start()

	assert.True(t, s.OfferDraw("w1"))
	assert.Equal(t, 1, log.count(EventDrawOffered))

	require.NoError(t, s.RespondDraw("b1", true))
	state, err := s.State()
	require.NoError(t, err)
	assert.Equal(t, Drawn, state.Outcome)
	assert.Equal(t, "draw accepted", state.Reason)
}

func TestSessionDrawDeclineClearsOffer(t *testing.T) {
	s, log := newTestSession(t, Options{})
	s.Start()

	require.True(t, s.OfferDraw("w1"))
	require.NoError(t, s.RespondDraw("b1", false))
	assert.Equal(t, 1, log.count(EventDrawDeclined))

	// A declined offer leaves nothing to respond to.
	assert.ErrorIs(t, s.RespondDraw("b1", true), ErrNoDrawOffer)

	state, err := s.State()
	require.NoError(t, err)
	assert.Equal(t, StatusActive, state.Status)
}

func TestSessionRespondWithoutOffer(t *testing.T) {
	s, _ := newTestSession(t, Options{})
	s.Start()
	assert.ErrorIs(t, s.RespondDraw("b1", true), ErrNoDrawOffer)
	assert.ErrorIs(t, s.RespondDraw("stranger", true), ErrNotParticipant)
}

func TestSessionMutualOffersDraw(t *testing.T) {
	s, _ := newTestSession(t, Options{})
	s.Start()

	assert.True(t, s.OfferDraw("w1"))
	assert.True(t, s.OfferDraw("b1"))

	state, err := s.State()
	require.NoError(t, err)
	assert.Equal(t, Drawn, state.Outcome)
	assert.Equal(t, "mutual agreement", state.Reason)
}

func TestSessionPauseFreezesPlay(t *testing.T) {
	s, log := newTestSession(t, Options{})
	s.Start()

	assert.True(t, s.Pause())
	assert.False(t, s.Pause(), "already paused")
	assert.Equal(t, 1, log.count(EventClockPaused))

	_, _, _, err := s.ApplyMove("w1", "e2", "e4", "")
	assert.ErrorIs(t, err, ErrNotActive)

	assert.True(t, s.Resume())
	assert.Equal(t, 1, log.count(EventClockResumed))

	_, _, _, err = s.ApplyMove("w1", "e2", "e4", "")
	assert.NoError(t, err)
}

func TestSessionFlagFallEndsGameOnce(t *testing.T) {
	s, log := newTestSession(t, Options{
		InitialTime:  30 * time.Millisecond,
		TickInterval: 5 * time.Millisecond,
	})
	s.Start()

	require.Eventually(t, func() bool {
		state, err := s.State()
		return err == nil && state.Status == StatusFinished
	}, time.Second, 5*time.Millisecond)

	state, err := s.State()
	require.NoError(t, err)
	assert.Equal(t, BlackWon, state.Outcome, "white was to move, so white flagged")
	assert.Equal(t, "time expired", state.Reason)

	clocks, err := s.ClockState()
	require.NoError(t, err)
	assert.Equal(t, time.Duration(0), clocks.White)

	// Later ticks must not end the game a second time.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, log.count(EventGameEnded))
}

func TestSessionSpectators(t *testing.T) {
	s, log := newTestSession(t, Options{})
	s.Start()

	s.AddSpectator("viewer-1")
	s.AddSpectator("viewer-2")

	state, err := s.State()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"viewer-1", "viewer-2"}, state.Spectators)
	assert.Equal(t, 2, log.count(EventSpectatorJoined))

	s.RemoveSpectator("viewer-1")
	s.RemoveSpectator("viewer-1")
	state, err = s.State()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"viewer-2"}, state.Spectators)
	assert.Equal(t, 1, log.count(EventSpectatorLeft), "removing twice notifies once")
}

func TestSessionForcedEndIdempotent(t *testing.T) {
	s, log := newTestSession(t, Options{})
	s.Start()

	assert.True(t, s.End(Drawn, "aborted"))
	assert.False(t, s.End(WhiteWon, "aborted"))

	state, err := s.State()
	require.NoError(t, err)
	assert.Equal(t, Drawn, state.Outcome)
	assert.Equal(t, 1, log.count(EventGameEnded))
}

func TestSessionCloseRejectsLaterCalls(t *testing.T) {
	log := &eventLog{}
	s := NewSession(testWhite, testBlack, TimeControl{Minutes: 5}, Options{Publish: log.publish})
	s.Start()
	s.Close()

	_, err := s.State()
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, _, _, err = s.ApplyMove("w1", "e2", "e4", "")
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSessionCapturedPiecesTally(t *testing.T) {
	s, _ := newTestSession(t, Options{})
	s.Start()

	moves := [][3]string{
		{"w1", "e2", "e4"},
		{"b1", "d7", "d5"},
		{"w1", "e4", "d5"},
		{"b1", "d8", "d5"},
	}
	for _, mv := range moves {
		_, _, _, err := s.ApplyMove(mv[0], mv[1], mv[2], "")
		require.NoError(t, err)
	}

	state, err := s.State()
	require.NoError(t, err)
	assert.Equal(t, []string{"p"}, state.Captured.White)
	assert.Equal(t, []string{"p"}, state.Captured.Black)
}

func TestSnapshotPGN(t *testing.T) {
	s, _ := newTestSession(t, Options{})
	s.Start()

	for _, mv := range [][3]string{
		{"w1", "f2", "f3"},
		{"b1", "e7", "e5"},
		{"w1", "g2", "g4"},
		{"b1", "d8", "h4"},
	} {
		_, _, _, err := s.ApplyMove(mv[0], mv[1], mv[2], "")
		require.NoError(t, err)
	}

	state, err := s.State()
	require.NoError(t, err)
	pgn := state.PGN()
	assert.Contains(t, pgn, "[White \"alice\"]")
	assert.Contains(t, pgn, "[Black \"bob\"]")
	assert.Contains(t, pgn, "[Result \"0-1\"]")
	assert.Contains(t, pgn, "1. f3 e5 2. g4 Qh4# 0-1")
}
