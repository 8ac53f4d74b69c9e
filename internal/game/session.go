package game

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chess-vn/livechess/pkg/logging"
)

const (
	defaultTickInterval         = 100 * time.Millisecond
	defaultClockPublishInterval = time.Second
)

// Options tune a session. Zero values fall back to defaults.
type Options struct {
	// TickInterval is the clock polling granularity.
	TickInterval time.Duration
	// ClockPublishInterval is how often a running clock is broadcast.
	ClockPublishInterval time.Duration
	// InitialTime overrides the time control's base time when set. Used for
	// custom setups.
	InitialTime time.Duration
	// Publish receives every state-changed event for the session's room.
	Publish PublishFunc
	// OnEnd runs once when the session finishes, whatever the cause. It is
	// called from the session goroutine and must not call back into the
	// session.
	OnEnd func(s *Session, outcome Outcome, reason string)
}

// Session is the authoritative state machine for one game. A single goroutine
// owns all mutable state and drains one command channel; clock ticks are
// multiplexed into the same loop, so a mutation in flight always completes
// before a concurrent tick is observed. A tick arriving while a move finishes
// the game is processed afterwards and becomes a no-op.
type Session struct {
	id        string
	white     PlayerInfo
	black     PlayerInfo
	control   TimeControl
	createdAt time.Time
	opts      Options

	// Owned by the run goroutine.
	board       *board
	clock       *clock
	status      Status
	outcome     Outcome
	reason      string
	endedAt     time.Time
	moves       []MoveRecord
	spectators  map[string]struct{}
	drawOffers  map[Color]bool
	ticker      *time.Ticker
	clockTicker *time.Ticker

	cmdCh chan command
	done  chan struct{}
}

type commandKind uint8

const (
	cmdStart commandKind = iota
	cmdPause
	cmdResume
	cmdMove
	cmdResign
	cmdOfferDraw
	cmdRespondDraw
	cmdAddSpectator
	cmdRemoveSpectator
	cmdEnd
	cmdState
	cmdClockState
	cmdClose
)

type command struct {
	kind      commandKind
	player    string
	from      string
	to        string
	promotion string
	accept    bool
	outcome   Outcome
	reason    string
	reply     chan result
}

type result struct {
	err     error
	changed bool
	move    MoveRecord
	state   Snapshot
	clocks  ClockSnapshot
}

// NewSession allocates a session in the waiting state and starts its owner
// goroutine. Colors are decided by the caller.
func NewSession(white, black PlayerInfo, control TimeControl, opts Options) *Session {
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaultTickInterval
	}
	if opts.ClockPublishInterval <= 0 {
		opts.ClockPublishInterval = defaultClockPublishInterval
	}
	base := control.Base()
	if opts.InitialTime > 0 {
		base = opts.InitialTime
	}
	white.Color = White
	black.Color = Black
	s := &Session{
		id:         uuid.NewString(),
		white:      white,
		black:      black,
		control:    control,
		createdAt:  time.Now(),
		opts:       opts,
		board:      newBoard(),
		clock:      newClock(base, control.Bonus()),
		status:     StatusWaiting,
		spectators: make(map[string]struct{}),
		drawOffers: map[Color]bool{White: false, Black: false},
		cmdCh:      make(chan command),
		done:       make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Session) ID() string           { return s.id }
func (s *Session) White() PlayerInfo    { return s.white }
func (s *Session) Black() PlayerInfo    { return s.black }
func (s *Session) Control() TimeControl { return s.control }
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// PlayerColor reports which color the identity plays, if a participant.
func (s *Session) PlayerColor(playerID string) (Color, bool) {
	switch playerID {
	case s.white.ID:
		return White, true
	case s.black.ID:
		return Black, true
	}
	return "", false
}

func (s *Session) run() {
	s.ticker = time.NewTicker(s.opts.TickInterval)
	s.clockTicker = time.NewTicker(s.opts.ClockPublishInterval)
	defer func() {
		s.ticker.Stop()
		s.clockTicker.Stop()
		close(s.done)
	}()
	for {
		select {
		case cmd := <-s.cmdCh:
			if cmd.kind == cmdClose {
				cmd.reply <- result{}
				return
			}
			cmd.reply <- s.handle(cmd)
		case now := <-s.ticker.C:
			s.onTick(now)
		case <-s.clockTicker.C:
			s.onClockPublish()
		}
	}
}

func (s *Session) do(cmd command) result {
	cmd.reply = make(chan result, 1)
	select {
	case s.cmdCh <- cmd:
		return <-cmd.reply
	case <-s.done:
		return result{err: ErrSessionClosed}
	}
}

func (s *Session) handle(cmd command) result {
	switch cmd.kind {
	case cmdStart:
		return s.handleStart()
	case cmdPause:
		return s.handlePause()
	case cmdResume:
		return s.handleResume()
	case cmdMove:
		return s.handleMove(cmd)
	case cmdResign:
		return s.handleResign(cmd)
	case cmdOfferDraw:
		return s.handleOfferDraw(cmd)
	case cmdRespondDraw:
		return s.handleRespondDraw(cmd)
	case cmdAddSpectator:
		s.spectators[cmd.player] = struct{}{}
		s.publish(SpectatorJoined{SessionID: s.id, SpectatorID: cmd.player})
		return result{changed: true}
	case cmdRemoveSpectator:
		if _, ok := s.spectators[cmd.player]; ok {
			delete(s.spectators, cmd.player)
			s.publish(SpectatorLeft{SessionID: s.id, SpectatorID: cmd.player})
			return result{changed: true}
		}
		return result{}
	case cmdEnd:
		return result{changed: s.finish(cmd.outcome, cmd.reason)}
	case cmdState:
		return result{state: s.snapshotLocked()}
	case cmdClockState:
		return result{clocks: s.clock.snapshot()}
	}
	return result{}
}

func (s *Session) handleStart() result {
	if s.status != StatusWaiting {
		return result{}
	}
	s.status = StatusActive
	s.clock.start(time.Now())
	s.publish(GameStarted{
		SessionID: s.id,
		State:     s.snapshotLocked(),
		Clocks:    s.clock.snapshot(),
	})
	logging.Info("game started",
		zap.String("session_id", s.id),
		zap.String("white", s.white.ID),
		zap.String("black", s.black.ID),
	)
	return result{changed: true}
}

func (s *Session) handlePause() result {
	if s.status != StatusActive {
		return result{}
	}
	s.status = StatusPaused
	s.clock.pause()
	s.publish(ClockPaused{SessionID: s.id, Clocks: s.clock.snapshot()})
	return result{changed: true}
}

func (s *Session) handleResume() result {
	if s.status != StatusPaused {
		return result{}
	}
	s.status = StatusActive
	s.clock.resume(time.Now())
	s.publish(ClockResumed{SessionID: s.id, Clocks: s.clock.snapshot()})
	return result{changed: true}
}

func (s *Session) handleMove(cmd command) result {
	if s.status != StatusActive {
		return result{err: ErrNotActive}
	}
	color, ok := s.PlayerColor(cmd.player)
	if !ok {
		return result{err: ErrNotParticipant}
	}
	// The position is the single source of truth for whose turn it is.
	if color != s.board.turn() {
		return result{err: ErrNotYourTurn}
	}
	record, err := s.board.apply(cmd.from, cmd.to, cmd.promotion)
	if err != nil {
		// Rejected moves leave position, clock and move log untouched.
		return result{err: err}
	}

	now := time.Now()
	flagFell := s.clock.tick(now)
	if !flagFell {
		s.clock.giveIncrement(color)
		s.clock.flipTurn(now)
	}
	record.Timestamp = now
	record.TimeLeft = s.clock.timeLeft()
	s.moves = append(s.moves, record)

	// The move is broadcast before any game end it caused.
	s.publish(MoveMade{
		SessionID: s.id,
		Move:      record,
		State:     s.snapshotLocked(),
		Clocks:    s.clock.snapshot(),
	})

	if flagFell {
		// The move landed after the mover's flag already fell.
		s.finish(winner(color.Other()), "time expired")
	} else if outcome, reason, over := s.board.terminal(); over {
		s.finish(outcome, reason)
	}

	// The caller's snapshot is taken after terminal evaluation, so a mating
	// move reports the finished state.
	return result{
		changed: true,
		move:    record,
		state:   s.snapshotLocked(),
		clocks:  s.clock.snapshot(),
	}
}

func (s *Session) handleResign(cmd command) result {
	if s.status != StatusActive {
		return result{}
	}
	color, ok := s.PlayerColor(cmd.player)
	if !ok {
		return result{}
	}
	s.finish(winner(color.Other()), "resignation")
	return result{changed: true}
}

func (s *Session) handleOfferDraw(cmd command) result {
	if s.status != StatusActive {
		return result{}
	}
	color, ok := s.PlayerColor(cmd.player)
	if !ok {
		return result{}
	}
	s.drawOffers[color] = true
	if s.drawOffers[White] && s.drawOffers[Black] {
		s.finish(Drawn, "mutual agreement")
	} else {
		s.publish(DrawOffered{SessionID: s.id, ByPlayer: cmd.player, ByColor: color})
	}
	return result{changed: true}
}

func (s *Session) handleRespondDraw(cmd command) result {
	if s.status != StatusActive {
		return result{err: ErrNotActive}
	}
	color, ok := s.PlayerColor(cmd.player)
	if !ok {
		return result{err: ErrNotParticipant}
	}
	if !s.drawOffers[color.Other()] {
		return result{err: ErrNoDrawOffer}
	}
	if cmd.accept {
		s.finish(Drawn, "draw accepted")
	} else {
		s.drawOffers[White] = false
		s.drawOffers[Black] = false
		s.publish(DrawDeclined{SessionID: s.id, ByPlayer: cmd.player})
	}
	return result{changed: true}
}

func (s *Session) onTick(now time.Time) {
	if s.status != StatusActive {
		return
	}
	if s.clock.tick(now) {
		loser := s.clock.turn
		logging.Info("flag fell",
			zap.String("session_id", s.id),
			zap.String("color", string(loser)),
		)
		s.finish(winner(loser.Other()), "time expired")
	}
}

func (s *Session) onClockPublish() {
	if s.status != StatusActive {
		return
	}
	s.publish(ClockUpdate{SessionID: s.id, Clocks: s.clock.snapshot()})
}

// finish moves the session to its terminal state exactly once. Any later
// call is a reported no-op.
func (s *Session) finish(outcome Outcome, reason string) bool {
	if s.status == StatusFinished {
		return false
	}
	s.status = StatusFinished
	s.outcome = outcome
	s.reason = reason
	s.endedAt = time.Now()
	s.clock.stop()
	s.ticker.Stop()
	s.clockTicker.Stop()
	s.publish(GameEnded{
		SessionID: s.id,
		Outcome:   outcome,
		Reason:    reason,
		State:     s.snapshotLocked(),
	})
	logging.Info("game ended",
		zap.String("session_id", s.id),
		zap.String("outcome", string(outcome)),
		zap.String("reason", reason),
	)
	if s.opts.OnEnd != nil {
		s.opts.OnEnd(s, outcome, reason)
	}
	return true
}

func (s *Session) publish(ev Event) {
	if s.opts.Publish != nil {
		s.opts.Publish(s.id, ev)
	}
}

// Start moves the session from waiting to active and starts the clock.
func (s *Session) Start() bool {
	return s.do(command{kind: cmdStart}).changed
}

// Pause stops the clock. Only valid while active.
func (s *Session) Pause() bool {
	return s.do(command{kind: cmdPause}).changed
}

// Resume restarts the clock. Only valid while paused.
func (s *Session) Resume() bool {
	return s.do(command{kind: cmdResume}).changed
}

// ApplyMove validates and applies a move for the given identity. On success
// it returns the move record and post-move snapshots. Rejections are
// side-effect free.
func (s *Session) ApplyMove(playerID, from, to, promotion string) (MoveRecord, Snapshot, ClockSnapshot, error) {
	res := s.do(command{
		kind:      cmdMove,
		player:    playerID,
		from:      from,
		to:        to,
		promotion: promotion,
	})
	return res.move, res.state, res.clocks, res.err
}

// Resign ends the game with the opponent as winner. Valid only while active
// and for participants; otherwise reports false.
func (s *Session) Resign(playerID string) bool {
	return s.do(command{kind: cmdResign, player: playerID}).changed
}

// OfferDraw records a draw offer for the identity's color. When both colors
// have offered, the game finishes as a draw by mutual agreement.
func (s *Session) OfferDraw(playerID string) bool {
	return s.do(command{kind: cmdOfferDraw, player: playerID}).changed
}

// RespondDraw answers the opponent's outstanding offer. Declining clears both
// flags and ends nothing.
func (s *Session) RespondDraw(playerID string, accept bool) error {
	return s.do(command{kind: cmdRespondDraw, player: playerID, accept: accept}).err
}

func (s *Session) AddSpectator(id string) {
	s.do(command{kind: cmdAddSpectator, player: id})
}

func (s *Session) RemoveSpectator(id string) {
	s.do(command{kind: cmdRemoveSpectator, player: id})
}

// End forces the session into the finished state. Reports false when the
// session had already finished.
func (s *Session) End(outcome Outcome, reason string) bool {
	return s.do(command{kind: cmdEnd, outcome: outcome, reason: reason}).changed
}

// State returns an immutable snapshot of the public game state.
func (s *Session) State() (Snapshot, error) {
	res := s.do(command{kind: cmdState})
	return res.state, res.err
}

// ClockState returns an immutable snapshot of both clocks.
func (s *Session) ClockState() (ClockSnapshot, error) {
	res := s.do(command{kind: cmdClockState})
	return res.clocks, res.err
}

// Close terminates the session goroutine. Pending and later calls fail with
// ErrSessionClosed.
func (s *Session) Close() {
	s.do(command{kind: cmdClose})
}
