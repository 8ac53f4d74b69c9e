package registry

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chess-vn/livechess/internal/game"
	"github.com/chess-vn/livechess/internal/user"
	"github.com/chess-vn/livechess/pkg/logging"
)

var (
	ErrIdentityNotFound = errors.New("identity not found")
	ErrAlreadyInSession = errors.New("identity already in an active session")
	ErrSessionNotFound  = errors.New("session not found")
)

// defaultRetention is how long a finished session stays queryable before its
// goroutine is closed and its index entry dropped.
const defaultRetention = time.Hour

// Registry owns the session-id and identity-id indexes. Finished sessions
// stay queryable for the retention window; only the identity mappings are
// released immediately, so an identity can hold at most one active session
// at a time.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*game.Session
	byPlayer map[string]string

	users     *user.Directory
	publish   game.PublishFunc
	opts      game.Options
	retention time.Duration
}

// New builds a registry. The publish function receives every event of every
// session the registry creates.
func New(users *user.Directory, publish game.PublishFunc, opts game.Options) *Registry {
	return &Registry{
		sessions:  make(map[string]*game.Session),
		byPlayer:  make(map[string]string),
		users:     users,
		publish:   publish,
		opts:      opts,
		retention: defaultRetention,
	}
}

// Create allocates a session between two known identities. Colors are the
// caller's decision: whiteID plays white.
func (r *Registry) Create(whiteID, blackID string, control game.TimeControl) (*game.Session, error) {
	white, ok := r.users.Get(whiteID)
	if !ok {
		return nil, ErrIdentityNotFound
	}
	black, ok := r.users.Get(blackID)
	if !ok {
		return nil, ErrIdentityNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, busy := r.byPlayer[whiteID]; busy {
		return nil, ErrAlreadyInSession
	}
	if _, busy := r.byPlayer[blackID]; busy {
		return nil, ErrAlreadyInSession
	}

	opts := r.opts
	opts.Publish = r.publish
	opts.OnEnd = r.handleEnd
	session := game.NewSession(
		game.PlayerInfo{ID: white.ID, Username: white.Username, Rating: white.Stats.Rating},
		game.PlayerInfo{ID: black.ID, Username: black.Username, Rating: black.Stats.Rating},
		control,
		opts,
	)
	r.sessions[session.ID()] = session
	r.byPlayer[whiteID] = session.ID()
	r.byPlayer[blackID] = session.ID()
	logging.Info("session created",
		zap.String("session_id", session.ID()),
		zap.String("white", whiteID),
		zap.String("black", blackID),
	)
	return session, nil
}

// Get looks a session up without mutating anything.
func (r *Registry) Get(sessionID string) (*game.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[sessionID]
	return s, ok
}

// SessionFor returns the identity's active session, if any.
func (r *Registry) SessionFor(playerID string) (*game.Session, bool) {
	r.mu.Lock()
	id, ok := r.byPlayer[playerID]
	if !ok {
		r.mu.Unlock()
		return nil, false
	}
	s := r.sessions[id]
	r.mu.Unlock()
	return s, s != nil
}

// InSession reports whether the identity currently holds an active session.
func (r *Registry) InSession(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.byPlayer[playerID]
	return ok
}

// End forces a session into the finished state. Ending an already finished
// session is a reported no-op.
func (r *Registry) End(sessionID string, outcome game.Outcome, reason string) (bool, error) {
	session, ok := r.Get(sessionID)
	if !ok {
		return false, ErrSessionNotFound
	}
	return session.End(outcome, reason), nil
}

// handleEnd runs in the session goroutine exactly once per finished session.
// It releases the identity mappings and applies the paired statistics update
// from the ratings both players carried into the game.
func (r *Registry) handleEnd(s *game.Session, outcome game.Outcome, reason string) {
	r.mu.Lock()
	if r.byPlayer[s.White().ID] == s.ID() {
		delete(r.byPlayer, s.White().ID)
	}
	if r.byPlayer[s.Black().ID] == s.ID() {
		delete(r.byPlayer, s.Black().ID)
	}
	r.mu.Unlock()

	duration := int(time.Since(s.CreatedAt()).Seconds())
	whiteScore := 0.5
	whiteResult, blackResult := user.ResultDraw, user.ResultDraw
	switch outcome {
	case game.WhiteWon:
		whiteScore = 1
		whiteResult, blackResult = user.ResultWin, user.ResultLoss
	case game.BlackWon:
		whiteScore = 0
		whiteResult, blackResult = user.ResultLoss, user.ResultWin
	}
	whiteDelta, blackDelta := user.RatingDeltas(s.White().Rating, s.Black().Rating, whiteScore)

	if err := r.users.UpdateStats(s.White().ID, whiteResult, duration, whiteDelta); err != nil {
		logging.Error("stats update failed", zap.String("user_id", s.White().ID), zap.Error(err))
	}
	if err := r.users.UpdateStats(s.Black().ID, blackResult, duration, blackDelta); err != nil {
		logging.Error("stats update failed", zap.String("user_id", s.Black().ID), zap.Error(err))
	}
	logging.Info("session finished",
		zap.String("session_id", s.ID()),
		zap.String("outcome", string(outcome)),
		zap.String("reason", reason),
		zap.Int("white_delta", whiteDelta),
		zap.Int("black_delta", blackDelta),
	)

	// Finished sessions are pruned after the retention window so the process
	// does not accrue one parked goroutine per game ever played.
	time.AfterFunc(r.retention, func() {
		r.mu.Lock()
		delete(r.sessions, s.ID())
		r.mu.Unlock()
		s.Close()
	})
}

// ActiveCount is the number of sessions still holding identity mappings.
func (r *Registry) ActiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byPlayer) / 2
}

// SessionCount is the total number of sessions, finished ones included.
func (r *Registry) SessionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// CloseAll terminates every session goroutine. Used on shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := make([]*game.Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.Unlock()
	for _, s := range sessions {
		s.Close()
	}
}
