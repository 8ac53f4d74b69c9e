package matchmaking

import (
	"crypto/rand"
	"errors"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/chess-vn/livechess/internal/game"
	"github.com/chess-vn/livechess/internal/registry"
	"github.com/chess-vn/livechess/internal/user"
	"github.com/chess-vn/livechess/pkg/logging"
)

// DefaultRatingWindow is how far apart two ratings may be and still pair.
const DefaultRatingWindow = 200

var ErrAlreadyQueued = errors.New("identity already queued")

type entry struct {
	playerID   string
	control    game.TimeControl
	enqueuedAt time.Time
}

// Result of a Join call: either a created session or an enqueue.
type Result struct {
	Matched    bool
	Session    *game.Session
	Color      game.Color
	OpponentID string
}

// Queue pairs waiting identities whose time controls match exactly and whose
// ratings sit within the window. Join and Leave are serialized behind one
// mutex, so a waiter can never be matched twice.
type Queue struct {
	mu      sync.Mutex
	waiting []entry

	users        *user.Directory
	sessions     *registry.Registry
	ratingWindow int
	onMatch      func(*game.Session)
}

// NewQueue builds a queue over the given directory and registry. onMatch, if
// non-nil, runs after a matched session is created but before it starts, so
// the caller can subscribe both players before the first broadcast.
func NewQueue(users *user.Directory, sessions *registry.Registry, ratingWindow int, onMatch func(*game.Session)) *Queue {
	if ratingWindow <= 0 {
		ratingWindow = DefaultRatingWindow
	}
	return &Queue{
		users:        users,
		sessions:     sessions,
		ratingWindow: ratingWindow,
		onMatch:      onMatch,
	}
}

// Join matches the identity against the first compatible waiter in insertion
// order, or enqueues it. On a match, colors are assigned by an unbiased coin
// flip and the session is created and started before Join returns.
func (q *Queue) Join(playerID string, control game.TimeControl) (Result, error) {
	rating, ok := q.users.Rating(playerID)
	if !ok {
		return Result{}, registry.ErrIdentityNotFound
	}
	if q.sessions.InSession(playerID) {
		return Result{}, registry.ErrAlreadyInSession
	}

	q.mu.Lock()
	defer q.mu.Unlock()
	// Re-checked under the lock: the requester may have raced into a session
	// between the cheap pre-check and here.
	if q.sessions.InSession(playerID) {
		return Result{}, registry.ErrAlreadyInSession
	}
	for _, e := range q.waiting {
		if e.playerID == playerID {
			return Result{}, ErrAlreadyQueued
		}
	}

	for i := 0; i < len(q.waiting); {
		e := q.waiting[i]
		opponentRating, ok := q.users.Rating(e.playerID)
		if !ok || e.control != control {
			i++
			continue
		}
		diff := rating - opponentRating
		if diff < 0 {
			diff = -diff
		}
		if diff > q.ratingWindow {
			i++
			continue
		}

		// First compatible waiter in insertion order wins.
		q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
		whiteID, blackID := playerID, e.playerID
		if coinFlip() {
			whiteID, blackID = blackID, whiteID
		}
		session, err := q.sessions.Create(whiteID, blackID, control)
		if err != nil {
			if q.sessions.InSession(playerID) {
				// The requester is the busy party. Put the waiter back in
				// its old slot; it did nothing wrong.
				q.waiting = append(q.waiting[:i], append([]entry{e}, q.waiting[i:]...)...)
				return Result{}, registry.ErrAlreadyInSession
			}
			// Stale waiter, e.g. raced into a session elsewhere. Keep
			// scanning from the same index.
			logging.Error("matchmaking create failed",
				zap.String("waiter", e.playerID),
				zap.Error(err),
			)
			continue
		}
		if q.onMatch != nil {
			q.onMatch(session)
		}
		session.Start()

		color := game.White
		if session.Black().ID == playerID {
			color = game.Black
		}
		logging.Info("players matched",
			zap.String("session_id", session.ID()),
			zap.String("white", whiteID),
			zap.String("black", blackID),
		)
		return Result{
			Matched:    true,
			Session:    session,
			Color:      color,
			OpponentID: e.playerID,
		}, nil
	}

	q.waiting = append(q.waiting, entry{
		playerID:   playerID,
		control:    control,
		enqueuedAt: time.Now(),
	})
	return Result{}, nil
}

// Leave removes the identity from the waiting set. Used both for explicit
// cancellation and disconnect cleanup.
func (q *Queue) Leave(playerID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.waiting {
		if e.playerID == playerID {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			return true
		}
	}
	return false
}

// Len is the number of identities currently waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}

func coinFlip() bool {
	n, err := rand.Int(rand.Reader, big.NewInt(2))
	if err != nil {
		return time.Now().UnixNano()%2 == 0
	}
	return n.Int64() == 0
}
