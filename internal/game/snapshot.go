package game

import (
	"fmt"
	"strings"
	"time"
)

// Snapshot is an immutable copy of a session's public game state. It never
// aliases the session's internal structures.
type Snapshot struct {
	SessionID  string         `json:"sessionId"`
	White      PlayerInfo     `json:"white"`
	Black      PlayerInfo     `json:"black"`
	Control    TimeControl    `json:"timeControl"`
	Status     Status         `json:"status"`
	Fen        string         `json:"fen"`
	Turn       Color          `json:"turn"`
	Check      bool           `json:"check"`
	Checkmate  bool           `json:"checkmate"`
	Stalemate  bool           `json:"stalemate"`
	GameOver   bool           `json:"gameOver"`
	Outcome    Outcome        `json:"outcome,omitempty"`
	Reason     string         `json:"reason,omitempty"`
	Moves      []MoveRecord   `json:"moves"`
	Captured   CapturedPieces `json:"captured"`
	Spectators []string       `json:"spectators"`
	CreatedAt  time.Time      `json:"createdAt"`
	EndedAt    time.Time      `json:"endedAt,omitempty"`
}

// CapturedPieces is the tally of captured pieces partitioned by the capturing
// side, derived by scanning the move log.
type CapturedPieces struct {
	White []string `json:"white"`
	Black []string `json:"black"`
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:  s.id,
		White:      s.white,
		Black:      s.black,
		Control:    s.control,
		Status:     s.status,
		Fen:        s.board.fen(),
		Turn:       s.board.turn(),
		Check:      s.board.inCheck(),
		Checkmate:  s.board.checkmate(),
		Stalemate:  s.board.stalemate(),
		GameOver:   s.status == StatusFinished,
		Outcome:    s.outcome,
		Reason:     s.reason,
		Moves:      make([]MoveRecord, len(s.moves)),
		Captured:   s.capturedLocked(),
		Spectators: make([]string, 0, len(s.spectators)),
		CreatedAt:  s.createdAt,
		EndedAt:    s.endedAt,
	}
	copy(snap.Moves, s.moves)
	for id := range s.spectators {
		snap.Spectators = append(snap.Spectators, id)
	}
	return snap
}

// PGN renders the snapshot's move log as a PGN document.
func (snap Snapshot) PGN() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[Event \"Live game\"]\n")
	fmt.Fprintf(&b, "[Site \"livechess\"]\n")
	fmt.Fprintf(&b, "[Date \"%s\"]\n", snap.CreatedAt.Format("2006.01.02"))
	fmt.Fprintf(&b, "[White \"%s\"]\n", snap.White.Username)
	fmt.Fprintf(&b, "[Black \"%s\"]\n", snap.Black.Username)
	fmt.Fprintf(&b, "[WhiteElo \"%d\"]\n", snap.White.Rating)
	fmt.Fprintf(&b, "[BlackElo \"%d\"]\n", snap.Black.Rating)
	fmt.Fprintf(&b, "[Result \"%s\"]\n\n", snap.pgnResult())
	for i, mv := range snap.Moves {
		if i%2 == 0 {
			fmt.Fprintf(&b, "%d. ", i/2+1)
		}
		b.WriteString(mv.San)
		b.WriteByte(' ')
	}
	b.WriteString(snap.pgnResult())
	b.WriteByte('\n')
	return b.String()
}

func (snap Snapshot) pgnResult() string {
	switch snap.Outcome {
	case WhiteWon:
		return "1-0"
	case BlackWon:
		return "0-1"
	case Drawn:
		return "1/2-1/2"
	}
	return "*"
}

func (s *Session) capturedLocked() CapturedPieces {
	captured := CapturedPieces{
		White: []string{},
		Black: []string{},
	}
	// Move log entries alternate starting with white; even indices are white
	// moves.
	for i, mv := range s.moves {
		if mv.Captured == "" {
			continue
		}
		if i%2 == 0 {
			captured.White = append(captured.White, mv.Captured)
		} else {
			captured.Black = append(captured.Black, mv.Captured)
		}
	}
	return captured
}
