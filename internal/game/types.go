package game

import (
	"time"
)

type Color string

const (
	White Color = "white"
	Black Color = "black"
)

func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}

type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusActive   Status = "active"
	StatusPaused   Status = "paused"
	StatusFinished Status = "finished"
)

// Outcome is the result of a finished game. Empty while the game is running.
type Outcome string

const (
	NoOutcome Outcome = ""
	WhiteWon  Outcome = "white"
	BlackWon  Outcome = "black"
	Drawn     Outcome = "draw"
)

func winner(c Color) Outcome {
	if c == White {
		return WhiteWon
	}
	return BlackWon
}

// TimeControl is a base-minutes plus increment-seconds pair. Compared by
// equality during matchmaking.
type TimeControl struct {
	Minutes   int `json:"minutes"`
	Increment int `json:"increment"`
}

func (tc TimeControl) Base() time.Duration {
	return time.Duration(tc.Minutes) * time.Minute
}

func (tc TimeControl) Bonus() time.Duration {
	return time.Duration(tc.Increment) * time.Second
}

// PlayerInfo identifies a participant. Rating is the rating at the time the
// session was created and is what rating deltas are computed from.
type PlayerInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Rating   int    `json:"rating"`
	Color    Color  `json:"color"`
}

// MoveRecord is one append-only move log entry.
type MoveRecord struct {
	From      string    `json:"from"`
	To        string    `json:"to"`
	Piece     string    `json:"piece"`
	Captured  string    `json:"captured,omitempty"`
	Promotion string    `json:"promotion,omitempty"`
	San       string    `json:"san"`
	Fen       string    `json:"fen"`
	Timestamp time.Time `json:"timestamp"`
	TimeLeft  TimeLeft  `json:"timeLeft"`
}

// TimeLeft is both sides' remaining clock time at the instant a move was made.
type TimeLeft struct {
	White time.Duration `json:"white"`
	Black time.Duration `json:"black"`
}
