package user

import (
	"math"
	"time"
)

const defaultRating = 1200

// Result is one identity's outcome of a finished game.
type Result string

const (
	ResultWin  Result = "win"
	ResultLoss Result = "loss"
	ResultDraw Result = "draw"
)

// Stats are an identity's aggregate statistics. Play times are in seconds.
type Stats struct {
	GamesPlayed     int `json:"gamesPlayed"`
	Wins            int `json:"wins"`
	Losses          int `json:"losses"`
	Draws           int `json:"draws"`
	Rating          int `json:"rating"`
	TotalPlayTime   int `json:"totalPlayTime"`
	LongestGame     int `json:"longestGame"`
	AverageGameTime int `json:"averageGameTime"`
	WinStreak       int `json:"winStreak"`
	CurrentStreak   int `json:"currentStreak"`
	BestRating      int `json:"bestRating"`
	WorstRating     int `json:"worstRating"`
}

// User is a registered identity. Created on first contact, never deleted.
type User struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email,omitempty"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"lastSeen"`
	JoinedAt time.Time `json:"joinedAt"`
	Stats    Stats     `json:"stats"`
}

// Profile is the public projection of a user.
type Profile struct {
	ID          string  `json:"id"`
	Username    string  `json:"username"`
	Rating      int     `json:"rating"`
	Online      bool    `json:"online"`
	GamesPlayed int     `json:"gamesPlayed"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	Draws       int     `json:"draws"`
	WinRate     float64 `json:"winRate"`
}

func (u *User) profile() Profile {
	winRate := 0.0
	if u.Stats.GamesPlayed > 0 {
		winRate = float64(u.Stats.Wins) / float64(u.Stats.GamesPlayed) * 100
		winRate = math.Round(winRate*100) / 100
	}
	return Profile{
		ID:          u.ID,
		Username:    u.Username,
		Rating:      u.Stats.Rating,
		Online:      u.Online,
		GamesPlayed: u.Stats.GamesPlayed,
		Wins:        u.Stats.Wins,
		Losses:      u.Stats.Losses,
		Draws:       u.Stats.Draws,
		WinRate:     winRate,
	}
}

func (s *Stats) update(result Result, durationSeconds, ratingDelta int) {
	s.GamesPlayed++
	s.TotalPlayTime += durationSeconds
	if durationSeconds > s.LongestGame {
		s.LongestGame = durationSeconds
	}
	s.AverageGameTime = s.TotalPlayTime / s.GamesPlayed

	s.Rating += ratingDelta
	if s.Rating > s.BestRating {
		s.BestRating = s.Rating
	}
	if s.Rating < s.WorstRating {
		s.WorstRating = s.Rating
	}

	switch result {
	case ResultWin:
		s.Wins++
		s.CurrentStreak++
		if s.CurrentStreak > s.WinStreak {
			s.WinStreak = s.CurrentStreak
		}
	case ResultLoss:
		s.Losses++
		s.CurrentStreak = 0
	case ResultDraw:
		s.Draws++
		s.CurrentStreak = 0
	}
}
