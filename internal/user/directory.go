package user

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("user not found")

// Directory is the in-memory registry of known identities. All accessors
// return copies; internal records are only mutated under the directory lock.
type Directory struct {
	mu    sync.RWMutex
	users map[string]*User
}

func NewDirectory() *Directory {
	return &Directory{users: make(map[string]*User)}
}

// Register creates a new identity. A non-positive rating falls back to the
// default starting rating.
func (d *Directory) Register(username, email string, rating int) User {
	if rating <= 0 {
		rating = defaultRating
	}
	now := time.Now()
	u := &User{
		ID:       uuid.NewString(),
		Username: username,
		Email:    email,
		LastSeen: now,
		JoinedAt: now,
		Stats: Stats{
			Rating:      rating,
			BestRating:  rating,
			WorstRating: rating,
		},
	}
	d.mu.Lock()
	d.users[u.ID] = u
	d.mu.Unlock()
	return *u
}

func (d *Directory) Get(id string) (User, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return User{}, false
	}
	return *u, true
}

func (d *Directory) Rating(id string) (int, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	u, ok := d.users[id]
	if !ok {
		return 0, false
	}
	return u.Stats.Rating, true
}

func (d *Directory) SetOnline(id string, online bool) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return false
	}
	u.Online = online
	if !online {
		u.LastSeen = time.Now()
	}
	return true
}

// UpdateStats applies one finished game to an identity's aggregates.
func (d *Directory) UpdateStats(id string, result Result, durationSeconds, ratingDelta int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[id]
	if !ok {
		return ErrNotFound
	}
	u.Stats.update(result, durationSeconds, ratingDelta)
	return nil
}

// Online lists the public profiles of all currently connected identities.
func (d *Directory) Online() []Profile {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var profiles []Profile
	for _, u := range d.users {
		if u.Online {
			profiles = append(profiles, u.profile())
		}
	}
	return profiles
}

// Leaderboard returns up to limit public profiles ordered by rating.
func (d *Directory) Leaderboard(limit int) []Profile {
	d.mu.RLock()
	profiles := make([]Profile, 0, len(d.users))
	for _, u := range d.users {
		profiles = append(profiles, u.profile())
	}
	d.mu.RUnlock()
	sort.Slice(profiles, func(i, j int) bool {
		return profiles[i].Rating > profiles[j].Rating
	})
	if limit > 0 && len(profiles) > limit {
		profiles = profiles[:limit]
	}
	return profiles
}

func (d *Directory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.users)
}
