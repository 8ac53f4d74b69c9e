package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatingDeltasEqualRatings(t *testing.T) {
	whiteDelta, blackDelta := RatingDeltas(1500, 1500, 1)
	assert.Equal(t, 16, whiteDelta)
	assert.Equal(t, -16, blackDelta)

	whiteDelta, blackDelta = RatingDeltas(1500, 1500, 0)
	assert.Equal(t, -16, whiteDelta)
	assert.Equal(t, 16, blackDelta)

	whiteDelta, blackDelta = RatingDeltas(1500, 1500, 0.5)
	assert.Equal(t, 0, whiteDelta)
	assert.Equal(t, 0, blackDelta)
}

func TestRatingDeltasFavoriteWins(t *testing.T) {
	// A heavy favorite gains little from the expected result.
	whiteDelta, blackDelta := RatingDeltas(1800, 1400, 1)
	assert.Greater(t, whiteDelta, 0)
	assert.Less(t, whiteDelta, 6)
	assert.Less(t, blackDelta, 0)
}

func TestRatingDeltasUpsetPaysMore(t *testing.T) {
	// The underdog beating a favorite swings more than the reverse.
	underdogWin, _ := RatingDeltas(1400, 1800, 1)
	favoriteWin, _ := RatingDeltas(1800, 1400, 1)
	assert.Greater(t, underdogWin, favoriteWin)
}

func TestRatingDeltasRoundingIndependent(t *testing.T) {
	// Each delta is rounded on its own, so they may differ by one.
	for _, tc := range []struct {
		white, black int
		score        float64
	}{
		{1512, 1488, 1},
		{1603, 1597, 0.5},
		{1205, 1390, 0},
	} {
		whiteDelta, blackDelta := RatingDeltas(tc.white, tc.black, tc.score)
		sum := whiteDelta + blackDelta
		assert.LessOrEqual(t, sum, 1)
		assert.GreaterOrEqual(t, sum, -1)
	}
}

func TestExpectedScoreSymmetry(t *testing.T) {
	assert.InDelta(t, 0.5, expectedScore(1500, 1500), 1e-9)
	assert.InDelta(t, 1.0, expectedScore(1500, 1500)+expectedScore(1500, 1500), 1e-9)
	// 400 points of advantage is about a 10:1 expectation.
	assert.InDelta(t, 10.0/11.0, expectedScore(1900, 1500), 1e-9)
}
