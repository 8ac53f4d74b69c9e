package user

import "math"

// Elo K-factor.
const ratingK = 32

// expectedScore is the classic Elo expectation for a player against an
// opponent.
func expectedScore(rating, opponent int) float64 {
	return 1 / (1 + math.Pow(10, float64(opponent-rating)/400))
}

// RatingDeltas computes both sides' rating changes for one finished game.
// whiteScore is 1, 0 or 0.5 for a white win, loss or draw. Both deltas are
// derived from the ratings as they were before the game, each rounded
// independently.
func RatingDeltas(whiteRating, blackRating int, whiteScore float64) (int, int) {
	expectedWhite := expectedScore(whiteRating, blackRating)
	expectedBlack := 1 - expectedWhite
	blackScore := 1 - whiteScore
	whiteDelta := int(math.Round(ratingK * (whiteScore - expectedWhite)))
	blackDelta := int(math.Round(ratingK * (blackScore - expectedBlack)))
	return whiteDelta, blackDelta
}
