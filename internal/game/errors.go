package game

import "errors"

var (
	ErrNotParticipant = errors.New("not a participant of this game")
	ErrNotYourTurn    = errors.New("not your turn")
	ErrIllegalMove    = errors.New("illegal move")
	ErrNotActive      = errors.New("game is not active")
	ErrNoDrawOffer    = errors.New("no outstanding draw offer")
	ErrSessionClosed  = errors.New("session closed")
)
