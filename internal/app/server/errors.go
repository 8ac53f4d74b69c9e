package server

// Status codes returned to clients on rejected operations. The UI depends on
// telling these apart, e.g. snapping a dragged piece back on INVALID_MOVE but
// not on WRONG_TURN.
const (
	ErrStatusInvalidMove    = "INVALID_MOVE"
	ErrStatusWrongTurn      = "WRONG_TURN"
	ErrStatusNotParticipant = "NOT_PARTICIPANT"
	ErrStatusGameNotActive  = "GAME_NOT_ACTIVE"
	ErrStatusNoDrawOffer    = "NO_DRAW_OFFER"
	ErrStatusNotFound       = "NOT_FOUND"
	ErrStatusAlreadyQueued  = "ALREADY_QUEUED"
	ErrStatusAlreadyInGame  = "ALREADY_IN_GAME"
	ErrStatusBadRequest     = "BAD_REQUEST"
	ErrStatusUnauthorized   = "UNAUTHORIZED"
	ErrStatusInternal       = "INTERNAL"
)
