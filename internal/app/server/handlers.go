package server

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/chess-vn/livechess/internal/game"
	"github.com/chess-vn/livechess/internal/matchmaking"
	"github.com/chess-vn/livechess/internal/registry"
)

type matchmakingRequest struct {
	Minutes   int `json:"minutes" validate:"required,gte=1,lte=180"`
	Increment int `json:"increment" validate:"gte=0,lte=60"`
}

type gameRequest struct {
	GameID string `json:"gameId" validate:"required"`
}

type moveRequest struct {
	GameID    string `json:"gameId" validate:"required"`
	From      string `json:"from" validate:"required,len=2"`
	To        string `json:"to" validate:"required,len=2"`
	Promotion string `json:"promotion" validate:"omitempty,oneof=q r b n"`
}

type drawResponseRequest struct {
	GameID string `json:"gameId" validate:"required"`
	Accept bool   `json:"accept"`
}

type chatRequest struct {
	GameID  string `json:"gameId" validate:"required"`
	Message string `json:"message" validate:"required,max=500"`
}

func (s *server) handleMessage(userID string, p payload) {
	switch p.Type {
	case "matchmaking:join":
		s.onMatchmakingJoin(userID, p.Data)
	case "matchmaking:leave":
		s.queue.Leave(userID)
	case "game:join":
		s.onGameJoin(userID, p.Data)
	case "game:leave":
		s.onGameLeave(userID, p.Data)
	case "game:move":
		s.onMove(userID, p.Data)
	case "game:resign":
		s.onResign(userID, p.Data)
	case "game:offer_draw":
		s.onOfferDraw(userID, p.Data)
	case "game:respond_draw":
		s.onRespondDraw(userID, p.Data)
	case "game:pause":
		s.onPause(userID, p.Data)
	case "game:resume":
		s.onResume(userID, p.Data)
	case "spectate:join":
		s.onSpectateJoin(userID, p.Data)
	case "spectate:leave":
		s.onSpectateLeave(userID, p.Data)
	case "chat":
		s.onChat(userID, p.Data)
	default:
		s.sendError(userID, ErrStatusBadRequest, "unknown message type: "+p.Type)
	}
}

func (s *server) decode(userID string, data json.RawMessage, v any) bool {
	if err := json.Unmarshal(data, v); err != nil {
		s.sendError(userID, ErrStatusBadRequest, "malformed payload")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		s.sendError(userID, ErrStatusBadRequest, err.Error())
		return false
	}
	return true
}

func (s *server) session(userID, gameID string) (*game.Session, bool) {
	session, ok := s.sessions.Get(gameID)
	if !ok {
		s.sendError(userID, ErrStatusNotFound, "game not found: "+gameID)
		return nil, false
	}
	return session, true
}

func (s *server) onMatchmakingJoin(userID string, data json.RawMessage) {
	var req matchmakingRequest
	if !s.decode(userID, data, &req) {
		return
	}
	_, err := s.queue.Join(userID, game.TimeControl{
		Minutes:   req.Minutes,
		Increment: req.Increment,
	})
	switch {
	case errors.Is(err, matchmaking.ErrAlreadyQueued):
		s.sendError(userID, ErrStatusAlreadyQueued, "already in matchmaking queue")
	case errors.Is(err, registry.ErrAlreadyInSession):
		s.sendError(userID, ErrStatusAlreadyInGame, "already in an active game")
	case err != nil:
		s.sendError(userID, ErrStatusInternal, err.Error())
	}
	// A match notifies both players through the hub; an enqueue is silent.
}

func (s *server) onGameJoin(userID string, data json.RawMessage) {
	var req gameRequest
	if !s.decode(userID, data, &req) {
		return
	}
	session, ok := s.session(userID, req.GameID)
	if !ok {
		return
	}
	s.hub.Join(session.ID(), userID)
	state, err := session.State()
	if err != nil {
		s.sendError(userID, ErrStatusInternal, err.Error())
		return
	}
	clocks, _ := session.ClockState()
	s.hub.Send(userID, game.GameStarted{
		SessionID: session.ID(),
		State:     state,
		Clocks:    clocks,
	})
}

func (s *server) onGameLeave(userID string, data json.RawMessage) {
	var req gameRequest
	if !s.decode(userID, data, &req) {
		return
	}
	s.hub.Leave(req.GameID, userID)
}

func (s *server) onMove(userID string, data json.RawMessage) {
	var req moveRequest
	if !s.decode(userID, data, &req) {
		return
	}
	session, ok := s.session(userID, req.GameID)
	if !ok {
		return
	}
	if _, _, _, err := session.ApplyMove(userID, req.From, req.To, req.Promotion); err != nil {
		s.sendError(userID, moveErrorStatus(err), err.Error())
	}
	// Accepted moves broadcast to the room from inside the session.
}

func (s *server) onResign(userID string, data json.RawMessage) {
	var req gameRequest
	if !s.decode(userID, data, &req) {
		return
	}
	session, ok := s.session(userID, req.GameID)
	if !ok {
		return
	}
	if !session.Resign(userID) {
		s.sendError(userID, ErrStatusGameNotActive, "resignation rejected")
	}
}

func (s *server) onOfferDraw(userID string, data json.RawMessage) {
	var req gameRequest
	if !s.decode(userID, data, &req) {
		return
	}
	session, ok := s.session(userID, req.GameID)
	if !ok {
		return
	}
	if !session.OfferDraw(userID) {
		s.sendError(userID, ErrStatusGameNotActive, "draw offer rejected")
	}
}

func (s *server) onRespondDraw(userID string, data json.RawMessage) {
	var req drawResponseRequest
	if !s.decode(userID, data, &req) {
		return
	}
	session, ok := s.session(userID, req.GameID)
	if !ok {
		return
	}
	if err := session.RespondDraw(userID, req.Accept); err != nil {
		s.sendError(userID, moveErrorStatus(err), err.Error())
	}
}

func (s *server) onPause(userID string, data json.RawMessage) {
	var req gameRequest
	if !s.decode(userID, data, &req) {
		return
	}
	session, ok := s.session(userID, req.GameID)
	if !ok {
		return
	}
	if _, isPlayer := session.PlayerColor(userID); !isPlayer {
		s.sendError(userID, ErrStatusNotParticipant, "only players may pause")
		return
	}
	session.Pause()
}

func (s *server) onResume(userID string, data json.RawMessage) {
	var req gameRequest
	if !s.decode(userID, data, &req) {
		return
	}
	session, ok := s.session(userID, req.GameID)
	if !ok {
		return
	}
	if _, isPlayer := session.PlayerColor(userID); !isPlayer {
		s.sendError(userID, ErrStatusNotParticipant, "only players may resume")
		return
	}
	session.Resume()
}

func (s *server) onSpectateJoin(userID string, data json.RawMessage) {
	var req gameRequest
	if !s.decode(userID, data, &req) {
		return
	}
	session, ok := s.session(userID, req.GameID)
	if !ok {
		return
	}
	s.hub.Join(session.ID(), userID)
	session.AddSpectator(userID)
	state, err := session.State()
	if err != nil {
		s.sendError(userID, ErrStatusInternal, err.Error())
		return
	}
	clocks, _ := session.ClockState()
	s.hub.Send(userID, game.GameStarted{
		SessionID: session.ID(),
		State:     state,
		Clocks:    clocks,
	})
}

func (s *server) onSpectateLeave(userID string, data json.RawMessage) {
	var req gameRequest
	if !s.decode(userID, data, &req) {
		return
	}
	s.hub.Leave(req.GameID, userID)
	if session, ok := s.sessions.Get(req.GameID); ok {
		session.RemoveSpectator(userID)
	}
}

func (s *server) onChat(userID string, data json.RawMessage) {
	var req chatRequest
	if !s.decode(userID, data, &req) {
		return
	}
	if _, ok := s.session(userID, req.GameID); !ok {
		return
	}
	username := userID
	if u, ok := s.users.Get(userID); ok {
		username = u.Username
	}
	s.hub.Publish(req.GameID, game.ChatMessage{
		SessionID: req.GameID,
		UserID:    userID,
		Username:  username,
		Message:   req.Message,
		Timestamp: time.Now(),
	})
}

// moveErrorStatus maps session errors onto wire status codes.
func moveErrorStatus(err error) string {
	switch {
	case errors.Is(err, game.ErrIllegalMove):
		return ErrStatusInvalidMove
	case errors.Is(err, game.ErrNotYourTurn):
		return ErrStatusWrongTurn
	case errors.Is(err, game.ErrNotParticipant):
		return ErrStatusNotParticipant
	case errors.Is(err, game.ErrNotActive), errors.Is(err, game.ErrSessionClosed):
		return ErrStatusGameNotActive
	case errors.Is(err, game.ErrNoDrawOffer):
		return ErrStatusNoDrawOffer
	}
	return ErrStatusInternal
}
