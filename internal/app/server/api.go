package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/chess-vn/livechess/internal/game"
	"github.com/chess-vn/livechess/pkg/logging"
)

type registerRequest struct {
	Username string `json:"username" validate:"required,min=2,max=32"`
	Email    string `json:"email" validate:"omitempty,email"`
	Rating   int    `json:"rating" validate:"gte=0,lte=4000"`
}

type apiMoveRequest struct {
	From      string `json:"from" validate:"required,len=2"`
	To        string `json:"to" validate:"required,len=2"`
	Promotion string `json:"promotion" validate:"omitempty,oneof=q r b n"`
}

type apiDrawResponse struct {
	Accept bool `json:"accept"`
}

type analyzeRequest struct {
	Fen   string `json:"fen" validate:"required"`
	Depth int    `json:"depth" validate:"gte=0,lte=30"`
}

type legalMovesRequest struct {
	Fen    string `json:"fen" validate:"required"`
	Square string `json:"square" validate:"required,len=2"`
}

type replayRequest struct {
	Pgn string `json:"pgn" validate:"required"`
}

func (s *server) registerRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /api/users/register", s.handleRegister)
	mux.HandleFunc("GET /api/users/leaderboard/top", s.handleLeaderboard)
	mux.HandleFunc("GET /api/users/online/list", s.handleOnline)
	mux.HandleFunc("GET /api/users/{userId}", s.handleGetUser)
	mux.HandleFunc("GET /api/users/{userId}/current-game", s.handleCurrentGame)

	mux.HandleFunc("GET /api/games/{gameId}", s.handleGetGame)
	mux.HandleFunc("GET /api/games/{gameId}/pgn", s.handleGamePgn)
	mux.HandleFunc("POST /api/games/{gameId}/move", s.handleApiMove)
	mux.HandleFunc("POST /api/games/{gameId}/resign", s.handleApiResign)
	mux.HandleFunc("POST /api/games/{gameId}/draw/offer", s.handleApiOfferDraw)
	mux.HandleFunc("POST /api/games/{gameId}/draw/respond", s.handleApiRespondDraw)

	mux.HandleFunc("POST /api/analytics/position/analyze", s.handleAnalyze)
	mux.HandleFunc("POST /api/analytics/position/moves", s.handleLegalMoves)
	mux.HandleFunc("POST /api/analytics/position/pgn", s.handleReplayPgn)
	mux.HandleFunc("GET /api/analytics/server/stats", s.handleServerStats)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{
		"code":    code,
		"message": message,
	})
}

// decodeBody parses and validates a JSON request body, replying 400 itself on
// failure.
func (s *server) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, ErrStatusBadRequest, "malformed request body")
		return false
	}
	if err := s.validate.Struct(v); err != nil {
		writeError(w, http.StatusBadRequest, ErrStatusBadRequest, err.Error())
		return false
	}
	return true
}

// authAPI resolves the caller's identity from the request token, replying 401
// itself on failure.
func (s *server) authAPI(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, err := s.auth(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, ErrStatusUnauthorized, err.Error())
		return "", false
	}
	return userID, true
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"uptime": time.Since(s.startedAt).String(),
	})
}

func (s *server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	u := s.users.Register(req.Username, req.Email, req.Rating)
	token, err := s.issueToken(u.ID, u.Username)
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrStatusInternal, "failed to issue token")
		return
	}
	logging.Info("user registered",
		zap.String("user_id", u.ID),
		zap.String("username", u.Username),
	)
	writeJSON(w, http.StatusCreated, map[string]any{
		"user":  u,
		"token": token,
	})
}

func (s *server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	u, ok := s.users.Get(r.PathValue("userId"))
	if !ok {
		writeError(w, http.StatusNotFound, ErrStatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *server) handleCurrentGame(w http.ResponseWriter, r *http.Request) {
	session, ok := s.sessions.SessionFor(r.PathValue("userId"))
	if !ok {
		writeError(w, http.StatusNotFound, ErrStatusNotFound, "no active game")
		return
	}
	state, err := session.State()
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrStatusInternal, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	writeJSON(w, http.StatusOK, s.users.Leaderboard(limit))
}

func (s *server) handleOnline(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.users.Online())
}

func (s *server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	session, ok := s.sessions.Get(r.PathValue("gameId"))
	if !ok {
		writeError(w, http.StatusNotFound, ErrStatusNotFound, "game not found")
		return
	}
	state, err := session.State()
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrStatusInternal, err.Error())
		return
	}
	clocks, _ := session.ClockState()
	writeJSON(w, http.StatusOK, map[string]any{
		"game":   state,
		"clocks": clocks,
	})
}

func (s *server) handleGamePgn(w http.ResponseWriter, r *http.Request) {
	session, ok := s.sessions.Get(r.PathValue("gameId"))
	if !ok {
		writeError(w, http.StatusNotFound, ErrStatusNotFound, "game not found")
		return
	}
	state, err := session.State()
	if err != nil {
		writeError(w, http.StatusInternalServerError, ErrStatusInternal, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/x-chess-pgn")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(state.PGN()))
}

func (s *server) handleApiMove(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authAPI(w, r)
	if !ok {
		return
	}
	var req apiMoveRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	session, ok := s.sessions.Get(r.PathValue("gameId"))
	if !ok {
		writeError(w, http.StatusNotFound, ErrStatusNotFound, "game not found")
		return
	}
	move, state, clocks, err := session.ApplyMove(userID, req.From, req.To, req.Promotion)
	if err != nil {
		writeError(w, httpStatusFor(err), moveErrorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"move":   move,
		"game":   state,
		"clocks": clocks,
	})
}

func (s *server) handleApiResign(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authAPI(w, r)
	if !ok {
		return
	}
	session, ok := s.sessions.Get(r.PathValue("gameId"))
	if !ok {
		writeError(w, http.StatusNotFound, ErrStatusNotFound, "game not found")
		return
	}
	if !session.Resign(userID) {
		writeError(w, http.StatusConflict, ErrStatusGameNotActive, "resignation rejected")
		return
	}
	state, _ := session.State()
	writeJSON(w, http.StatusOK, state)
}

func (s *server) handleApiOfferDraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authAPI(w, r)
	if !ok {
		return
	}
	session, ok := s.sessions.Get(r.PathValue("gameId"))
	if !ok {
		writeError(w, http.StatusNotFound, ErrStatusNotFound, "game not found")
		return
	}
	if !session.OfferDraw(userID) {
		writeError(w, http.StatusConflict, ErrStatusGameNotActive, "draw offer rejected")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "offered"})
}

func (s *server) handleApiRespondDraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.authAPI(w, r)
	if !ok {
		return
	}
	var req apiDrawResponse
	if !s.decodeBody(w, r, &req) {
		return
	}
	session, ok := s.sessions.Get(r.PathValue("gameId"))
	if !ok {
		writeError(w, http.StatusNotFound, ErrStatusNotFound, "game not found")
		return
	}
	if err := session.RespondDraw(userID, req.Accept); err != nil {
		writeError(w, httpStatusFor(err), moveErrorStatus(err), err.Error())
		return
	}
	state, _ := session.State()
	writeJSON(w, http.StatusOK, state)
}

func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	eval, err := s.analysis.Analyze(req.Fen, req.Depth)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrStatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, eval)
}

func (s *server) handleLegalMoves(w http.ResponseWriter, r *http.Request) {
	var req legalMovesRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	moves, err := game.LegalDestinations(req.Fen, req.Square)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrStatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"square": req.Square,
		"moves":  moves,
	})
}

func (s *server) handleReplayPgn(w http.ResponseWriter, r *http.Request) {
	var req replayRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	fens, err := s.analysis.ReplayPGN(req.Pgn)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrStatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"positions": fens})
}

func (s *server) handleServerStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"uptime":        time.Since(s.startedAt).String(),
		"users":         s.users.Count(),
		"online":        len(s.users.Online()),
		"games":         s.sessions.SessionCount(),
		"activePlayers": s.sessions.ActiveCount(),
		"queued":        s.queue.Len(),
	})
}

// httpStatusFor maps session errors onto HTTP statuses for the REST mirror.
func httpStatusFor(err error) int {
	switch moveErrorStatus(err) {
	case ErrStatusInvalidMove, ErrStatusWrongTurn, ErrStatusNoDrawOffer:
		return http.StatusBadRequest
	case ErrStatusNotParticipant:
		return http.StatusForbidden
	case ErrStatusGameNotActive:
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}
