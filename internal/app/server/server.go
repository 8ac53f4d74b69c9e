package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/chess-vn/livechess/internal/analysis"
	"github.com/chess-vn/livechess/internal/broadcast"
	"github.com/chess-vn/livechess/internal/game"
	"github.com/chess-vn/livechess/internal/matchmaking"
	"github.com/chess-vn/livechess/internal/registry"
	"github.com/chess-vn/livechess/internal/user"
	"github.com/chess-vn/livechess/pkg/logging"
)

type server struct {
	address  string
	upgrader websocket.Upgrader
	config   Config

	users    *user.Directory
	sessions *registry.Registry
	queue    *matchmaking.Queue
	hub      *broadcast.Hub
	analysis *analysis.Service
	validate *validator.Validate

	startedAt time.Time
}

type payload struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func NewServer() *server {
	cfg := NewConfig()
	hub := broadcast.NewHub()
	users := user.NewDirectory()
	sessions := registry.New(users, hub.Publish, game.Options{
		TickInterval:         cfg.TickInterval,
		ClockPublishInterval: cfg.ClockUpdateInterval,
	})

	srv := &server{
		address: "0.0.0.0:" + cfg.Port,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return cfg.AllowOrigin == "*" || r.Header.Get("Origin") == cfg.AllowOrigin
			},
		},
		config:    cfg,
		users:     users,
		sessions:  sessions,
		hub:       hub,
		analysis:  analysis.New(cfg.StockfishPath),
		validate:  validator.New(),
		startedAt: time.Now(),
	}
	srv.queue = matchmaking.NewQueue(users, sessions, cfg.MatchmakingRatingGap, srv.handleMatch)
	return srv
}

// Start runs the websocket and HTTP endpoints until the listener fails.
func (s *server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWebSocket)
	s.registerRoutes(mux)
	logging.Info("server started", zap.String("port", s.config.Port))
	return http.ListenAndServe(s.address, mux)
}

func (s *server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := s.auth(r)
	if err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(err.Error()))
		return
	}
	if _, ok := s.users.Get(userID); !ok {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte("unknown identity"))
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	s.hub.Register(userID, conn)
	s.users.SetOnline(userID, true)
	logging.Info("client connected",
		zap.String("user_id", userID),
		zap.String("remote_address", conn.RemoteAddr().String()),
	)

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			s.handleDisconnect(userID, conn)
			logging.Info("connection closed",
				zap.String("user_id", userID),
				zap.Error(err),
			)
			break
		}

		var p payload
		if err := json.Unmarshal(message, &p); err != nil {
			s.sendError(userID, ErrStatusBadRequest, "malformed payload")
			continue
		}
		s.handleMessage(userID, p)
	}
}

// handleDisconnect cleans a dropped connection up: the identity leaves the
// matchmaking queue, all rooms, and the spectator sets of the sessions it
// watched. An active game is deliberately left running; the clock keeps
// ticking until flag fall. A connection that a reconnect already replaced
// cleans up nothing, so the live connection keeps its registration.
func (s *server) handleDisconnect(userID string, conn broadcast.Conn) {
	rooms, ok := s.hub.Unregister(userID, conn)
	if !ok {
		return
	}
	s.queue.Leave(userID)
	s.users.SetOnline(userID, false)
	for _, sessionID := range rooms {
		if session, found := s.sessions.Get(sessionID); found {
			// A no-op for the session the identity plays in.
			session.RemoveSpectator(userID)
		}
	}
}

// handleMatch runs when matchmaking pairs two players, before the session
// starts, so both connections are in the room for the first broadcast.
func (s *server) handleMatch(session *game.Session) {
	white, black := session.White(), session.Black()
	s.hub.Join(session.ID(), white.ID)
	s.hub.Join(session.ID(), black.ID)
	found := game.GameFound{
		SessionID: session.ID(),
		White:     white,
		Black:     black,
		Control:   session.Control(),
	}
	s.hub.Send(white.ID, found)
	s.hub.Send(black.ID, found)
}

func (s *server) sendError(userID, code, message string) {
	s.hub.Send(userID, game.Error{Code: code, Message: message})
}
