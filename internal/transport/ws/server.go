package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"slices"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/evoserver/evolution-server-go/internal/game"
)

// Games is the part of game.Manager the HTTP surface needs.
type Games interface {
	Submitter
	Create(ctx context.Context, setup game.Setup) (*game.State, error)
	Snapshot(gameID string) (*game.State, error)
}

// Server exposes games over HTTP and websockets. The player query
// parameter is trusted; authentication happens in front of this server.
type Server struct {
	games    Games
	hub      *Hub
	settings game.Settings
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewServer creates the HTTP surface. An empty allowedOrigins accepts any
// origin.
func NewServer(games Games, hub *Hub, settings game.Settings, allowedOrigins []string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		games:    games,
		hub:      hub,
		settings: settings,
		logger:   logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(allowedOrigins) == 0 {
					return true
				}
				return slices.Contains(allowedOrigins, r.Header.Get("Origin"))
			},
		},
	}
}

// Handler returns the routes:
//
//	POST /games               create a game
//	GET  /games/{id}          projected snapshot for ?player=
//	GET  /games/{id}/ws       websocket for ?player=
//	GET  /healthz             liveness
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /games", s.createGame)
	mux.HandleFunc("GET /games/{id}", s.getGame)
	mux.HandleFunc("GET /games/{id}/ws", s.serveWS)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return mux
}

// CreateGameRequest is the body of POST /games. Clients never choose the
// seed; every game is seeded from a secret source.
type CreateGameRequest struct {
	ID      string            `json:"id"`
	Players []game.PlayerInfo `json:"players"`
}

func (s *Server) createGame(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	state, err := s.games.Create(r.Context(), game.Setup{
		ID:       req.ID,
		Players:  req.Players,
		Settings: s.settings,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Info("game created",
		zap.String("game_id", state.ID),
		zap.Int("players", len(state.Players)),
	)
	writeJSON(w, http.StatusCreated, game.Project(state, ""))
}

func (s *Server) getGame(w http.ResponseWriter, r *http.Request) {
	state, err := s.games.Snapshot(r.PathValue("id"))
	if err != nil {
		s.writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, game.Project(state, r.URL.Query().Get("player")))
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	state, err := s.games.Snapshot(gameID)
	if err != nil {
		s.writeGameError(w, err)
		return
	}
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.String("game_id", gameID), zap.Error(err))
		return
	}

	client := &Client{
		hub:      s.hub,
		conn:     conn,
		send:     make(chan []byte, 256),
		gameID:   gameID,
		playerID: r.URL.Query().Get("player"),
		initial:  state,
		games:    s.games,
		logger:   s.logger,
	}
	if !s.hub.join(client) {
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (s *Server) writeGameError(w http.ResponseWriter, err error) {
	if errors.Is(err, game.ErrGameNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	s.logger.Error("game lookup failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
