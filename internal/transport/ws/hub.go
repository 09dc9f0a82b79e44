// Package ws serves games over websockets. Every connected viewer receives
// its own projection of each accepted snapshot.
package ws

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/evoserver/evolution-server-go/internal/game"
)

// Message is the frame exchanged with clients.
//
//	server -> client  {"type":"state","game":"g1","state":{...}}
//	server -> client  {"type":"error","game":"g1","kind":"NOT_YOUR_TURN","message":"..."}
//	client -> server  {"type":"action","action":{...}}
type Message struct {
	Type    string       `json:"type"`
	GameID  string       `json:"game,omitempty"`
	State   *game.State  `json:"state,omitempty"`
	Kind    string       `json:"kind,omitempty"`
	Message string       `json:"message,omitempty"`
	Action  *game.Action `json:"action,omitempty"`
}

const (
	MessageState  = "state"
	MessageError  = "error"
	MessageAction = "action"
)

type direct struct {
	client *Client
	msg    Message
}

// Hub tracks the clients of every game. All client bookkeeping happens on
// the Run goroutine.
type Hub struct {
	logger *zap.Logger

	games  map[string]map[*Client]bool
	latest map[string]*game.State

	register   chan *Client
	unregister chan *Client
	publish    chan *game.State
	reply      chan direct
	done       chan struct{}
}

// NewHub creates a hub. Run must be started before clients connect.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:     logger,
		games:      make(map[string]map[*Client]bool),
		latest:     make(map[string]*game.State),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		publish:    make(chan *game.State, 64),
		reply:      make(chan direct, 64),
		done:       make(chan struct{}),
	}
}

// Run serves the hub until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for _, clients := range h.games {
				for c := range clients {
					close(c.send)
				}
			}
			h.games = map[string]map[*Client]bool{}
			return

		case c := <-h.register:
			h.registerClient(c)

		case c := <-h.unregister:
			h.unregisterClient(c)

		case s := <-h.publish:
			h.broadcast(s)

		case d := <-h.reply:
			if h.games[d.client.gameID][d.client] {
				h.deliver(d.client, d.msg)
			}
		}
	}
}

// Publish implements game.Publisher.
func (h *Hub) Publish(ctx context.Context, s *game.State) {
	select {
	case h.publish <- s:
	case <-h.done:
	case <-ctx.Done():
	}
}

// Viewers returns how many clients watch a game. Only for tests and metrics;
// it round-trips through the hub loop.
func (h *Hub) Viewers(gameID string) int {
	result := make(chan int, 1)
	probe := &Client{gameID: gameID, probe: result}
	select {
	case h.register <- probe:
	case <-h.done:
		return 0
	}
	return <-result
}

func (h *Hub) registerClient(c *Client) {
	if c.probe != nil {
		c.probe <- len(h.games[c.gameID])
		return
	}
	if h.games[c.gameID] == nil {
		h.games[c.gameID] = make(map[*Client]bool)
	}
	h.games[c.gameID][c] = true

	s := c.initial
	if latest := h.latest[c.gameID]; latest != nil && (s == nil || latest.Version > s.Version) {
		s = latest
	}
	if s != nil {
		h.deliver(c, Message{Type: MessageState, GameID: c.gameID, State: game.Project(s, c.playerID)})
	}

	h.logger.Debug("client registered",
		zap.String("game_id", c.gameID),
		zap.String("player_id", c.playerID),
		zap.Int("viewers", len(h.games[c.gameID])),
	)
}

func (h *Hub) unregisterClient(c *Client) {
	clients, ok := h.games[c.gameID]
	if !ok || !clients[c] {
		return
	}
	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.games, c.gameID)
	}
	h.logger.Debug("client unregistered",
		zap.String("game_id", c.gameID),
		zap.String("player_id", c.playerID),
		zap.Int("viewers", len(clients)),
	)
}

// broadcast sends every viewer its projection of s. Projections are shared
// between clients of the same viewer.
func (h *Hub) broadcast(s *game.State) {
	if old := h.latest[s.ID]; old != nil && old.Version > s.Version {
		return
	}
	h.latest[s.ID] = s
	if s.Phase.Terminal() && len(h.games[s.ID]) == 0 {
		delete(h.latest, s.ID)
	}

	frames := make(map[string][]byte)
	for c := range h.games[s.ID] {
		data, ok := frames[c.playerID]
		if !ok {
			var err error
			data, err = json.Marshal(Message{Type: MessageState, GameID: s.ID, State: game.Project(s, c.playerID)})
			if err != nil {
				h.logger.Error("failed to encode snapshot", zap.String("game_id", s.ID), zap.Error(err))
				return
			}
			frames[c.playerID] = data
		}
		h.send(c, data)
	}
}

func (h *Hub) deliver(c *Client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to encode message", zap.String("game_id", c.gameID), zap.Error(err))
		return
	}
	h.send(c, data)
}

// send drops clients that cannot keep up.
func (h *Hub) send(c *Client, data []byte) {
	select {
	case c.send <- data:
	default:
		h.logger.Warn("dropping slow client",
			zap.String("game_id", c.gameID),
			zap.String("player_id", c.playerID),
		)
		h.unregisterClient(c)
	}
}

// replyTo queues a message for one client only.
func (h *Hub) replyTo(c *Client, msg Message) {
	select {
	case h.reply <- direct{client: c, msg: msg}:
	case <-h.done:
	}
}

func (h *Hub) join(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) leave(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
