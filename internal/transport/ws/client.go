package ws

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/evoserver/evolution-server-go/internal/game"
	"github.com/evoserver/evolution-server-go/internal/game/rules"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 4096

	// Upper bound for one action to be applied.
	submitTimeout = 10 * time.Second
)

// Submitter applies an action to a game.
type Submitter interface {
	Submit(ctx context.Context, gameID string, action game.Action) (*game.State, error)
}

// Client is one websocket connection watching a game. An empty playerID
// is a spectator.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	gameID   string
	playerID string
	initial  *game.State
	games    Submitter
	logger   *zap.Logger

	probe chan int
}

// readPump turns incoming frames into actions. Accepted actions reach every
// viewer through the hub; rejections go back to this client only.
func (c *Client) readPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug("websocket read failed", zap.String("game_id", c.gameID), zap.Error(err))
			}
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.fail(rules.KindInvalidAction.String(), "malformed message")
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg Message) {
	if msg.Type != MessageAction || msg.Action == nil {
		c.fail(rules.KindInvalidAction.String(), "expected an action")
		return
	}
	if c.playerID == "" {
		c.fail(rules.KindUnauthorized.String(), "spectators cannot act")
		return
	}
	if msg.Action.Type.Synthetic() {
		c.fail(rules.KindUnauthorized.String(), string(msg.Action.Type)+" is issued by the server")
		return
	}

	action := *msg.Action
	action.PlayerID = c.playerID
	action.At = time.Time{}

	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()
	if _, err := c.games.Submit(ctx, c.gameID, action); err != nil {
		kind := "INTERNAL"
		switch {
		case rules.IsRejection(err):
			kind = rules.KindOf(err).String()
		case errors.Is(err, game.ErrGameNotFound):
			kind = rules.KindNotFound.String()
		case errors.Is(err, game.ErrGameHalted):
			kind = "HALTED"
		}
		c.logger.Debug("action rejected",
			zap.String("game_id", c.gameID),
			zap.String("player_id", c.playerID),
			zap.String("action", string(action.Type)),
			zap.Error(err),
		)
		c.fail(kind, err.Error())
	}
}

func (c *Client) fail(kind, message string) {
	c.hub.replyTo(c, Message{Type: MessageError, GameID: c.gameID, Kind: kind, Message: message})
}

// writePump writes one frame per message and keeps the connection alive.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
