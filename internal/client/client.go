package client

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Pszemocny/4-in-a-row/internal/errors"
	"github.com/Pszemocny/4-in-a-row/internal/interfaces"
	"github.com/Pszemocny/4-in-a-row/internal/logger"
	"github.com/Pszemocny/4-in-a-row/pkg/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 50 * time.Second
	maxMessageSize = 1024
	sendBuffer     = 256
)

// Client is one websocket connection. Both players of a hot-seat game share it.
type Client struct {
	ID      string
	Hub     interfaces.Hub
	Session interfaces.Session
	Conn    *websocket.Conn
	Send    chan []byte

	// mu guards closed; replies from ReadPump hold it for reading so Send
	// cannot be closed under them
	mu     sync.RWMutex
	closed bool
}

// NewClient creates a client for conn. The hub closes Send through CloseSend.
func NewClient(id string, hub interfaces.Hub, conn *websocket.Conn) *Client {
	return &Client{
		ID:   id,
		Hub:  hub,
		Conn: conn,
		Send: make(chan []byte, sendBuffer),
	}
}

// GetID implements interfaces.Client
func (c *Client) GetID() string {
	return c.ID
}

// GetSendChannel implements interfaces.Client
func (c *Client) GetSendChannel() chan []byte {
	return c.Send
}

// GetConnection implements interfaces.Client
func (c *Client) GetConnection() *websocket.Conn {
	return c.Conn
}

// SetSession implements interfaces.Client
func (c *Client) SetSession(session interfaces.Session) {
	c.Session = session
}

// GetSession implements interfaces.Client
func (c *Client) GetSession() interfaces.Session {
	return c.Session
}

// CloseSend implements interfaces.Client. Further calls are no-ops.
func (c *Client) CloseSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// reply hands Send to fn unless the hub has already closed it
func (c *Client) reply(fn func(ch chan []byte)) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return
	}
	fn(c.Send)
}

// ReadPump reads messages from the websocket and forwards them to the
// session. It must start after the hub has registered the client.
func (c *Client) ReadPump() {
	defer func() {
		if c.Hub != nil {
			c.Hub.UnregisterClient(c)
		}
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure) {
				logger.Warn("Unexpected websocket close", logger.Fields{
					"clientID": c.ID,
					"error":    err.Error(),
				})
			}
			break
		}

		var envelope models.Envelope
		if err := json.Unmarshal(message, &envelope); err != nil {
			logger.Debug("Could not decode message", logger.Fields{"clientID": c.ID, "error": err.Error()})
			c.reply(func(ch chan []byte) { errors.InvalidMessage(ch, c.ID) })
			continue
		}

		c.dispatch(envelope)
	}
}

func (c *Client) dispatch(envelope models.Envelope) {
	if c.Session == nil {
		c.reply(func(ch chan []byte) { errors.Internal(ch, c.ID) })
		return
	}

	switch envelope.Type {
	case models.TypeStartGame:
		var payload models.StartGamePayload
		if !c.decode(envelope, &payload) {
			return
		}
		c.Session.StartGame(payload)

	case models.TypeMakeMove:
		var payload models.MakeMovePayload
		if !c.decode(envelope, &payload) {
			return
		}
		if payload.Move == nil {
			c.reply(func(ch chan []byte) { errors.InvalidPayload(ch, "move is required", c.ID) })
			return
		}
		c.Session.MakeMove(*payload.Move)

	case models.TypeGetStats:
		var payload models.GetStatsPayload
		if !c.decode(envelope, &payload) {
			return
		}
		if payload.Name == "" {
			c.reply(func(ch chan []byte) { errors.InvalidPayload(ch, "name is required", c.ID) })
			return
		}
		c.Session.RequestStats(payload.Name)

	case models.TypeToggleHints, models.TypeNewRound, models.TypeEndSession,
		models.TypeResetScores, models.TypeGetHistory, models.TypeGetPlayers:
		c.Session.Control(envelope.Type)

	default:
		c.reply(func(ch chan []byte) { errors.UnknownMessageType(ch, envelope.Type, c.ID) })
	}
}

// decode unmarshals the envelope payload into out. A missing payload leaves
// out at its zero value.
func (c *Client) decode(envelope models.Envelope, out any) bool {
	if len(envelope.Payload) == 0 || string(envelope.Payload) == "null" {
		return true
	}
	if err := json.Unmarshal(envelope.Payload, out); err != nil {
		logger.Debug("Could not decode payload", logger.Fields{
			"clientID": c.ID,
			"type":     envelope.Type,
			"error":    err.Error(),
		})
		c.reply(func(ch chan []byte) { errors.InvalidPayload(ch, envelope.Type, c.ID) })
		return false
	}
	return true
}

// WritePump writes queued messages to the websocket and keeps it alive with pings
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
