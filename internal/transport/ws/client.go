package ws

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mcoot/omokgame/internal/model"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong from the peer
	pongWait = 60 * time.Second

	// Time between pings, must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Largest frame accepted from a client
	maxMessageSize = 4096

	// Buffer size for outgoing messages
	sendBufferSize = 256
)

// Client is one websocket connection
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	id          model.ConnectionID
	lobby       bool
	room        model.GameID // guarded by hub.mu
	send        chan []byte
	connectedAt time.Time
}

func newClient(hub *Hub, conn *websocket.Conn, id model.ConnectionID, lobby bool) *Client {
	return &Client{
		hub:         hub,
		conn:        conn,
		id:          id,
		lobby:       lobby,
		send:        make(chan []byte, sendBufferSize),
		connectedAt: time.Now(),
	}
}

// readPump decodes frames until the peer goes away. Frames that are not a
// valid envelope are logged and skipped.
func (c *Client) readPump(logger *slog.Logger, handle func(Envelope)) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logger.Warn("ws read failed",
					slog.String("conn_id", string(c.id)),
					slog.String("error", err.Error()))
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil || env.Type == "" {
			logger.Warn("ws malformed frame", slog.String("conn_id", string(c.id)))
			continue
		}
		handle(env)
	}
}

// writePump forwards queued frames to the peer and keeps the connection alive
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
