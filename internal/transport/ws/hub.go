package ws

import (
	"log/slog"
	"sync"
	"time"

	"github.com/mcoot/omokgame/internal/model"
)

// outbound is one frame and the clients it is addressed to
type outbound struct {
	room   model.GameID       // every client in the room
	conn   model.ConnectionID // one client
	except model.ConnectionID // skipped when sending to a room
	lobby  bool               // every lobby client
	data   []byte
}

// Hub tracks websocket clients: game connections grouped in rooms keyed by
// game id, plus lobby watchers
type Hub struct {
	clients map[model.ConnectionID]*Client
	rooms   map[model.GameID]map[model.ConnectionID]*Client
	lobby   map[*Client]bool
	stopped bool
	mu      sync.RWMutex
	logger  *slog.Logger

	unregister chan *Client
	broadcast  chan outbound
	done       chan struct{}
	closeOnce  sync.Once
}

// NewHub creates a new Hub. Run must be started before clients connect.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients:    make(map[model.ConnectionID]*Client),
		rooms:      make(map[model.GameID]map[model.ConnectionID]*Client),
		lobby:      make(map[*Client]bool),
		logger:     logger.With(slog.String("component", "ws-hub")),
		unregister: make(chan *Client),
		broadcast:  make(chan outbound, 256),
		done:       make(chan struct{}),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	h.logger.Info("ws hub started")
	for {
		select {
		case client := <-h.unregister:
			if h.remove(client) {
				h.logger.Info("ws client unregistered",
					slog.String("conn_id", string(client.id)),
					slog.Duration("connection_duration", time.Since(client.connectedAt)))
			}

		case msg := <-h.broadcast:
			h.deliver(msg)

		case <-h.done:
			h.mu.Lock()
			count := len(h.clients) + len(h.lobby)
			for id, client := range h.clients {
				close(client.send)
				delete(h.clients, id)
			}
			for client := range h.lobby {
				close(client.send)
				delete(h.lobby, client)
			}
			h.rooms = make(map[model.GameID]map[model.ConnectionID]*Client)
			h.stopped = true
			h.mu.Unlock()
			h.logger.Info("ws hub stopped", slog.Int("disconnected_clients", count))
			return
		}
	}
}

func (h *Hub) remove(client *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if client.lobby {
		if !h.lobby[client] {
			return false
		}
		delete(h.lobby, client)
		close(client.send)
		return true
	}

	if h.clients[client.id] != client {
		return false
	}
	delete(h.clients, client.id)
	if client.room != "" {
		h.leaveRoomLocked(client)
	}
	close(client.send)
	return true
}

func (h *Hub) deliver(msg outbound) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var targets []*Client
	switch {
	case msg.lobby:
		for client := range h.lobby {
			targets = append(targets, client)
		}
	case msg.room != "":
		for id, client := range h.rooms[msg.room] {
			if id != msg.except {
				targets = append(targets, client)
			}
		}
	case msg.conn != "":
		if client, ok := h.clients[msg.conn]; ok {
			targets = append(targets, client)
		}
	}

	for _, client := range targets {
		select {
		case client.send <- msg.data:
		default:
			h.logger.Warn("ws message dropped - client buffer full",
				slog.String("conn_id", string(client.id)))
		}
	}
}

// Register adds a client to the hub. The client can be sent to and moved
// into a room as soon as Register returns.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.stopped {
		close(client.send)
		return
	}
	if client.lobby {
		h.lobby[client] = true
	} else {
		h.clients[client.id] = client
	}
	h.logger.Info("ws client registered",
		slog.String("conn_id", string(client.id)),
		slog.Bool("lobby", client.lobby))
}

// Unregister removes a client from the hub and from its room
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// JoinRoom moves a game connection into the room for gameID
func (h *Hub) JoinRoom(conn model.ConnectionID, gameID model.GameID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client, ok := h.clients[conn]
	if !ok {
		return
	}
	if client.room != "" {
		h.leaveRoomLocked(client)
	}
	room, ok := h.rooms[gameID]
	if !ok {
		room = make(map[model.ConnectionID]*Client)
		h.rooms[gameID] = room
	}
	room[conn] = client
	client.room = gameID
}

func (h *Hub) leaveRoomLocked(client *Client) {
	room := h.rooms[client.room]
	delete(room, client.id)
	if len(room) == 0 {
		delete(h.rooms, client.room)
	}
	client.room = ""
}

func (h *Hub) enqueue(msg outbound) {
	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("ws broadcast dropped - hub buffer full")
	}
}

// sendDirect queues a frame for a registered client without going through the loop
func (h *Hub) sendDirect(client *Client, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if !h.lobby[client] && h.clients[client.id] != client {
		return
	}
	select {
	case client.send <- data:
	default:
	}
}

// SendTo sends an event to one connection
func (h *Hub) SendTo(conn model.ConnectionID, eventType string, payload any) {
	h.enqueue(outbound{conn: conn, data: encode(eventType, payload)})
}

// SendToRoom sends an event to every connection in a game's room
func (h *Hub) SendToRoom(gameID model.GameID, eventType string, payload any) {
	h.enqueue(outbound{room: gameID, data: encode(eventType, payload)})
}

// SendToRoomExcept sends an event to a game's room, skipping one connection
func (h *Hub) SendToRoomExcept(gameID model.GameID, except model.ConnectionID, eventType string, payload any) {
	h.enqueue(outbound{room: gameID, except: except, data: encode(eventType, payload)})
}

// BroadcastOpenGames pushes the open games snapshot to every lobby client
func (h *Hub) BroadcastOpenGames(games []*model.Game) {
	if games == nil {
		games = []*model.Game{}
	}
	h.enqueue(outbound{lobby: true, data: encode(EventOpenGames, OpenGamesPayload{Games: games})})
}

// Close shuts down the hub and disconnects every client
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// ClientCount returns the number of connected game and lobby clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients) + len(h.lobby)
}

// RoomSize returns the number of connections in a game's room
func (h *Hub) RoomSize(gameID model.GameID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[gameID])
}
