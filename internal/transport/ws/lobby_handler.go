package ws

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/mcoot/omokgame/internal/api/apierr"
	"github.com/mcoot/omokgame/internal/api/middleware"
	"github.com/mcoot/omokgame/internal/model"
)

// LobbyCoordinator tracks lobby watchers
type LobbyCoordinator interface {
	Connect(ctx context.Context, conn model.ConnectionID, uid string, isGuest bool) ([]*model.Game, error)
	Disconnect(ctx context.Context, conn model.ConnectionID) error
}

// LobbyHandler serves the open games feed
type LobbyHandler struct {
	hub         *Hub
	coordinator LobbyCoordinator
	auth        Authenticator
	logger      *slog.Logger
}

// NewLobbyHandler creates a new LobbyHandler
func NewLobbyHandler(hub *Hub, coordinator LobbyCoordinator, authenticator Authenticator, logger *slog.Logger) *LobbyHandler {
	return &LobbyHandler{
		hub:         hub,
		coordinator: coordinator,
		auth:        authenticator,
		logger:      logger.With(slog.String("component", "ws-lobby")),
	}
}

// ServeHTTP pushes a snapshot on connect, then every change until the peer leaves
func (h *LobbyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := middleware.ExtractToken(r)
	if token == "" {
		apierr.WriteError(w, apierr.NewUnauthorizedError())
		return
	}
	session, err := h.auth.ValidateSession(token)
	if err != nil {
		apierr.WriteError(w, err)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", slog.String("error", err.Error()))
		return
	}

	client := newClient(h.hub, conn, model.ConnectionID(uuid.NewString()), true)
	h.hub.Register(client)
	go client.writePump()

	base := context.WithoutCancel(r.Context())
	ctx, cancel := context.WithTimeout(base, eventTimeout)
	games, err := h.coordinator.Connect(ctx, client.id, session.UID, session.IsGuest)
	cancel()
	if err != nil {
		h.logger.Error("failed to load lobby snapshot",
			slog.String("conn_id", string(client.id)),
			slog.String("error", err.Error()))
		h.hub.Unregister(client)
		return
	}
	if games == nil {
		games = []*model.Game{}
	}
	h.hub.sendDirect(client, encode(EventOpenGames, OpenGamesPayload{Games: games}))

	// Lobby clients only listen; anything they send is ignored
	client.readPump(h.logger, func(Envelope) {})

	ctx, cancel = context.WithTimeout(base, eventTimeout)
	defer cancel()
	if err := h.coordinator.Disconnect(ctx, client.id); err != nil {
		h.logger.Warn("failed to process lobby disconnect",
			slog.String("conn_id", string(client.id)),
			slog.String("error", err.Error()))
	}
	h.hub.Unregister(client)
}
