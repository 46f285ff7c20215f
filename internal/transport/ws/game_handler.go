package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mcoot/omokgame/internal/api/apierr"
	"github.com/mcoot/omokgame/internal/api/middleware"
	"github.com/mcoot/omokgame/internal/model"
	"github.com/mcoot/omokgame/internal/services/auth"
	"github.com/mcoot/omokgame/internal/services/game"
)

// eventTimeout bounds the work done for one incoming event
const eventTimeout = 10 * time.Second

// Authenticator resolves the session token a websocket was opened with
type Authenticator interface {
	ValidateSession(token string) (*auth.Session, error)
	GetProfile(ctx context.Context, token string) (*model.Profile, error)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// GameHandler serves the per-game event channel
type GameHandler struct {
	hub    *Hub
	games  *game.Controller
	auth   Authenticator
	logger *slog.Logger
}

// NewGameHandler creates a new GameHandler
func NewGameHandler(hub *Hub, games *game.Controller, authenticator Authenticator, logger *slog.Logger) *GameHandler {
	return &GameHandler{
		hub:    hub,
		games:  games,
		auth:   authenticator,
		logger: logger.With(slog.String("component", "ws-game")),
	}
}

// gameConn is the per-connection state the dispatcher needs
type gameConn struct {
	client *Client
	token  string
	uid    string
}

// ServeHTTP authenticates, upgrades and runs the connection until it closes
func (h *GameHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
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

	gc := &gameConn{
		client: newClient(h.hub, conn, model.ConnectionID(uuid.NewString()), false),
		token:  token,
		uid:    session.UID,
	}
	h.hub.Register(gc.client)
	go gc.client.writePump()

	h.logger.Info("game connection opened",
		slog.String("conn_id", string(gc.client.id)),
		slog.String("uid", session.UID))

	base := context.WithoutCancel(r.Context())
	gc.client.readPump(h.logger, func(env Envelope) {
		ctx, cancel := context.WithTimeout(base, eventTimeout)
		defer cancel()
		h.dispatch(ctx, gc, env)
	})

	ctx, cancel := context.WithTimeout(base, eventTimeout)
	defer cancel()
	h.disconnect(ctx, gc)
}

// dispatch routes one incoming event. Failures are reported to the sender only.
func (h *GameHandler) dispatch(ctx context.Context, gc *gameConn, env Envelope) {
	defer func() {
		if p := recover(); p != nil {
			h.logger.Error("panic recovered",
				slog.Any("error", p),
				slog.String("stack", string(debug.Stack())),
				slog.String("event", env.Type))
			h.reject(gc, env.Type, apierr.NewInternalError())
		}
	}()

	var err error
	switch env.Type {
	case EventCreateGame:
		err = h.createGame(ctx, gc, env.Payload)
	case EventJoinGame:
		err = h.joinGame(ctx, gc, env.Payload)
	case EventPlayerReady:
		err = h.playerReady(ctx, gc, env.Payload)
	case EventTick:
		err = h.tick(ctx, gc, env.Payload)
	case EventMove:
		err = h.move(ctx, gc, env.Payload)
	case EventOffer:
		err = h.offer(ctx, gc, env.Payload)
	case EventOfferAccepted:
		err = h.offerAccepted(ctx, gc, env.Payload)
	default:
		err = apierr.NewInvalidRequestError(fmt.Sprintf("unknown event type %q", env.Type))
	}
	if err != nil {
		h.reject(gc, env.Type, err)
	}
}

func (h *GameHandler) reject(gc *gameConn, event string, err error) {
	_, apiError := apierr.Lookup(err)
	h.logger.Warn("event rejected",
		slog.String("conn_id", string(gc.client.id)),
		slog.String("event", event),
		slog.String("code", apiError.Code),
		slog.String("error", err.Error()))
	h.hub.SendTo(gc.client.id, EventRejected, RejectedPayload{
		Event:   event,
		Code:    apiError.Code,
		Message: apiError.Message,
	})
}

func decode(raw json.RawMessage, into any) error {
	if len(raw) == 0 {
		return apierr.NewInvalidRequestError("missing payload")
	}
	if err := json.Unmarshal(raw, into); err != nil {
		return apierr.NewInvalidRequestError("malformed payload")
	}
	return nil
}

func decodeGameRef(raw json.RawMessage) (model.GameID, error) {
	var ref GameRefPayload
	if err := decode(raw, &ref); err != nil {
		return "", err
	}
	if ref.GameID == "" {
		return "", apierr.NewInvalidRequestError("gameId is required")
	}
	return ref.GameID, nil
}

func (h *GameHandler) createGame(ctx context.Context, gc *gameConn, raw json.RawMessage) error {
	var p CreateGamePayload
	if err := decode(raw, &p); err != nil {
		return err
	}
	profile, err := h.auth.GetProfile(ctx, gc.token)
	if err != nil {
		return err
	}

	created, err := h.games.CreateGame(ctx, gc.client.id, profile, p.TimeMode)
	if err != nil {
		return err
	}
	h.hub.JoinRoom(gc.client.id, created.ID)
	h.hub.SendTo(gc.client.id, EventUpdateGame, UpdateGamePayload{GameProps: created})
	return nil
}

func (h *GameHandler) joinGame(ctx context.Context, gc *gameConn, raw json.RawMessage) error {
	gameID, err := decodeGameRef(raw)
	if err != nil {
		return err
	}
	profile, err := h.auth.GetProfile(ctx, gc.token)
	if err != nil {
		return err
	}

	joined, err := h.games.JoinGame(ctx, gc.client.id, profile, gameID)
	if err != nil {
		return err
	}
	h.hub.JoinRoom(gc.client.id, gameID)
	h.hub.SendToRoom(gameID, EventUpdateGame, UpdateGamePayload{GameProps: joined})
	return nil
}

func (h *GameHandler) playerReady(ctx context.Context, gc *gameConn, raw json.RawMessage) error {
	gameID, err := decodeGameRef(raw)
	if err != nil {
		return err
	}

	result, err := h.games.MarkReady(ctx, gc.client.id, gameID)
	if err != nil {
		return err
	}
	h.hub.SendToRoom(gameID, EventUpdateGame, UpdateGamePayload{GameProps: result.Game})
	if result.BothReady {
		h.hub.SendTo(result.Game.SeatConnection(result.StarterIsPlayer1), EventTurn, nil)
	}
	return nil
}

func (h *GameHandler) tick(ctx context.Context, gc *gameConn, raw json.RawMessage) error {
	gameID, err := decodeGameRef(raw)
	if err != nil {
		return err
	}

	result, err := h.games.Tick(ctx, gc.client.id, gameID)
	if err != nil {
		return err
	}
	field := "player2Time"
	if result.IsPlayer1 {
		field = "player1Time"
	}
	h.hub.SendToRoom(gameID, EventUpdateGame, UpdateGamePayload{GameProps: map[string]int{field: result.Remaining}})
	if result.Settlement != nil {
		h.hub.SendToRoom(gameID, EventGameEnded, gameEnded(result.Settlement))
	}
	return nil
}

func (h *GameHandler) move(ctx context.Context, gc *gameConn, raw json.RawMessage) error {
	var p MovePayload
	if err := decode(raw, &p); err != nil {
		return err
	}
	if p.GameID == "" {
		return apierr.NewInvalidRequestError("gameId is required")
	}

	result, err := h.games.ApplyMove(ctx, gc.client.id, p.GameID, p.Position)
	if err != nil {
		return err
	}
	h.hub.SendToRoom(p.GameID, EventUpdateGame, UpdateGamePayload{Moves: result.Moves})
	if result.Ended {
		h.hub.SendToRoom(p.GameID, EventGameEnded, gameEnded(result.Settlement))
		return nil
	}
	h.hub.SendToRoomExcept(p.GameID, gc.client.id, EventTurn, nil)
	return nil
}

func (h *GameHandler) offer(ctx context.Context, gc *gameConn, raw json.RawMessage) error {
	var p OfferPayload
	if err := decode(raw, &p); err != nil {
		return err
	}

	recipient, err := h.games.Offer(ctx, gc.client.id, p.GameID, p.Type)
	if err != nil {
		return err
	}
	h.hub.SendTo(recipient, EventOffer, OfferNotice{Type: p.Type})
	return nil
}

func (h *GameHandler) offerAccepted(ctx context.Context, gc *gameConn, raw json.RawMessage) error {
	var p OfferPayload
	if err := decode(raw, &p); err != nil {
		return err
	}

	switch p.Type {
	case model.OfferRedo:
		result, err := h.games.Undo(ctx, gc.client.id, p.GameID)
		if err != nil {
			return err
		}
		moves := result.Moves
		if moves == nil {
			moves = []model.Move{}
		}
		h.hub.SendToRoom(p.GameID, EventUpdateGame, UpdateGamePayload{GameProps: result.Game, Moves: moves})
		h.hub.SendToRoomExcept(p.GameID, gc.client.id, EventTurn, nil)
	case model.OfferDraw:
		settlement, err := h.games.AcceptDraw(ctx, gc.client.id, p.GameID)
		if err != nil {
			return err
		}
		h.hub.SendToRoom(p.GameID, EventGameEnded, gameEnded(settlement))
	default:
		return model.ErrInvalidOffer
	}
	return nil
}

// disconnect scores and reopens the game the connection was seated in, then
// tells whoever is left
func (h *GameHandler) disconnect(ctx context.Context, gc *gameConn) {
	defer h.hub.Unregister(gc.client)

	result, err := h.games.Leave(ctx, gc.client.id)
	if err != nil {
		h.logger.Error("failed to process disconnect",
			slog.String("conn_id", string(gc.client.id)),
			slog.String("error", err.Error()))
		return
	}

	if result.GameID != "" && !result.Deleted {
		if result.Settlement != nil {
			h.hub.SendToRoomExcept(result.GameID, gc.client.id, EventGameEnded, gameEnded(result.Settlement))
		}
		h.hub.SendToRoomExcept(result.GameID, gc.client.id, EventPlayerLeft, PlayerLeftPayload{GameProps: result.Game})
	}

	h.logger.Info("game connection closed",
		slog.String("conn_id", string(gc.client.id)),
		slog.String("game_id", string(result.GameID)))
}
