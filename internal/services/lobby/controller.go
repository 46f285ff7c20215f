package lobby

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/mcoot/omokgame/internal/model"
	"github.com/mcoot/omokgame/internal/services/session"
	"github.com/mcoot/omokgame/internal/storage"
)

// Broadcaster pushes an open games snapshot to every connected lobby client
type Broadcaster interface {
	BroadcastOpenGames(games []*model.Game)
}

// GuestRemover tears down guest accounts
type GuestRemover interface {
	DeleteGuest(ctx context.Context, uid string) error
}

// Coordinator keeps lobby clients in step with the open games set
type Coordinator struct {
	games       storage.GameStore
	sessions    *session.Service
	guests      GuestRemover
	broadcaster Broadcaster
	logger      *slog.Logger
}

// NewCoordinator creates a new lobby Coordinator
func NewCoordinator(
	games storage.GameStore,
	sessions *session.Service,
	guests GuestRemover,
	broadcaster Broadcaster,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		games:       games,
		sessions:    sessions,
		guests:      guests,
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// ListOpenGames returns the joinable games, oldest first. Ids whose record has
// vanished since they were listed are skipped.
func (c *Coordinator) ListOpenGames(ctx context.Context) ([]*model.Game, error) {
	ids, err := c.games.ListOpenGameIDs(ctx)
	if err != nil {
		return nil, err
	}

	games := make([]*model.Game, 0, len(ids))
	for _, id := range ids {
		game, err := c.games.GetGame(ctx, id)
		if errors.Is(err, model.ErrGameNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		games = append(games, game)
	}

	sort.Slice(games, func(i, j int) bool {
		if games[i].CreatedAt.Equal(games[j].CreatedAt) {
			return games[i].ID < games[j].ID
		}
		return games[i].CreatedAt.Before(games[j].CreatedAt)
	})
	return games, nil
}

// Notify publishes a change on the lobby topic
func (c *Coordinator) Notify(ctx context.Context, reason model.LobbyChange) error {
	return c.games.PublishLobbyChange(ctx, reason)
}

// Connect binds a lobby connection and returns the snapshot it starts from
func (c *Coordinator) Connect(ctx context.Context, conn model.ConnectionID, uid string, isGuest bool) ([]*model.Game, error) {
	if _, err := c.sessions.Connect(ctx, conn, uid, isGuest); err != nil {
		return nil, err
	}
	return c.ListOpenGames(ctx)
}

// Disconnect tears down a lobby connection, removing the guest account behind it
func (c *Coordinator) Disconnect(ctx context.Context, conn model.ConnectionID) error {
	binding, err := c.sessions.Resolve(ctx, conn)
	if errors.Is(err, model.ErrBindingNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	if binding.IsGuest {
		if err := c.guests.DeleteGuest(ctx, binding.UID); err != nil {
			c.logger.Warn("failed to delete guest",
				slog.String("conn_id", string(conn)),
				slog.String("uid", binding.UID),
				slog.String("error", err.Error()),
			)
		}
	}
	return c.sessions.Release(ctx, conn)
}

// Run pushes a fresh snapshot to lobby clients on every change until ctx is done.
// Message payloads are only wake-ups; the snapshot is always re-read.
func (c *Coordinator) Run(ctx context.Context) error {
	sub, err := c.games.SubscribeLobbyChanges(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = sub.Close() }()

	c.logger.Info("lobby coordinator started")

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("lobby coordinator stopped")
			return nil
		case reason, ok := <-sub.Messages():
			if !ok {
				return nil
			}
			c.refresh(ctx, reason)
		}
	}
}

func (c *Coordinator) refresh(ctx context.Context, reason model.LobbyChange) {
	games, err := c.ListOpenGames(ctx)
	if err != nil {
		c.logger.Error("failed to list open games",
			slog.String("reason", string(reason)),
			slog.String("error", err.Error()),
		)
		return
	}

	c.logger.Debug("lobby refreshed",
		slog.String("reason", string(reason)),
		slog.Int("open_games", len(games)),
	)
	c.broadcaster.BroadcastOpenGames(games)
}
