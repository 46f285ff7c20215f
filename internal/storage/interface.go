package storage

import (
	"context"
	"time"

	"github.com/mcoot/omokgame/internal/model"
)

// GameStore defines persistence for game records, move logs, the open games set,
// connection bindings and lobby change notifications
type GameStore interface {
	// Game record operations
	// SaveGame writes the record if the stored version still equals game.Version
	// (zero for a record that does not exist yet) and increments game.Version on success.
	// A mismatch returns model.ErrVersionConflict.
	SaveGame(ctx context.Context, game *model.Game) error
	GetGame(ctx context.Context, id model.GameID) (*model.Game, error)
	// DeleteGame removes the record, its move log and its open games membership
	DeleteGame(ctx context.Context, id model.GameID) error
	// TickClock atomically decrements a seat's clock by one and returns the remaining seconds
	TickClock(ctx context.Context, id model.GameID, isPlayer1 bool) (int, error)

	// Move log operations
	AppendMove(ctx context.Context, id model.GameID, move model.Move) error
	PopMove(ctx context.Context, id model.GameID) (*model.Move, error)
	GetMoves(ctx context.Context, id model.GameID) ([]model.Move, error)
	ClearMoves(ctx context.Context, id model.GameID) error

	// Open games set operations
	AddOpenGame(ctx context.Context, id model.GameID) error
	RemoveOpenGame(ctx context.Context, id model.GameID) error
	ListOpenGameIDs(ctx context.Context) ([]model.GameID, error)

	// Connection binding operations
	SaveBinding(ctx context.Context, binding *model.Binding) error
	GetBinding(ctx context.Context, conn model.ConnectionID) (*model.Binding, error)
	DeleteBinding(ctx context.Context, conn model.ConnectionID) error

	// Lobby notifications
	PublishLobbyChange(ctx context.Context, change model.LobbyChange) error
	SubscribeLobbyChanges(ctx context.Context) (Subscription, error)
}

// ProfileStore defines persistence for player profiles and login credentials
type ProfileStore interface {
	SaveProfile(ctx context.Context, profile *model.Profile) error
	GetProfile(ctx context.Context, uid string) (*model.Profile, error)
	UpdateProfilePoints(ctx context.Context, uid string, points int) error
	// AdjustProfilePoints applies a signed delta and returns the new total
	AdjustProfilePoints(ctx context.Context, uid string, delta int) (int, error)
	DeleteProfile(ctx context.Context, uid string) error

	SaveCredentials(ctx context.Context, creds *model.Credentials) error
	GetCredentialsByUsername(ctx context.Context, username string) (*model.Credentials, error)
}

// Storage is the combined store used by the application
type Storage interface {
	GameStore
	ProfileStore
}

// Subscription delivers lobby change messages until closed
type Subscription interface {
	Messages() <-chan model.LobbyChange
	Close() error
}

// Locker provides exclusive access to a single game across concurrent handlers
type Locker interface {
	// Lock blocks until the key is held or ctx is done and returns the release function
	Lock(ctx context.Context, key string) (func(), error)
}

// LockTimeout bounds how long a handler waits for a game lock
const LockTimeout = 5 * time.Second
