package game

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/mcoot/omokgame/internal/dependencies/clock"
	"github.com/mcoot/omokgame/internal/model"
	"github.com/mcoot/omokgame/internal/services/board"
	"github.com/mcoot/omokgame/internal/services/session"
	"github.com/mcoot/omokgame/internal/storage"
)

// Notifier receives lobby change reasons whenever the open games set changes
type Notifier interface {
	Notify(ctx context.Context, reason model.LobbyChange) error
}

// Controller manages the game session state machine
type Controller struct {
	games    storage.GameStore
	profiles storage.ProfileStore
	locker   storage.Locker
	sessions *session.Service
	notifier Notifier
	clock    clock.Clock
	logger   *slog.Logger
}

// NewController creates a new game Controller
func NewController(
	games storage.GameStore,
	profiles storage.ProfileStore,
	locker storage.Locker,
	sessions *session.Service,
	notifier Notifier,
	clock clock.Clock,
	logger *slog.Logger,
) *Controller {
	return &Controller{
		games:    games,
		profiles: profiles,
		locker:   locker,
		sessions: sessions,
		notifier: notifier,
		clock:    clock,
		logger:   logger,
	}
}

// ReadyResult reports the outcome of a ready signal
type ReadyResult struct {
	BothReady        bool
	StarterIsPlayer1 bool
	Game             *model.Game
}

// MoveResult reports the outcome of an accepted move
type MoveResult struct {
	Move       model.Move
	Moves      []model.Move
	Board      model.Board
	Ended      bool
	Settlement *model.Settlement // set when the move won the round
	Game       *model.Game
}

// UndoResult reports the state after an accepted redo offer
type UndoResult struct {
	Moves []model.Move
	Game  *model.Game
}

// TickResult reports a seat's clock after one tick
type TickResult struct {
	Remaining  int
	IsPlayer1  bool
	Settlement *model.Settlement // set when the clock ran out
}

// LeaveResult describes what happened to the game a connection left
type LeaveResult struct {
	GameID     model.GameID
	Deleted    bool // the leaver was the sole occupant
	Game       *model.Game
	Remaining  model.ConnectionID
	Settlement *model.Settlement // set when a round in progress was abandoned
}

// withGameLock runs fn while holding the exclusive lock for a game
func (c *Controller) withGameLock(ctx context.Context, gameID model.GameID, fn func() error) error {
	lockCtx, cancel := context.WithTimeout(ctx, storage.LockTimeout)
	defer cancel()

	unlock, err := c.locker.Lock(lockCtx, "game:"+string(gameID))
	if err != nil {
		c.logger.Warn("failed to lock game",
			slog.String("game_id", string(gameID)),
			slog.String("error", err.Error()),
		)
		return err
	}
	defer unlock()

	return fn()
}

// loadSeated loads a game and checks the connection occupies one of its seats
func (c *Controller) loadSeated(ctx context.Context, conn model.ConnectionID, gameID model.GameID) (*model.Game, bool, error) {
	game, err := c.games.GetGame(ctx, gameID)
	if err != nil {
		return nil, false, err
	}
	if !game.HasSeat(conn) {
		return nil, false, model.ErrNotInGame
	}
	return game, game.IsPlayer1(conn), nil
}

// ensureUnseated fails when the connection still holds a seat in another game
func (c *Controller) ensureUnseated(ctx context.Context, conn model.ConnectionID) error {
	binding, err := c.sessions.Resolve(ctx, conn)
	if errors.Is(err, model.ErrBindingNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if binding.GameID == "" {
		return nil
	}

	current, err := c.games.GetGame(ctx, binding.GameID)
	if errors.Is(err, model.ErrGameNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if current.HasSeat(conn) {
		return model.ErrAlreadySeated
	}
	return nil
}

func (c *Controller) notify(ctx context.Context, gameID model.GameID, reason model.LobbyChange) {
	if err := c.notifier.Notify(ctx, reason); err != nil {
		c.logger.Warn("failed to notify lobby",
			slog.String("game_id", string(gameID)),
			slog.String("reason", string(reason)),
			slog.String("error", err.Error()),
		)
	}
}

// CreateGame opens a new lobby entry with the connection in the first seat
func (c *Controller) CreateGame(ctx context.Context, conn model.ConnectionID, profile *model.Profile, timeMode int) (*model.Game, error) {
	if !model.IsValidTimeMode(timeMode) {
		return nil, model.ErrInvalidTimeMode
	}
	if err := c.ensureUnseated(ctx, conn); err != nil {
		return nil, err
	}

	game := model.NewGame(model.GameID(uuid.NewString()), timeMode, model.Seat{
		Connection: conn,
		UID:        profile.UID,
		Name:       profile.Username,
		Points:     profile.Points,
	}, c.clock.Now())

	if err := c.games.SaveGame(ctx, game); err != nil {
		c.logger.Error("failed to save game",
			slog.String("game_id", string(game.ID)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	if err := c.sessions.Attach(ctx, conn, profile.UID, profile.IsGuest, game.ID); err != nil {
		return nil, err
	}
	if err := c.games.AddOpenGame(ctx, game.ID); err != nil {
		return nil, err
	}
	c.notify(ctx, game.ID, model.LobbyGameCreated)

	c.logger.Info("game created",
		slog.String("game_id", string(game.ID)),
		slog.String("conn_id", string(conn)),
		slog.Int("time_mode", timeMode),
	)

	return game, nil
}

// JoinGame seats the connection as the second player of an open game
func (c *Controller) JoinGame(ctx context.Context, conn model.ConnectionID, profile *model.Profile, gameID model.GameID) (*model.Game, error) {
	var game *model.Game
	err := c.withGameLock(ctx, gameID, func() error {
		var err error
		game, err = c.games.GetGame(ctx, gameID)
		if err != nil {
			return err
		}
		if !game.IsOpen() || game.HasSeat(conn) {
			return model.ErrSlotOccupied
		}
		if err := c.ensureUnseated(ctx, conn); err != nil {
			return err
		}

		game.FillSecondSeat(model.Seat{
			Connection: conn,
			UID:        profile.UID,
			Name:       profile.Username,
			Points:     profile.Points,
		})
		game.UpdatedAt = c.clock.Now()
		if err := c.games.SaveGame(ctx, game); err != nil {
			return err
		}
		if err := c.sessions.Attach(ctx, conn, profile.UID, profile.IsGuest, gameID); err != nil {
			return err
		}
		return c.games.RemoveOpenGame(ctx, gameID)
	})
	if err != nil {
		return nil, err
	}
	c.notify(ctx, gameID, model.LobbyGameMatched)

	c.logger.Info("game joined",
		slog.String("game_id", string(gameID)),
		slog.String("conn_id", string(conn)),
	)

	return game, nil
}

// MarkReady records a ready signal and starts the round once both seats are ready
func (c *Controller) MarkReady(ctx context.Context, conn model.ConnectionID, gameID model.GameID) (*ReadyResult, error) {
	var result *ReadyResult
	err := c.withGameLock(ctx, gameID, func() error {
		game, isPlayer1, err := c.loadSeated(ctx, conn, gameID)
		if err != nil {
			return err
		}
		if game.Playing || game.IsOpen() {
			return model.ErrInvalidState
		}

		bothReady := game.SeatReady(!isPlayer1)
		if bothReady {
			if err := c.games.ClearMoves(ctx, gameID); err != nil {
				return err
			}
			game.StartRound()
		} else {
			game.SetSeatReady(isPlayer1, true)
		}
		game.UpdatedAt = c.clock.Now()

		if err := c.games.SaveGame(ctx, game); err != nil {
			return err
		}
		result = &ReadyResult{
			BothReady:        bothReady,
			StarterIsPlayer1: game.Player1Starts,
			Game:             game,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.BothReady {
		c.logger.Info("round started",
			slog.String("game_id", string(gameID)),
			slog.Bool("player1_starts", result.StarterIsPlayer1),
		)
	}
	return result, nil
}

// ApplyMove places a stone for the connection and settles the round on five in a row
func (c *Controller) ApplyMove(ctx context.Context, conn model.ConnectionID, gameID model.GameID, pos model.Position) (*MoveResult, error) {
	var result *MoveResult
	err := c.withGameLock(ctx, gameID, func() error {
		game, isPlayer1, err := c.loadSeated(ctx, conn, gameID)
		if err != nil {
			return err
		}
		if !game.Playing {
			return model.ErrInvalidState
		}
		if !pos.IsValid() {
			return model.ErrInvalidPosition
		}
		if !game.HasTurn(isPlayer1) {
			return model.ErrNotYourTurn
		}

		moves, err := c.games.GetMoves(ctx, gameID)
		if err != nil {
			return err
		}
		if board.FieldOccupied(moves, pos) {
			return model.ErrFieldOccupied
		}

		move := model.Move{X: pos.X, Y: pos.Y, IsPlayer1: isPlayer1}
		if err := c.games.AppendMove(ctx, gameID, move); err != nil {
			return err
		}
		moves = append(moves, move)
		grid := board.Project(moves)

		result = &MoveResult{Move: move, Moves: moves, Board: grid}

		if board.CheckVictory(&grid) {
			settlement, err := c.settle(ctx, game, model.OutcomeWin, isPlayer1)
			if err != nil {
				c.rollbackMove(ctx, gameID)
				return err
			}
			settlement.WinningLine = board.WinningLine(&grid)
			result.Ended = true
			result.Settlement = settlement
			result.Game = settlement.Game
			return nil
		}

		game.Player1HasTurn = !game.Player1HasTurn
		game.UpdatedAt = c.clock.Now()
		if err := c.games.SaveGame(ctx, game); err != nil {
			c.rollbackMove(ctx, gameID)
			return err
		}
		result.Game = game
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// rollbackMove removes a move appended by a transition that failed to save
func (c *Controller) rollbackMove(ctx context.Context, gameID model.GameID) {
	if _, err := c.games.PopMove(ctx, gameID); err != nil {
		c.logger.Error("failed to roll back move",
			slog.String("game_id", string(gameID)),
			slog.String("error", err.Error()),
		)
	}
}

// Undo takes back the last move once the connection accepts the opponent's redo offer.
// The accepting connection must hold the turn, so the move being removed is the requester's.
func (c *Controller) Undo(ctx context.Context, conn model.ConnectionID, gameID model.GameID) (*UndoResult, error) {
	var result *UndoResult
	err := c.withGameLock(ctx, gameID, func() error {
		game, isPlayer1, err := c.loadSeated(ctx, conn, gameID)
		if err != nil {
			return err
		}
		if !game.Playing {
			return model.ErrInvalidState
		}
		if !game.HasTurn(isPlayer1) {
			return model.ErrStillYourTurn
		}

		popped, err := c.games.PopMove(ctx, gameID)
		if err != nil {
			return err
		}

		game.Player1HasTurn = !game.Player1HasTurn
		game.UpdatedAt = c.clock.Now()
		if err := c.games.SaveGame(ctx, game); err != nil {
			if restoreErr := c.games.AppendMove(ctx, gameID, *popped); restoreErr != nil {
				c.logger.Error("failed to restore undone move",
					slog.String("game_id", string(gameID)),
					slog.String("error", restoreErr.Error()),
				)
			}
			return err
		}

		moves, err := c.games.GetMoves(ctx, gameID)
		if err != nil {
			return err
		}
		result = &UndoResult{Moves: moves, Game: game}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("move undone",
		slog.String("game_id", string(gameID)),
		slog.Int("moves", len(result.Moves)),
	)
	return result, nil
}

// AcceptDraw ends the round without a winner
func (c *Controller) AcceptDraw(ctx context.Context, conn model.ConnectionID, gameID model.GameID) (*model.Settlement, error) {
	var settlement *model.Settlement
	err := c.withGameLock(ctx, gameID, func() error {
		game, _, err := c.loadSeated(ctx, conn, gameID)
		if err != nil {
			return err
		}
		if !game.Playing {
			return model.ErrInvalidState
		}

		settlement, err = c.settle(ctx, game, model.OutcomeDraw, false)
		return err
	})
	if err != nil {
		return nil, err
	}
	return settlement, nil
}

// Tick takes one second off the connection's clock; at zero the opponent wins
func (c *Controller) Tick(ctx context.Context, conn model.ConnectionID, gameID model.GameID) (*TickResult, error) {
	var result *TickResult
	err := c.withGameLock(ctx, gameID, func() error {
		game, isPlayer1, err := c.loadSeated(ctx, conn, gameID)
		if err != nil {
			return err
		}
		if !game.Playing {
			return model.ErrInvalidState
		}
		if !game.HasTurn(isPlayer1) {
			return model.ErrNotYourTurn
		}

		remaining, err := c.games.TickClock(ctx, gameID, isPlayer1)
		if err != nil {
			return err
		}
		result = &TickResult{Remaining: remaining, IsPlayer1: isPlayer1}
		if remaining > 0 {
			return nil
		}

		// The tick bumped the stored version, so settle from a fresh read
		game, err = c.games.GetGame(ctx, gameID)
		if err != nil {
			return err
		}
		result.Settlement, err = c.settle(ctx, game, model.OutcomeTimeout, !isPlayer1)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Leave processes a connection going away. A sole occupant's game is torn down;
// otherwise any round in progress is scored as abandoned and the remaining player
// is left holding a reopened lobby entry.
func (c *Controller) Leave(ctx context.Context, conn model.ConnectionID) (*LeaveResult, error) {
	binding, err := c.sessions.Resolve(ctx, conn)
	if errors.Is(err, model.ErrBindingNotFound) {
		return &LeaveResult{}, nil
	}
	if err != nil {
		return nil, err
	}

	result := &LeaveResult{GameID: binding.GameID}
	if binding.GameID != "" {
		err = c.withGameLock(ctx, binding.GameID, func() error {
			return c.leaveGame(ctx, conn, binding.GameID, result)
		})
		if err != nil {
			return nil, err
		}
	}

	if err := c.sessions.Release(ctx, conn); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Controller) leaveGame(ctx context.Context, conn model.ConnectionID, gameID model.GameID, result *LeaveResult) error {
	game, err := c.games.GetGame(ctx, gameID)
	if errors.Is(err, model.ErrGameNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !game.HasSeat(conn) {
		return nil
	}

	if game.IsOpen() {
		if err := c.games.DeleteGame(ctx, gameID); err != nil {
			return err
		}
		result.Deleted = true
		c.notify(ctx, gameID, model.LobbyGameDeleted)
		c.logger.Info("game deleted", slog.String("game_id", string(gameID)))
		return nil
	}

	leaverIsPlayer1 := game.IsPlayer1(conn)
	if game.Playing {
		settlement, err := c.settle(ctx, game, model.OutcomeAbandoned, !leaverIsPlayer1)
		if err != nil {
			return err
		}
		result.Settlement = settlement
	}

	reason := model.LobbyPlayer2Left
	if leaverIsPlayer1 {
		game.PromoteSecondSeat()
		reason = model.LobbyNowPlayer1
	}
	game.Reopen()
	game.UpdatedAt = c.clock.Now()

	if err := c.games.SaveGame(ctx, game); err != nil {
		return err
	}
	if err := c.games.ClearMoves(ctx, gameID); err != nil {
		return err
	}
	if err := c.games.AddOpenGame(ctx, gameID); err != nil {
		return err
	}
	c.notify(ctx, gameID, reason)

	result.Game = game
	result.Remaining = game.Player1

	c.logger.Info("player left game",
		slog.String("game_id", string(gameID)),
		slog.String("conn_id", string(conn)),
		slog.Bool("abandoned_round", result.Settlement != nil),
	)
	return nil
}

// Offer checks that a redo or draw proposal may be forwarded and returns the recipient
func (c *Controller) Offer(ctx context.Context, conn model.ConnectionID, gameID model.GameID, kind model.OfferType) (model.ConnectionID, error) {
	if !kind.IsValid() {
		return "", model.ErrInvalidOffer
	}

	game, _, err := c.loadSeated(ctx, conn, gameID)
	if err != nil {
		return "", err
	}
	if !game.Playing {
		return "", model.ErrInvalidState
	}
	return game.Opponent(conn), nil
}

// GetGame retrieves a game by ID
func (c *Controller) GetGame(ctx context.Context, gameID model.GameID) (*model.Game, error) {
	return c.games.GetGame(ctx, gameID)
}

// GetMoves retrieves the current round's move log
func (c *Controller) GetMoves(ctx context.Context, gameID model.GameID) ([]model.Move, error) {
	if _, err := c.games.GetGame(ctx, gameID); err != nil {
		return nil, err
	}
	return c.games.GetMoves(ctx, gameID)
}
