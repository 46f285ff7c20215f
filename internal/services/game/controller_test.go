package game

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/omokgame/internal/dependencies/mocks"
	"github.com/mcoot/omokgame/internal/model"
	"github.com/mcoot/omokgame/internal/services/session"
	"github.com/mcoot/omokgame/internal/storage/memory"
	"github.com/mcoot/omokgame/internal/testutil"
)

// recordingNotifier captures lobby change reasons in order
type recordingNotifier struct {
	mu      sync.Mutex
	reasons []model.LobbyChange
}

func (n *recordingNotifier) Notify(ctx context.Context, reason model.LobbyChange) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reasons = append(n.reasons, reason)
	return nil
}

// flakyMoveStore fails ClearMoves on demand
type flakyMoveStore struct {
	*memory.Storage
	failClear bool
}

func (f *flakyMoveStore) ClearMoves(ctx context.Context, id model.GameID) error {
	if f.failClear {
		return errors.New("connection reset")
	}
	return f.Storage.ClearMoves(ctx, id)
}

func (n *recordingNotifier) last() model.LobbyChange {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.reasons) == 0 {
		return ""
	}
	return n.reasons[len(n.reasons)-1]
}

type ControllerSuite struct {
	suite.Suite
	storage    *memory.Storage
	locker     *memory.Locker
	notifier   *recordingNotifier
	clock      *mocks.MockClock
	controller *Controller
	ctx        context.Context

	alice *model.Profile
	bob   *model.Profile
}

func TestControllerSuite(t *testing.T) {
	suite.Run(t, new(ControllerSuite))
}

func (s *ControllerSuite) SetupTest() {
	s.storage = memory.New()
	s.locker = memory.NewLocker()
	s.notifier = &recordingNotifier{}
	s.clock = mocks.NewMockClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	logger := testutil.NopLogger()
	s.controller = NewController(s.storage, s.storage, s.locker, session.New(s.storage, logger), s.notifier, s.clock, logger)
	s.ctx = context.Background()

	s.alice = &model.Profile{UID: "uid-alice", Username: "alice", Points: 100}
	s.bob = &model.Profile{UID: "uid-bob", Username: "bob", Points: 100, IsGuest: true}
	s.Require().NoError(s.storage.SaveProfile(s.ctx, s.alice))
	s.Require().NoError(s.storage.SaveProfile(s.ctx, s.bob))
}

// Helpers

func (s *ControllerSuite) createGame() *model.Game {
	game, err := s.controller.CreateGame(s.ctx, "conn-alice", s.alice, 5)
	s.Require().NoError(err)
	return game
}

func (s *ControllerSuite) createJoinedGame() *model.Game {
	game := s.createGame()
	joined, err := s.controller.JoinGame(s.ctx, "conn-bob", s.bob, game.ID)
	s.Require().NoError(err)
	return joined
}

func (s *ControllerSuite) startRound() *model.Game {
	game := s.createJoinedGame()
	_, err := s.controller.MarkReady(s.ctx, "conn-alice", game.ID)
	s.Require().NoError(err)
	result, err := s.controller.MarkReady(s.ctx, "conn-bob", game.ID)
	s.Require().NoError(err)
	s.Require().True(result.BothReady)
	return result.Game
}

func (s *ControllerSuite) move(conn model.ConnectionID, gameID model.GameID, x, y int) *MoveResult {
	result, err := s.controller.ApplyMove(s.ctx, conn, gameID, model.Position{X: x, Y: y})
	s.Require().NoError(err)
	return result
}

func (s *ControllerSuite) points(uid string) int {
	profile, err := s.storage.GetProfile(s.ctx, uid)
	s.Require().NoError(err)
	return profile.Points
}

func (s *ControllerSuite) openIDs() []model.GameID {
	ids, err := s.storage.ListOpenGameIDs(s.ctx)
	s.Require().NoError(err)
	return ids
}

// CreateGame tests

func (s *ControllerSuite) TestCreateGameSucceeds() {
	game := s.createGame()

	s.NotEmpty(game.ID)
	s.Equal(model.ConnectionID("conn-alice"), game.Player1)
	s.Equal("uid-alice", game.Player1UID)
	s.Equal("alice", game.Player1Name)
	s.Equal(100, game.Player1Points)
	s.Empty(game.Player2)
	s.Equal(300, game.Player1Time)
	s.Equal(300, game.Player2Time)
	s.True(game.Player1HasTurn)
	s.True(game.Player1Starts)
	s.False(game.Playing)
	s.Equal(model.PhaseOpen, game.Phase)

	s.Equal([]model.GameID{game.ID}, s.openIDs())
	s.Equal(model.LobbyGameCreated, s.notifier.last())

	binding, err := s.storage.GetBinding(s.ctx, "conn-alice")
	s.Require().NoError(err)
	s.Equal(game.ID, binding.GameID)
	s.Equal("uid-alice", binding.UID)
}

func (s *ControllerSuite) TestCreateGameUsesFreshIDs() {
	first := s.createGame()
	second, err := s.controller.CreateGame(s.ctx, "conn-bob", s.bob, 10)
	s.Require().NoError(err)

	s.NotEqual(first.ID, second.ID)
	s.Equal(600, second.Player1Time)
}

func (s *ControllerSuite) TestCreateGameRejectsInvalidTimeMode() {
	_, err := s.controller.CreateGame(s.ctx, "conn-alice", s.alice, 7)
	s.ErrorIs(err, model.ErrInvalidTimeMode)
	s.Empty(s.openIDs())
}

// JoinGame tests

func (s *ControllerSuite) TestJoinGameSucceeds() {
	game := s.createJoinedGame()

	s.Equal(model.ConnectionID("conn-alice"), game.Player1)
	s.Equal(model.ConnectionID("conn-bob"), game.Player2)
	s.Equal("uid-bob", game.Player2UID)
	s.Equal("bob", game.Player2Name)
	s.False(game.Playing)
	s.Equal(model.PhaseReady, game.Phase)
	s.Empty(s.openIDs())
	s.Equal(model.LobbyGameMatched, s.notifier.last())

	binding, err := s.storage.GetBinding(s.ctx, "conn-bob")
	s.Require().NoError(err)
	s.Equal(game.ID, binding.GameID)
	s.True(binding.IsGuest)
}

func (s *ControllerSuite) TestJoinGameNotFound() {
	_, err := s.controller.JoinGame(s.ctx, "conn-bob", s.bob, "missing")
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *ControllerSuite) TestJoinOccupiedGameFails() {
	game := s.createJoinedGame()
	carol := &model.Profile{UID: "uid-carol", Username: "carol"}

	_, err := s.controller.JoinGame(s.ctx, "conn-carol", carol, game.ID)
	s.ErrorIs(err, model.ErrSlotOccupied)

	stored, err := s.controller.GetGame(s.ctx, game.ID)
	s.Require().NoError(err)
	s.Equal(model.ConnectionID("conn-bob"), stored.Player2)
}

func (s *ControllerSuite) TestJoinOwnGameFails() {
	game := s.createGame()
	_, err := s.controller.JoinGame(s.ctx, "conn-alice", s.alice, game.ID)
	s.ErrorIs(err, model.ErrSlotOccupied)
}

func (s *ControllerSuite) TestCreateWhileSeatedFails() {
	first := s.createGame()

	_, err := s.controller.CreateGame(s.ctx, "conn-alice", s.alice, 10)
	s.ErrorIs(err, model.ErrAlreadySeated)
	s.Equal([]model.GameID{first.ID}, s.openIDs())

	// Leaving still tears down the only game the connection sat in
	_, err = s.controller.Leave(s.ctx, "conn-alice")
	s.Require().NoError(err)
	s.Empty(s.openIDs())
	_, err = s.controller.GetGame(s.ctx, first.ID)
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *ControllerSuite) TestJoinWhileSeatedFails() {
	joined := s.createJoinedGame()
	carol := &model.Profile{UID: "uid-carol", Username: "carol"}
	other, err := s.controller.CreateGame(s.ctx, "conn-carol", carol, 5)
	s.Require().NoError(err)

	_, err = s.controller.JoinGame(s.ctx, "conn-bob", s.bob, other.ID)
	s.ErrorIs(err, model.ErrAlreadySeated)

	stored, err := s.controller.GetGame(s.ctx, other.ID)
	s.Require().NoError(err)
	s.Empty(stored.Player2)
	s.Equal([]model.GameID{other.ID}, s.openIDs())

	// Bob leaving reopens the game he actually sat in
	_, err = s.controller.Leave(s.ctx, "conn-bob")
	s.Require().NoError(err)
	reopened, err := s.controller.GetGame(s.ctx, joined.ID)
	s.Require().NoError(err)
	s.Empty(reopened.Player2)
	s.ElementsMatch([]model.GameID{joined.ID, other.ID}, s.openIDs())
}

func (s *ControllerSuite) TestCreateAfterGameVanishedSucceeds() {
	first := s.createGame()
	s.Require().NoError(s.storage.DeleteGame(s.ctx, first.ID))

	second, err := s.controller.CreateGame(s.ctx, "conn-alice", s.alice, 5)
	s.Require().NoError(err)
	s.NotEqual(first.ID, second.ID)
}

// MarkReady tests

func (s *ControllerSuite) TestFirstReadyOnlySetsFlag() {
	game := s.createJoinedGame()

	result, err := s.controller.MarkReady(s.ctx, "conn-bob", game.ID)
	s.Require().NoError(err)

	s.False(result.BothReady)
	s.True(result.Game.Player2Ready)
	s.False(result.Game.Player1Ready)
	s.False(result.Game.Playing)
}

func (s *ControllerSuite) TestSecondReadyStartsRoundWithOriginalStarter() {
	game := s.createJoinedGame()

	_, err := s.controller.MarkReady(s.ctx, "conn-bob", game.ID)
	s.Require().NoError(err)
	result, err := s.controller.MarkReady(s.ctx, "conn-alice", game.ID)
	s.Require().NoError(err)

	s.True(result.BothReady)
	s.True(result.StarterIsPlayer1)
	s.True(result.Game.Playing)
	s.Equal(model.PhasePlaying, result.Game.Phase)
	s.True(result.Game.Player1HasTurn)
	s.False(result.Game.Player1Ready)
	s.False(result.Game.Player2Ready)
}

func (s *ControllerSuite) TestReadyWithoutOpponentFails() {
	game := s.createGame()
	_, err := s.controller.MarkReady(s.ctx, "conn-alice", game.ID)
	s.ErrorIs(err, model.ErrInvalidState)
}

func (s *ControllerSuite) TestReadyWhilePlayingFails() {
	game := s.startRound()
	_, err := s.controller.MarkReady(s.ctx, "conn-alice", game.ID)
	s.ErrorIs(err, model.ErrInvalidState)
}

func (s *ControllerSuite) TestReadyFromStrangerFails() {
	game := s.createJoinedGame()
	_, err := s.controller.MarkReady(s.ctx, "conn-carol", game.ID)
	s.ErrorIs(err, model.ErrNotInGame)
}

// ApplyMove tests

func (s *ControllerSuite) TestMoveFlipsTurn() {
	game := s.startRound()

	result := s.move("conn-alice", game.ID, 7, 7)

	s.False(result.Ended)
	s.False(result.Game.Player1HasTurn)
	s.Equal([]model.Move{{X: 7, Y: 7, IsPlayer1: true}}, result.Moves)
	s.Equal(model.CellPlayer1, result.Board.Get(model.Position{X: 7, Y: 7}))
}

func (s *ControllerSuite) TestTurnExclusivity() {
	game := s.startRound()

	_, err := s.controller.ApplyMove(s.ctx, "conn-bob", game.ID, model.Position{X: 0, Y: 0})
	s.ErrorIs(err, model.ErrNotYourTurn)

	s.move("conn-alice", game.ID, 0, 0)

	_, err = s.controller.ApplyMove(s.ctx, "conn-alice", game.ID, model.Position{X: 1, Y: 0})
	s.ErrorIs(err, model.ErrNotYourTurn)

	moves, err := s.controller.GetMoves(s.ctx, game.ID)
	s.Require().NoError(err)
	s.Len(moves, 1)
}

func (s *ControllerSuite) TestFieldOccupiedRegardlessOfOwner() {
	game := s.startRound()
	s.move("conn-alice", game.ID, 3, 3)

	_, err := s.controller.ApplyMove(s.ctx, "conn-bob", game.ID, model.Position{X: 3, Y: 3})
	s.ErrorIs(err, model.ErrFieldOccupied)

	s.move("conn-bob", game.ID, 4, 4)
	_, err = s.controller.ApplyMove(s.ctx, "conn-alice", game.ID, model.Position{X: 4, Y: 4})
	s.ErrorIs(err, model.ErrFieldOccupied)
}

func (s *ControllerSuite) TestMoveOutOfBoundsFails() {
	game := s.startRound()
	_, err := s.controller.ApplyMove(s.ctx, "conn-alice", game.ID, model.Position{X: 15, Y: 0})
	s.ErrorIs(err, model.ErrInvalidPosition)
	_, err = s.controller.ApplyMove(s.ctx, "conn-alice", game.ID, model.Position{X: 0, Y: -1})
	s.ErrorIs(err, model.ErrInvalidPosition)
}

func (s *ControllerSuite) TestMoveBeforeRoundFails() {
	game := s.createJoinedGame()
	_, err := s.controller.ApplyMove(s.ctx, "conn-alice", game.ID, model.Position{X: 0, Y: 0})
	s.ErrorIs(err, model.ErrInvalidState)
}

func (s *ControllerSuite) TestMoveInMissingGameFails() {
	_, err := s.controller.ApplyMove(s.ctx, "conn-alice", "missing", model.Position{X: 0, Y: 0})
	s.ErrorIs(err, model.ErrGameNotFound)
}

func (s *ControllerSuite) TestFiveInARowWinsAndSettles() {
	game := s.startRound()

	for i := 0; i < 4; i++ {
		s.move("conn-alice", game.ID, i, 0)
		s.move("conn-bob", game.ID, i, 1)
	}
	result := s.move("conn-alice", game.ID, 4, 0)

	s.Require().True(result.Ended)
	settlement := result.Settlement
	s.Equal(model.OutcomeWin, settlement.Outcome)
	s.Require().NotNil(settlement.WinnerIsPlayer1)
	s.True(*settlement.WinnerIsPlayer1)
	s.Equal(50, settlement.Player1Delta)
	s.Equal(-30, settlement.Player2Delta)
	s.Equal([]model.Position{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}, {X: 3, Y: 0}, {X: 4, Y: 0}}, settlement.WinningLine)
	s.Len(result.Moves, 9)

	s.Equal(150, s.points("uid-alice"))
	s.Equal(70, s.points("uid-bob"))

	stored, err := s.controller.GetGame(s.ctx, game.ID)
	s.Require().NoError(err)
	s.Equal(150, stored.Player1Points)
	s.Equal(70, stored.Player2Points)
	s.False(stored.Playing)
	s.Equal(model.PhaseReady, stored.Phase)
	s.False(stored.Player1Starts)
	s.False(stored.Player1HasTurn)
	s.Equal(300, stored.Player1Time)
	s.Equal(300, stored.Player2Time)

	moves, err := s.controller.GetMoves(s.ctx, game.ID)
	s.Require().NoError(err)
	s.Empty(moves)
}

func (s *ControllerSuite) TestWinStandsWhenMoveLogClearFails() {
	store := &flakyMoveStore{Storage: s.storage}
	logger := testutil.NopLogger()
	s.controller = NewController(store, s.storage, s.locker, session.New(s.storage, logger), s.notifier, s.clock, logger)
	game := s.startRound()

	for i := 0; i < 4; i++ {
		s.move("conn-alice", game.ID, i, 0)
		s.move("conn-bob", game.ID, i, 1)
	}
	store.failClear = true
	result := s.move("conn-alice", game.ID, 4, 0)

	s.Require().True(result.Ended)
	s.Equal(150, s.points("uid-alice"))
	s.Equal(70, s.points("uid-bob"))
	stored, err := s.controller.GetGame(s.ctx, game.ID)
	s.Require().NoError(err)
	s.Equal(model.PhaseReady, stored.Phase)
	moves, err := s.controller.GetMoves(s.ctx, game.ID)
	s.Require().NoError(err)
	s.Len(moves, 9)

	// The next round starts from an empty board
	store.failClear = false
	_, err = s.controller.MarkReady(s.ctx, "conn-alice", game.ID)
	s.Require().NoError(err)
	ready, err := s.controller.MarkReady(s.ctx, "conn-bob", game.ID)
	s.Require().NoError(err)
	s.Require().True(ready.BothReady)
	moves, err = s.controller.GetMoves(s.ctx, game.ID)
	s.Require().NoError(err)
	s.Empty(moves)
}

func (s *ControllerSuite) TestNextRoundStartsWithOtherPlayer() {
	game := s.startRound()
	_, err := s.controller.AcceptDraw(s.ctx, "conn-bob", game.ID)
	s.Require().NoError(err)

	_, err = s.controller.MarkReady(s.ctx, "conn-alice", game.ID)
	s.Require().NoError(err)
	result, err := s.controller.MarkReady(s.ctx, "conn-bob", game.ID)
	s.Require().NoError(err)

	s.True(result.BothReady)
	s.False(result.StarterIsPlayer1)
	s.False(result.Game.Player1HasTurn)

	_, err = s.controller.ApplyMove(s.ctx, "conn-alice", game.ID, model.Position{X: 0, Y: 0})
	s.ErrorIs(err, model.ErrNotYourTurn)
	s.move("conn-bob", game.ID, 0, 0)
}

// Undo tests

func (s *ControllerSuite) TestUndoOnceThenNoMoves() {
	game := s.startRound()
	s.move("conn-alice", game.ID, 7, 7)

	// Bob holds the turn and accepts Alice's redo offer
	result, err := s.controller.Undo(s.ctx, "conn-bob", game.ID)
	s.Require().NoError(err)
	s.Empty(result.Moves)
	s.True(result.Game.Player1HasTurn)

	_, err = s.controller.Undo(s.ctx, "conn-alice", game.ID)
	s.ErrorIs(err, model.ErrNoMovesToUndo)
}

func (s *ControllerSuite) TestUndoAcceptedWithoutTurnFails() {
	game := s.startRound()
	s.move("conn-alice", game.ID, 7, 7)

	_, err := s.controller.Undo(s.ctx, "conn-alice", game.ID)
	s.ErrorIs(err, model.ErrStillYourTurn)

	moves, err := s.controller.GetMoves(s.ctx, game.ID)
	s.Require().NoError(err)
	s.Len(moves, 1)
}

func (s *ControllerSuite) TestUndoOutsideRoundFails() {
	game := s.createJoinedGame()
	_, err := s.controller.Undo(s.ctx, "conn-alice", game.ID)
	s.ErrorIs(err, model.ErrInvalidState)
}

// AcceptDraw tests

func (s *ControllerSuite) TestDrawCreditsBoth() {
	game := s.startRound()
	s.move("conn-alice", game.ID, 7, 7)

	settlement, err := s.controller.AcceptDraw(s.ctx, "conn-alice", game.ID)
	s.Require().NoError(err)

	s.Equal(model.OutcomeDraw, settlement.Outcome)
	s.True(settlement.IsDraw())
	s.Equal(110, s.points("uid-alice"))
	s.Equal(110, s.points("uid-bob"))
	s.Equal(110, settlement.Game.Player1Points)
	s.Equal(110, settlement.Game.Player2Points)
	s.False(settlement.Game.Playing)
}

func (s *ControllerSuite) TestDrawOutsideRoundFails() {
	game := s.createJoinedGame()
	_, err := s.controller.AcceptDraw(s.ctx, "conn-alice", game.ID)
	s.ErrorIs(err, model.ErrInvalidState)
}

// Tick tests

func (s *ControllerSuite) TestTickDecrementsOwnClock() {
	game := s.startRound()

	result, err := s.controller.Tick(s.ctx, "conn-alice", game.ID)
	s.Require().NoError(err)
	s.Equal(299, result.Remaining)
	s.True(result.IsPlayer1)
	s.Nil(result.Settlement)

	stored, err := s.controller.GetGame(s.ctx, game.ID)
	s.Require().NoError(err)
	s.Equal(299, stored.Player1Time)
	s.Equal(300, stored.Player2Time)
}

func (s *ControllerSuite) TestTickWithoutTurnFails() {
	game := s.startRound()
	_, err := s.controller.Tick(s.ctx, "conn-bob", game.ID)
	s.ErrorIs(err, model.ErrNotYourTurn)
}

func (s *ControllerSuite) TestTimeoutAfterFullClock() {
	game := s.startRound()

	var result *TickResult
	for i := 0; i < 300; i++ {
		var err error
		result, err = s.controller.Tick(s.ctx, "conn-alice", game.ID)
		s.Require().NoError(err)
		if i < 299 {
			s.Require().Nil(result.Settlement)
		}
	}

	s.Equal(0, result.Remaining)
	s.Require().NotNil(result.Settlement)
	s.Equal(model.OutcomeTimeout, result.Settlement.Outcome)
	s.False(*result.Settlement.WinnerIsPlayer1)
	s.Equal(70, s.points("uid-alice"))
	s.Equal(150, s.points("uid-bob"))

	stored, err := s.controller.GetGame(s.ctx, game.ID)
	s.Require().NoError(err)
	s.False(stored.Playing)
	s.Equal(300, stored.Player1Time)

	_, err = s.controller.Tick(s.ctx, "conn-alice", game.ID)
	s.ErrorIs(err, model.ErrInvalidState)
}

// Leave tests

func (s *ControllerSuite) TestSoleOccupantLeaveTearsDownGame() {
	game := s.createGame()
	s.Require().NoError(s.storage.AppendMove(s.ctx, game.ID, model.Move{X: 1, Y: 1, IsPlayer1: true}))

	result, err := s.controller.Leave(s.ctx, "conn-alice")
	s.Require().NoError(err)
	s.True(result.Deleted)
	s.Equal(game.ID, result.GameID)

	_, err = s.controller.GetGame(s.ctx, game.ID)
	s.ErrorIs(err, model.ErrGameNotFound)
	moves, err := s.storage.GetMoves(s.ctx, game.ID)
	s.Require().NoError(err)
	s.Empty(moves)
	s.Empty(s.openIDs())
	_, err = s.storage.GetBinding(s.ctx, "conn-alice")
	s.ErrorIs(err, model.ErrBindingNotFound)
	s.Equal(model.LobbyGameDeleted, s.notifier.last())
}

func (s *ControllerSuite) TestSecondPlayerLeavesBetweenRounds() {
	game := s.createJoinedGame()

	result, err := s.controller.Leave(s.ctx, "conn-bob")
	s.Require().NoError(err)
	s.False(result.Deleted)
	s.Nil(result.Settlement)
	s.Equal(model.ConnectionID("conn-alice"), result.Remaining)

	s.Equal(model.ConnectionID("conn-alice"), result.Game.Player1)
	s.Empty(result.Game.Player2)
	s.Equal(model.PhaseOpen, result.Game.Phase)
	s.Equal([]model.GameID{game.ID}, s.openIDs())
	s.Equal(model.LobbyPlayer2Left, s.notifier.last())
	s.Equal(100, s.points("uid-alice"))
}

func (s *ControllerSuite) TestPlayer1LeavesMidRound() {
	game := s.startRound()
	s.move("conn-alice", game.ID, 7, 7)

	result, err := s.controller.Leave(s.ctx, "conn-alice")
	s.Require().NoError(err)

	s.Require().NotNil(result.Settlement)
	s.Equal(model.OutcomeAbandoned, result.Settlement.Outcome)
	s.False(*result.Settlement.WinnerIsPlayer1)
	s.Equal(70, s.points("uid-alice"))
	s.Equal(150, s.points("uid-bob"))

	stored, err := s.controller.GetGame(s.ctx, game.ID)
	s.Require().NoError(err)
	s.Equal(model.ConnectionID("conn-bob"), stored.Player1)
	s.Equal("uid-bob", stored.Player1UID)
	s.Equal(150, stored.Player1Points)
	s.Empty(stored.Player2)
	s.Empty(stored.Player2UID)
	s.False(stored.Playing)
	s.False(stored.Player1Ready)
	s.Equal(300, stored.Player1Time)
	s.Equal(model.PhaseOpen, stored.Phase)

	moves, err := s.controller.GetMoves(s.ctx, game.ID)
	s.Require().NoError(err)
	s.Empty(moves)
	s.Equal([]model.GameID{game.ID}, s.openIDs())
	s.Equal(model.LobbyNowPlayer1, s.notifier.last())

	_, err = s.storage.GetBinding(s.ctx, "conn-alice")
	s.ErrorIs(err, model.ErrBindingNotFound)
	binding, err := s.storage.GetBinding(s.ctx, "conn-bob")
	s.Require().NoError(err)
	s.Equal(game.ID, binding.GameID)
}

func (s *ControllerSuite) TestLeaveWithoutBindingIsNoop() {
	result, err := s.controller.Leave(s.ctx, "conn-unknown")
	s.Require().NoError(err)
	s.Empty(result.GameID)
}

func (s *ControllerSuite) TestLeaveUnseatedReleasesBinding() {
	_, err := session.New(s.storage, testutil.NopLogger()).Connect(s.ctx, "conn-carol", "uid-carol", true)
	s.Require().NoError(err)

	result, err := s.controller.Leave(s.ctx, "conn-carol")
	s.Require().NoError(err)
	s.Empty(result.GameID)

	_, err = s.storage.GetBinding(s.ctx, "conn-carol")
	s.ErrorIs(err, model.ErrBindingNotFound)
}

// Offer tests

func (s *ControllerSuite) TestOfferReturnsOpponent() {
	game := s.startRound()

	opponent, err := s.controller.Offer(s.ctx, "conn-alice", game.ID, model.OfferDraw)
	s.Require().NoError(err)
	s.Equal(model.ConnectionID("conn-bob"), opponent)
}

func (s *ControllerSuite) TestOfferRejectsUnknownKind() {
	game := s.startRound()
	_, err := s.controller.Offer(s.ctx, "conn-alice", game.ID, model.OfferType("resign"))
	s.ErrorIs(err, model.ErrInvalidOffer)
}

func (s *ControllerSuite) TestOfferOutsideRoundFails() {
	game := s.createJoinedGame()
	_, err := s.controller.Offer(s.ctx, "conn-alice", game.ID, model.OfferRedo)
	s.ErrorIs(err, model.ErrInvalidState)
}

// Locking tests

func (s *ControllerSuite) TestOperationWaitsForGameLock() {
	game := s.startRound()

	unlock, err := s.locker.Lock(s.ctx, "game:"+string(game.ID))
	s.Require().NoError(err)
	defer unlock()

	ctx, cancel := context.WithTimeout(s.ctx, 30*time.Millisecond)
	defer cancel()
	_, err = s.controller.ApplyMove(ctx, "conn-alice", game.ID, model.Position{X: 0, Y: 0})
	s.ErrorIs(err, model.ErrLockNotAcquired)
}

func (s *ControllerSuite) TestConcurrentMovesAcceptOnlyOne() {
	game := s.startRound()

	var wg sync.WaitGroup
	errs := make([]error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.controller.ApplyMove(s.ctx, "conn-alice", game.ID, model.Position{X: i, Y: 0})
		}(i)
	}
	wg.Wait()

	accepted := 0
	for _, err := range errs {
		if err == nil {
			accepted++
		} else {
			s.ErrorIs(err, model.ErrNotYourTurn)
		}
	}
	s.Equal(1, accepted)

	moves, err := s.controller.GetMoves(s.ctx, game.ID)
	s.Require().NoError(err)
	s.Len(moves, 1)
}
