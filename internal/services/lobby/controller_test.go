package lobby

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/omokgame/internal/model"
	"github.com/mcoot/omokgame/internal/services/session"
	"github.com/mcoot/omokgame/internal/storage/memory"
	"github.com/mcoot/omokgame/internal/testutil"
)

type fakeBroadcaster struct {
	mu        sync.Mutex
	snapshots [][]*model.Game
	signal    chan struct{}
}

func newFakeBroadcaster() *fakeBroadcaster {
	return &fakeBroadcaster{signal: make(chan struct{}, 8)}
}

func (b *fakeBroadcaster) BroadcastOpenGames(games []*model.Game) {
	b.mu.Lock()
	b.snapshots = append(b.snapshots, games)
	b.mu.Unlock()
	select {
	case b.signal <- struct{}{}:
	default:
	}
}

type fakeGuests struct {
	deleted []string
}

func (g *fakeGuests) DeleteGuest(ctx context.Context, uid string) error {
	g.deleted = append(g.deleted, uid)
	return nil
}

type CoordinatorSuite struct {
	suite.Suite
	storage     *memory.Storage
	broadcaster *fakeBroadcaster
	guests      *fakeGuests
	coordinator *Coordinator
	ctx         context.Context
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func (s *CoordinatorSuite) SetupTest() {
	s.storage = memory.New()
	s.broadcaster = newFakeBroadcaster()
	s.guests = &fakeGuests{}
	logger := testutil.NopLogger()
	s.coordinator = NewCoordinator(s.storage, session.New(s.storage, logger), s.guests, s.broadcaster, logger)
	s.ctx = context.Background()
}

func (s *CoordinatorSuite) saveOpenGame(id model.GameID, created time.Time) {
	game := model.NewGame(id, 5, model.Seat{Connection: model.ConnectionID("conn-" + id), UID: "uid"}, created)
	s.Require().NoError(s.storage.SaveGame(s.ctx, game))
	s.Require().NoError(s.storage.AddOpenGame(s.ctx, id))
}

// ListOpenGames tests

func (s *CoordinatorSuite) TestListOpenGamesOldestFirst() {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s.saveOpenGame("game-b", base.Add(time.Minute))
	s.saveOpenGame("game-a", base)

	games, err := s.coordinator.ListOpenGames(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(games, 2)
	s.Equal(model.GameID("game-a"), games[0].ID)
	s.Equal(model.GameID("game-b"), games[1].ID)
}

func (s *CoordinatorSuite) TestListOpenGamesSkipsVanishedRecords() {
	s.saveOpenGame("game-a", time.Now())
	s.Require().NoError(s.storage.AddOpenGame(s.ctx, "ghost"))

	games, err := s.coordinator.ListOpenGames(s.ctx)
	s.Require().NoError(err)
	s.Len(games, 1)
}

func (s *CoordinatorSuite) TestListOpenGamesEmpty() {
	games, err := s.coordinator.ListOpenGames(s.ctx)
	s.Require().NoError(err)
	s.Empty(games)
}

// Connect / Disconnect tests

func (s *CoordinatorSuite) TestConnectReturnsSnapshot() {
	s.saveOpenGame("game-a", time.Now())

	games, err := s.coordinator.Connect(s.ctx, "lobby-1", "uid-1", true)
	s.Require().NoError(err)
	s.Len(games, 1)

	binding, err := s.storage.GetBinding(s.ctx, "lobby-1")
	s.Require().NoError(err)
	s.Equal("uid-1", binding.UID)
}

func (s *CoordinatorSuite) TestDisconnectDeletesGuest() {
	_, err := s.coordinator.Connect(s.ctx, "lobby-1", "guest-1", true)
	s.Require().NoError(err)

	s.Require().NoError(s.coordinator.Disconnect(s.ctx, "lobby-1"))

	s.Equal([]string{"guest-1"}, s.guests.deleted)
	_, err = s.storage.GetBinding(s.ctx, "lobby-1")
	s.ErrorIs(err, model.ErrBindingNotFound)
}

func (s *CoordinatorSuite) TestDisconnectKeepsRegisteredProfile() {
	_, err := s.coordinator.Connect(s.ctx, "lobby-1", "uid-1", false)
	s.Require().NoError(err)

	s.Require().NoError(s.coordinator.Disconnect(s.ctx, "lobby-1"))
	s.Empty(s.guests.deleted)
}

func (s *CoordinatorSuite) TestDisconnectUnknownConnection() {
	s.NoError(s.coordinator.Disconnect(s.ctx, "nobody"))
}

// Run tests

func (s *CoordinatorSuite) TestRunBroadcastsOnChange() {
	ctx, cancel := context.WithCancel(s.ctx)
	done := make(chan error, 1)
	go func() { done <- s.coordinator.Run(ctx) }()

	s.saveOpenGame("game-a", time.Now())

	// Retry the notification until the subscription is live
	s.Eventually(func() bool {
		_ = s.coordinator.Notify(s.ctx, model.LobbyGameCreated)
		select {
		case <-s.broadcaster.signal:
			return true
		case <-time.After(20 * time.Millisecond):
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	s.broadcaster.mu.Lock()
	last := s.broadcaster.snapshots[len(s.broadcaster.snapshots)-1]
	s.broadcaster.mu.Unlock()
	s.Require().Len(last, 1)
	s.Equal(model.GameID("game-a"), last[0].ID)

	cancel()
	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(time.Second):
		s.Fail("coordinator did not stop")
	}
}
