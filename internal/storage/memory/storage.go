package memory

import (
	"context"
	"sync"

	"github.com/mcoot/omokgame/internal/model"
	"github.com/mcoot/omokgame/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	games       map[model.GameID]*model.Game
	moves       map[model.GameID][]model.Move
	openGames   map[model.GameID]struct{}
	bindings    map[model.ConnectionID]*model.Binding
	profiles    map[string]*model.Profile
	credentials map[string]*model.Credentials // keyed by username

	subMu       sync.Mutex
	subscribers map[*subscription]struct{}
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		games:       make(map[model.GameID]*model.Game),
		moves:       make(map[model.GameID][]model.Move),
		openGames:   make(map[model.GameID]struct{}),
		bindings:    make(map[model.ConnectionID]*model.Binding),
		profiles:    make(map[string]*model.Profile),
		credentials: make(map[string]*model.Credentials),
		subscribers: make(map[*subscription]struct{}),
	}
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// Game operations

func (s *Storage) SaveGame(ctx context.Context, game *model.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var current int64
	if existing, ok := s.games[game.ID]; ok {
		current = existing.Version
	}
	if current != game.Version {
		return model.ErrVersionConflict
	}

	game.Version++
	s.games[game.ID] = game.Clone()
	return nil
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[id]
	if !ok {
		return nil, model.ErrGameNotFound
	}
	return game.Clone(), nil
}

func (s *Storage) DeleteGame(ctx context.Context, id model.GameID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, id)
	delete(s.moves, id)
	delete(s.openGames, id)
	return nil
}

func (s *Storage) TickClock(ctx context.Context, id model.GameID, isPlayer1 bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	game, ok := s.games[id]
	if !ok {
		return 0, model.ErrGameNotFound
	}
	remaining := game.SeatTime(isPlayer1) - 1
	game.SetSeatTime(isPlayer1, remaining)
	game.Version++
	return remaining, nil
}

// Move log operations

func (s *Storage) AppendMove(ctx context.Context, id model.GameID, move model.Move) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.moves[id] = append(s.moves[id], move)
	return nil
}

func (s *Storage) PopMove(ctx context.Context, id model.GameID) (*model.Move, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	moves := s.moves[id]
	if len(moves) == 0 {
		return nil, model.ErrNoMovesToUndo
	}
	last := moves[len(moves)-1]
	s.moves[id] = moves[:len(moves)-1]
	return &last, nil
}

func (s *Storage) GetMoves(ctx context.Context, id model.GameID) ([]model.Move, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	moves := make([]model.Move, len(s.moves[id]))
	copy(moves, s.moves[id])
	return moves, nil
}

func (s *Storage) ClearMoves(ctx context.Context, id model.GameID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.moves, id)
	return nil
}

// Open games operations

func (s *Storage) AddOpenGame(ctx context.Context, id model.GameID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openGames[id] = struct{}{}
	return nil
}

func (s *Storage) RemoveOpenGame(ctx context.Context, id model.GameID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.openGames, id)
	return nil
}

func (s *Storage) ListOpenGameIDs(ctx context.Context) ([]model.GameID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]model.GameID, 0, len(s.openGames))
	for id := range s.openGames {
		ids = append(ids, id)
	}
	return ids, nil
}

// Binding operations

func (s *Storage) SaveBinding(ctx context.Context, binding *model.Binding) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := *binding
	s.bindings[binding.ConnectionID] = &b
	return nil
}

func (s *Storage) GetBinding(ctx context.Context, conn model.ConnectionID) (*model.Binding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	binding, ok := s.bindings[conn]
	if !ok {
		return nil, model.ErrBindingNotFound
	}
	b := *binding
	return &b, nil
}

func (s *Storage) DeleteBinding(ctx context.Context, conn model.ConnectionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bindings, conn)
	return nil
}

// Profile operations

func (s *Storage) SaveProfile(ctx context.Context, profile *model.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := *profile
	s.profiles[profile.UID] = &p
	return nil
}

func (s *Storage) GetProfile(ctx context.Context, uid string) (*model.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	profile, ok := s.profiles[uid]
	if !ok {
		return nil, model.ErrProfileNotFound
	}
	p := *profile
	return &p, nil
}

func (s *Storage) UpdateProfilePoints(ctx context.Context, uid string, points int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[uid]
	if !ok {
		return model.ErrProfileNotFound
	}
	profile.Points = points
	return nil
}

func (s *Storage) AdjustProfilePoints(ctx context.Context, uid string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, ok := s.profiles[uid]
	if !ok {
		return 0, model.ErrProfileNotFound
	}
	profile.Points += delta
	return profile.Points, nil
}

func (s *Storage) DeleteProfile(ctx context.Context, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, uid)
	return nil
}

func (s *Storage) SaveCredentials(ctx context.Context, creds *model.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := *creds
	s.credentials[creds.Username] = &c
	return nil
}

func (s *Storage) GetCredentialsByUsername(ctx context.Context, username string) (*model.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	creds, ok := s.credentials[username]
	if !ok {
		return nil, model.ErrProfileNotFound
	}
	c := *creds
	return &c, nil
}

// Lobby notifications

type subscription struct {
	store *Storage
	ch    chan model.LobbyChange
	once  sync.Once
}

func (sub *subscription) Messages() <-chan model.LobbyChange {
	return sub.ch
}

func (sub *subscription) Close() error {
	sub.once.Do(func() {
		sub.store.subMu.Lock()
		delete(sub.store.subscribers, sub)
		sub.store.subMu.Unlock()
		close(sub.ch)
	})
	return nil
}

func (s *Storage) PublishLobbyChange(ctx context.Context, change model.LobbyChange) error {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for sub := range s.subscribers {
		select {
		case sub.ch <- change:
		default:
			// Subscriber is behind; the pending message already triggers a refresh
		}
	}
	return nil
}

func (s *Storage) SubscribeLobbyChanges(ctx context.Context) (storage.Subscription, error) {
	sub := &subscription{
		store: s,
		ch:    make(chan model.LobbyChange, 16),
	}
	s.subMu.Lock()
	s.subscribers[sub] = struct{}{}
	s.subMu.Unlock()
	return sub, nil
}
