// Package session maps live connections to the identity behind them and the
// game they are seated in.
package session

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/omokgame/internal/model"
	"github.com/mcoot/omokgame/internal/storage"
)

// Service manages connection bindings
type Service struct {
	store  storage.GameStore
	logger *slog.Logger
}

// New creates a new session Service
func New(store storage.GameStore, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// Connect records an authenticated connection that is not yet seated
func (s *Service) Connect(ctx context.Context, conn model.ConnectionID, uid string, isGuest bool) (*model.Binding, error) {
	binding := &model.Binding{
		ConnectionID: conn,
		UID:          uid,
		IsGuest:      isGuest,
	}
	if err := s.store.SaveBinding(ctx, binding); err != nil {
		return nil, err
	}

	s.logger.Debug("connection bound",
		slog.String("conn_id", string(conn)),
		slog.String("uid", uid),
	)
	return binding, nil
}

// Resolve returns the binding for a connection
func (s *Service) Resolve(ctx context.Context, conn model.ConnectionID) (*model.Binding, error) {
	return s.store.GetBinding(ctx, conn)
}

// Attach seats a connection's binding in a game, creating the binding if needed
func (s *Service) Attach(ctx context.Context, conn model.ConnectionID, uid string, isGuest bool, gameID model.GameID) error {
	binding, err := s.store.GetBinding(ctx, conn)
	if errors.Is(err, model.ErrBindingNotFound) {
		binding = &model.Binding{ConnectionID: conn, UID: uid, IsGuest: isGuest}
	} else if err != nil {
		return err
	}

	binding.GameID = gameID
	return s.store.SaveBinding(ctx, binding)
}

// Release forgets a connection entirely
func (s *Service) Release(ctx context.Context, conn model.ConnectionID) error {
	if err := s.store.DeleteBinding(ctx, conn); err != nil {
		return err
	}
	s.logger.Debug("connection released", slog.String("conn_id", string(conn)))
	return nil
}
