package session

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/omokgame/internal/model"
	"github.com/mcoot/omokgame/internal/storage/memory"
	"github.com/mcoot/omokgame/internal/testutil"
)

type ServiceSuite struct {
	suite.Suite
	storage *memory.Storage
	service *Service
	ctx     context.Context
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.storage = memory.New()
	s.service = New(s.storage, testutil.NopLogger())
	s.ctx = context.Background()
}

func (s *ServiceSuite) TestConnectCreatesUnseatedBinding() {
	binding, err := s.service.Connect(s.ctx, "conn-1", "uid-1", true)
	s.Require().NoError(err)
	s.Empty(binding.GameID)

	resolved, err := s.service.Resolve(s.ctx, "conn-1")
	s.Require().NoError(err)
	s.Equal("uid-1", resolved.UID)
	s.True(resolved.IsGuest)
}

func (s *ServiceSuite) TestAttachKeepsIdentity() {
	_, err := s.service.Connect(s.ctx, "conn-1", "uid-1", false)
	s.Require().NoError(err)

	s.Require().NoError(s.service.Attach(s.ctx, "conn-1", "ignored", true, "game-1"))

	resolved, err := s.service.Resolve(s.ctx, "conn-1")
	s.Require().NoError(err)
	s.Equal(model.GameID("game-1"), resolved.GameID)
	s.Equal("uid-1", resolved.UID)
	s.False(resolved.IsGuest)
}

func (s *ServiceSuite) TestAttachWithoutBindingCreatesOne() {
	s.Require().NoError(s.service.Attach(s.ctx, "conn-1", "uid-1", true, "game-1"))

	resolved, err := s.service.Resolve(s.ctx, "conn-1")
	s.Require().NoError(err)
	s.Equal("uid-1", resolved.UID)
	s.Equal(model.GameID("game-1"), resolved.GameID)
}

func (s *ServiceSuite) TestRelease() {
	_, err := s.service.Connect(s.ctx, "conn-1", "uid-1", false)
	s.Require().NoError(err)

	s.Require().NoError(s.service.Release(s.ctx, "conn-1"))

	_, err = s.service.Resolve(s.ctx, "conn-1")
	s.ErrorIs(err, model.ErrBindingNotFound)
}
