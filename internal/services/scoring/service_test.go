package scoring

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/omokgame/internal/model"
)

type ScoringSuite struct {
	suite.Suite
}

func TestScoringSuite(t *testing.T) {
	suite.Run(t, new(ScoringSuite))
}

func (s *ScoringSuite) TestDecisiveWinnerPlayer1() {
	s.Equal(Deltas{Player1: 50, Player2: -30}, Decisive(true))
}

func (s *ScoringSuite) TestDecisiveWinnerPlayer2() {
	s.Equal(Deltas{Player1: -30, Player2: 50}, Decisive(false))
}

func (s *ScoringSuite) TestDraw() {
	s.Equal(Deltas{Player1: 10, Player2: 10}, Draw())
}

func (s *ScoringSuite) TestForOutcome() {
	s.Equal(Decisive(false), For(model.OutcomeTimeout, false))
	s.Equal(Decisive(true), For(model.OutcomeAbandoned, true))
	s.Equal(Decisive(true), For(model.OutcomeWin, true))
	s.Equal(Draw(), For(model.OutcomeDraw, true))
}
