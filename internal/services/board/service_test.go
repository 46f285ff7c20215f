package board

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/mcoot/omokgame/internal/model"
)

type BoardSuite struct {
	suite.Suite
}

func TestBoardSuite(t *testing.T) {
	suite.Run(t, new(BoardSuite))
}

// line builds n moves for one player starting at (x, y) stepping by (dx, dy)
func line(x, y, dx, dy, n int, isPlayer1 bool) []model.Move {
	moves := make([]model.Move, n)
	for i := 0; i < n; i++ {
		moves[i] = model.Move{X: x + dx*i, Y: y + dy*i, IsPlayer1: isPlayer1}
	}
	return moves
}

// Project tests

func (s *BoardSuite) TestProjectEmpty() {
	b := Project(nil)
	s.Equal(0, b.StoneCount())
}

func (s *BoardSuite) TestProjectPlacesStones() {
	b := Project([]model.Move{
		{X: 0, Y: 0, IsPlayer1: true},
		{X: 14, Y: 3, IsPlayer1: false},
	})

	s.Equal(model.CellPlayer1, b.Get(model.Position{X: 0, Y: 0}))
	s.Equal(model.CellPlayer2, b.Get(model.Position{X: 14, Y: 3}))
	s.Equal(model.CellEmpty, b.Get(model.Position{X: 3, Y: 14}))
	s.Equal(2, b.StoneCount())
}

func (s *BoardSuite) TestProjectLastWriteWins() {
	b := Project([]model.Move{
		{X: 5, Y: 5, IsPlayer1: true},
		{X: 5, Y: 5, IsPlayer1: false},
	})
	s.Equal(model.CellPlayer2, b.Get(model.Position{X: 5, Y: 5}))
}

// CheckVictory tests

func (s *BoardSuite) TestFiveInEachDirectionWins() {
	cases := map[string][]model.Move{
		"horizontal": line(3, 7, 1, 0, 5, true),
		"vertical":   line(2, 0, 0, 1, 5, false),
		"down-right": line(0, 0, 1, 1, 5, true),
		"down-left":  line(14, 0, -1, 1, 5, false),
		"right edge": line(10, 14, 1, 0, 5, true),
		"low corner": line(4, 10, -1, 1, 5, true),
	}
	for name, moves := range cases {
		b := Project(moves)
		s.True(CheckVictory(&b), name)
	}
}

func (s *BoardSuite) TestFourIsNotVictory() {
	for _, moves := range [][]model.Move{
		line(0, 0, 1, 0, 4, true),
		line(0, 0, 0, 1, 4, true),
		line(0, 0, 1, 1, 4, true),
		line(14, 0, -1, 1, 4, true),
	} {
		b := Project(moves)
		s.False(CheckVictory(&b))
	}
}

func (s *BoardSuite) TestBlockedFourIsNotVictory() {
	moves := line(1, 7, 1, 0, 4, true)
	moves = append(moves, model.Move{X: 5, Y: 7, IsPlayer1: false})
	moves = append(moves, model.Move{X: 0, Y: 7, IsPlayer1: false})
	b := Project(moves)
	s.False(CheckVictory(&b))
}

func (s *BoardSuite) TestMixedOwnersDoNotCombine() {
	moves := line(0, 0, 1, 0, 2, true)
	moves = append(moves, line(2, 0, 1, 0, 3, false)...)
	b := Project(moves)
	s.False(CheckVictory(&b))
}

func (s *BoardSuite) TestRunLongerThanFiveWins() {
	b := Project(line(0, 3, 1, 0, 6, false))
	s.True(CheckVictory(&b))
}

func (s *BoardSuite) TestRunDoesNotWrapRows() {
	moves := line(12, 2, 1, 0, 3, true)
	moves = append(moves, line(0, 3, 1, 0, 2, true)...)
	b := Project(moves)
	s.False(CheckVictory(&b))
}

// WinningLine tests

func (s *BoardSuite) TestWinningLinePositions() {
	b := Project(line(14, 0, -1, 1, 5, true))
	s.Equal([]model.Position{
		{X: 14, Y: 0}, {X: 13, Y: 1}, {X: 12, Y: 2}, {X: 11, Y: 3}, {X: 10, Y: 4},
	}, WinningLine(&b))
}

func (s *BoardSuite) TestWinningLineNilWithoutVictory() {
	b := Project(line(0, 0, 1, 0, 3, true))
	s.Nil(WinningLine(&b))
}

// FieldOccupied tests

func (s *BoardSuite) TestFieldOccupied() {
	moves := []model.Move{{X: 7, Y: 7, IsPlayer1: true}, {X: 8, Y: 7, IsPlayer1: false}}

	s.True(FieldOccupied(moves, model.Position{X: 7, Y: 7}))
	s.True(FieldOccupied(moves, model.Position{X: 8, Y: 7}))
	s.False(FieldOccupied(moves, model.Position{X: 7, Y: 8}))
	s.False(FieldOccupied(nil, model.Position{X: 0, Y: 0}))
}
