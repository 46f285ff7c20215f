// Package board projects move logs onto the grid and detects five in a row.
// Everything here is stateless and safe for concurrent use.
package board

import "github.com/mcoot/omokgame/internal/model"

// direction is a unit step used when scanning for runs
type direction struct {
	dx, dy int
}

// Scan order matters only for which line WinningLine reports first
var directions = []direction{
	{dx: 1, dy: 0},  // right
	{dx: 0, dy: 1},  // down
	{dx: 1, dy: 1},  // down-right
	{dx: -1, dy: 1}, // down-left
}

// Project replays a move log onto an empty board, later moves overwriting earlier ones
func Project(moves []model.Move) model.Board {
	var b model.Board
	for _, m := range moves {
		b.Set(m.Position(), model.CellFor(m.IsPlayer1))
	}
	return b
}

// CheckVictory reports whether any player has at least five consecutive stones
func CheckVictory(b *model.Board) bool {
	return WinningLine(b) != nil
}

// WinningLine returns the first five-stone run found in row-major order, or nil
func WinningLine(b *model.Board) []model.Position {
	for y := 0; y < model.BoardSize; y++ {
		for x := 0; x < model.BoardSize; x++ {
			owner := b.Cells[y][x]
			if owner == model.CellEmpty {
				continue
			}
			for _, d := range directions {
				if line := runFrom(b, x, y, d, owner); line != nil {
					return line
				}
			}
		}
	}
	return nil
}

// runFrom collects WinLength cells starting at (x, y) if they all belong to owner
func runFrom(b *model.Board, x, y int, d direction, owner model.Cell) []model.Position {
	endX := x + d.dx*(model.WinLength-1)
	endY := y + d.dy*(model.WinLength-1)
	if !(model.Position{X: endX, Y: endY}).IsValid() {
		return nil
	}

	line := make([]model.Position, 0, model.WinLength)
	for i := 0; i < model.WinLength; i++ {
		pos := model.Position{X: x + d.dx*i, Y: y + d.dy*i}
		if b.Get(pos) != owner {
			return nil
		}
		line = append(line, pos)
	}
	return line
}

// FieldOccupied reports whether any logged move shares the candidate's coordinates
func FieldOccupied(moves []model.Move, candidate model.Position) bool {
	for _, m := range moves {
		if m.X == candidate.X && m.Y == candidate.Y {
			return true
		}
	}
	return false
}
