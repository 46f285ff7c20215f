package model

// BoardSize is the width and height of the playing grid
const BoardSize = 15

// WinLength is the number of consecutive stones that wins a round
const WinLength = 5

// Position identifies an intersection on the board
type Position struct {
	X int `json:"x"` // Column, 0-indexed from left
	Y int `json:"y"` // Row, 0-indexed from top
}

// IsValid returns true if the position is within bounds
func (p Position) IsValid() bool {
	return p.X >= 0 && p.X < BoardSize && p.Y >= 0 && p.Y < BoardSize
}

// Move is one entry of a game's move log
type Move struct {
	X         int  `json:"x"`
	Y         int  `json:"y"`
	IsPlayer1 bool `json:"isPlayer1"`
}

// Position returns the move's coordinates
func (m Move) Position() Position {
	return Position{X: m.X, Y: m.Y}
}

// Cell is the tri-state content of a board intersection
type Cell uint8

const (
	CellEmpty Cell = iota
	CellPlayer1
	CellPlayer2
)

// CellFor returns the cell value owned by a seat
func CellFor(isPlayer1 bool) Cell {
	if isPlayer1 {
		return CellPlayer1
	}
	return CellPlayer2
}

// Board is a projection of a move log onto the grid, indexed Cells[y][x]
type Board struct {
	Cells [BoardSize][BoardSize]Cell
}

// Get returns the cell at the given position, or CellEmpty if out of bounds
func (b *Board) Get(pos Position) Cell {
	if !pos.IsValid() {
		return CellEmpty
	}
	return b.Cells[pos.Y][pos.X]
}

// Set writes a cell, ignoring out of bounds positions
func (b *Board) Set(pos Position, c Cell) {
	if pos.IsValid() {
		b.Cells[pos.Y][pos.X] = c
	}
}

// StoneCount returns the number of occupied cells
func (b *Board) StoneCount() int {
	count := 0
	for y := 0; y < BoardSize; y++ {
		for x := 0; x < BoardSize; x++ {
			if b.Cells[y][x] != CellEmpty {
				count++
			}
		}
	}
	return count
}
