// Package scoring holds the points policy applied when a round is settled.
package scoring

import "github.com/mcoot/omokgame/internal/model"

// Point deltas per outcome
const (
	WinPoints  = 50
	LossPoints = -30
	DrawPoints = 10
)

// Deltas is the pair of point changes for a settled round
type Deltas struct {
	Player1 int
	Player2 int
}

// Decisive returns the deltas for a round with a winner. Wins by move, timeout and
// abandonment are all scored the same way.
func Decisive(winnerIsPlayer1 bool) Deltas {
	if winnerIsPlayer1 {
		return Deltas{Player1: WinPoints, Player2: LossPoints}
	}
	return Deltas{Player1: LossPoints, Player2: WinPoints}
}

// Draw returns the deltas for a round ended by mutual agreement
func Draw() Deltas {
	return Deltas{Player1: DrawPoints, Player2: DrawPoints}
}

// For returns the deltas for an outcome; winnerIsPlayer1 is ignored for draws
func For(outcome model.Outcome, winnerIsPlayer1 bool) Deltas {
	if outcome == model.OutcomeDraw {
		return Draw()
	}
	return Decisive(winnerIsPlayer1)
}
