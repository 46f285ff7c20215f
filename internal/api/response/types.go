package response

import (
	"time"

	"github.com/mcoot/omokgame/internal/model"
	"github.com/mcoot/omokgame/internal/services/auth"
)

// Profile represents a player profile in API responses
type Profile struct {
	UID      string `json:"uid"`
	Username string `json:"username"`
	Points   int    `json:"points"`
	IsGuest  bool   `json:"isGuest"`
}

// ProfileFromModel converts a model.Profile to a response Profile
func ProfileFromModel(p *model.Profile) Profile {
	return Profile{
		UID:      p.UID,
		Username: p.Username,
		Points:   p.Points,
		IsGuest:  p.IsGuest,
	}
}

// AuthResponse is the response for authentication endpoints
type AuthResponse struct {
	UID          string    `json:"uid"`
	Username     string    `json:"username"`
	IsGuest      bool      `json:"isGuest"`
	SessionToken string    `json:"sessionToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// AuthResponseFromSession creates an AuthResponse from a session
func AuthResponseFromSession(s *auth.Session) AuthResponse {
	return AuthResponse{
		UID:          s.UID,
		Username:     s.Username,
		IsGuest:      s.IsGuest,
		SessionToken: s.Token,
		ExpiresAt:    s.ExpiresAt,
	}
}

// OpenGames is the lobby snapshot
type OpenGames struct {
	Games []*model.Game `json:"games"`
}

// Board is the projected grid. Cells hold 0 for empty, 1 for player1, 2 for player2.
type Board struct {
	Size  int     `json:"size"`
	Cells [][]int `json:"cells"`
}

// BoardFromModel converts model.Board to response Board
func BoardFromModel(b *model.Board) Board {
	cells := make([][]int, model.BoardSize)
	for y := 0; y < model.BoardSize; y++ {
		cells[y] = make([]int, model.BoardSize)
		for x := 0; x < model.BoardSize; x++ {
			cells[y][x] = int(b.Get(model.Position{X: x, Y: y}))
		}
	}
	return Board{Size: model.BoardSize, Cells: cells}
}

// GameState is a game record with its current round
type GameState struct {
	Game  *model.Game  `json:"game"`
	Moves []model.Move `json:"moves"`
	Board Board        `json:"board"`
}
