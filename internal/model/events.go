package model

// LobbyChange is the reason published on the lobby change topic
type LobbyChange string

const (
	LobbyGameCreated LobbyChange = "game created"
	LobbyGameMatched LobbyChange = "game matched"
	LobbyGameDeleted LobbyChange = "game deleted"
	LobbyPlayer2Left LobbyChange = "player2 left"
	LobbyNowPlayer1  LobbyChange = "now player1"
)

// OfferType is the kind of proposal one player makes to the other
type OfferType string

const (
	OfferRedo OfferType = "redo"
	OfferDraw OfferType = "draw"
)

// IsValid returns true for the supported offer types
func (o OfferType) IsValid() bool {
	return o == OfferRedo || o == OfferDraw
}

// Outcome identifies how a round was settled
type Outcome string

const (
	OutcomeWin       Outcome = "win"
	OutcomeTimeout   Outcome = "timeout"
	OutcomeDraw      Outcome = "draw"
	OutcomeAbandoned Outcome = "abandoned"
)

// Settlement is the result of closing a round
type Settlement struct {
	Outcome         Outcome    `json:"outcome"`
	WinnerIsPlayer1 *bool      `json:"winnerIsPlayer1,omitempty"` // nil for draws
	Player1Delta    int        `json:"player1Delta"`
	Player2Delta    int        `json:"player2Delta"`
	WinningLine     []Position `json:"winningLine,omitempty"`
	Game            *Game      `json:"game"`
}

// IsDraw reports whether the round ended without a winner
func (s *Settlement) IsDraw() bool {
	return s.WinnerIsPlayer1 == nil
}
