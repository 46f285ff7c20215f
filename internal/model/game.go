package model

import "time"

// GameID uniquely identifies a game entry
type GameID string

// ConnectionID identifies a live client connection
type ConnectionID string

// GamePhase is the explicit lifecycle phase of a game entry
type GamePhase string

const (
	PhaseOpen    GamePhase = "open"    // Awaiting a second player
	PhaseReady   GamePhase = "ready"   // Both seats filled, waiting for ready signals
	PhasePlaying GamePhase = "playing" // Round in progress
)

// Valid time modes in minutes
var validTimeModes = map[int]bool{5: true, 10: true, 15: true}

// IsValidTimeMode reports whether minutes is one of the supported time modes
func IsValidTimeMode(minutes int) bool {
	return validTimeModes[minutes]
}

// Game is the authoritative record of one lobby entry and its current round
type Game struct {
	ID GameID `json:"gameId"`

	Player1       ConnectionID `json:"player1"`
	Player1UID    string       `json:"player1Uid"`
	Player1Name   string       `json:"player1Name"`
	Player1Points int          `json:"player1Points"`
	Player1Ready  bool         `json:"player1Ready"`
	Player1Time   int          `json:"player1Time"`

	Player2       ConnectionID `json:"player2"`
	Player2UID    string       `json:"player2Uid"`
	Player2Name   string       `json:"player2Name"`
	Player2Points int          `json:"player2Points"`
	Player2Ready  bool         `json:"player2Ready"`
	Player2Time   int          `json:"player2Time"`

	TimeMode       int       `json:"timeMode"` // Minutes per player: 5, 10 or 15
	Phase          GamePhase `json:"phase"`
	Playing        bool      `json:"playing"`
	Player1HasTurn bool      `json:"player1HasTurn"`
	Player1Starts  bool      `json:"player1Starts"`

	// Version increments on every successful save
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Seat holds the per-player fields used when filling a slot
type Seat struct {
	Connection ConnectionID
	UID        string
	Name       string
	Points     int
}

// NewGame builds the default record for a freshly created game with player1 seated
func NewGame(id GameID, timeMode int, player1 Seat, now time.Time) *Game {
	g := &Game{
		ID:             id,
		Player1:        player1.Connection,
		Player1UID:     player1.UID,
		Player1Name:    player1.Name,
		Player1Points:  player1.Points,
		TimeMode:       timeMode,
		Phase:          PhaseOpen,
		Player1HasTurn: true,
		Player1Starts:  true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	g.ResetTimers()
	return g
}

// RoundSeconds returns the starting clock for each seat
func (g *Game) RoundSeconds() int {
	return g.TimeMode * 60
}

// ResetTimers restores both seat clocks to the full time mode
func (g *Game) ResetTimers() {
	g.Player1Time = g.RoundSeconds()
	g.Player2Time = g.RoundSeconds()
}

// IsOpen reports whether the second seat is empty
func (g *Game) IsOpen() bool {
	return g.Player2 == ""
}

// IsPlayer1 reports whether the connection occupies the first seat
func (g *Game) IsPlayer1(conn ConnectionID) bool {
	return g.Player1 == conn
}

// HasSeat reports whether the connection occupies either seat
func (g *Game) HasSeat(conn ConnectionID) bool {
	return conn != "" && (g.Player1 == conn || g.Player2 == conn)
}

// HasTurn reports whether the given seat currently owes a move
func (g *Game) HasTurn(isPlayer1 bool) bool {
	return isPlayer1 == g.Player1HasTurn
}

// Opponent returns the connection in the other seat
func (g *Game) Opponent(conn ConnectionID) ConnectionID {
	if g.IsPlayer1(conn) {
		return g.Player2
	}
	return g.Player1
}

// SeatConnection returns the connection for a seat
func (g *Game) SeatConnection(isPlayer1 bool) ConnectionID {
	if isPlayer1 {
		return g.Player1
	}
	return g.Player2
}

// SeatUID returns the external identity for a seat
func (g *Game) SeatUID(isPlayer1 bool) string {
	if isPlayer1 {
		return g.Player1UID
	}
	return g.Player2UID
}

// SeatTime returns the remaining seconds for a seat
func (g *Game) SeatTime(isPlayer1 bool) int {
	if isPlayer1 {
		return g.Player1Time
	}
	return g.Player2Time
}

// SetSeatTime sets the remaining seconds for a seat
func (g *Game) SetSeatTime(isPlayer1 bool, seconds int) {
	if isPlayer1 {
		g.Player1Time = seconds
	} else {
		g.Player2Time = seconds
	}
}

// SeatReady returns the ready flag for a seat
func (g *Game) SeatReady(isPlayer1 bool) bool {
	if isPlayer1 {
		return g.Player1Ready
	}
	return g.Player2Ready
}

// SetSeatReady sets the ready flag for a seat
func (g *Game) SetSeatReady(isPlayer1 bool, ready bool) {
	if isPlayer1 {
		g.Player1Ready = ready
	} else {
		g.Player2Ready = ready
	}
}

// AddSeatPoints applies a signed delta to a seat's cached points
func (g *Game) AddSeatPoints(isPlayer1 bool, delta int) {
	if isPlayer1 {
		g.Player1Points += delta
	} else {
		g.Player2Points += delta
	}
}

// FillSecondSeat seats a joining player
func (g *Game) FillSecondSeat(seat Seat) {
	g.Player2 = seat.Connection
	g.Player2UID = seat.UID
	g.Player2Name = seat.Name
	g.Player2Points = seat.Points
	g.Phase = PhaseReady
}

// ClearSecondSeat empties the second seat
func (g *Game) ClearSecondSeat() {
	g.Player2 = ""
	g.Player2UID = ""
	g.Player2Name = ""
	g.Player2Points = 0
	g.Player2Ready = false
}

// PromoteSecondSeat moves the second seat's occupant into the first seat
func (g *Game) PromoteSecondSeat() {
	g.Player1 = g.Player2
	g.Player1UID = g.Player2UID
	g.Player1Name = g.Player2Name
	g.Player1Points = g.Player2Points
	g.ClearSecondSeat()
}

// StartRound flips the record into play with the configured starter on turn
func (g *Game) StartRound() {
	g.Playing = true
	g.Phase = PhasePlaying
	g.Player1Ready = false
	g.Player2Ready = false
	g.Player1HasTurn = g.Player1Starts
}

// ResetRound returns the record to the between-rounds state and alternates the starter
func (g *Game) ResetRound() {
	g.Playing = false
	g.Player1Ready = false
	g.Player2Ready = false
	g.Player1Starts = !g.Player1Starts
	g.Player1HasTurn = g.Player1Starts
	g.ResetTimers()
	if g.IsOpen() {
		g.Phase = PhaseOpen
	} else {
		g.Phase = PhaseReady
	}
}

// Reopen returns a record left with a single occupant to a fresh lobby entry
func (g *Game) Reopen() {
	g.ClearSecondSeat()
	g.Playing = false
	g.Player1Ready = false
	g.Phase = PhaseOpen
	g.Player1Starts = true
	g.Player1HasTurn = true
	g.ResetTimers()
}

// Clone returns a copy of the record
func (g *Game) Clone() *Game {
	c := *g
	return &c
}
