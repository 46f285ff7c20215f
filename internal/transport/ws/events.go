package ws

import (
	"encoding/json"

	"github.com/mcoot/omokgame/internal/model"
)

// Envelope is the frame every websocket message travels in
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Incoming event types
const (
	EventCreateGame    = "createGame"
	EventJoinGame      = "joinGame"
	EventPlayerReady   = "playerReady"
	EventTick          = "tick"
	EventMove          = "move"
	EventOffer         = "offer"
	EventOfferAccepted = "offerAccepted"
)

// Outgoing event types
const (
	EventUpdateGame = "updateGame"
	EventGameEnded  = "gameEnded"
	EventTurn       = "turn"
	EventPlayerLeft = "playerLeft"
	EventRejected   = "rejected"
	EventOpenGames  = "openGames"
)

// CreateGamePayload requests a new lobby entry
type CreateGamePayload struct {
	TimeMode int `json:"timeMode"`
}

// GameRefPayload names the game an event targets
type GameRefPayload struct {
	GameID model.GameID `json:"gameId"`
}

// MovePayload places a stone
type MovePayload struct {
	GameID   model.GameID   `json:"gameId"`
	Position model.Position `json:"position"`
}

// OfferPayload carries a redo or draw proposal, or its acceptance
type OfferPayload struct {
	GameID model.GameID    `json:"gameId"`
	Type   model.OfferType `json:"type"`
}

// UpdateGamePayload carries a full or partial game record and/or the move log.
// A nil Moves means the log is unchanged; an empty one means it was emptied.
type UpdateGamePayload struct {
	GameProps any          `json:"gameProps,omitempty"`
	Moves     []model.Move `json:"moves"`
}

// Victory names the winning seat
type Victory struct {
	IsPlayer1 bool `json:"isPlayer1"`
}

// GameEndedPayload announces a settled round
type GameEndedPayload struct {
	Victory      *Victory         `json:"victory,omitempty"`
	Draw         bool             `json:"draw,omitempty"`
	Outcome      model.Outcome    `json:"outcome"`
	Player1Delta int              `json:"player1Delta"`
	Player2Delta int              `json:"player2Delta"`
	UpdatedGame  *model.Game      `json:"updatedGame"`
	WinningLine  []model.Position `json:"winningLine,omitempty"`
}

// OfferNotice is relayed to the opponent of the offering player
type OfferNotice struct {
	Type model.OfferType `json:"type"`
}

// PlayerLeftPayload tells the remaining player their opponent is gone
type PlayerLeftPayload struct {
	GameProps *model.Game `json:"gameProps,omitempty"`
}

// RejectedPayload tells the sender why an event was refused
type RejectedPayload struct {
	Event   string `json:"event"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// OpenGamesPayload is the lobby snapshot
type OpenGamesPayload struct {
	Games []*model.Game `json:"games"`
}

// encode builds a frame. Payloads are plain structs, so marshalling cannot fail.
func encode(eventType string, payload any) []byte {
	env := Envelope{Type: eventType}
	if payload != nil {
		raw, _ := json.Marshal(payload)
		env.Payload = raw
	}
	data, _ := json.Marshal(env)
	return data
}

func gameEnded(settlement *model.Settlement) GameEndedPayload {
	payload := GameEndedPayload{
		Draw:         settlement.IsDraw(),
		Outcome:      settlement.Outcome,
		Player1Delta: settlement.Player1Delta,
		Player2Delta: settlement.Player2Delta,
		UpdatedGame:  settlement.Game,
		WinningLine:  settlement.WinningLine,
	}
	if settlement.WinnerIsPlayer1 != nil {
		payload.Victory = &Victory{IsPlayer1: *settlement.WinnerIsPlayer1}
	}
	return payload
}
