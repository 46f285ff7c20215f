package redis

import (
	"fmt"
	"strconv"
	"time"

	"github.com/mcoot/omokgame/internal/model"
)

// Hash field names of a game record
const (
	fieldPlayer1        = "player1"
	fieldPlayer1UID     = "player1Uid"
	fieldPlayer1Name    = "player1Name"
	fieldPlayer1Points  = "player1Points"
	fieldPlayer1Ready   = "player1Ready"
	fieldPlayer1Time    = "player1Time"
	fieldPlayer2        = "player2"
	fieldPlayer2UID     = "player2Uid"
	fieldPlayer2Name    = "player2Name"
	fieldPlayer2Points  = "player2Points"
	fieldPlayer2Ready   = "player2Ready"
	fieldPlayer2Time    = "player2Time"
	fieldTimeMode       = "timeMode"
	fieldPhase          = "phase"
	fieldPlaying        = "playing"
	fieldPlayer1HasTurn = "player1HasTurn"
	fieldPlayer1Starts  = "player1Starts"
	fieldVersion        = "version"
	fieldCreatedAt      = "createdAt"
	fieldUpdatedAt      = "updatedAt"
)

// encodeGame flattens a game into hash fields, every value string-encoded
func encodeGame(g *model.Game, version int64) map[string]interface{} {
	return map[string]interface{}{
		fieldPlayer1:        string(g.Player1),
		fieldPlayer1UID:     g.Player1UID,
		fieldPlayer1Name:    g.Player1Name,
		fieldPlayer1Points:  strconv.Itoa(g.Player1Points),
		fieldPlayer1Ready:   strconv.FormatBool(g.Player1Ready),
		fieldPlayer1Time:    strconv.Itoa(g.Player1Time),
		fieldPlayer2:        string(g.Player2),
		fieldPlayer2UID:     g.Player2UID,
		fieldPlayer2Name:    g.Player2Name,
		fieldPlayer2Points:  strconv.Itoa(g.Player2Points),
		fieldPlayer2Ready:   strconv.FormatBool(g.Player2Ready),
		fieldPlayer2Time:    strconv.Itoa(g.Player2Time),
		fieldTimeMode:       strconv.Itoa(g.TimeMode),
		fieldPhase:          string(g.Phase),
		fieldPlaying:        strconv.FormatBool(g.Playing),
		fieldPlayer1HasTurn: strconv.FormatBool(g.Player1HasTurn),
		fieldPlayer1Starts:  strconv.FormatBool(g.Player1Starts),
		fieldVersion:        strconv.FormatInt(version, 10),
		fieldCreatedAt:      g.CreatedAt.UTC().Format(time.RFC3339Nano),
		fieldUpdatedAt:      g.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// fieldDecoder collects the first parse failure while reading hash fields
type fieldDecoder struct {
	fields map[string]string
	err    error
}

func (d *fieldDecoder) int(name string) int {
	v, err := strconv.Atoi(d.fields[name])
	if err != nil && d.err == nil {
		d.err = fmt.Errorf("field %s: %w", name, err)
	}
	return v
}

func (d *fieldDecoder) int64(name string) int64 {
	v, err := strconv.ParseInt(d.fields[name], 10, 64)
	if err != nil && d.err == nil {
		d.err = fmt.Errorf("field %s: %w", name, err)
	}
	return v
}

func (d *fieldDecoder) bool(name string) bool {
	v, err := strconv.ParseBool(d.fields[name])
	if err != nil && d.err == nil {
		d.err = fmt.Errorf("field %s: %w", name, err)
	}
	return v
}

func (d *fieldDecoder) time(name string) time.Time {
	raw := d.fields[name]
	if raw == "" {
		return time.Time{}
	}
	v, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil && d.err == nil {
		d.err = fmt.Errorf("field %s: %w", name, err)
	}
	return v
}

// decodeGame rebuilds a game from its hash fields
func decodeGame(id model.GameID, fields map[string]string) (*model.Game, error) {
	d := &fieldDecoder{fields: fields}
	g := &model.Game{
		ID:             id,
		Player1:        model.ConnectionID(fields[fieldPlayer1]),
		Player1UID:     fields[fieldPlayer1UID],
		Player1Name:    fields[fieldPlayer1Name],
		Player1Points:  d.int(fieldPlayer1Points),
		Player1Ready:   d.bool(fieldPlayer1Ready),
		Player1Time:    d.int(fieldPlayer1Time),
		Player2:        model.ConnectionID(fields[fieldPlayer2]),
		Player2UID:     fields[fieldPlayer2UID],
		Player2Name:    fields[fieldPlayer2Name],
		Player2Points:  d.int(fieldPlayer2Points),
		Player2Ready:   d.bool(fieldPlayer2Ready),
		Player2Time:    d.int(fieldPlayer2Time),
		TimeMode:       d.int(fieldTimeMode),
		Phase:          model.GamePhase(fields[fieldPhase]),
		Playing:        d.bool(fieldPlaying),
		Player1HasTurn: d.bool(fieldPlayer1HasTurn),
		Player1Starts:  d.bool(fieldPlayer1Starts),
		Version:        d.int64(fieldVersion),
		CreatedAt:      d.time(fieldCreatedAt),
		UpdatedAt:      d.time(fieldUpdatedAt),
	}
	if d.err != nil {
		return nil, d.err
	}
	return g, nil
}

func encodeBinding(b *model.Binding) map[string]interface{} {
	return map[string]interface{}{
		"gameId":  string(b.GameID),
		"uid":     b.UID,
		"isGuest": strconv.FormatBool(b.IsGuest),
	}
}

func decodeBinding(conn model.ConnectionID, fields map[string]string) *model.Binding {
	isGuest, _ := strconv.ParseBool(fields["isGuest"])
	return &model.Binding{
		ConnectionID: conn,
		GameID:       model.GameID(fields["gameId"]),
		UID:          fields["uid"],
		IsGuest:      isGuest,
	}
}
