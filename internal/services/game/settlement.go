package game

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mcoot/omokgame/internal/model"
	"github.com/mcoot/omokgame/internal/services/scoring"
)

// settle closes the current round. Profile points move first; the record is then
// written with the new cached points and reset for the next round. A failed record
// write reverts the profile changes so neither side is left half applied. Once the
// record is written the round is settled; a leftover move log is cleared again when
// the next round starts.
func (c *Controller) settle(ctx context.Context, game *model.Game, outcome model.Outcome, winnerIsPlayer1 bool) (*model.Settlement, error) {
	deltas := scoring.For(outcome, winnerIsPlayer1)

	applied, err := c.applyPoints(ctx, game, deltas)
	if err != nil {
		return nil, err
	}

	game.AddSeatPoints(true, deltas.Player1)
	game.AddSeatPoints(false, deltas.Player2)
	game.ResetRound()
	game.UpdatedAt = c.clock.Now()

	if err := c.games.SaveGame(ctx, game); err != nil {
		c.revertPoints(ctx, applied)
		return nil, err
	}
	if err := c.games.ClearMoves(ctx, game.ID); err != nil {
		c.logger.Warn("failed to clear moves after settlement",
			slog.String("game_id", string(game.ID)),
			slog.String("error", err.Error()),
		)
	}

	settlement := &model.Settlement{
		Outcome:      outcome,
		Player1Delta: deltas.Player1,
		Player2Delta: deltas.Player2,
		Game:         game.Clone(),
	}
	if outcome != model.OutcomeDraw {
		winner := winnerIsPlayer1
		settlement.WinnerIsPlayer1 = &winner
	}

	c.logger.Info("round settled",
		slog.String("game_id", string(game.ID)),
		slog.String("outcome", string(outcome)),
		slog.Int("player1_delta", deltas.Player1),
		slog.Int("player2_delta", deltas.Player2),
	)
	return settlement, nil
}

// pointChange is one profile adjustment that has been applied
type pointChange struct {
	uid   string
	delta int
}

// applyPoints adjusts both seat profiles. Profiles that no longer exist are skipped.
func (c *Controller) applyPoints(ctx context.Context, game *model.Game, deltas scoring.Deltas) ([]pointChange, error) {
	changes := []pointChange{
		{uid: game.Player1UID, delta: deltas.Player1},
		{uid: game.Player2UID, delta: deltas.Player2},
	}

	applied := make([]pointChange, 0, len(changes))
	for _, change := range changes {
		if change.uid == "" {
			continue
		}
		_, err := c.profiles.AdjustProfilePoints(ctx, change.uid, change.delta)
		if errors.Is(err, model.ErrProfileNotFound) {
			c.logger.Warn("profile missing at settlement",
				slog.String("game_id", string(game.ID)),
				slog.String("uid", change.uid),
			)
			continue
		}
		if err != nil {
			c.revertPoints(ctx, applied)
			return nil, err
		}
		applied = append(applied, change)
	}
	return applied, nil
}

func (c *Controller) revertPoints(ctx context.Context, applied []pointChange) {
	for _, change := range applied {
		if _, err := c.profiles.AdjustProfilePoints(ctx, change.uid, -change.delta); err != nil {
			c.logger.Error("failed to revert points",
				slog.String("uid", change.uid),
				slog.Int("delta", change.delta),
				slog.String("error", err.Error()),
			)
		}
	}
}
