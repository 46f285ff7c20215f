package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/omokgame/internal/api/response"
	"github.com/mcoot/omokgame/internal/model"
	"github.com/mcoot/omokgame/internal/services/board"
	"github.com/mcoot/omokgame/internal/services/game"
	"github.com/mcoot/omokgame/internal/services/lobby"
)

// GameHandler handles read-only game endpoints. Play happens over the websocket.
type GameHandler struct {
	coordinator    *lobby.Coordinator
	gameController *game.Controller
}

// NewGameHandler creates a new game handler
func NewGameHandler(coordinator *lobby.Coordinator, gameController *game.Controller) *GameHandler {
	return &GameHandler{
		coordinator:    coordinator,
		gameController: gameController,
	}
}

// ListOpen handles GET /api/v1/games
func (h *GameHandler) ListOpen(w http.ResponseWriter, r *http.Request) {
	games, err := h.coordinator.ListOpenGames(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	if games == nil {
		games = []*model.Game{}
	}
	response.JSON(w, http.StatusOK, response.OpenGames{Games: games})
}

// Get handles GET /api/v1/games/{id}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	gameID := model.GameID(mux.Vars(r)["id"])

	g, err := h.gameController.GetGame(r.Context(), gameID)
	if err != nil {
		WriteError(w, err)
		return
	}
	moves, err := h.gameController.GetMoves(r.Context(), gameID)
	if err != nil {
		WriteError(w, err)
		return
	}
	if moves == nil {
		moves = []model.Move{}
	}

	grid := board.Project(moves)
	response.JSON(w, http.StatusOK, response.GameState{
		Game:  g,
		Moves: moves,
		Board: response.BoardFromModel(&grid),
	})
}
