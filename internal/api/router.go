package api

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mcoot/omokgame/internal/api/handler"
	"github.com/mcoot/omokgame/internal/api/middleware"
	"github.com/mcoot/omokgame/internal/services/auth"
	"github.com/mcoot/omokgame/internal/services/game"
	"github.com/mcoot/omokgame/internal/services/lobby"
	"github.com/mcoot/omokgame/internal/transport/ws"
)

// RouterConfig holds configuration for the API router
type RouterConfig struct {
	Logger           *slog.Logger
	AuthService      *auth.Service
	LobbyCoordinator *lobby.Coordinator
	GameController   *game.Controller
	Hub              *ws.Hub
}

// NewRouter creates a new API router with all routes configured
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()

	playerHandler := handler.NewPlayerHandler(cfg.AuthService)
	gameHandler := handler.NewGameHandler(cfg.LobbyCoordinator, cfg.GameController)
	gameSocket := ws.NewGameHandler(cfg.Hub, cfg.GameController, cfg.AuthService, cfg.Logger)
	lobbySocket := ws.NewLobbyHandler(cfg.Hub, cfg.LobbyCoordinator, cfg.AuthService, cfg.Logger)

	authMiddleware := middleware.Auth(cfg.AuthService)
	loggingMiddleware := middleware.Logging(cfg.Logger)
	recoveryMiddleware := middleware.Recovery(cfg.Logger)

	// API subrouter with common middleware
	api := r.PathPrefix("/api/v1").Subrouter()
	api.Use(recoveryMiddleware)
	api.Use(loggingMiddleware)

	// Player routes (no auth required for creating players/logging in)
	api.HandleFunc("/players/guest", playerHandler.CreateGuest).Methods(http.MethodPost)
	api.HandleFunc("/players/register", playerHandler.Register).Methods(http.MethodPost)
	api.HandleFunc("/players/login", playerHandler.Login).Methods(http.MethodPost)

	playerProtected := api.PathPrefix("/players").Subrouter()
	playerProtected.Use(authMiddleware)
	playerProtected.HandleFunc("/me", playerHandler.GetMe).Methods(http.MethodGet)

	// Game routes are read-only; play happens over /ws/game
	games := api.PathPrefix("/games").Subrouter()
	games.Use(authMiddleware)
	games.HandleFunc("", gameHandler.ListOpen).Methods(http.MethodGet)
	games.HandleFunc("/{id}", gameHandler.Get).Methods(http.MethodGet)

	api.HandleFunc("/health", healthHandler).Methods(http.MethodGet)

	// Websocket endpoints authenticate the upgrade request themselves
	sockets := r.PathPrefix("/ws").Subrouter()
	sockets.Use(loggingMiddleware)
	sockets.Handle("/game", gameSocket).Methods(http.MethodGet)
	sockets.Handle("/lobby", lobbySocket).Methods(http.MethodGet)

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
