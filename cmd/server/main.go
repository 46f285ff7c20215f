package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mcoot/omokgame/internal/api"
	"github.com/mcoot/omokgame/internal/config"
	"github.com/mcoot/omokgame/internal/factory"
	"github.com/mcoot/omokgame/internal/logging"
)

// sessionSweepInterval is how often expired login sessions are dropped
const sessionSweepInterval = 10 * time.Minute

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath, gameStorage, profileStorage string
	var port int

	cmd := &cobra.Command{
		Use:   "omok-server",
		Short: "Run the omok game server",
		Long: `Serves the JSON API under /api/v1 and the game and lobby websockets under /ws.

Settings come from omok.yaml (or --config), then OMOK_* environment
variables such as OMOK_STORAGE_GAMES=redis, then these flags.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("storage") {
				cfg.Storage.Games = gameStorage
			}
			if cmd.Flags().Changed("profile-storage") {
				cfg.Storage.Profiles = profileStorage
			}
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cfg)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Config file path (default: ./omok.yaml if present)")
	cmd.Flags().StringVar(&gameStorage, "storage", "", "Game storage backend: memory, redis")
	cmd.Flags().StringVar(&profileStorage, "profile-storage", "", "Profile storage backend: memory, redis, sqlite, postgres")
	cmd.Flags().IntVar(&port, "port", 0, "Listen port")

	return cmd
}

func run(cfg *config.Config) error {
	logger, logCloser, err := logging.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to set up logging: %w", err)
	}
	defer func() { _ = logCloser.Close() }()
	slog.SetDefault(logger)

	app, err := factory.New(factory.ConfigFrom(cfg, logger))
	if err != nil {
		logger.Error("failed to create application", slog.String("error", err.Error()))
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("failed to release resources", slog.String("error", err.Error()))
		}
	}()

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go app.Hub.Run()
	go func() {
		if err := app.LobbyCoordinator.Run(ctx); err != nil {
			logger.Error("lobby coordinator stopped", slog.String("error", err.Error()))
		}
	}()
	go sweepSessions(ctx, app)

	serverConfig := api.ServerConfig{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}
	server := api.NewServer(app.Router(), serverConfig, logger)

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info("server started",
		slog.String("addr", server.Addr()),
		slog.String("game_storage", cfg.Storage.Games),
		slog.String("profile_storage", cfg.Storage.Profiles))

	// Wait for shutdown or error
	select {
	case err := <-errCh:
		if err != nil {
			logger.Error("server error", slog.String("error", err.Error()))
			return err
		}
	case <-ctx.Done():
		logger.Info("shutdown signal received")
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("shutdown error", slog.String("error", err.Error()))
			return err
		}
	}

	logger.Info("server stopped")
	return nil
}

func sweepSessions(ctx context.Context, app *factory.App) {
	ticker := time.NewTicker(sessionSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			app.AuthService.CleanExpiredSessions()
		}
	}
}
