package factory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/mcoot/omokgame/internal/api"
	"github.com/mcoot/omokgame/internal/config"
	"github.com/mcoot/omokgame/internal/dependencies/clock"
	"github.com/mcoot/omokgame/internal/dependencies/random"
	"github.com/mcoot/omokgame/internal/services/auth"
	"github.com/mcoot/omokgame/internal/services/game"
	"github.com/mcoot/omokgame/internal/services/lobby"
	"github.com/mcoot/omokgame/internal/services/session"
	"github.com/mcoot/omokgame/internal/storage"
	"github.com/mcoot/omokgame/internal/storage/memory"
	redisstorage "github.com/mcoot/omokgame/internal/storage/redis"
	"github.com/mcoot/omokgame/internal/storage/sqlstore"
	"github.com/mcoot/omokgame/internal/transport/ws"
)

// App contains all wired application components
type App struct {
	// Storage
	Games    storage.GameStore
	Profiles storage.ProfileStore
	Locker   storage.Locker

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	// Services
	Sessions         *session.Service
	GameController   *game.Controller
	LobbyCoordinator *lobby.Coordinator
	AuthService      *auth.Service
	Hub              *ws.Hub

	logger  *slog.Logger
	closers []io.Closer
}

// Config holds configuration for the application factory
type Config struct {
	// AuthConfig holds configuration for the auth service (optional)
	// If zero value, defaults to auth.DefaultConfig()
	AuthConfig auth.Config
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// GameStorage selects the game record backend ("memory" or "redis")
	// If empty, defaults to "memory"
	GameStorage string
	// ProfileStorage selects the profile backend ("memory", "redis", "sqlite" or "postgres")
	// If empty, profiles share the game backend
	ProfileStorage string
	// RedisConfig holds Redis connection settings (required if either backend is "redis")
	RedisConfig *redisstorage.Config
	// DatabaseConfig holds SQL settings (required if ProfileStorage is "sqlite" or "postgres")
	DatabaseConfig *sqlstore.Config
}

// ConfigFrom maps loaded server configuration onto factory settings
func ConfigFrom(cfg *config.Config, logger *slog.Logger) Config {
	redisCfg := redisstorage.DefaultConfig()
	redisCfg.URL = cfg.Redis.URL
	redisCfg.PoolSize = cfg.Redis.PoolSize
	redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
	redisCfg.GameTTL = cfg.Redis.GameTTL
	redisCfg.BindingTTL = cfg.Redis.BindingTTL
	redisCfg.GuestProfileTTL = cfg.Redis.GuestProfileTTL
	redisCfg.LockTTL = cfg.Redis.LockTTL

	dbCfg := sqlstore.DefaultConfig()
	dbCfg.DSN = cfg.Database.DSN
	dbCfg.MaxIdleConns = cfg.Database.MaxIdleConns
	dbCfg.MaxOpenConns = cfg.Database.MaxOpenConns
	dbCfg.ConnMaxLifetime = cfg.Database.ConnMaxLifetime
	dbCfg.Driver = cfg.Storage.Profiles
	if dbCfg.Driver != config.BackendSQLite && dbCfg.Driver != config.BackendPostgres {
		dbCfg.Driver = cfg.Database.Driver
	}

	return Config{
		AuthConfig: auth.Config{
			SessionDuration: cfg.Auth.SessionDuration,
			StartingPoints:  cfg.Auth.StartingPoints,
		},
		Logger:         logger,
		GameStorage:    cfg.Storage.Games,
		ProfileStorage: cfg.Storage.Profiles,
		RedisConfig:    &redisCfg,
		DatabaseConfig: &dbCfg,
	}
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var closers []io.Closer
	fail := func(err error) (*App, error) {
		for _, c := range closers {
			_ = c.Close()
		}
		return nil, err
	}

	gameBackend := cfg.GameStorage
	if gameBackend == "" {
		gameBackend = config.BackendMemory
	}

	var games storage.GameStore
	var profiles storage.ProfileStore
	var locker storage.Locker
	var redisStore *redisstorage.Storage

	connectRedis := func() (*redisstorage.Storage, error) {
		if redisStore != nil {
			return redisStore, nil
		}
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when a backend is redis")
		}
		s, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		redisStore = s
		closers = append(closers, s)
		return s, nil
	}

	switch gameBackend {
	case config.BackendMemory:
		store := memory.New()
		games, profiles, locker = store, store, memory.NewLocker()
	case config.BackendRedis:
		store, err := connectRedis()
		if err != nil {
			return fail(err)
		}
		games, profiles = store, store
		locker = redisstorage.NewLocker(store.Client(), *cfg.RedisConfig)
	default:
		return fail(fmt.Errorf("invalid GameStorage %q: must be memory or redis", gameBackend))
	}

	switch cfg.ProfileStorage {
	case "", gameBackend:
	case config.BackendMemory:
		profiles = memory.New()
	case config.BackendRedis:
		store, err := connectRedis()
		if err != nil {
			return fail(err)
		}
		profiles = store
	case config.BackendSQLite, config.BackendPostgres:
		if cfg.DatabaseConfig == nil {
			return fail(errors.New("DatabaseConfig required when ProfileStorage is sqlite or postgres"))
		}
		dbCfg := *cfg.DatabaseConfig
		dbCfg.Driver = cfg.ProfileStorage
		store, err := sqlstore.Open(dbCfg, logger)
		if err != nil {
			return fail(err)
		}
		closers = append(closers, store)
		profiles = store
	default:
		return fail(fmt.Errorf("invalid ProfileStorage %q", cfg.ProfileStorage))
	}

	authCfg := cfg.AuthConfig
	if authCfg.SessionDuration == 0 {
		authCfg = auth.DefaultConfig()
	}

	app := newWithDependencies(dependencies{
		games:    games,
		profiles: profiles,
		locker:   locker,
		clock:    clock.New(),
		random:   random.New(),
		authCfg:  authCfg,
		logger:   logger,
	})
	app.closers = closers

	logger.Info("application wired",
		slog.String("game_storage", gameBackend),
		slog.String("profile_storage", cfg.ProfileStorage))
	return app, nil
}

// dependencies are the leaves of the object graph
type dependencies struct {
	games    storage.GameStore
	profiles storage.ProfileStore
	locker   storage.Locker
	clock    clock.Clock
	random   random.Random
	authCfg  auth.Config
	logger   *slog.Logger
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(deps dependencies) *App {
	logger := deps.logger

	hub := ws.NewHub(logger)
	sessions := session.New(deps.games, logger.With(slog.String("component", "session")))
	authService := auth.New(deps.profiles, deps.clock, deps.random, logger.With(slog.String("component", "auth")), deps.authCfg)
	coordinator := lobby.NewCoordinator(deps.games, sessions, authService, hub, logger.With(slog.String("component", "lobby")))
	gameController := game.NewController(
		deps.games,
		deps.profiles,
		deps.locker,
		sessions,
		coordinator,
		deps.clock,
		logger.With(slog.String("component", "game")),
	)

	return &App{
		Games:            deps.games,
		Profiles:         deps.profiles,
		Locker:           deps.locker,
		Clock:            deps.clock,
		Random:           deps.random,
		Sessions:         sessions,
		GameController:   gameController,
		LobbyCoordinator: coordinator,
		AuthService:      authService,
		Hub:              hub,
		logger:           logger,
	}
}

// Router builds the HTTP handler serving the API and websocket endpoints
func (a *App) Router() http.Handler {
	return api.NewRouter(api.RouterConfig{
		Logger:           a.logger,
		AuthService:      a.AuthService,
		LobbyCoordinator: a.LobbyCoordinator,
		GameController:   a.GameController,
		Hub:              a.Hub,
	})
}

// Close stops the hub and releases store connections
func (a *App) Close() error {
	a.Hub.Close()
	var errs []error
	for _, c := range a.closers {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
