package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mcoot/omokgame/internal/model"
	"github.com/mcoot/omokgame/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, model.NewStoreError("ping", err)
	}

	return &Storage{
		client: client,
		cfg:    cfg,
	}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{
		client: client,
		cfg:    cfg,
	}
}

// Client exposes the underlying connection so a Locker can share it
func (s *Storage) Client() *redis.Client {
	return s.client
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

// Ping reports whether the server is reachable
func (s *Storage) Ping(ctx context.Context) error {
	return model.NewStoreError("ping", s.client.Ping(ctx).Err())
}

// Ensure Storage implements the interface
var _ storage.Storage = (*Storage)(nil)

// expire sets a TTL unless it is disabled; EXPIRE 0 would delete the key
func expire(ctx context.Context, pipe redis.Pipeliner, key string, ttl time.Duration) {
	if ttl > 0 {
		pipe.Expire(ctx, key, ttl)
	}
}

// Game operations

func (s *Storage) SaveGame(ctx context.Context, game *model.Game) error {
	key := gameKey(game.ID)
	expected := game.Version

	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.HGet(ctx, key, fieldVersion).Int64()
		if errors.Is(err, redis.Nil) {
			current = 0
		} else if err != nil {
			return err
		}
		if current != expected {
			return model.ErrVersionConflict
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, encodeGame(game, expected+1))
			expire(ctx, pipe, key, s.cfg.GameTTL)
			expire(ctx, pipe, movesKey(game.ID), s.cfg.GameTTL)
			return nil
		})
		return err
	}, key)

	if errors.Is(err, redis.TxFailedErr) {
		return model.ErrVersionConflict
	}
	if err != nil {
		return model.NewStoreError("save game", err)
	}
	game.Version = expected + 1
	return nil
}

func (s *Storage) GetGame(ctx context.Context, id model.GameID) (*model.Game, error) {
	fields, err := s.client.HGetAll(ctx, gameKey(id)).Result()
	if err != nil {
		return nil, model.NewStoreError("get game", err)
	}
	if len(fields) == 0 {
		return nil, model.ErrGameNotFound
	}

	game, err := decodeGame(id, fields)
	if err != nil {
		return nil, model.NewStoreError("decode game", err)
	}
	return game, nil
}

func (s *Storage) DeleteGame(ctx context.Context, id model.GameID) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, gameKey(id), movesKey(id))
	pipe.SRem(ctx, openGamesKey(), string(id))
	_, err := pipe.Exec(ctx)
	return model.NewStoreError("delete game", err)
}

// tickScript decrements one clock field and bumps the version, refusing to
// create a record that no longer exists
var tickScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return false
end
redis.call('HINCRBY', KEYS[1], ARGV[2], 1)
return redis.call('HINCRBY', KEYS[1], ARGV[1], -1)
`)

func (s *Storage) TickClock(ctx context.Context, id model.GameID, isPlayer1 bool) (int, error) {
	field := fieldPlayer2Time
	if isPlayer1 {
		field = fieldPlayer1Time
	}

	remaining, err := tickScript.Run(ctx, s.client, []string{gameKey(id)}, field, fieldVersion).Int()
	if errors.Is(err, redis.Nil) {
		return 0, model.ErrGameNotFound
	}
	if err != nil {
		return 0, model.NewStoreError("tick clock", err)
	}
	return remaining, nil
}

// Move log operations

func (s *Storage) AppendMove(ctx context.Context, id model.GameID, move model.Move) error {
	data, err := json.Marshal(move)
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, movesKey(id), data)
	expire(ctx, pipe, movesKey(id), s.cfg.GameTTL)
	_, err = pipe.Exec(ctx)
	return model.NewStoreError("append move", err)
}

func (s *Storage) PopMove(ctx context.Context, id model.GameID) (*model.Move, error) {
	data, err := s.client.RPop(ctx, movesKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrNoMovesToUndo
		}
		return nil, model.NewStoreError("pop move", err)
	}

	var move model.Move
	if err := json.Unmarshal(data, &move); err != nil {
		return nil, model.NewStoreError("decode move", err)
	}
	return &move, nil
}

func (s *Storage) GetMoves(ctx context.Context, id model.GameID) ([]model.Move, error) {
	values, err := s.client.LRange(ctx, movesKey(id), 0, -1).Result()
	if err != nil {
		return nil, model.NewStoreError("get moves", err)
	}

	moves := make([]model.Move, 0, len(values))
	for _, val := range values {
		var move model.Move
		if err := json.Unmarshal([]byte(val), &move); err != nil {
			return nil, model.NewStoreError("decode move", err)
		}
		moves = append(moves, move)
	}
	return moves, nil
}

func (s *Storage) ClearMoves(ctx context.Context, id model.GameID) error {
	return model.NewStoreError("clear moves", s.client.Del(ctx, movesKey(id)).Err())
}

// Open games operations

func (s *Storage) AddOpenGame(ctx context.Context, id model.GameID) error {
	return model.NewStoreError("add open game", s.client.SAdd(ctx, openGamesKey(), string(id)).Err())
}

func (s *Storage) RemoveOpenGame(ctx context.Context, id model.GameID) error {
	return model.NewStoreError("remove open game", s.client.SRem(ctx, openGamesKey(), string(id)).Err())
}

func (s *Storage) ListOpenGameIDs(ctx context.Context) ([]model.GameID, error) {
	members, err := s.client.SMembers(ctx, openGamesKey()).Result()
	if err != nil {
		return nil, model.NewStoreError("list open games", err)
	}

	ids := make([]model.GameID, len(members))
	for i, m := range members {
		ids[i] = model.GameID(m)
	}
	return ids, nil
}

// Binding operations

func (s *Storage) SaveBinding(ctx context.Context, binding *model.Binding) error {
	key := bindingKey(binding.ConnectionID)

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, encodeBinding(binding))
	expire(ctx, pipe, key, s.cfg.BindingTTL)
	_, err := pipe.Exec(ctx)
	return model.NewStoreError("save binding", err)
}

func (s *Storage) GetBinding(ctx context.Context, conn model.ConnectionID) (*model.Binding, error) {
	fields, err := s.client.HGetAll(ctx, bindingKey(conn)).Result()
	if err != nil {
		return nil, model.NewStoreError("get binding", err)
	}
	if len(fields) == 0 {
		return nil, model.ErrBindingNotFound
	}
	return decodeBinding(conn, fields), nil
}

func (s *Storage) DeleteBinding(ctx context.Context, conn model.ConnectionID) error {
	return model.NewStoreError("delete binding", s.client.Del(ctx, bindingKey(conn)).Err())
}

// Profile operations

func (s *Storage) profileTTL(profile *model.Profile) time.Duration {
	// Registered profiles never expire
	if profile.IsGuest {
		return s.cfg.GuestProfileTTL
	}
	return 0
}

func (s *Storage) SaveProfile(ctx context.Context, profile *model.Profile) error {
	data, err := json.Marshal(profile)
	if err != nil {
		return err
	}
	return model.NewUpstreamError("save profile",
		s.client.Set(ctx, profileKey(profile.UID), data, s.profileTTL(profile)).Err())
}

func (s *Storage) GetProfile(ctx context.Context, uid string) (*model.Profile, error) {
	data, err := s.client.Get(ctx, profileKey(uid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrProfileNotFound
		}
		return nil, model.NewUpstreamError("get profile", err)
	}

	var profile model.Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, model.NewUpstreamError("decode profile", err)
	}
	return &profile, nil
}

func (s *Storage) UpdateProfilePoints(ctx context.Context, uid string, points int) error {
	_, err := s.modifyProfile(ctx, uid, func(p *model.Profile) { p.Points = points })
	return err
}

func (s *Storage) AdjustProfilePoints(ctx context.Context, uid string, delta int) (int, error) {
	return s.modifyProfile(ctx, uid, func(p *model.Profile) { p.Points += delta })
}

// maxProfileRetries bounds optimistic retries on a contended profile
const maxProfileRetries = 5

// modifyProfile applies fn to a stored profile inside a WATCH transaction and
// returns the resulting points
func (s *Storage) modifyProfile(ctx context.Context, uid string, fn func(*model.Profile)) (int, error) {
	key := profileKey(uid)
	var points int

	txf := func(tx *redis.Tx) error {
		data, err := tx.Get(ctx, key).Bytes()
		if errors.Is(err, redis.Nil) {
			return model.ErrProfileNotFound
		}
		if err != nil {
			return err
		}

		var profile model.Profile
		if err := json.Unmarshal(data, &profile); err != nil {
			return err
		}
		fn(&profile)
		points = profile.Points

		updated, err := json.Marshal(&profile)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.SetArgs(ctx, key, updated, redis.SetArgs{KeepTTL: true})
			return nil
		})
		return err
	}

	for i := 0; i < maxProfileRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return 0, model.NewUpstreamError("update profile", err)
		}
		return points, nil
	}
	return 0, model.NewUpstreamError("update profile", redis.TxFailedErr)
}

func (s *Storage) DeleteProfile(ctx context.Context, uid string) error {
	return model.NewUpstreamError("delete profile", s.client.Del(ctx, profileKey(uid)).Err())
}

func (s *Storage) SaveCredentials(ctx context.Context, creds *model.Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}

	// Use pipeline for atomic save + index update
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, credentialsKey(creds.UID), data, 0)
	pipe.Set(ctx, usernameIndexKey(creds.Username), creds.UID, 0)
	_, err = pipe.Exec(ctx)
	return model.NewUpstreamError("save credentials", err)
}

func (s *Storage) GetCredentialsByUsername(ctx context.Context, username string) (*model.Credentials, error) {
	// Look up uid from username index
	uid, err := s.client.Get(ctx, usernameIndexKey(username)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrProfileNotFound
		}
		return nil, model.NewUpstreamError("get credentials", err)
	}

	data, err := s.client.Get(ctx, credentialsKey(uid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrProfileNotFound
		}
		return nil, model.NewUpstreamError("get credentials", err)
	}

	var creds model.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, model.NewUpstreamError("decode credentials", err)
	}
	return &creds, nil
}
