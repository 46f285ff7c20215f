package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/mcoot/omokgame/internal/dependencies/clock"
	"github.com/mcoot/omokgame/internal/dependencies/random"
	"github.com/mcoot/omokgame/internal/model"
	"github.com/mcoot/omokgame/internal/storage"
)

// Errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidSession     = errors.New("invalid or expired session")
	ErrUsernameExists     = errors.New("username already exists")
	ErrInvalidUsername    = errors.New("username must be 3 to 20 characters")
	ErrWeakPassword       = errors.New("password must be at least 6 characters")
)

const guestSuffixAlphabet = "0123456789"

// Session represents an authenticated session
type Session struct {
	Token     string
	UID       string
	Username  string
	IsGuest   bool
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Service handles accounts, guest teardown and session management
type Service struct {
	profiles storage.ProfileStore
	clock    clock.Clock
	random   random.Random
	logger   *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	sessionDuration time.Duration
	startingPoints  int
}

// Config holds configuration for the auth service
type Config struct {
	SessionDuration time.Duration
	StartingPoints  int
}

// DefaultConfig returns default auth configuration
func DefaultConfig() Config {
	return Config{
		SessionDuration: 24 * time.Hour,
		StartingPoints:  1500,
	}
}

// New creates a new auth Service
func New(profiles storage.ProfileStore, clock clock.Clock, random random.Random, logger *slog.Logger, cfg Config) *Service {
	if cfg.SessionDuration == 0 {
		cfg.SessionDuration = DefaultConfig().SessionDuration
	}
	return &Service{
		profiles:        profiles,
		clock:           clock,
		random:          random,
		logger:          logger,
		sessions:        make(map[string]*Session),
		sessionDuration: cfg.SessionDuration,
		startingPoints:  cfg.StartingPoints,
	}
}

// CreateGuest creates an anonymous profile and session. An empty name gets a generated one.
func (s *Service) CreateGuest(ctx context.Context, name string) (*Session, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Guest-" + s.random.String(5, guestSuffixAlphabet)
	}

	profile := &model.Profile{
		UID:       uuid.NewString(),
		Username:  name,
		Points:    s.startingPoints,
		IsGuest:   true,
		CreatedAt: s.clock.Now(),
	}
	if err := s.profiles.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}

	s.logger.Info("guest created", slog.String("uid", profile.UID))
	return s.createSession(profile), nil
}

// Register creates a registered profile with credentials and a session
func (s *Service) Register(ctx context.Context, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if len(username) < 3 || len(username) > 20 {
		return nil, ErrInvalidUsername
	}
	if len(password) < 6 {
		return nil, ErrWeakPassword
	}

	// Check if username exists
	_, err := s.profiles.GetCredentialsByUsername(ctx, username)
	if err == nil {
		return nil, ErrUsernameExists
	}
	if !errors.Is(err, model.ErrProfileNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	profile := &model.Profile{
		UID:       uuid.NewString(),
		Username:  username,
		Points:    s.startingPoints,
		CreatedAt: now,
	}
	creds := &model.Credentials{
		UID:          profile.UID,
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    now,
	}

	if err := s.profiles.SaveProfile(ctx, profile); err != nil {
		return nil, err
	}
	if err := s.profiles.SaveCredentials(ctx, creds); err != nil {
		return nil, err
	}

	s.logger.Info("player registered",
		slog.String("uid", profile.UID),
		slog.String("username", username),
	)
	return s.createSession(profile), nil
}

// Login authenticates a registered profile and creates a session
func (s *Service) Login(ctx context.Context, username, password string) (*Session, error) {
	creds, err := s.profiles.GetCredentialsByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrProfileNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(creds.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	profile, err := s.profiles.GetProfile(ctx, creds.UID)
	if err != nil {
		return nil, err
	}
	return s.createSession(profile), nil
}

// ValidateSession checks if a session token is valid and returns the session
func (s *Service) ValidateSession(token string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrInvalidSession
	}

	if s.clock.Now().After(session.ExpiresAt) {
		s.mu.Lock()
		delete(s.sessions, token)
		s.mu.Unlock()
		return nil, ErrInvalidSession
	}

	return session, nil
}

// InvalidateSession removes a session
func (s *Service) InvalidateSession(token string) {
	s.mu.Lock()
	delete(s.sessions, token)
	s.mu.Unlock()
}

// GetProfile returns the current stored profile behind a session token
func (s *Service) GetProfile(ctx context.Context, token string) (*model.Profile, error) {
	session, err := s.ValidateSession(token)
	if err != nil {
		return nil, err
	}
	profile, err := s.profiles.GetProfile(ctx, session.UID)
	if errors.Is(err, model.ErrProfileNotFound) {
		s.InvalidateSession(token)
		return nil, ErrInvalidSession
	}
	return profile, err
}

// DeleteGuest removes a guest profile and every session that belongs to it.
// Registered profiles are left untouched.
func (s *Service) DeleteGuest(ctx context.Context, uid string) error {
	profile, err := s.profiles.GetProfile(ctx, uid)
	if errors.Is(err, model.ErrProfileNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !profile.IsGuest {
		return nil
	}

	if err := s.profiles.DeleteProfile(ctx, uid); err != nil {
		return err
	}

	s.mu.Lock()
	for token, session := range s.sessions {
		if session.UID == uid {
			delete(s.sessions, token)
		}
	}
	s.mu.Unlock()

	s.logger.Info("guest deleted", slog.String("uid", uid))
	return nil
}

// createSession creates a new session for a profile
func (s *Service) createSession(profile *model.Profile) *Session {
	now := s.clock.Now()
	session := &Session{
		Token:     s.generateToken("sess_"),
		UID:       profile.UID,
		Username:  profile.Username,
		IsGuest:   profile.IsGuest,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionDuration),
	}

	s.mu.Lock()
	s.sessions[session.Token] = session
	s.mu.Unlock()

	return session
}

// generateToken generates a random token with a prefix
func (s *Service) generateToken(prefix string) string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return prefix + base64.RawURLEncoding.EncodeToString(b)
}

// CleanExpiredSessions removes expired sessions (call periodically)
func (s *Service) CleanExpiredSessions() {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for token, session := range s.sessions {
		if now.After(session.ExpiresAt) {
			delete(s.sessions, token)
		}
	}
}
