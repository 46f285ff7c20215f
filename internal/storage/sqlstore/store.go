// Package sqlstore keeps registered profiles in a relational database through gorm.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/mcoot/omokgame/internal/model"
	"github.com/mcoot/omokgame/internal/storage"
)

// Config holds database connection settings
type Config struct {
	Driver          string // sqlite or postgres
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	SlowThreshold   time.Duration
}

// DefaultConfig returns a local sqlite file configuration
func DefaultConfig() Config {
	return Config{
		Driver:          "sqlite",
		DSN:             "omok.db",
		MaxIdleConns:    2,
		MaxOpenConns:    10,
		ConnMaxLifetime: time.Hour,
		SlowThreshold:   200 * time.Millisecond,
	}
}

// profileRow is the table layout of a profile
type profileRow struct {
	UID       string `gorm:"primaryKey;size:64"`
	Username  string `gorm:"size:64;not null"`
	Points    int    `gorm:"not null;default:0"`
	IsGuest   bool   `gorm:"not null;default:false"`
	CreatedAt time.Time
}

func (profileRow) TableName() string { return "profiles" }

// credentialsRow is the table layout of login credentials
type credentialsRow struct {
	UID          string `gorm:"primaryKey;size:64"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	PasswordHash string `gorm:"not null"`
	CreatedAt    time.Time
}

func (credentialsRow) TableName() string { return "credentials" }

// Store is a gorm-backed profile store
type Store struct {
	db *gorm.DB
}

var _ storage.ProfileStore = (*Store)(nil)

// Open connects to the configured database and migrates the profile tables
func Open(cfg Config, logger *slog.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres", "postgresql":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "sqlite3":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(
			slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
			gormlogger.Config{
				SlowThreshold:             cfg.SlowThreshold,
				LogLevel:                  gormlogger.Warn,
				IgnoreRecordNotFoundError: true,
			},
		),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := db.AutoMigrate(&profileRow{}, &credentialsRow{}); err != nil {
		return nil, fmt.Errorf("migrate profiles: %w", err)
	}

	logger.Info("profile database ready", slog.String("driver", cfg.Driver))
	return &Store{db: db}, nil
}

// Close releases the underlying connection pool
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) SaveProfile(ctx context.Context, profile *model.Profile) error {
	row := profileRow{
		UID:       profile.UID,
		Username:  profile.Username,
		Points:    profile.Points,
		IsGuest:   profile.IsGuest,
		CreatedAt: profile.CreatedAt,
	}
	return model.NewUpstreamError("save profile", s.db.WithContext(ctx).Save(&row).Error)
}

func (s *Store) GetProfile(ctx context.Context, uid string) (*model.Profile, error) {
	var row profileRow
	err := s.db.WithContext(ctx).Where("uid = ?", uid).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrProfileNotFound
	}
	if err != nil {
		return nil, model.NewUpstreamError("get profile", err)
	}
	return &model.Profile{
		UID:       row.UID,
		Username:  row.Username,
		Points:    row.Points,
		IsGuest:   row.IsGuest,
		CreatedAt: row.CreatedAt,
	}, nil
}

func (s *Store) UpdateProfilePoints(ctx context.Context, uid string, points int) error {
	result := s.db.WithContext(ctx).Model(&profileRow{}).Where("uid = ?", uid).Update("points", points)
	if result.Error != nil {
		return model.NewUpstreamError("update points", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrProfileNotFound
	}
	return nil
}

func (s *Store) AdjustProfilePoints(ctx context.Context, uid string, delta int) (int, error) {
	var points int
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&profileRow{}).Where("uid = ?", uid).
			Update("points", gorm.Expr("points + ?", delta))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return model.ErrProfileNotFound
		}
		return tx.Model(&profileRow{}).Where("uid = ?", uid).Pluck("points", &points).Error
	})
	if err != nil {
		return 0, model.NewUpstreamError("adjust points", err)
	}
	return points, nil
}

func (s *Store) DeleteProfile(ctx context.Context, uid string) error {
	return model.NewUpstreamError("delete profile",
		s.db.WithContext(ctx).Where("uid = ?", uid).Delete(&profileRow{}).Error)
}

func (s *Store) SaveCredentials(ctx context.Context, creds *model.Credentials) error {
	row := credentialsRow{
		UID:          creds.UID,
		Username:     creds.Username,
		PasswordHash: creds.PasswordHash,
		CreatedAt:    creds.CreatedAt,
	}
	return model.NewUpstreamError("save credentials", s.db.WithContext(ctx).Save(&row).Error)
}

func (s *Store) GetCredentialsByUsername(ctx context.Context, username string) (*model.Credentials, error) {
	var row credentialsRow
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, model.ErrProfileNotFound
	}
	if err != nil {
		return nil, model.NewUpstreamError("get credentials", err)
	}
	return &model.Credentials{
		UID:          row.UID,
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
		CreatedAt:    row.CreatedAt,
	}, nil
}
