// Package gormstore implements the repository interfaces with gorm, for
// deployments that run on MySQL or PostgreSQL instead of a local SQLite
// file. The schema comes from the gorm tags on model.User and model.Social.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/sakif/sendlinks/internal/apperror"
	"github.com/sakif/sendlinks/internal/model"
	"github.com/sakif/sendlinks/internal/repository"
)

var _ repository.Store = (*Store)(nil)

const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
)

// Config selects the database and sizes the connection pool.
type Config struct {
	Driver  string
	DSN     string
	MaxIdle int
	MaxOpen int
}

type Store struct {
	db *gorm.DB
}

// Open connects, configures the pool and migrates the schema.
func Open(cfg Config, log *slog.Logger) (*Store, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         newLogger(log),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("gormstore: connecting to %s: %w", cfg.Driver, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("gormstore: getting sql.DB: %w", err)
	}
	if cfg.MaxIdle > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdle)
	}
	if cfg.MaxOpen > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpen)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	s := New(db)
	if err := s.migrate(context.Background()); err != nil {
		sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an already opened gorm handle. No migration is run.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func dialectorFor(cfg Config) (gorm.Dialector, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("gormstore: DSN is required for driver %q", cfg.Driver)
	}
	switch cfg.Driver {
	case DriverMySQL:
		return mysql.Open(cfg.DSN), nil
	case DriverPostgres:
		return postgres.Open(cfg.DSN), nil
	default:
		return nil, fmt.Errorf("gormstore: unsupported driver %q", cfg.Driver)
	}
}

// newLogger routes gorm's statement log through slog. Only slow queries
// and errors are reported; record-not-found is an expected outcome here.
func newLogger(log *slog.Logger) logger.Interface {
	return logger.New(
		slog.NewLogLogger(log.Handler(), slog.LevelWarn),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		},
	)
}

func (s *Store) migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&model.User{}, &model.Social{}); err != nil {
		return fmt.Errorf("gormstore: migrating schema: %w", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Reset(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Migrator().DropTable(&model.Social{}, &model.User{}); err != nil {
		return fmt.Errorf("gormstore: dropping tables: %w", err)
	}
	return s.migrate(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) CreateUser(ctx context.Context, user *model.User) error {
	err := s.db.WithContext(ctx).Omit(clause.Associations).Create(user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperror.UserExists(user.Email)
		}
		return fmt.Errorf("gormstore: inserting user %s: %w", user.Email, err)
	}
	return nil
}

func (s *Store) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user", strconv.FormatInt(id, 10))
		}
		return nil, fmt.Errorf("gormstore: getting user %d: %w", id, err)
	}
	return &u, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	var u model.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("gormstore: getting user by email: %w", err)
	}
	return &u, nil
}

func (s *Store) ListUsers(ctx context.Context, opts repository.ListOptions) ([]model.User, error) {
	users := []model.User{}
	err := s.db.WithContext(ctx).
		Order("id").
		Limit(opts.Limit).
		Offset(opts.Offset).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("gormstore: listing users: %w", err)
	}
	return users, nil
}

func (s *Store) ListSocials(ctx context.Context, userID int64) ([]model.Social, error) {
	links := []model.Social{}
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&links).Error; err != nil {
		return nil, fmt.Errorf("gormstore: listing socials for user %d: %w", userID, err)
	}
	model.SortSocials(links)
	return links, nil
}

// UpsertSocials writes the whole batch in one transaction. The primary key
// conflict on (user_id, social) becomes an in-place update of link.
func (s *Store) UpsertSocials(ctx context.Context, userID int64, links []model.Social) error {
	if len(links) == 0 {
		return nil
	}
	for i := range links {
		links[i].UserID = userID
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return upsertSocials(tx, links).Error
	})
	if err != nil {
		return fmt.Errorf("gormstore: upserting socials for user %d: %w", userID, err)
	}
	return nil
}

var socialConflict = clause.OnConflict{
	Columns:   []clause.Column{{Name: "user_id"}, {Name: "social"}},
	DoUpdates: clause.AssignmentColumns([]string{"link", "updated_at"}),
}

func upsertSocials(tx *gorm.DB, links []model.Social) *gorm.DB {
	return tx.Clauses(socialConflict).Create(&links)
}
