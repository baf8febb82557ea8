package history

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/BaSui01/schemaflow/types"
)

// Config selects the backing database for run history.
type Config struct {
	Driver string `yaml:"driver" json:"driver"`
	DSN    string `yaml:"dsn" json:"dsn"`
}

// Store persists extraction runs.
type Store interface {
	// Record writes one run.
	Record(ctx context.Context, run *Run) error

	// Recent returns the newest runs, newest first.
	Recent(ctx context.Context, limit int) ([]Run, error)

	// ByWorkspace returns the newest runs for one workspace key.
	ByWorkspace(ctx context.Context, key string, limit int) ([]Run, error)

	// Purge deletes runs older than the retention window and returns
	// the number deleted.
	Purge(ctx context.Context, olderThan time.Duration) (int64, error)
}

// Open connects to the configured database.
func Open(cfg Config, logger *zap.Logger) (*gorm.DB, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: postgres, mysql, sqlite)", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	logger.Info("history database connected", zap.String("driver", cfg.Driver))
	return db, nil
}

type gormStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewStore creates a run store over an open database, migrating the
// runs table.
func NewStore(db *gorm.DB, logger *zap.Logger) (Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := db.AutoMigrate(&Run{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}
	return &gormStore{
		db:     db,
		logger: logger.With(zap.String("component", "history")),
	}, nil
}

func (s *gormStore) Record(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	if err := s.db.WithContext(ctx).Create(run).Error; err != nil {
		return types.NewError(types.ErrHistory, "record run").WithCause(err)
	}
	return nil
}

func (s *gormStore) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []Run
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, types.NewError(types.ErrHistory, "list recent runs").WithCause(err)
	}
	return runs, nil
}

func (s *gormStore) ByWorkspace(ctx context.Context, key string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	var runs []Run
	err := s.db.WithContext(ctx).
		Where("workspace_key = ?", key).
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, types.NewError(types.ErrHistory, "list workspace runs").WithCause(err)
	}
	return runs, nil
}

func (s *gormStore) Purge(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&Run{})
	if res.Error != nil {
		return 0, types.NewError(types.ErrHistory, "purge runs").WithCause(res.Error)
	}
	if res.RowsAffected > 0 {
		s.logger.Info("purged old runs", zap.Int64("deleted", res.RowsAffected))
	}
	return res.RowsAffected, nil
}
