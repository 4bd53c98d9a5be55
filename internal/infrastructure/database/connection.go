package database

import (
	"context"
	"fmt"
	"time"

	"github.com/wekeepgrowing/billing-gateway/internal/config"
	"github.com/wekeepgrowing/billing-gateway/pkg/logger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	slowQueryThreshold = 200 * time.Millisecond
	pingTimeout        = 5 * time.Second
)

// NewConnection opens the pool and waits for the database to answer. Startup
// races with the database container are common, so the first ping is retried
// cfg.ConnectAttempts times before giving up.
func NewConnection(cfg *config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                                   logger.NewGormLogger(log, logger.ParseGormLevel(cfg.LogLevel), slowQueryThreshold, true),
		DisableForeignKeyConstraintWhenMigrating: true,
		PrepareStmt:                              true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL database: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	attempts := cfg.ConnectAttempts
	if attempts < 1 {
		attempts = 1
	}
	for attempt := 1; ; attempt++ {
		err = Ping(context.Background(), db)
		if err == nil {
			break
		}
		if attempt >= attempts {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("database unreachable after %d attempt(s): %w", attempt, err)
		}
		log.Warn("Database not ready, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("delay", cfg.ConnectRetryDelay),
			zap.Error(err))
		time.Sleep(cfg.ConnectRetryDelay)
	}

	log.Info("Database connection established",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Name),
		zap.Int("max_open_conns", cfg.MaxOpenConns))

	return db, nil
}

// Ping reports whether the database answers within pingTimeout.
func Ping(ctx context.Context, db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return sqlDB.PingContext(ctx)
}

func Close(db *gorm.DB, log *zap.Logger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying SQL database: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}
	log.Info("Database connection closed")
	return nil
}
