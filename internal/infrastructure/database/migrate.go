package database

import (
	"fmt"

	"github.com/wekeepgrowing/billing-gateway/internal/domain/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// partialIndexes are the indexes AutoMigrate cannot express.
var partialIndexes = []struct {
	name string
	ddl  string
}{
	// access resolution reads every access-granting row of a user
	{"idx_subscriptions_user_granting",
		`CREATE INDEX IF NOT EXISTS idx_subscriptions_user_granting ON subscriptions (user_id, current_period_end DESC) WHERE status IN ('active', 'past_due')`},
	{"idx_audit_events_user_created",
		`CREATE INDEX IF NOT EXISTS idx_audit_events_user_created ON subscription_audit_events (user_id, created_at DESC)`},
}

// Migrate creates the tables this service owns. The users table belongs to
// the account service and is never migrated here.
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		return fmt.Errorf("create uuid-ossp extension: %w", err)
	}
	if err := db.AutoMigrate(&model.Customer{}, &model.Subscription{}, &model.AuditEvent{}); err != nil {
		return fmt.Errorf("auto-migrate billing tables: %w", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		for _, idx := range partialIndexes {
			if err := tx.Exec(idx.ddl).Error; err != nil {
				return fmt.Errorf("create index %s: %w", idx.name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger.Info("Database schema up to date", zap.Int("partial_indexes", len(partialIndexes)))
	return nil
}
