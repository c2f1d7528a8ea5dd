package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/scantablehq/billing-service/internal/domain/model"
)

// Migrate brings the schema up to date. The unique indexes that back webhook
// idempotency (provider_subscription_code on subscriptions, provider_reference
// on payments) come from the model tags; anything GORM cannot express is added
// here.
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations")

	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp"`).Error; err != nil {
		logger.Error("Failed to create uuid extension", zap.Error(err))
		return err
	}

	if err := db.AutoMigrate(
		&model.User{},
		&model.Subscription{},
		&model.Payment{},
	); err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return err
	}

	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed")
	return nil
}

func createCustomIndexes(db *gorm.DB) error {
	// One live subscription per user keeps GetCurrentByUserID unambiguous for
	// the entitlement read path.
	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_subscriptions_user_live
		ON subscriptions (user_id, current_period_end DESC)
		WHERE status IN ('active', 'trialing', 'past_due')`).Error; err != nil {
		return err
	}

	if err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_payments_user_created
		ON payments (user_id, created_at DESC)`).Error; err != nil {
		return err
	}

	return nil
}
