package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/codeabuu/simplifydocs/internal/domain/model"
)

// Migrate runs database migrations
func Migrate(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("Running database migrations...")

	err := db.AutoMigrate(
		&model.User{},
		&model.Group{},
		&model.SubscriptionPlan{},
		&model.PlanGroup{},
		&model.UserGroup{},
		&model.UserSubscription{},
		&model.Payment{},
		&model.WebhookEvent{},
		&model.SubscriptionCancellation{},
	)
	if err != nil {
		logger.Error("Failed to run migrations", zap.Error(err))
		return fmt.Errorf("failed to auto-migrate: %w", err)
	}

	if err := createCustomIndexes(db); err != nil {
		logger.Error("Failed to create custom indexes", zap.Error(err))
		return err
	}

	logger.Info("Database migrations completed successfully")
	return nil
}

// createCustomIndexes creates indexes that GORM tags cannot express
func createCustomIndexes(db *gorm.DB) error {
	statements := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_lower ON users (LOWER(email))`,
		`CREATE INDEX IF NOT EXISTS idx_user_subscriptions_entitling ON user_subscriptions (current_period_end) WHERE status IN ('active', 'trialing')`,
		`CREATE INDEX IF NOT EXISTS idx_subscription_cancellations_retry ON subscription_cancellations (id) WHERE status IN ('pending', 'failed')`,
	}
	for _, stmt := range statements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
