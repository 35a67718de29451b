package repository

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codeabuu/simplifydocs/internal/domain/model"
	"github.com/codeabuu/simplifydocs/internal/domain/repository"
)

type cancellationRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewCancellationRepository creates a new cancellation claim repository
func NewCancellationRepository(db *gorm.DB, logger *zap.Logger) repository.CancellationRepository {
	return &cancellationRepository{
		db:     db,
		logger: logger,
	}
}

// Claim inserts the cancellation unless its code is already claimed
func (r *cancellationRepository) Claim(ctx context.Context, cancellation *model.SubscriptionCancellation) (bool, error) {
	if cancellation.Status == "" {
		cancellation.Status = model.CancellationPending
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "subscription_code"}}, DoNothing: true}).
		Create(cancellation)
	if result.Error != nil {
		r.logger.Error("Failed to claim cancellation",
			zap.String("subscription_code", cancellation.SubscriptionCode),
			zap.Error(result.Error))
		return false, fmt.Errorf("failed to claim cancellation: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// MarkDone records a completed upstream cancellation
func (r *cancellationRepository) MarkDone(ctx context.Context, code string) error {
	err := r.db.WithContext(ctx).
		Model(&model.SubscriptionCancellation{}).
		Where("subscription_code = ?", code).
		Updates(map[string]interface{}{
			"status":     model.CancellationDone,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": nil,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark cancellation done: %w", err)
	}
	return nil
}

// MarkFailed records a failed attempt so the sweep can retry it
func (r *cancellationRepository) MarkFailed(ctx context.Context, code string, reason string) error {
	err := r.db.WithContext(ctx).
		Model(&model.SubscriptionCancellation{}).
		Where("subscription_code = ?", code).
		Updates(map[string]interface{}{
			"status":     model.CancellationFailed,
			"attempts":   gorm.Expr("attempts + 1"),
			"last_error": reason,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark cancellation failed: %w", err)
	}
	return nil
}

// ListRetryable returns claims that have not completed yet. Pending claims
// younger than pendingBefore may still be running in their claimer.
func (r *cancellationRepository) ListRetryable(ctx context.Context, maxAttempts int, pendingBefore time.Time) ([]*model.SubscriptionCancellation, error) {
	var claims []*model.SubscriptionCancellation
	err := r.db.WithContext(ctx).
		Where("attempts < ? AND (status = ? OR (status = ? AND created_at < ?))",
			maxAttempts,
			model.CancellationFailed,
			model.CancellationPending,
			pendingBefore).
		Order("id ASC").
		Find(&claims).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list retryable cancellations: %w", err)
	}
	return claims, nil
}
