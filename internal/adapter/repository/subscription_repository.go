package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codeabuu/simplifydocs/internal/domain/model"
	"github.com/codeabuu/simplifydocs/internal/domain/repository"
)

type subscriptionRepository struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewSubscriptionRepository creates a new subscription ledger repository
func NewSubscriptionRepository(db *gorm.DB, logger *zap.Logger) repository.SubscriptionRepository {
	return &subscriptionRepository{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

func (r *subscriptionRepository) getOne(ctx context.Context, query string, args ...interface{}) (*model.UserSubscription, error) {
	var sub model.UserSubscription
	err := r.db.WithContext(ctx).
		Preload("Plan").
		Where(query, args...).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

// GetByUserID retrieves the ledger row of a user
func (r *subscriptionRepository) GetByUserID(ctx context.Context, userID uuid.UUID) (*model.UserSubscription, error) {
	return r.getOne(ctx, "user_id = ?", userID)
}

// GetBySubscriptionCode retrieves the ledger row holding a provider subscription code
func (r *subscriptionRepository) GetBySubscriptionCode(ctx context.Context, code string) (*model.UserSubscription, error) {
	return r.getOne(ctx, "subscription_code = ?", code)
}

// GetByCustomerCode retrieves the ledger row holding a provider customer code
func (r *subscriptionRepository) GetByCustomerCode(ctx context.Context, customerCode string) (*model.UserSubscription, error) {
	return r.getOne(ctx, "customer_code = ?", customerCode)
}

// GetOrCreate returns the user's row, inserting an empty one if absent
func (r *subscriptionRepository) GetOrCreate(ctx context.Context, userID uuid.UUID) (*model.UserSubscription, bool, error) {
	sub := &model.UserSubscription{UserID: userID, Active: true}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(sub)
	if result.Error != nil {
		r.logger.Error("Failed to create subscription row",
			zap.String("user_id", userID.String()),
			zap.Error(result.Error))
		return nil, false, fmt.Errorf("failed to create subscription: %w", result.Error)
	}

	existing, err := r.GetByUserID(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	if existing == nil {
		return nil, false, fmt.Errorf("subscription row for user %s vanished after insert", userID)
	}
	return existing, result.RowsAffected == 1, nil
}

// UpsertBySubscriptionCode writes update onto the row holding code under a row lock
func (r *subscriptionRepository) UpsertBySubscriptionCode(ctx context.Context, code string, update model.SubscriptionUpdate) (*repository.UpsertResult, error) {
	if code == "" {
		return nil, errors.New("subscription code is required")
	}
	return r.writeWithRetry(ctx, func(tx *gorm.DB) (*repository.UpsertResult, error) {
		return r.upsertLocked(tx, code, update)
	})
}

// UpdateByUserID writes update onto the user's row under a row lock
func (r *subscriptionRepository) UpdateByUserID(ctx context.Context, userID uuid.UUID, update model.SubscriptionUpdate) (*repository.UpsertResult, error) {
	update.UserID = &userID
	return r.writeWithRetry(ctx, func(tx *gorm.DB) (*repository.UpsertResult, error) {
		return r.updateUserLocked(tx, userID, update)
	})
}

// RecordPayment inserts the payment once and applies update to the payer's row.
// A non-empty subscriptionCode is stored on the row as in UpsertBySubscriptionCode.
func (r *subscriptionRepository) RecordPayment(ctx context.Context, payment *model.Payment, subscriptionCode string, update model.SubscriptionUpdate) (*repository.UpsertResult, bool, error) {
	userID := payment.UserID
	update.UserID = &userID

	recorded := false
	result, err := r.writeWithRetry(ctx, func(tx *gorm.DB) (*repository.UpsertResult, error) {
		insert := tx.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "reference"}}, DoNothing: true}).
			Create(payment)
		if insert.Error != nil {
			return nil, fmt.Errorf("failed to record payment: %w", insert.Error)
		}
		recorded = insert.RowsAffected == 1
		if !recorded {
			r.logger.Info("Payment already recorded",
				zap.String("reference", payment.Reference),
				zap.String("user_id", userID.String()))
			return r.updateUserLocked(tx, userID, model.SubscriptionUpdate{})
		}

		if subscriptionCode != "" {
			return r.upsertLocked(tx, subscriptionCode, update)
		}
		return r.updateUserLocked(tx, userID, update)
	})
	if err != nil {
		return nil, false, err
	}
	return result, recorded, nil
}

// writeWithRetry runs fn in a transaction, retrying once when a concurrent
// insert wins the unique index race.
func (r *subscriptionRepository) writeWithRetry(ctx context.Context, fn func(tx *gorm.DB) (*repository.UpsertResult, error)) (*repository.UpsertResult, error) {
	var result *repository.UpsertResult
	run := func() error {
		return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			result, err = fn(tx)
			return err
		})
	}

	err := run()
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		r.logger.Debug("Retrying subscription write after unique conflict")
		err = run()
	}
	if err != nil {
		r.logger.Error("Failed to write subscription", zap.Error(err))
		return nil, err
	}

	reloaded, err := r.getOne(ctx, "id = ?", result.Subscription.ID)
	if err != nil {
		return nil, err
	}
	if reloaded != nil {
		result.Subscription = reloaded
	}
	return result, nil
}

func (r *subscriptionRepository) upsertLocked(tx *gorm.DB, code string, update model.SubscriptionUpdate) (*repository.UpsertResult, error) {
	existing, err := lockOne(tx, "subscription_code = ?", code)
	if err != nil {
		return nil, err
	}
	if existing != nil && update.UserID != nil && existing.UserID != *update.UserID {
		return nil, fmt.Errorf("subscription code %s belongs to another user", code)
	}
	if existing == nil && update.UserID != nil {
		if existing, err = lockOne(tx, "user_id = ?", *update.UserID); err != nil {
			return nil, err
		}
	}

	if existing == nil {
		if update.UserID == nil {
			return nil, fmt.Errorf("no subscription row holds code %s and no user was given", code)
		}
		sub := &model.UserSubscription{UserID: *update.UserID, Active: true}
		update.ApplyTo(sub)
		sub.SubscriptionCode = &code
		if err := tx.Omit(clause.Associations).Create(sub).Error; err != nil {
			return nil, fmt.Errorf("failed to create subscription: %w", err)
		}
		return &repository.UpsertResult{Subscription: sub, Created: true}, nil
	}

	previous := existing.Clone()
	update.ApplyTo(existing)
	existing.SubscriptionCode = &code
	if err := tx.Omit(clause.Associations).Save(existing).Error; err != nil {
		return nil, fmt.Errorf("failed to save subscription: %w", err)
	}
	return &repository.UpsertResult{Subscription: existing, Previous: previous}, nil
}

func (r *subscriptionRepository) updateUserLocked(tx *gorm.DB, userID uuid.UUID, update model.SubscriptionUpdate) (*repository.UpsertResult, error) {
	existing, err := lockOne(tx, "user_id = ?", userID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		sub := &model.UserSubscription{UserID: userID, Active: true}
		update.ApplyTo(sub)
		if err := tx.Omit(clause.Associations).Create(sub).Error; err != nil {
			return nil, fmt.Errorf("failed to create subscription: %w", err)
		}
		return &repository.UpsertResult{Subscription: sub, Created: true}, nil
	}

	previous := existing.Clone()
	update.ApplyTo(existing)
	if err := tx.Omit(clause.Associations).Save(existing).Error; err != nil {
		return nil, fmt.Errorf("failed to save subscription: %w", err)
	}
	return &repository.UpsertResult{Subscription: existing, Previous: previous}, nil
}

func lockOne(tx *gorm.DB, query string, args ...interface{}) (*model.UserSubscription, error) {
	var sub model.UserSubscription
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where(query, args...).
		First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to lock subscription: %w", err)
	}
	return &sub, nil
}

// List returns the rows matching filter
func (r *subscriptionRepository) List(ctx context.Context, filter repository.SubscriptionFilter) ([]*model.UserSubscription, error) {
	query := r.db.WithContext(ctx).Preload("Plan").Order("id ASC")

	if filter.ActiveOnly {
		query = query.Where("status IN ?", []model.SubscriptionStatus{
			model.SubscriptionStatusActive,
			model.SubscriptionStatusTrialing,
		})
	}
	if filter.UserIDs != nil {
		if len(filter.UserIDs) == 0 {
			return []*model.UserSubscription{}, nil
		}
		query = query.Where("user_id IN ?", filter.UserIDs)
	}
	for _, w := range filter.Windows(r.now()) {
		query = query.Where("current_period_end >= ? AND current_period_end <= ?", w.From, w.To)
	}

	var subs []*model.UserSubscription
	if err := query.Find(&subs).Error; err != nil {
		r.logger.Error("Failed to list subscriptions", zap.Error(err))
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

// ListCustomerCodes returns the distinct provider customer codes in the ledger
func (r *subscriptionRepository) ListCustomerCodes(ctx context.Context) ([]string, error) {
	var codes []string
	err := r.db.WithContext(ctx).
		Model(&model.UserSubscription{}).
		Where("customer_code IS NOT NULL AND customer_code <> ''").
		Distinct().
		Pluck("customer_code", &codes).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list customer codes: %w", err)
	}
	return codes, nil
}
