package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/codeabuu/simplifydocs/internal/domain/model"
	"github.com/codeabuu/simplifydocs/internal/domain/repository"
)

type planRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewPlanRepository creates a new plan repository
func NewPlanRepository(db *gorm.DB, logger *zap.Logger) repository.PlanRepository {
	return &planRepository{
		db:     db,
		logger: logger,
	}
}

func (r *planRepository) getOne(ctx context.Context, query string, args ...interface{}) (*model.SubscriptionPlan, error) {
	var plan model.SubscriptionPlan
	err := r.db.WithContext(ctx).Where(query, args...).First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logger.Error("Failed to get plan", zap.Error(err))
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return &plan, nil
}

// GetByID retrieves a plan by id
func (r *planRepository) GetByID(ctx context.Context, id int64) (*model.SubscriptionPlan, error) {
	return r.getOne(ctx, "id = ?", id)
}

// GetByProviderCode retrieves a plan by its provider plan code
func (r *planRepository) GetByProviderCode(ctx context.Context, code string) (*model.SubscriptionPlan, error) {
	if code == "" {
		return nil, nil
	}
	return r.getOne(ctx, "provider_plan_code = ?", code)
}

// GetByNameAndInterval retrieves a catalog entry
func (r *planRepository) GetByNameAndInterval(ctx context.Context, name string, interval model.BillingInterval) (*model.SubscriptionPlan, error) {
	return r.getOne(ctx, "name = ? AND billing_interval = ?", name, interval)
}

// ListActive retrieves all active plans in display order
func (r *planRepository) ListActive(ctx context.Context) ([]*model.SubscriptionPlan, error) {
	var plans []*model.SubscriptionPlan
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("display_order ASC, price ASC, name ASC").
		Find(&plans).Error
	if err != nil {
		r.logger.Error("Failed to list active plans", zap.Error(err))
		return nil, fmt.Errorf("failed to list plans: %w", err)
	}
	return plans, nil
}

// ListNeedingProvisioning retrieves active plans not yet created at the provider
func (r *planRepository) ListNeedingProvisioning(ctx context.Context) ([]*model.SubscriptionPlan, error) {
	var plans []*model.SubscriptionPlan
	err := r.db.WithContext(ctx).
		Where("is_active = ? AND provisioning_state IN ?", true, []model.ProvisioningState{
			model.ProvisioningUnprovisioned,
			model.ProvisioningFailed,
			model.ProvisioningInProgress,
		}).
		Order("id ASC").
		Find(&plans).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list unprovisioned plans: %w", err)
	}
	return plans, nil
}

// Create inserts a new plan
func (r *planRepository) Create(ctx context.Context, plan *model.SubscriptionPlan) error {
	if plan.Price.IsNegative() {
		return fmt.Errorf("plan price must not be negative")
	}
	if plan.ProvisioningState == "" {
		plan.ProvisioningState = model.ProvisioningUnprovisioned
	}
	if err := r.db.WithContext(ctx).Create(plan).Error; err != nil {
		r.logger.Error("Failed to create plan",
			zap.String("name", plan.Name),
			zap.Error(err))
		return fmt.Errorf("failed to create plan: %w", err)
	}
	return nil
}

// Update saves catalog fields of an existing plan. Provisioning columns are
// owned by the claim methods and are left alone.
func (r *planRepository) Update(ctx context.Context, plan *model.SubscriptionPlan) error {
	if plan.Price.IsNegative() {
		return fmt.Errorf("plan price must not be negative")
	}
	err := r.db.WithContext(ctx).
		Model(plan).
		Select("name", "description", "price", "currency", "features", "display_order", "featured", "is_active").
		Updates(plan).Error
	if err != nil {
		return fmt.Errorf("failed to update plan: %w", err)
	}
	return nil
}

// ClaimProvisioning atomically moves a plan into the provisioning state
func (r *planRepository) ClaimProvisioning(ctx context.Context, id int64, now time.Time, staleAfter time.Duration) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&model.SubscriptionPlan{}).
		Where("id = ? AND (provisioning_state IN ? OR (provisioning_state = ? AND provisioning_claimed_at < ?))",
			id,
			[]model.ProvisioningState{model.ProvisioningUnprovisioned, model.ProvisioningFailed},
			model.ProvisioningInProgress,
			now.Add(-staleAfter)).
		Updates(map[string]interface{}{
			"provisioning_state":      model.ProvisioningInProgress,
			"provisioning_claimed_at": now,
			"provisioning_error":      nil,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to claim plan provisioning: %w", result.Error)
	}
	return result.RowsAffected == 1, nil
}

// MarkProvisioned stores the provider plan code and completes the claim
func (r *planRepository) MarkProvisioned(ctx context.Context, id int64, code string) error {
	err := r.db.WithContext(ctx).
		Model(&model.SubscriptionPlan{}).
		Where("id = ? AND provisioning_state = ?", id, model.ProvisioningInProgress).
		Updates(map[string]interface{}{
			"provider_plan_code": code,
			"provisioning_state": model.ProvisioningProvisioned,
			"provisioning_error": nil,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark plan provisioned: %w", err)
	}
	return nil
}

// MarkProvisioningFailed releases the claim so a later attempt may retry
func (r *planRepository) MarkProvisioningFailed(ctx context.Context, id int64, reason string) error {
	err := r.db.WithContext(ctx).
		Model(&model.SubscriptionPlan{}).
		Where("id = ? AND provisioning_state = ?", id, model.ProvisioningInProgress).
		Updates(map[string]interface{}{
			"provisioning_state": model.ProvisioningFailed,
			"provisioning_error": reason,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to mark plan provisioning failed: %w", err)
	}
	return nil
}
