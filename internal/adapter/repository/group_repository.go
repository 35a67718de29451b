package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codeabuu/simplifydocs/internal/domain/model"
	"github.com/codeabuu/simplifydocs/internal/domain/repository"
)

type groupRepository struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewGroupRepository creates a new group repository
func NewGroupRepository(db *gorm.DB, logger *zap.Logger) repository.GroupRepository {
	return &groupRepository{
		db:     db,
		logger: logger,
	}
}

// EnsureGroups returns the named groups, inserting any that are missing
func (r *groupRepository) EnsureGroups(ctx context.Context, names []string) ([]*model.Group, error) {
	if len(names) == 0 {
		return nil, nil
	}
	rows := make([]model.Group, 0, len(names))
	for _, name := range names {
		rows = append(rows, model.Group{Name: name})
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to create groups: %w", err)
	}

	var groups []*model.Group
	if err := r.db.WithContext(ctx).Where("name IN ?", names).Order("id ASC").Find(&groups).Error; err != nil {
		return nil, fmt.Errorf("failed to load groups: %w", err)
	}
	return groups, nil
}

// SetPlanGroups replaces the groups a plan grants
func (r *groupRepository) SetPlanGroups(ctx context.Context, planID int64, groupIDs []int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("plan_id = ?", planID).Delete(&model.PlanGroup{}).Error; err != nil {
			return fmt.Errorf("failed to clear plan groups: %w", err)
		}
		if len(groupIDs) == 0 {
			return nil
		}
		links := make([]model.PlanGroup, 0, len(groupIDs))
		for _, id := range groupIDs {
			links = append(links, model.PlanGroup{PlanID: planID, GroupID: id})
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error; err != nil {
			return fmt.Errorf("failed to set plan groups: %w", err)
		}
		return nil
	})
}

// PlanGroupIDs returns the groups a plan grants
func (r *groupRepository) PlanGroupIDs(ctx context.Context, planID int64) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.PlanGroup{}).
		Where("plan_id = ?", planID).
		Order("group_id ASC").
		Pluck("group_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get plan groups: %w", err)
	}
	return ids, nil
}

// ActivePlanGroupIDs returns groups granted by active plans other than excludePlanID
func (r *groupRepository) ActivePlanGroupIDs(ctx context.Context, excludePlanID *int64) ([]int64, error) {
	query := r.db.WithContext(ctx).
		Model(&model.PlanGroup{}).
		Joins("JOIN subscription_plans ON subscription_plans.id = plan_groups.plan_id").
		Where("subscription_plans.is_active = ?", true)
	if excludePlanID != nil {
		query = query.Where("plan_groups.plan_id <> ?", *excludePlanID)
	}

	var ids []int64
	if err := query.Distinct().Pluck("plan_groups.group_id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to get active plan groups: %w", err)
	}
	return ids, nil
}

// UserGroupIDs returns the groups a user belongs to
func (r *groupRepository) UserGroupIDs(ctx context.Context, userID uuid.UUID) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.UserGroup{}).
		Where("user_id = ?", userID).
		Order("group_id ASC").
		Pluck("group_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get user groups: %w", err)
	}
	return ids, nil
}

// SetUserGroups replaces a user's group memberships
func (r *groupRepository) SetUserGroups(ctx context.Context, userID uuid.UUID, groupIDs []int64) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&model.UserGroup{}).Error; err != nil {
			return err
		}
		if len(groupIDs) == 0 {
			return nil
		}
		links := make([]model.UserGroup, 0, len(groupIDs))
		for _, id := range groupIDs {
			links = append(links, model.UserGroup{UserID: userID, GroupID: id})
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&links).Error
	})
	if err != nil {
		r.logger.Error("Failed to set user groups",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return fmt.Errorf("failed to set user groups: %w", err)
	}
	return nil
}
