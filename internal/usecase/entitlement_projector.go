package usecase

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/codeabuu/simplifydocs/internal/domain/model"
	"github.com/codeabuu/simplifydocs/internal/domain/repository"
)

// EntitlementSyncer keeps a user's access groups in line with a ledger row.
type EntitlementSyncer interface {
	Sync(ctx context.Context, sub *model.UserSubscription)
}

// EntitlementProjector derives group membership from the plan on a ledger row.
type EntitlementProjector struct {
	groups            repository.GroupRepository
	allowCustomGroups bool
	logger            *zap.Logger
}

// NewEntitlementProjector creates a projector. With allowCustomGroups unset
// the user's groups are replaced by the plan's groups on every projection.
func NewEntitlementProjector(groups repository.GroupRepository, allowCustomGroups bool, logger *zap.Logger) *EntitlementProjector {
	return &EntitlementProjector{
		groups:            groups,
		allowCustomGroups: allowCustomGroups,
		logger:            logger,
	}
}

// Sync projects sub and logs failures instead of returning them. A ledger
// write that already committed must not be reported as failed.
func (p *EntitlementProjector) Sync(ctx context.Context, sub *model.UserSubscription) {
	if err := p.Project(ctx, sub); err != nil {
		p.logger.Error("Failed to project entitlements",
			zap.String("user_id", sub.UserID.String()),
			zap.Error(err))
	}
}

// Project recomputes and stores the user's groups for sub.
func (p *EntitlementProjector) Project(ctx context.Context, sub *model.UserSubscription) error {
	var target []int64
	if sub.PlanID != nil {
		ids, err := p.groups.PlanGroupIDs(ctx, *sub.PlanID)
		if err != nil {
			return fmt.Errorf("failed to load plan groups: %w", err)
		}
		target = ids
	}

	var next []int64
	if p.allowCustomGroups {
		foreign, err := p.groups.ActivePlanGroupIDs(ctx, sub.PlanID)
		if err != nil {
			return fmt.Errorf("failed to load foreign plan groups: %w", err)
		}
		current, err := p.groups.UserGroupIDs(ctx, sub.UserID)
		if err != nil {
			return fmt.Errorf("failed to load user groups: %w", err)
		}
		next = ComputeGroupSet(target, foreign, current)
	} else {
		next = ComputeGroupSet(target, nil, nil)
	}

	if err := p.groups.SetUserGroups(ctx, sub.UserID, next); err != nil {
		return fmt.Errorf("failed to set user groups: %w", err)
	}

	p.logger.Debug("Entitlements projected",
		zap.String("user_id", sub.UserID.String()),
		zap.Int64s("groups", next))
	return nil
}

// ComputeGroupSet returns target ∪ (current − foreign), sorted. Groups of
// the plan itself are never treated as foreign.
func ComputeGroupSet(target, foreign, current []int64) []int64 {
	set := make(map[int64]struct{}, len(target)+len(current))
	for _, id := range target {
		set[id] = struct{}{}
	}
	excluded := make(map[int64]struct{}, len(foreign))
	for _, id := range foreign {
		excluded[id] = struct{}{}
	}
	for _, id := range current {
		if _, ok := excluded[id]; ok {
			continue
		}
		set[id] = struct{}{}
	}

	out := make([]int64, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
