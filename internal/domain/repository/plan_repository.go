package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/codeabuu/simplifydocs/internal/domain/model"
)

// PlanRepository stores the plan catalog and its provisioning state.
type PlanRepository interface {
	GetByID(ctx context.Context, id int64) (*model.SubscriptionPlan, error)
	GetByProviderCode(ctx context.Context, code string) (*model.SubscriptionPlan, error)
	GetByNameAndInterval(ctx context.Context, name string, interval model.BillingInterval) (*model.SubscriptionPlan, error)
	// ListActive returns active plans in display order.
	ListActive(ctx context.Context) ([]*model.SubscriptionPlan, error)
	// ListNeedingProvisioning returns active plans that are not provisioned,
	// including ones with a claim in progress.
	ListNeedingProvisioning(ctx context.Context) ([]*model.SubscriptionPlan, error)
	Create(ctx context.Context, plan *model.SubscriptionPlan) error
	Update(ctx context.Context, plan *model.SubscriptionPlan) error

	// ClaimProvisioning moves the plan into the provisioning state if it is
	// unprovisioned, failed, or stuck provisioning for longer than staleAfter.
	// Exactly one concurrent caller wins.
	ClaimProvisioning(ctx context.Context, id int64, now time.Time, staleAfter time.Duration) (bool, error)
	MarkProvisioned(ctx context.Context, id int64, code string) error
	MarkProvisioningFailed(ctx context.Context, id int64, reason string) error
}

// GroupRepository stores groups and the plan and user memberships in them.
type GroupRepository interface {
	// EnsureGroups returns the named groups, creating the missing ones.
	EnsureGroups(ctx context.Context, names []string) ([]*model.Group, error)
	SetPlanGroups(ctx context.Context, planID int64, groupIDs []int64) error
	PlanGroupIDs(ctx context.Context, planID int64) ([]int64, error)
	// ActivePlanGroupIDs returns groups granted by active plans other than excludePlanID.
	ActivePlanGroupIDs(ctx context.Context, excludePlanID *int64) ([]int64, error)
	UserGroupIDs(ctx context.Context, userID uuid.UUID) ([]int64, error)
	SetUserGroups(ctx context.Context, userID uuid.UUID, groupIDs []int64) error
}
