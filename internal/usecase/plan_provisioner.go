package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	billingerrors "github.com/codeabuu/simplifydocs/internal/domain/errors"
	"github.com/codeabuu/simplifydocs/internal/domain/model"
	"github.com/codeabuu/simplifydocs/internal/domain/provider"
	"github.com/codeabuu/simplifydocs/internal/domain/repository"
)

const defaultProvisioningStaleAfter = 5 * time.Minute

// ProvisionSummary counts the outcome of a bulk provisioning pass.
type ProvisionSummary struct {
	Provisioned int `json:"provisioned"`
	Skipped     int `json:"skipped"`
	Failed      int `json:"failed"`
}

// PlanProvisioner creates catalog plans at the provider. A plan is claimed
// before the provider call so concurrent callers never create it twice.
type PlanProvisioner struct {
	plans      repository.PlanRepository
	gateway    provider.PaymentGateway
	staleAfter time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

// NewPlanProvisioner creates a provisioner. A claim older than staleAfter
// is considered abandoned and may be taken over.
func NewPlanProvisioner(plans repository.PlanRepository, gateway provider.PaymentGateway, staleAfter time.Duration, logger *zap.Logger) *PlanProvisioner {
	if staleAfter <= 0 {
		staleAfter = defaultProvisioningStaleAfter
	}
	return &PlanProvisioner{
		plans:      plans,
		gateway:    gateway,
		staleAfter: staleAfter,
		now:        time.Now,
		logger:     logger,
	}
}

// Provision creates the plan at the provider unless it is already
// provisioned or another caller holds the claim. It reports whether this
// call provisioned the plan.
func (p *PlanProvisioner) Provision(ctx context.Context, planID int64) (*model.SubscriptionPlan, bool, error) {
	plan, err := p.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, false, billingerrors.Internal("failed to load plan", err)
	}
	if plan == nil {
		return nil, false, billingerrors.ErrPlanNotFound
	}
	if plan.ProvisioningState == model.ProvisioningProvisioned && plan.Code() != "" {
		return plan, false, nil
	}

	logger := p.logger.With(zap.Int64("plan_id", plan.ID), zap.String("plan", plan.Name))

	claimed, err := p.plans.ClaimProvisioning(ctx, plan.ID, p.now(), p.staleAfter)
	if err != nil {
		return nil, false, billingerrors.Internal("failed to claim plan provisioning", err)
	}
	if !claimed {
		logger.Info("Plan provisioning claimed elsewhere, skipping")
		return plan, false, nil
	}

	req := &provider.CreatePlanRequest{
		Name:        plan.Name,
		AmountMinor: plan.AmountMinor(),
		Interval:    plan.Interval,
		Currency:    plan.Currency,
		Description: plan.Description,
	}

	// Any earlier attempt may have created the plan without us learning
	// its code.
	var code string
	if plan.ProvisioningState != model.ProvisioningUnprovisioned {
		code, err = p.gateway.FindPlan(ctx, req)
		if err != nil {
			return nil, false, p.releaseClaim(ctx, logger, plan.ID, err)
		}
		if code != "" {
			logger.Info("Adopting plan found at provider", zap.String("plan_code", code))
		}
	}
	if code == "" {
		code, err = p.gateway.CreatePlan(ctx, req)
		if err != nil {
			return nil, false, p.releaseClaim(ctx, logger, plan.ID, err)
		}
	}

	if err := p.plans.MarkProvisioned(ctx, plan.ID, code); err != nil {
		return nil, false, billingerrors.Internal("failed to store provider plan code", err)
	}
	logger.Info("Plan provisioned", zap.String("plan_code", code))

	plan.ProviderPlanCode = &code
	plan.ProvisioningState = model.ProvisioningProvisioned
	plan.ProvisioningError = nil
	return plan, true, nil
}

// releaseClaim records a failed attempt. Only an explicit rejection frees
// the plan for immediate retry; when the outcome is unknown the claim is
// kept until it goes stale, and the next attempt looks the plan up first.
func (p *PlanProvisioner) releaseClaim(ctx context.Context, logger *zap.Logger, planID int64, cause error) error {
	if !billingerrors.IsVerificationFailed(cause) && !billingerrors.IsMalformedInput(cause) {
		logger.Warn("Plan provisioning outcome unknown, keeping claim until stale", zap.Error(cause))
		return cause
	}
	logger.Warn("Payment provider rejected plan", zap.Error(cause))
	if err := p.plans.MarkProvisioningFailed(ctx, planID, cause.Error()); err != nil {
		logger.Error("Failed to record provisioning failure", zap.Error(err))
	}
	return cause
}

// ProvisionPending provisions every active plan that is not provisioned
// yet, including abandoned claims. Failures are counted and the pass
// continues.
func (p *PlanProvisioner) ProvisionPending(ctx context.Context) (*ProvisionSummary, error) {
	plans, err := p.plans.ListNeedingProvisioning(ctx)
	if err != nil {
		return nil, billingerrors.Internal("failed to list plans", err)
	}

	summary := &ProvisionSummary{}
	for _, plan := range plans {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		_, provisioned, err := p.Provision(ctx, plan.ID)
		switch {
		case err != nil:
			summary.Failed++
		case provisioned:
			summary.Provisioned++
		default:
			summary.Skipped++
		}
	}

	p.logger.Info("Plan provisioning pass finished",
		zap.Int("provisioned", summary.Provisioned),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed))
	return summary, nil
}
