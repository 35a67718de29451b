package usecase

import (
	"context"

	"go.uber.org/zap"

	"github.com/codeabuu/simplifydocs/internal/domain/model"
)

// SweepResult summarizes a dangling-subscription sweep.
type SweepResult struct {
	Retried   int `json:"retried"`
	Customers int `json:"customers"`
	Cancelled int `json:"cancelled"`
	// Skipped counts codes already claimed by another cancellation.
	Skipped int `json:"skipped"`
	// Recent counts unreferenced subscriptions still inside the grace period.
	Recent int `json:"recent"`
	Failed int `json:"failed"`
}

// ClearDangling cancels provider subscriptions that no ledger row refers
// to, after retrying earlier cancellation claims that failed. Every failure
// is logged and the sweep moves on.
func (s *ReconciliationService) ClearDangling(ctx context.Context) (*SweepResult, error) {
	result := &SweepResult{}

	retryable, err := s.cancellations.ListRetryable(ctx, s.maxAttempts, s.now().Add(-pendingCancellationRetryAfter))
	if err != nil {
		return nil, err
	}
	for _, cancellation := range retryable {
		result.Retried++
		if err := s.executeCancellation(ctx, cancellation); err != nil {
			result.Failed++
			continue
		}
		result.Cancelled++
	}

	customers, err := s.ledger.CustomerCodes(ctx)
	if err != nil {
		return result, err
	}
	for _, customer := range customers {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Customers++
		s.sweepCustomer(ctx, customer, result)
	}

	recordOutcome(TriggerSweep, nil)
	s.logger.Info("Dangling subscription sweep finished",
		zap.Int("retried", result.Retried),
		zap.Int("customers", result.Customers),
		zap.Int("cancelled", result.Cancelled),
		zap.Int("skipped", result.Skipped),
		zap.Int("recent", result.Recent),
		zap.Int("failed", result.Failed))
	return result, nil
}

func (s *ReconciliationService) sweepCustomer(ctx context.Context, customer string, result *SweepResult) {
	logger := s.logger.With(zap.String("customer_code", customer))

	owner, err := s.ledger.GetByCustomerCode(ctx, customer)
	if err != nil || owner == nil {
		logger.Warn("Failed to resolve customer owner", zap.Error(err))
		result.Failed++
		return
	}

	remotes, err := s.gateway.ListCustomerSubscriptions(ctx, customer, true)
	if err != nil {
		logger.Warn("Failed to list customer subscriptions", zap.Error(err))
		result.Failed++
		return
	}

	for _, remote := range remotes {
		if remote.Code == "" || remote.Code == owner.Code() {
			continue
		}
		referenced, err := s.ledger.GetBySubscriptionCode(ctx, remote.Code)
		if err != nil {
			logger.Warn("Failed to look up subscription", zap.String("subscription_code", remote.Code), zap.Error(err))
			result.Failed++
			continue
		}
		if referenced != nil {
			continue
		}

		if remote.CreatedAt != nil && remote.CreatedAt.After(s.now().Add(-danglingGracePeriod)) {
			logger.Info("Leaving new unreferenced subscription for its webhook",
				zap.String("subscription_code", remote.Code),
				zap.Time("created_at", *remote.CreatedAt))
			result.Recent++
			continue
		}

		switch s.claimAndCancel(ctx, &model.SubscriptionCancellation{
			SubscriptionCode: remote.Code,
			UserID:           owner.UserID,
			EmailToken:       model.StringPtr(remote.EmailToken),
			Reason:           "dangling",
			Status:           model.CancellationPending,
		}) {
		case cancelDone:
			result.Cancelled++
		case cancelClaimedElsewhere:
			result.Skipped++
		default:
			result.Failed++
		}
	}
}
