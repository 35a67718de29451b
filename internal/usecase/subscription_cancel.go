package usecase

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	billingerrors "github.com/codeabuu/simplifydocs/internal/domain/errors"
	"github.com/codeabuu/simplifydocs/internal/domain/model"
	"github.com/codeabuu/simplifydocs/internal/domain/provider"
)

// Cancel stops renewal of the user's subscription at the end of the paid
// period. Provider failures are returned to the caller and leave the row
// untouched. Access is revoked immediately through the user-cancelled flag.
func (s *ReconciliationService) Cancel(ctx context.Context, userID uuid.UUID, reason string) (sub *model.UserSubscription, err error) {
	defer func() { recordOutcome(TriggerCancel, err) }()

	row, err := s.ledger.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if row == nil || !row.IsActiveStatus() || row.Code() == "" || row.UserCancelled {
		return nil, billingerrors.ErrNothingToCancel
	}

	code := row.Code()
	req := &provider.CancelSubscriptionRequest{Code: code, AtPeriodEnd: true}
	if row.EmailToken != nil {
		req.EmailToken = *row.EmailToken
	}
	if err := s.gateway.CancelSubscription(ctx, req); err != nil {
		return nil, err
	}

	update := model.SubscriptionUpdate{
		CancelAtPeriodEnd: model.BoolPtr(true),
		UserCancelled:     model.BoolPtr(true),
	}
	if remote, err := s.gateway.GetSubscription(ctx, code); err != nil {
		s.logger.Warn("Failed to re-read cancelled subscription, recording cancellation only",
			zap.String("subscription_code", code),
			zap.Error(err))
	} else {
		update = subscriptionUpdate(remote, userID)
		update.CancelAtPeriodEnd = model.BoolPtr(true)
		update.UserCancelled = model.BoolPtr(true)
	}

	result, err := s.applyRemote(ctx, code, update)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Subscription cancelled by user",
		zap.String("user_id", userID.String()),
		zap.String("subscription_code", code),
		zap.String("reason", reason))
	return result.Subscription, nil
}
