package usecase

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codeabuu/simplifydocs/internal/domain/model"
	"github.com/codeabuu/simplifydocs/internal/domain/repository"
)

// RefreshFailure names a row whose refresh failed.
type RefreshFailure struct {
	UserID           uuid.UUID `json:"user_id"`
	SubscriptionCode string    `json:"subscription_code"`
	Error            string    `json:"error"`

	err error
}

// Err returns the classified error behind the failure.
func (f RefreshFailure) Err() error {
	return f.err
}

// RefreshResult summarizes a bulk refresh.
type RefreshResult struct {
	Selected  int              `json:"selected"`
	Refreshed int              `json:"refreshed"`
	Skipped   int              `json:"skipped"`
	Failed    []RefreshFailure `json:"failed,omitempty"`
}

// AllSucceeded reports whether no selected row failed. Rows without a
// provider code count as trivially refreshed.
func (r *RefreshResult) AllSucceeded() bool {
	return len(r.Failed) == 0
}

// Refresh overwrites every selected row that carries a provider code with
// the provider's current state. A failing row is recorded and the pass
// continues with the next one.
func (s *ReconciliationService) Refresh(ctx context.Context, filter repository.SubscriptionFilter) (*RefreshResult, error) {
	rows, err := s.ledger.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	result := &RefreshResult{Selected: len(rows)}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		code := row.Code()
		if code == "" {
			result.Skipped++
			continue
		}

		if err := s.refreshRow(ctx, row); err != nil {
			s.logger.Warn("Failed to refresh subscription",
				zap.String("user_id", row.UserID.String()),
				zap.String("subscription_code", code),
				zap.Error(err))
			result.Failed = append(result.Failed, RefreshFailure{
				UserID:           row.UserID,
				SubscriptionCode: code,
				Error:            err.Error(),
				err:              err,
			})
			continue
		}
		result.Refreshed++
	}

	s.logger.Info("Subscription refresh finished",
		zap.Int("selected", result.Selected),
		zap.Int("refreshed", result.Refreshed),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", len(result.Failed)))
	return result, nil
}

// RefreshUser refreshes the user's row, creating it if absent, and returns
// the row afterwards.
func (s *ReconciliationService) RefreshUser(ctx context.Context, userID uuid.UUID) (*model.UserSubscription, *RefreshResult, error) {
	if _, err := s.ledger.GetOrCreate(ctx, userID); err != nil {
		return nil, nil, err
	}

	result, err := s.Refresh(ctx, repository.SubscriptionFilter{UserIDs: []uuid.UUID{userID}})
	if err != nil {
		return nil, nil, err
	}
	if !result.AllSucceeded() {
		return nil, result, result.Failed[0].Err()
	}

	sub, err := s.ledger.Get(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	return sub, result, nil
}

func (s *ReconciliationService) refreshRow(ctx context.Context, row *model.UserSubscription) (err error) {
	defer func() { recordOutcome(TriggerRefresh, err) }()

	remote, err := s.gateway.GetSubscription(ctx, row.Code())
	if err != nil {
		return err
	}
	_, err = s.applyRemote(ctx, row.Code(), subscriptionUpdate(remote, row.UserID))
	return err
}
