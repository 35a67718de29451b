package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	billingerrors "github.com/codeabuu/simplifydocs/internal/domain/errors"
	"github.com/codeabuu/simplifydocs/internal/domain/model"
	"github.com/codeabuu/simplifydocs/internal/domain/provider"
)

// CheckoutResult is the ledger state after a finalized checkout.
type CheckoutResult struct {
	Subscription *model.UserSubscription
	Plan         *model.SubscriptionPlan
	// AlreadyRecorded is true when the reference was finalized before.
	AlreadyRecorded bool
}

// CheckoutType is "monthly" or "yearly", used in the success redirect.
func (r *CheckoutResult) CheckoutType() string {
	if r.Plan == nil {
		return model.IntervalMonthly.CheckoutType()
	}
	return r.Plan.Interval.CheckoutType()
}

// FinalizeCheckout verifies a transaction reference with the provider and
// records it on the payer's ledger row. A reference is applied at most once;
// repeated calls return the current row without extending the period again.
func (s *ReconciliationService) FinalizeCheckout(ctx context.Context, reference string) (*CheckoutResult, error) {
	result, err := s.finalize(ctx, reference)
	recordOutcome(TriggerCheckout, err)
	if err != nil {
		s.logger.Warn("Checkout finalize failed",
			zap.String("reference", reference),
			zap.Error(err))
	}
	return result, err
}

func (s *ReconciliationService) finalize(ctx context.Context, reference string) (*CheckoutResult, error) {
	if reference == "" {
		return nil, billingerrors.MalformedInput("reference is required")
	}

	tx, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		return nil, err
	}
	if !tx.Successful() {
		return nil, billingerrors.VerificationFailed(
			fmt.Sprintf("transaction %s was not successful: %s", reference, tx.Status), nil)
	}
	if tx.Reference == "" {
		tx.Reference = reference
	}
	if tx.PlanCode == "" {
		return nil, billingerrors.NotFound("transaction is not linked to a plan")
	}

	plan, err := s.plans.GetByProviderCode(ctx, tx.PlanCode)
	if err != nil {
		return nil, billingerrors.Internal("failed to resolve plan", err)
	}
	if plan == nil {
		return nil, fmt.Errorf("plan code %q: %w", tx.PlanCode, billingerrors.ErrPlanNotFound)
	}

	user, err := s.users.GetByEmail(ctx, tx.Customer.Email)
	if err != nil {
		return nil, billingerrors.Internal("failed to load user", err)
	}
	if user == nil {
		return nil, fmt.Errorf("customer %q: %w", tx.Customer.Email, billingerrors.ErrUserNotFound)
	}

	paidAt := time.Now().UTC()
	if tx.PaidAt != nil {
		paidAt = tx.PaidAt.UTC()
	}
	periodEnd := paidAt.AddDate(0, 0, plan.Interval.PeriodDays())

	update := model.SubscriptionUpdate{
		UserID:               &user.ID,
		PlanID:               &plan.ID,
		CustomerCode:         model.StringPtr(tx.Customer.Code),
		LastPaymentReference: &tx.Reference,
		Status:               model.StatusPtr(model.SubscriptionStatusActive),
		CurrentPeriodStart:   &paidAt,
		CurrentPeriodEnd:     &periodEnd,
		CancelAtPeriodEnd:    model.BoolPtr(false),
		UserCancelled:        model.BoolPtr(false),
		Active:               model.BoolPtr(true),
	}

	written, recorded, err := s.ledger.RecordPayment(ctx, paymentFromTransaction(tx, user.ID, plan), tx.SubscriptionCode, update)
	if err != nil {
		return nil, err
	}
	if recorded {
		s.cancelSuperseded(ctx, written)
		s.logger.Info("Checkout finalized",
			zap.String("reference", reference),
			zap.String("user_id", user.ID.String()),
			zap.Int64("plan_id", plan.ID),
			zap.Time("current_period_end", periodEnd))
	}

	return &CheckoutResult{
		Subscription:    written.Subscription,
		Plan:            plan,
		AlreadyRecorded: !recorded,
	}, nil
}

func paymentFromTransaction(tx *provider.Transaction, userID uuid.UUID, plan *model.SubscriptionPlan) *model.Payment {
	return &model.Payment{
		Reference:       tx.Reference,
		UserID:          userID,
		PlanID:          &plan.ID,
		PlanCode:        model.StringPtr(tx.PlanCode),
		CustomerCode:    model.StringPtr(tx.Customer.Code),
		AmountMinor:     tx.AmountMinor,
		Amount:          tx.Amount(),
		Currency:        tx.Currency,
		Status:          tx.Status,
		GatewayResponse: tx.GatewayResponse,
		Channel:         tx.Channel,
		PaidAt:          tx.PaidAt,
		ProviderData:    model.JSONB(tx.Raw),
	}
}
