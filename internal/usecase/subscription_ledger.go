package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	billingerrors "github.com/codeabuu/simplifydocs/internal/domain/errors"
	"github.com/codeabuu/simplifydocs/internal/domain/model"
	"github.com/codeabuu/simplifydocs/internal/domain/repository"
	"github.com/codeabuu/simplifydocs/pkg/messaging"
)

// SubscriptionChannel is the pub/sub channel ledger changes are published on.
const SubscriptionChannel = "billing.subscription.updated"

// SubscriptionChangedEvent is published after every ledger write.
type SubscriptionChangedEvent struct {
	UserID                string                   `json:"user_id"`
	Status                model.SubscriptionStatus `json:"status"`
	PlanID                *int64                   `json:"plan_id,omitempty"`
	SubscriptionCode      string                   `json:"subscription_code,omitempty"`
	HasActiveSubscription bool                     `json:"has_active_subscription"`
	CurrentPeriodEnd      *time.Time               `json:"current_period_end,omitempty"`
	OccurredAt            time.Time                `json:"occurred_at"`
}

// SubscriptionLedger is the only writer of user subscription rows. Every
// write resolves plan codes against the catalog, projects entitlements and
// announces the change.
type SubscriptionLedger struct {
	subs      repository.SubscriptionRepository
	plans     repository.PlanRepository
	projector EntitlementSyncer
	notifier  messaging.Publisher
	logger    *zap.Logger
}

// NewSubscriptionLedger creates a new ledger
func NewSubscriptionLedger(
	subs repository.SubscriptionRepository,
	plans repository.PlanRepository,
	projector EntitlementSyncer,
	notifier messaging.Publisher,
	logger *zap.Logger,
) *SubscriptionLedger {
	if notifier == nil {
		notifier = messaging.NopPublisher{}
	}
	return &SubscriptionLedger{
		subs:      subs,
		plans:     plans,
		projector: projector,
		notifier:  notifier,
		logger:    logger,
	}
}

// Get returns the user's row or nil.
func (l *SubscriptionLedger) Get(ctx context.Context, userID uuid.UUID) (*model.UserSubscription, error) {
	sub, err := l.subs.GetByUserID(ctx, userID)
	if err != nil {
		return nil, billingerrors.Internal("failed to load subscription", err)
	}
	return sub, nil
}

// GetBySubscriptionCode returns the row holding code or nil.
func (l *SubscriptionLedger) GetBySubscriptionCode(ctx context.Context, code string) (*model.UserSubscription, error) {
	sub, err := l.subs.GetBySubscriptionCode(ctx, code)
	if err != nil {
		return nil, billingerrors.Internal("failed to load subscription", err)
	}
	return sub, nil
}

// GetByCustomerCode returns the row holding the customer code or nil.
func (l *SubscriptionLedger) GetByCustomerCode(ctx context.Context, customerCode string) (*model.UserSubscription, error) {
	sub, err := l.subs.GetByCustomerCode(ctx, customerCode)
	if err != nil {
		return nil, billingerrors.Internal("failed to load subscription", err)
	}
	return sub, nil
}

// GetOrCreate returns the user's row, creating an empty one on first use.
// Concurrent first calls for one user end up with the same row.
func (l *SubscriptionLedger) GetOrCreate(ctx context.Context, userID uuid.UUID) (*model.UserSubscription, error) {
	sub, created, err := l.subs.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, billingerrors.Internal("failed to create subscription", err)
	}
	if created {
		l.logger.Info("Subscription row created", zap.String("user_id", userID.String()))
		l.afterWrite(ctx, &repository.UpsertResult{Subscription: sub, Created: true})
	}
	return sub, nil
}

// List returns rows matching filter.
func (l *SubscriptionLedger) List(ctx context.Context, filter repository.SubscriptionFilter) ([]*model.UserSubscription, error) {
	subs, err := l.subs.List(ctx, filter)
	if err != nil {
		return nil, billingerrors.Internal("failed to list subscriptions", err)
	}
	return subs, nil
}

// CustomerCodes returns every customer code known to the ledger.
func (l *SubscriptionLedger) CustomerCodes(ctx context.Context) ([]string, error) {
	codes, err := l.subs.ListCustomerCodes(ctx)
	if err != nil {
		return nil, billingerrors.Internal("failed to list customer codes", err)
	}
	return codes, nil
}

// UpsertBySubscriptionCode writes update onto the row holding code, falling
// back to the row of update.UserID. It returns ErrPlanNotFound when
// update.PlanCode names no catalog plan; nothing is written in that case.
func (l *SubscriptionLedger) UpsertBySubscriptionCode(ctx context.Context, code string, update model.SubscriptionUpdate) (*repository.UpsertResult, error) {
	if code == "" {
		return nil, billingerrors.MalformedInput("subscription code is required")
	}
	if err := l.resolvePlan(ctx, &update); err != nil {
		return nil, err
	}

	result, err := l.subs.UpsertBySubscriptionCode(ctx, code, update)
	if err != nil {
		return nil, billingerrors.Internal("failed to upsert subscription", err)
	}

	l.logChange(result, zap.String("subscription_code", code))
	l.afterWrite(ctx, result)
	return result, nil
}

// UpdateForUser writes update onto the user's row, creating it if needed.
func (l *SubscriptionLedger) UpdateForUser(ctx context.Context, userID uuid.UUID, update model.SubscriptionUpdate) (*repository.UpsertResult, error) {
	if err := l.resolvePlan(ctx, &update); err != nil {
		return nil, err
	}

	result, err := l.subs.UpdateByUserID(ctx, userID, update)
	if err != nil {
		return nil, billingerrors.Internal("failed to update subscription", err)
	}

	l.logChange(result)
	l.afterWrite(ctx, result)
	return result, nil
}

// RecordPayment stores a verified payment and applies update in the same
// transaction. When the reference is already recorded, the current row is
// returned with recorded=false and nothing changes.
func (l *SubscriptionLedger) RecordPayment(ctx context.Context, payment *model.Payment, subscriptionCode string, update model.SubscriptionUpdate) (*repository.UpsertResult, bool, error) {
	if payment == nil || payment.Reference == "" {
		return nil, false, billingerrors.MalformedInput("payment reference is required")
	}
	if err := l.resolvePlan(ctx, &update); err != nil {
		return nil, false, err
	}
	if update.PlanID != nil && payment.PlanID == nil {
		payment.PlanID = update.PlanID
	}

	result, recorded, err := l.subs.RecordPayment(ctx, payment, subscriptionCode, update)
	if err != nil {
		return nil, false, billingerrors.Internal("failed to record payment", err)
	}
	if !recorded {
		l.logger.Debug("Payment already recorded",
			zap.String("reference", payment.Reference),
			zap.String("user_id", payment.UserID.String()))
		return result, false, nil
	}

	l.logChange(result, zap.String("reference", payment.Reference))
	l.afterWrite(ctx, result)
	return result, true, nil
}

// resolvePlan replaces update.PlanCode with the catalog plan id.
func (l *SubscriptionLedger) resolvePlan(ctx context.Context, update *model.SubscriptionUpdate) error {
	if update.PlanCode == nil {
		return nil
	}
	plan, err := l.plans.GetByProviderCode(ctx, *update.PlanCode)
	if err != nil {
		return billingerrors.Internal("failed to resolve plan", err)
	}
	if plan == nil {
		return fmt.Errorf("plan code %q: %w", *update.PlanCode, billingerrors.ErrPlanNotFound)
	}
	update.PlanID = &plan.ID
	update.PlanCode = nil
	return nil
}

func (l *SubscriptionLedger) afterWrite(ctx context.Context, result *repository.UpsertResult) {
	sub := result.Subscription
	if sub == nil {
		return
	}

	if l.projector != nil {
		l.projector.Sync(ctx, sub)
	}

	event := SubscriptionChangedEvent{
		UserID:                sub.UserID.String(),
		Status:                sub.Status,
		PlanID:                sub.PlanID,
		SubscriptionCode:      sub.Code(),
		HasActiveSubscription: sub.HasActiveSubscription(),
		CurrentPeriodEnd:      sub.CurrentPeriodEnd,
		OccurredAt:            time.Now().UTC(),
	}
	if err := l.notifier.Publish(ctx, SubscriptionChannel, event); err != nil {
		l.logger.Warn("Failed to publish subscription change",
			zap.String("user_id", event.UserID),
			zap.Error(err))
	}
}

func (l *SubscriptionLedger) logChange(result *repository.UpsertResult, fields ...zap.Field) {
	sub := result.Subscription
	if sub == nil {
		return
	}
	fields = append(fields,
		zap.String("user_id", sub.UserID.String()),
		zap.String("status", string(sub.Status)),
		zap.Bool("created", result.Created))
	if result.Previous != nil && result.Previous.Status != sub.Status {
		fields = append(fields, zap.String("previous_status", string(result.Previous.Status)))
	}
	l.logger.Info("Subscription updated", fields...)
}
