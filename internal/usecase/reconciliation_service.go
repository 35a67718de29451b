package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	billingerrors "github.com/codeabuu/simplifydocs/internal/domain/errors"
	"github.com/codeabuu/simplifydocs/internal/domain/model"
	"github.com/codeabuu/simplifydocs/internal/domain/provider"
	"github.com/codeabuu/simplifydocs/internal/domain/repository"
	"github.com/codeabuu/simplifydocs/internal/infrastructure/metrics"
)

// Reconciliation triggers, used in logs and metrics.
const (
	TriggerCheckout = "checkout"
	TriggerWebhook  = "webhook"
	TriggerRefresh  = "refresh"
	TriggerCancel   = "cancel"
	TriggerSweep    = "sweep"
)

const (
	defaultCancellationMaxAttempts = 5

	// pendingCancellationRetryAfter is how long a pending claim may be in
	// flight in its claimer before the sweep retries it.
	pendingCancellationRetryAfter = 10 * time.Minute

	// danglingGracePeriod leaves new provider subscriptions alone until their
	// subscription.create webhook has had time to land.
	danglingGracePeriod = 30 * time.Minute
)

// ReconciliationService applies verified provider state to the ledger. No
// field from an untrusted caller is written without a provider read first.
type ReconciliationService struct {
	gateway       provider.PaymentGateway
	ledger        *SubscriptionLedger
	plans         repository.PlanRepository
	users         repository.UserRepository
	webhookEvents repository.WebhookEventRepository
	cancellations repository.CancellationRepository
	maxAttempts   int
	now           func() time.Time
	logger        *zap.Logger
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(
	gateway provider.PaymentGateway,
	ledger *SubscriptionLedger,
	plans repository.PlanRepository,
	users repository.UserRepository,
	webhookEvents repository.WebhookEventRepository,
	cancellations repository.CancellationRepository,
	maxCancellationAttempts int,
	logger *zap.Logger,
) *ReconciliationService {
	if maxCancellationAttempts <= 0 {
		maxCancellationAttempts = defaultCancellationMaxAttempts
	}
	return &ReconciliationService{
		gateway:       gateway,
		ledger:        ledger,
		plans:         plans,
		users:         users,
		webhookEvents: webhookEvents,
		cancellations: cancellations,
		maxAttempts:   maxCancellationAttempts,
		now:           time.Now,
		logger:        logger,
	}
}

// subscriptionUpdate builds the ledger fields a verified provider
// subscription overwrites. The user-cancelled flag is left to the caller.
func subscriptionUpdate(remote *provider.Subscription, userID uuid.UUID) model.SubscriptionUpdate {
	status := remote.LedgerStatus
	if status == "" {
		status = model.SubscriptionStatusIncomplete
	}
	cancelAtPeriodEnd := remote.CancelAtPeriodEnd
	active := status != model.SubscriptionStatusCanceled && status != model.SubscriptionStatusIncompleteExpired

	return model.SubscriptionUpdate{
		UserID:             &userID,
		PlanCode:           model.StringPtr(remote.PlanCode),
		CustomerCode:       model.StringPtr(remote.Customer.Code),
		EmailToken:         model.StringPtr(remote.EmailToken),
		Status:             &status,
		CurrentPeriodStart: remote.CreatedAt,
		CurrentPeriodEnd:   remote.NextPaymentDate,
		CancelAtPeriodEnd:  &cancelAtPeriodEnd,
		Active:             &active,
		ProviderData:       model.JSONB(remote.Raw),
	}
}

// applyRemote upserts provider state for code. An unknown plan code keeps
// the row's current plan link instead of failing the write.
func (s *ReconciliationService) applyRemote(ctx context.Context, code string, update model.SubscriptionUpdate) (*repository.UpsertResult, error) {
	result, err := s.ledger.UpsertBySubscriptionCode(ctx, code, update)
	if err != nil && billingerrors.IsNotFound(err) && update.PlanCode != nil {
		s.logger.Warn("Provider plan code is not in the catalog, keeping current plan",
			zap.String("subscription_code", code),
			zap.String("plan_code", *update.PlanCode))
		result, err = s.ledger.UpsertBySubscriptionCode(ctx, code, update.WithoutPlan())
	}
	return result, err
}

// resolveSubscriber finds the local user a verified provider subscription
// belongs to: by the row holding its code, by customer code, then by the
// customer's email. Users are never created here.
func (s *ReconciliationService) resolveSubscriber(ctx context.Context, remote *provider.Subscription) (uuid.UUID, bool, error) {
	row, err := s.ledger.GetBySubscriptionCode(ctx, remote.Code)
	if err != nil {
		return uuid.Nil, false, err
	}
	if row != nil {
		return row.UserID, true, nil
	}

	if remote.Customer.Code != "" {
		row, err = s.ledger.GetByCustomerCode(ctx, remote.Customer.Code)
		if err != nil {
			return uuid.Nil, false, err
		}
		if row != nil {
			return row.UserID, true, nil
		}
	}

	if remote.Customer.Email != "" {
		user, err := s.users.GetByEmail(ctx, remote.Customer.Email)
		if err != nil {
			return uuid.Nil, false, billingerrors.Internal("failed to load user", err)
		}
		if user != nil {
			return user.ID, true, nil
		}
	}

	return uuid.Nil, false, nil
}

// cancelSuperseded cancels upstream the code a write replaced. Only the
// caller that claims the code calls the provider, so a replayed event never
// cancels twice. Failures are logged and left for the dangling sweep.
func (s *ReconciliationService) cancelSuperseded(ctx context.Context, result *repository.UpsertResult) {
	old := result.SupersededCode()
	if old == "" {
		return
	}
	s.claimAndCancel(ctx, &model.SubscriptionCancellation{
		SubscriptionCode: old,
		UserID:           result.Subscription.UserID,
		EmailToken:       result.Previous.EmailToken,
		Reason:           "superseded by " + result.Subscription.Code(),
		Status:           model.CancellationPending,
	})
}

// cancelOutcome is the result of claiming and executing a cancellation.
type cancelOutcome int

const (
	cancelDone cancelOutcome = iota
	cancelClaimedElsewhere
	cancelFailed
)

func (s *ReconciliationService) claimAndCancel(ctx context.Context, cancellation *model.SubscriptionCancellation) cancelOutcome {
	logger := s.logger.With(
		zap.String("subscription_code", cancellation.SubscriptionCode),
		zap.String("user_id", cancellation.UserID.String()))

	claimed, err := s.cancellations.Claim(ctx, cancellation)
	if err != nil {
		logger.Error("Failed to claim subscription cancellation", zap.Error(err))
		return cancelFailed
	}
	if !claimed {
		logger.Debug("Subscription cancellation already claimed")
		return cancelClaimedElsewhere
	}
	if err := s.executeCancellation(ctx, cancellation); err != nil {
		return cancelFailed
	}
	return cancelDone
}

func (s *ReconciliationService) executeCancellation(ctx context.Context, cancellation *model.SubscriptionCancellation) error {
	logger := s.logger.With(
		zap.String("subscription_code", cancellation.SubscriptionCode),
		zap.String("reason", cancellation.Reason))

	req := &provider.CancelSubscriptionRequest{Code: cancellation.SubscriptionCode}
	if cancellation.EmailToken != nil {
		req.EmailToken = *cancellation.EmailToken
	}

	if err := s.gateway.CancelSubscription(ctx, req); err != nil {
		logger.Warn("Failed to cancel subscription upstream", zap.Error(err))
		if markErr := s.cancellations.MarkFailed(ctx, cancellation.SubscriptionCode, err.Error()); markErr != nil {
			logger.Error("Failed to mark cancellation failed", zap.Error(markErr))
		}
		return err
	}

	if err := s.cancellations.MarkDone(ctx, cancellation.SubscriptionCode); err != nil {
		logger.Error("Failed to mark cancellation done", zap.Error(err))
	}
	logger.Info("Subscription cancelled upstream")
	return nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "success"
	case billingerrors.IsProviderUnavailable(err):
		return "unavailable"
	case billingerrors.IsVerificationFailed(err):
		return "verification_failed"
	case billingerrors.IsNotFound(err):
		return "not_found"
	case billingerrors.IsMalformedInput(err):
		return "malformed"
	default:
		return "error"
	}
}

func recordOutcome(trigger string, err error) {
	metrics.RecordReconciliation(trigger, outcomeOf(err))
}
