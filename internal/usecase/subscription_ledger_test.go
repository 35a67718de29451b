package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	billingerrors "github.com/codeabuu/simplifydocs/internal/domain/errors"
	"github.com/codeabuu/simplifydocs/internal/domain/model"
	"github.com/codeabuu/simplifydocs/internal/domain/provider"
	"github.com/codeabuu/simplifydocs/internal/usecase"
)

type harness struct {
	store     *memoryStore
	gateway   *MockGateway
	publisher *recordingPublisher
	ledger    *usecase.SubscriptionLedger
	recon     *usecase.ReconciliationService
}

func newHarness(allowCustomGroups bool) *harness {
	logger := zap.NewNop()
	store := newMemoryStore()
	gateway := new(MockGateway)
	publisher := &recordingPublisher{}

	projector := usecase.NewEntitlementProjector(store.Groups(), allowCustomGroups, logger)
	ledger := usecase.NewSubscriptionLedger(store.Subscriptions(), store.Plans(), projector, publisher, logger)
	h := &harness{
		store:     store,
		gateway:   gateway,
		publisher: publisher,
		ledger:    ledger,
	}
	h.recon = h.reconcilerWith(gateway)
	return h
}

// reconcilerWith builds a reconciliation service over the harness store that
// talks to gateway instead of the mock.
func (h *harness) reconcilerWith(gateway provider.PaymentGateway) *usecase.ReconciliationService {
	return usecase.NewReconciliationService(
		gateway,
		h.ledger,
		h.store.Plans(),
		h.store.Users(),
		h.store.WebhookEvents(),
		h.store.Cancellations(),
		3,
		zap.NewNop(),
	)
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func TestSubscriptionLedger_GetOrCreate(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the same row on repeated calls", func(t *testing.T) {
		h := newHarness(true)
		userID := uuid.New()

		first, err := h.ledger.GetOrCreate(ctx, userID)
		require.NoError(t, err)
		second, err := h.ledger.GetOrCreate(ctx, userID)
		require.NoError(t, err)

		assert.Equal(t, first.ID, second.ID)
		assert.Nil(t, first.PlanID)
		assert.Equal(t, model.SubscriptionStatus(""), first.Status)
		assert.False(t, first.HasActiveSubscription())
		assert.Equal(t, 1, h.publisher.count())
	})
}

func TestSubscriptionLedger_UpsertBySubscriptionCode(t *testing.T) {
	ctx := context.Background()

	t.Run("original period start is set once", func(t *testing.T) {
		h := newHarness(true)
		plan := h.store.addPlan("Basic", "PLN_basic", model.IntervalMonthly)
		userID := uuid.New()
		first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

		result, err := h.ledger.UpsertBySubscriptionCode(ctx, "SUB_1", model.SubscriptionUpdate{
			UserID:             &userID,
			PlanCode:           model.StringPtr("PLN_basic"),
			Status:             model.StatusPtr(model.SubscriptionStatusActive),
			CurrentPeriodStart: timePtr(first),
		})
		require.NoError(t, err)
		assert.True(t, result.Created)
		require.NotNil(t, result.Subscription.PlanID)
		assert.Equal(t, plan.ID, *result.Subscription.PlanID)

		for i := 1; i <= 3; i++ {
			_, err := h.ledger.UpsertBySubscriptionCode(ctx, "SUB_1", model.SubscriptionUpdate{
				UserID:             &userID,
				CurrentPeriodStart: timePtr(first.AddDate(0, i, 0)),
			})
			require.NoError(t, err)
		}

		row := h.store.row(userID)
		require.NotNil(t, row.OriginalPeriodStart)
		assert.True(t, first.Equal(*row.OriginalPeriodStart))
		assert.True(t, first.AddDate(0, 3, 0).Equal(*row.CurrentPeriodStart))
	})

	t.Run("unknown plan code writes nothing", func(t *testing.T) {
		h := newHarness(true)
		userID := uuid.New()

		_, err := h.ledger.UpsertBySubscriptionCode(ctx, "SUB_1", model.SubscriptionUpdate{
			UserID:   &userID,
			PlanCode: model.StringPtr("PLN_missing"),
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, billingerrors.ErrPlanNotFound))
		assert.True(t, billingerrors.IsNotFound(err))
		assert.Nil(t, h.store.row(userID))
		assert.Equal(t, 0, h.publisher.count())
	})

	t.Run("empty code is rejected", func(t *testing.T) {
		h := newHarness(true)
		_, err := h.ledger.UpsertBySubscriptionCode(ctx, "", model.SubscriptionUpdate{})
		assert.True(t, billingerrors.IsMalformedInput(err))
	})

	t.Run("projection failure does not fail the write", func(t *testing.T) {
		h := newHarness(true)
		h.store.addPlan("Basic", "PLN_basic", model.IntervalMonthly, "basic")
		h.store.groupErr = errors.New("groups unavailable")
		userID := uuid.New()

		result, err := h.ledger.UpsertBySubscriptionCode(ctx, "SUB_1", model.SubscriptionUpdate{
			UserID:   &userID,
			PlanCode: model.StringPtr("PLN_basic"),
			Status:   model.StatusPtr(model.SubscriptionStatusActive),
		})
		require.NoError(t, err)
		assert.True(t, result.Subscription.HasActiveSubscription())
		assert.Empty(t, h.store.groupNames(userID))
	})
}

func TestSubscriptionLedger_Entitlement(t *testing.T) {
	statuses := map[model.SubscriptionStatus]bool{
		model.SubscriptionStatusActive:            true,
		model.SubscriptionStatusTrialing:          true,
		model.SubscriptionStatusIncomplete:        false,
		model.SubscriptionStatusIncompleteExpired: false,
		model.SubscriptionStatusPastDue:           false,
		model.SubscriptionStatusCanceled:          false,
		model.SubscriptionStatusUnpaid:            false,
		model.SubscriptionStatusPaused:            false,
	}
	for status, want := range statuses {
		sub := &model.UserSubscription{Status: status}
		assert.Equal(t, want, sub.HasActiveSubscription(), status)

		sub.UserCancelled = true
		assert.False(t, sub.HasActiveSubscription(), status)
	}
}
