package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/codeabuu/simplifydocs/internal/domain/entity"
	billingerrors "github.com/codeabuu/simplifydocs/internal/domain/errors"
	"github.com/codeabuu/simplifydocs/internal/domain/model"
	"github.com/codeabuu/simplifydocs/internal/domain/provider"
	"github.com/codeabuu/simplifydocs/internal/usecase"
)

func TestPaymentUsecase_GetUserPayments(t *testing.T) {
	ctx := context.Background()
	h := newHarness(true)
	h.store.addPlan("Basic", "PLN_basic", model.IntervalMonthly)
	user := h.store.addUser("ada@example.com")
	payments := usecase.NewPaymentUsecase(h.store.Payments(), h.ledger, h.gateway, zap.NewNop())

	for _, ref := range []string{"ref_1", "ref_2", "ref_3"} {
		h.gateway.On("VerifyTransaction", mock.Anything, ref).
			Return(successfulTransaction(ref, "PLN_basic", user.Email, time.Now()), nil).Once()
		_, err := h.recon.FinalizeCheckout(ctx, ref)
		require.NoError(t, err)
	}

	page, err := payments.GetUserPayments(ctx, user.ID, entity.PaginationParams{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Data, 2)
	assert.Equal(t, "ref_3", page.Data[0].Reference)
	assert.Equal(t, "5000.00", page.Data[0].Amount)
	assert.Equal(t, int64(3), page.Pagination.Total)
	assert.Equal(t, 2, page.Pagination.TotalPages)

	other, err := payments.GetUserPayments(ctx, uuid.New(), entity.PaginationParams{})
	require.NoError(t, err)
	assert.Empty(t, other.Data)
}

func TestPaymentUsecase_GetProviderTransactions(t *testing.T) {
	ctx := context.Background()

	t.Run("no customer code means no provider call", func(t *testing.T) {
		h := newHarness(true)
		payments := usecase.NewPaymentUsecase(h.store.Payments(), h.ledger, h.gateway, zap.NewNop())

		txs, err := payments.GetProviderTransactions(ctx, uuid.New())
		require.NoError(t, err)
		assert.Empty(t, txs)
		h.gateway.AssertNotCalled(t, "ListCustomerTransactions", mock.Anything, mock.Anything)
	})

	t.Run("lists by customer code", func(t *testing.T) {
		h := newHarness(true)
		payments := usecase.NewPaymentUsecase(h.store.Payments(), h.ledger, h.gateway, zap.NewNop())
		userID := uuid.New()
		_, err := h.ledger.UpdateForUser(ctx, userID, model.SubscriptionUpdate{
			CustomerCode: model.StringPtr("CUS_1"),
		})
		require.NoError(t, err)

		h.gateway.On("ListCustomerTransactions", mock.Anything, "CUS_1").
			Return([]*provider.Transaction{{Reference: "ref_1", Status: "success"}}, nil)
		txs, err := payments.GetProviderTransactions(ctx, userID)
		require.NoError(t, err)
		require.Len(t, txs, 1)
		assert.Equal(t, "ref_1", txs[0].Reference)
	})

	t.Run("provider outage is surfaced", func(t *testing.T) {
		h := newHarness(true)
		payments := usecase.NewPaymentUsecase(h.store.Payments(), h.ledger, h.gateway, zap.NewNop())
		userID := uuid.New()
		_, err := h.ledger.UpdateForUser(ctx, userID, model.SubscriptionUpdate{
			CustomerCode: model.StringPtr("CUS_1"),
		})
		require.NoError(t, err)

		h.gateway.On("ListCustomerTransactions", mock.Anything, "CUS_1").
			Return(nil, billingerrors.ProviderUnavailable("timeout", nil))
		_, err = payments.GetProviderTransactions(ctx, userID)
		assert.True(t, billingerrors.IsProviderUnavailable(err))
	})
}
