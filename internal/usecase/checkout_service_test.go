package usecase_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	billingerrors "github.com/codeabuu/simplifydocs/internal/domain/errors"
	"github.com/codeabuu/simplifydocs/internal/domain/model"
	"github.com/codeabuu/simplifydocs/internal/domain/provider"
	"github.com/codeabuu/simplifydocs/internal/usecase"
)

func TestCheckoutService_Start(t *testing.T) {
	ctx := context.Background()

	setup := func() (*harness, *usecase.CheckoutService) {
		h := newHarness(true)
		service := usecase.NewCheckoutService(h.gateway, h.ledger, h.store.Plans(), "https://api.example.com/", zap.NewNop())
		return h, service
	}

	t.Run("creates the customer once and initializes the transaction", func(t *testing.T) {
		h, service := setup()
		plan := h.store.addPlan("Pro", "PLN_pro", model.IntervalMonthly)
		plan.Price = decimal.RequireFromString("49.50")
		user := h.store.addUser("ada@example.com")

		h.gateway.On("CreateCustomer", mock.Anything, &provider.CreateCustomerRequest{
			Email:     "ada@example.com",
			FirstName: "Test",
		}).Return("CUS_ada", nil).Once()
		h.gateway.On("InitializeTransaction", mock.Anything, mock.MatchedBy(func(req *provider.InitializeTransactionRequest) bool {
			return req.PlanCode == "PLN_pro" &&
				req.AmountMinor == 4950 &&
				req.CallbackURL == "https://api.example.com/api/v1/checkout/finalize" &&
				req.Metadata["user_id"] == user.ID.String()
		})).Return(&provider.InitializeTransactionResponse{
			AuthorizationURL: "https://checkout.paystack.com/abc",
			Reference:        "ref_1",
		}, nil)

		session, err := service.Start(ctx, user, plan.ID)
		require.NoError(t, err)
		assert.Equal(t, "https://checkout.paystack.com/abc", session.CheckoutURL)
		assert.Equal(t, "ref_1", session.Reference)

		row := h.store.row(user.ID)
		require.NotNil(t, row)
		require.NotNil(t, row.CustomerCode)
		assert.Equal(t, "CUS_ada", *row.CustomerCode)

		_, err = service.Start(ctx, user, plan.ID)
		require.NoError(t, err)
		h.gateway.AssertNumberOfCalls(t, "CreateCustomer", 1)
	})

	t.Run("unprovisioned plan is not purchasable", func(t *testing.T) {
		h, service := setup()
		plan := h.store.addPlan("Draft", "", model.IntervalMonthly)
		user := h.store.addUser("ada@example.com")

		_, err := service.Start(ctx, user, plan.ID)
		assert.ErrorIs(t, err, billingerrors.ErrPlanNotPurchasable)
		h.gateway.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything)
	})

	t.Run("unknown plan", func(t *testing.T) {
		h, service := setup()
		user := h.store.addUser("ada@example.com")

		_, err := service.Start(ctx, user, 404)
		assert.ErrorIs(t, err, billingerrors.ErrPlanNotFound)
	})

	t.Run("provider failure is surfaced", func(t *testing.T) {
		h, service := setup()
		plan := h.store.addPlan("Pro", "PLN_pro", model.IntervalMonthly)
		user := h.store.addUser("ada@example.com")
		h.gateway.On("CreateCustomer", mock.Anything, mock.Anything).
			Return("", billingerrors.ProviderUnavailable("timeout", nil))

		_, err := service.Start(ctx, user, plan.ID)
		assert.True(t, billingerrors.IsProviderUnavailable(err))
		h.gateway.AssertNotCalled(t, "InitializeTransaction", mock.Anything, mock.Anything)
	})
}
