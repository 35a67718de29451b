package usecase

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	billingerrors "github.com/codeabuu/simplifydocs/internal/domain/errors"
	"github.com/codeabuu/simplifydocs/internal/domain/model"
	"github.com/codeabuu/simplifydocs/internal/domain/provider"
	"github.com/codeabuu/simplifydocs/internal/domain/repository"
)

// CheckoutSession is a hosted checkout the user is redirected to.
type CheckoutSession struct {
	CheckoutURL string `json:"checkout_url"`
	Reference   string `json:"reference"`
}

// CheckoutService starts hosted checkouts for catalog plans.
type CheckoutService struct {
	gateway     provider.PaymentGateway
	ledger      *SubscriptionLedger
	plans       repository.PlanRepository
	callbackURL string
	logger      *zap.Logger
}

// NewCheckoutService creates a checkout service. baseURL is the public URL
// the provider redirects back to after payment.
func NewCheckoutService(
	gateway provider.PaymentGateway,
	ledger *SubscriptionLedger,
	plans repository.PlanRepository,
	baseURL string,
	logger *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		gateway:     gateway,
		ledger:      ledger,
		plans:       plans,
		callbackURL: strings.TrimRight(baseURL, "/") + "/api/v1/checkout/finalize",
		logger:      logger,
	}
}

// Start creates a hosted checkout of planID for user. The provider
// customer is created on first use and stored on the user's ledger row.
func (s *CheckoutService) Start(ctx context.Context, user *model.User, planID int64) (*CheckoutSession, error) {
	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, billingerrors.Internal("failed to load plan", err)
	}
	if plan == nil {
		return nil, billingerrors.ErrPlanNotFound
	}
	if !plan.Purchasable() {
		return nil, billingerrors.ErrPlanNotPurchasable
	}

	sub, err := s.ledger.GetOrCreate(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	if sub.CustomerCode == nil || *sub.CustomerCode == "" {
		code, err := s.gateway.CreateCustomer(ctx, &provider.CreateCustomerRequest{
			Email:     user.Email,
			FirstName: user.FirstName,
		})
		if err != nil {
			return nil, err
		}
		if _, err := s.ledger.UpdateForUser(ctx, user.ID, model.SubscriptionUpdate{CustomerCode: &code}); err != nil {
			return nil, err
		}
		s.logger.Info("Provider customer created",
			zap.String("user_id", user.ID.String()),
			zap.String("customer_code", code))
	}

	resp, err := s.gateway.InitializeTransaction(ctx, &provider.InitializeTransactionRequest{
		Email:       user.Email,
		AmountMinor: plan.AmountMinor(),
		PlanCode:    plan.Code(),
		Currency:    plan.Currency,
		CallbackURL: s.callbackURL,
		Metadata: map[string]interface{}{
			"user_id": user.ID.String(),
			"plan_id": fmt.Sprintf("%d", plan.ID),
		},
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Checkout started",
		zap.String("user_id", user.ID.String()),
		zap.Int64("plan_id", plan.ID),
		zap.String("reference", resp.Reference))
	return &CheckoutSession{CheckoutURL: resp.AuthorizationURL, Reference: resp.Reference}, nil
}
