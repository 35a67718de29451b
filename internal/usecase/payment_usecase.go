package usecase

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/codeabuu/simplifydocs/internal/domain/entity"
	billingerrors "github.com/codeabuu/simplifydocs/internal/domain/errors"
	"github.com/codeabuu/simplifydocs/internal/domain/provider"
	"github.com/codeabuu/simplifydocs/internal/domain/repository"
)

// PaymentUsecase reads a user's payment history from the local log and
// from the provider.
type PaymentUsecase struct {
	paymentRepo repository.PaymentRepository
	ledger      *SubscriptionLedger
	gateway     provider.PaymentGateway
	logger      *zap.Logger
}

func NewPaymentUsecase(
	paymentRepo repository.PaymentRepository,
	ledger *SubscriptionLedger,
	gateway provider.PaymentGateway,
	logger *zap.Logger,
) *PaymentUsecase {
	return &PaymentUsecase{
		paymentRepo: paymentRepo,
		ledger:      ledger,
		gateway:     gateway,
		logger:      logger,
	}
}

// GetUserPayments returns one page of the user's recorded payments, newest first.
func (u *PaymentUsecase) GetUserPayments(ctx context.Context, userID uuid.UUID, params entity.PaginationParams) (*entity.PaginatedPaymentsResponse, error) {
	params.Validate()

	payments, total, err := u.paymentRepo.ListByUserID(ctx, userID, params.Limit, params.CalculateOffset())
	if err != nil {
		return nil, billingerrors.Internal("failed to list payments", err)
	}

	data := make([]*entity.Payment, 0, len(payments))
	for _, p := range payments {
		data = append(data, entity.NewPayment(p))
	}
	return &entity.PaginatedPaymentsResponse{
		Data:       data,
		Pagination: entity.NewPaginationMeta(params.Page, params.Limit, total),
	}, nil
}

// GetProviderTransactions lists the provider's transactions for the user's
// customer. A user without a customer code has none.
func (u *PaymentUsecase) GetProviderTransactions(ctx context.Context, userID uuid.UUID) ([]*provider.Transaction, error) {
	sub, err := u.ledger.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if sub == nil || sub.CustomerCode == nil || *sub.CustomerCode == "" {
		return []*provider.Transaction{}, nil
	}

	txs, err := u.gateway.ListCustomerTransactions(ctx, *sub.CustomerCode)
	if err != nil {
		u.logger.Warn("Failed to list provider transactions",
			zap.String("user_id", userID.String()),
			zap.String("customer_code", *sub.CustomerCode),
			zap.Error(err))
		return nil, err
	}
	return txs, nil
}
