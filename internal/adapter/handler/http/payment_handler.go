package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/codeabuu/simplifydocs/internal/domain/entity"
	"github.com/codeabuu/simplifydocs/internal/domain/provider"
)

// PaymentHistory reads a user's payments.
type PaymentHistory interface {
	GetUserPayments(ctx context.Context, userID uuid.UUID, params entity.PaginationParams) (*entity.PaginatedPaymentsResponse, error)
	GetProviderTransactions(ctx context.Context, userID uuid.UUID) ([]*provider.Transaction, error)
}

type PaymentHandler struct {
	history PaymentHistory
	logger  *zap.Logger
}

func NewPaymentHandler(history PaymentHistory, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		history: history,
		logger:  logger,
	}
}

// GetUserPayments handles GET /api/v1/payments?page=&limit=
func (h *PaymentHandler) GetUserPayments(c echo.Context) error {
	user, ok, writeErr := currentUser(c)
	if !ok {
		return writeErr
	}

	var params entity.PaginationParams
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &params); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "Invalid pagination parameters",
		})
	}

	page, err := h.history.GetUserPayments(c.Request().Context(), user.ID, params)
	if err != nil {
		return respondError(c, h.logger, "Failed to get payments", err)
	}

	h.logger.Debug("Retrieved user payments",
		zap.String("user_id", user.ID.String()),
		zap.Int("payment_count", len(page.Data)))

	return c.JSON(http.StatusOK, page)
}

// GetTransactions handles GET /api/v1/subscriptions/transactions
func (h *PaymentHandler) GetTransactions(c echo.Context) error {
	user, ok, writeErr := currentUser(c)
	if !ok {
		return writeErr
	}

	txs, err := h.history.GetProviderTransactions(c.Request().Context(), user.ID)
	if err != nil {
		return respondError(c, h.logger, "Failed to get transactions", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"transactions": entity.NewProviderTransactions(txs),
	})
}
