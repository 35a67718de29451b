package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/codeabuu/simplifydocs/internal/domain/entity"
	"github.com/codeabuu/simplifydocs/internal/domain/model"
	"github.com/codeabuu/simplifydocs/internal/usecase"
)

// userCancelReason is recorded when a user cancels from the dashboard.
const userCancelReason = "cancelled by user"

// SubscriptionReader reads a user's ledger row.
type SubscriptionReader interface {
	Get(ctx context.Context, userID uuid.UUID) (*model.UserSubscription, error)
}

// SubscriptionManager refreshes and cancels a user's subscription.
type SubscriptionManager interface {
	RefreshUser(ctx context.Context, userID uuid.UUID) (*model.UserSubscription, *usecase.RefreshResult, error)
	Cancel(ctx context.Context, userID uuid.UUID, reason string) (*model.UserSubscription, error)
}

type SubscriptionHandler struct {
	logger  *zap.Logger
	reader  SubscriptionReader
	manager SubscriptionManager
}

func NewSubscriptionHandler(logger *zap.Logger, reader SubscriptionReader, manager SubscriptionManager) *SubscriptionHandler {
	return &SubscriptionHandler{
		logger:  logger,
		reader:  reader,
		manager: manager,
	}
}

// GetStatus handles GET /api/v1/subscriptions/status
func (h *SubscriptionHandler) GetStatus(c echo.Context) error {
	user, ok, writeErr := currentUser(c)
	if !ok {
		return writeErr
	}

	sub, err := h.reader.Get(c.Request().Context(), user.ID)
	if err != nil {
		return respondError(c, h.logger, "Failed to get subscription status", err)
	}
	return c.JSON(http.StatusOK, entity.NewSubscriptionStatus(sub))
}

// GetCurrentSubscription handles GET /api/v1/subscriptions/current. A user
// without a ledger row gets 204.
func (h *SubscriptionHandler) GetCurrentSubscription(c echo.Context) error {
	user, ok, writeErr := currentUser(c)
	if !ok {
		return writeErr
	}

	sub, err := h.reader.Get(c.Request().Context(), user.ID)
	if err != nil {
		return respondError(c, h.logger, "Failed to get subscription", err)
	}
	if sub == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, entity.NewSubscription(sub))
}

// RefreshSubscription handles POST /api/v1/subscriptions/refresh
func (h *SubscriptionHandler) RefreshSubscription(c echo.Context) error {
	user, ok, writeErr := currentUser(c)
	if !ok {
		return writeErr
	}

	h.logger.Info("Refreshing subscription", zap.String("user_id", user.ID.String()))

	sub, result, err := h.manager.RefreshUser(c.Request().Context(), user.ID)
	if err != nil {
		return respondError(c, h.logger, "Failed to refresh subscription", err)
	}

	summary := entity.RefreshSummary{}
	if result != nil {
		summary.Refreshed = result.Refreshed
		summary.Skipped = result.Skipped
		for _, f := range result.Failed {
			summary.Failed = append(summary.Failed, f.SubscriptionCode)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{
		"subscription": entity.NewSubscription(sub),
		"refresh":      summary,
	})
}

// CancelSubscription handles POST /api/v1/subscriptions/cancel
func (h *SubscriptionHandler) CancelSubscription(c echo.Context) error {
	user, ok, writeErr := currentUser(c)
	if !ok {
		return writeErr
	}

	h.logger.Info("Cancelling subscription", zap.String("user_id", user.ID.String()))

	sub, err := h.manager.Cancel(c.Request().Context(), user.ID, userCancelReason)
	if err != nil {
		return respondError(c, h.logger, "Failed to cancel subscription", err)
	}
	return c.JSON(http.StatusOK, entity.NewSubscription(sub))
}
