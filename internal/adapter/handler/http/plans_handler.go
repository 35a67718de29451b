package http

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/codeabuu/simplifydocs/internal/domain/entity"
	"github.com/codeabuu/simplifydocs/internal/domain/model"
)

// PlanLister lists the plans offered for sale.
type PlanLister interface {
	ListActive(ctx context.Context) ([]*model.SubscriptionPlan, error)
}

type PlansHandler struct {
	logger *zap.Logger
	plans  PlanLister
}

func NewPlansHandler(logger *zap.Logger, plans PlanLister) *PlansHandler {
	return &PlansHandler{logger: logger, plans: plans}
}

// GetPlans handles GET /api/v1/plans
func (h *PlansHandler) GetPlans(c echo.Context) error {
	plans, err := h.plans.ListActive(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, "Failed to list plans", err)
	}

	h.logger.Debug("Listed plans", zap.Int("count", len(plans)))

	return c.JSON(http.StatusOK, echo.Map{
		"plans": entity.NewPlans(plans),
		"count": len(plans),
	})
}
