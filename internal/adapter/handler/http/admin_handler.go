package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/codeabuu/simplifydocs/internal/domain/entity"
	"github.com/codeabuu/simplifydocs/internal/domain/model"
	"github.com/codeabuu/simplifydocs/internal/domain/repository"
	"github.com/codeabuu/simplifydocs/internal/usecase"
)

// PlanAdmin creates and provisions catalog plans.
type PlanAdmin interface {
	Create(ctx context.Context, spec usecase.PlanSpec) (*model.SubscriptionPlan, error)
}

// PlanProvisioner provisions catalog plans at the provider.
type PlanProvisioner interface {
	Provision(ctx context.Context, planID int64) (*model.SubscriptionPlan, bool, error)
	ProvisionPending(ctx context.Context) (*usecase.ProvisionSummary, error)
}

// LedgerMaintainer runs bulk reconciliation passes.
type LedgerMaintainer interface {
	Refresh(ctx context.Context, filter repository.SubscriptionFilter) (*usecase.RefreshResult, error)
	ClearDangling(ctx context.Context) (*usecase.SweepResult, error)
}

// AdminHandler serves operator endpoints. Routes are mounted behind
// auth.RequireAdmin.
type AdminHandler struct {
	logger      *zap.Logger
	catalog     PlanAdmin
	provisioner PlanProvisioner
	maintainer  LedgerMaintainer
}

func NewAdminHandler(logger *zap.Logger, catalog PlanAdmin, provisioner PlanProvisioner, maintainer LedgerMaintainer) *AdminHandler {
	return &AdminHandler{
		logger:      logger,
		catalog:     catalog,
		provisioner: provisioner,
		maintainer:  maintainer,
	}
}

// CreatePlan handles POST /api/v1/admin/plans
func (h *AdminHandler) CreatePlan(c echo.Context) error {
	var spec usecase.PlanSpec
	if err := bindAndValidate(c, &spec); err != nil {
		return badRequest(c, err)
	}

	plan, err := h.catalog.Create(c.Request().Context(), spec)
	if err != nil {
		return respondError(c, h.logger, "Failed to create plan", err)
	}
	return c.JSON(http.StatusCreated, entity.NewPlan(plan))
}

// ProvisionPlan handles POST /api/v1/admin/plans/:id/provision
func (h *AdminHandler) ProvisionPlan(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid plan id"})
	}

	plan, provisioned, err := h.provisioner.Provision(c.Request().Context(), id)
	if err != nil {
		return respondError(c, h.logger, "Failed to provision plan", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"plan":        entity.NewPlan(plan),
		"provisioned": provisioned,
	})
}

// ProvisionPending handles POST /api/v1/admin/plans/provision
func (h *AdminHandler) ProvisionPending(c echo.Context) error {
	summary, err := h.provisioner.ProvisionPending(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, "Failed to provision plans", err)
	}
	return c.JSON(http.StatusOK, summary)
}

// RefreshRequest selects the ledger rows to refresh. Unset criteria do not
// filter.
type RefreshRequest struct {
	UserIDs    []uuid.UUID `json:"user_ids"`
	ActiveOnly bool        `json:"active_only"`
	DaysLeft   *int        `json:"days_left" validate:"omitempty,gte=0"`
	DaysAgo    *int        `json:"days_ago" validate:"omitempty,gte=0"`
	RangeStart *int        `json:"range_start" validate:"required_with=RangeEnd"`
	RangeEnd   *int        `json:"range_end" validate:"required_with=RangeStart"`
}

// checkRange rejects an inverted day range.
func (r RefreshRequest) checkRange() error {
	if r.RangeStart != nil && r.RangeEnd != nil && *r.RangeStart > *r.RangeEnd {
		return errors.New("range_start must not be after range_end")
	}
	return nil
}

// Filter converts the request into a ledger filter.
func (r RefreshRequest) Filter() repository.SubscriptionFilter {
	filter := repository.SubscriptionFilter{
		ActiveOnly: r.ActiveOnly,
		DaysLeft:   r.DaysLeft,
		DaysAgo:    r.DaysAgo,
	}
	if len(r.UserIDs) > 0 {
		filter.UserIDs = r.UserIDs
	}
	if r.RangeStart != nil && r.RangeEnd != nil {
		filter.Range = &repository.DayRange{Start: *r.RangeStart, End: *r.RangeEnd}
	}
	return filter
}

// RefreshSubscriptions handles POST /api/v1/admin/subscriptions/refresh
func (h *AdminHandler) RefreshSubscriptions(c echo.Context) error {
	var req RefreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err)
	}
	if err := req.checkRange(); err != nil {
		return badRequest(c, err)
	}

	result, err := h.maintainer.Refresh(c.Request().Context(), req.Filter())
	if err != nil {
		return respondError(c, h.logger, "Failed to refresh subscriptions", err)
	}

	h.logger.Info("Bulk refresh finished",
		zap.Int("selected", result.Selected),
		zap.Int("refreshed", result.Refreshed),
		zap.Int("failed", len(result.Failed)))

	return c.JSON(http.StatusOK, echo.Map{
		"all_succeeded": result.AllSucceeded(),
		"result":        result,
	})
}

// ClearDangling handles POST /api/v1/admin/subscriptions/clear-dangling
func (h *AdminHandler) ClearDangling(c echo.Context) error {
	result, err := h.maintainer.ClearDangling(c.Request().Context())
	if err != nil {
		return respondError(c, h.logger, "Failed to clear dangling subscriptions", err)
	}
	return c.JSON(http.StatusOK, result)
}
