package http

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	billingerrors "github.com/codeabuu/simplifydocs/internal/domain/errors"
	"github.com/codeabuu/simplifydocs/internal/domain/model"
	"github.com/codeabuu/simplifydocs/internal/usecase"
	apperrors "github.com/codeabuu/simplifydocs/pkg/errors"
)

// CheckoutStarter opens hosted checkout sessions.
type CheckoutStarter interface {
	Start(ctx context.Context, user *model.User, planID int64) (*usecase.CheckoutSession, error)
}

// CheckoutFinalizer applies a completed checkout to the ledger.
type CheckoutFinalizer interface {
	FinalizeCheckout(ctx context.Context, reference string) (*usecase.CheckoutResult, error)
}

type CheckoutHandler struct {
	logger      *zap.Logger
	starter     CheckoutStarter
	finalizer   CheckoutFinalizer
	frontendURL string
}

func NewCheckoutHandler(logger *zap.Logger, starter CheckoutStarter, finalizer CheckoutFinalizer, frontendURL string) *CheckoutHandler {
	return &CheckoutHandler{
		logger:      logger,
		starter:     starter,
		finalizer:   finalizer,
		frontendURL: strings.TrimRight(frontendURL, "/"),
	}
}

type CreateCheckoutRequest struct {
	PlanID int64 `json:"plan_id" validate:"required,gt=0"`
}

type CreateCheckoutResponse struct {
	CheckoutURL string `json:"checkout_url"`
	Reference   string `json:"reference"`
}

// CreateCheckout handles POST /api/v1/checkout
func (h *CheckoutHandler) CreateCheckout(c echo.Context) error {
	user, ok, writeErr := currentUser(c)
	if !ok {
		return writeErr
	}

	var req CreateCheckoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return badRequest(c, err)
	}

	h.logger.Info("Creating checkout",
		zap.String("user_id", user.ID.String()),
		zap.Int64("plan_id", req.PlanID))

	session, err := h.starter.Start(c.Request().Context(), user, req.PlanID)
	if err != nil {
		return respondError(c, h.logger, "Failed to create checkout", err)
	}

	return c.JSON(http.StatusOK, CreateCheckoutResponse{
		CheckoutURL: session.CheckoutURL,
		Reference:   session.Reference,
	})
}

// FinalizeCheckout handles GET /api/v1/checkout/finalize?reference=. The
// provider redirects the browser here after payment.
func (h *CheckoutHandler) FinalizeCheckout(c echo.Context) error {
	reference := strings.TrimSpace(c.QueryParam("reference"))
	if reference == "" {
		// Paystack also appends trxref; accept it as a fallback.
		reference = strings.TrimSpace(c.QueryParam("trxref"))
	}
	if reference == "" {
		return c.String(http.StatusBadRequest, "Missing payment reference")
	}

	result, err := h.finalizer.FinalizeCheckout(c.Request().Context(), reference)
	if err != nil {
		apperrors.LogError(h.logger, err, "Checkout finalize failed", zap.String("reference", reference))
		switch {
		case billingerrors.IsProviderUnavailable(err):
			return c.String(http.StatusServiceUnavailable, "Payment provider unavailable, please retry shortly")
		case apperrors.CodeOf(err) == apperrors.ErrInternal:
			return c.String(http.StatusBadRequest, "Error with this account, please contact us!")
		}
		return c.String(http.StatusBadRequest, apperrorMessage(err, "Payment verification failed"))
	}

	target := h.frontendURL + "/subscription-success?type=" + url.QueryEscape(result.CheckoutType())
	return c.Redirect(http.StatusFound, target)
}
