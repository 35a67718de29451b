package http

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	billingerrors "github.com/codeabuu/simplifydocs/internal/domain/errors"
	"github.com/codeabuu/simplifydocs/internal/domain/model"
	"github.com/codeabuu/simplifydocs/internal/infrastructure/provider/paystack"
	"github.com/codeabuu/simplifydocs/internal/usecase"
)

// maxWebhookBody bounds the size of a webhook body read into memory.
const maxWebhookBody = 1 << 20

// WebhookReconciler applies provider webhook deliveries to the ledger.
type WebhookReconciler interface {
	HandleWebhook(ctx context.Context, payload *usecase.WebhookPayload) (model.WebhookStatus, error)
}

type WebhookHandler struct {
	logger        *zap.Logger
	reconciler    WebhookReconciler
	webhookSecret string
}

// NewWebhookHandler creates the Paystack webhook endpoint. An empty secret
// disables signature checks.
func NewWebhookHandler(logger *zap.Logger, reconciler WebhookReconciler, webhookSecret string) *WebhookHandler {
	return &WebhookHandler{
		logger:        logger,
		reconciler:    reconciler,
		webhookSecret: webhookSecret,
	}
}

// HandleWebhook handles POST /api/v1/webhooks/paystack. Failure details are
// logged and never returned to the provider.
func (h *WebhookHandler) HandleWebhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		h.logger.Error("Error reading request body", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Error reading request body"})
	}

	if h.webhookSecret != "" {
		sig := c.Request().Header.Get(paystack.SignatureHeader)
		if !paystack.VerifySignature(h.webhookSecret, body, sig) {
			h.logger.Warn("Webhook signature verification failed",
				zap.String("remote_ip", c.RealIP()))
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature"})
		}
	}

	payload, err := usecase.ParseWebhookPayload(body)
	if err != nil {
		h.logger.Warn("Malformed webhook payload", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": malformedReason(err)})
	}

	status, err := h.reconciler.HandleWebhook(c.Request().Context(), payload)
	switch {
	case err != nil && billingerrors.IsMalformedInput(err):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": malformedReason(err)})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	case status == model.WebhookStatusIgnored:
		return c.JSON(http.StatusOK, echo.Map{"status": "ignored"})
	}
	return c.JSON(http.StatusOK, echo.Map{"status": "success"})
}

// malformedReason is the message of a malformed-input error without its
// wrapped cause.
func malformedReason(err error) string {
	return apperrorMessage(err, "malformed payload")
}
