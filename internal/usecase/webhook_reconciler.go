package usecase

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	billingerrors "github.com/codeabuu/simplifydocs/internal/domain/errors"
	"github.com/codeabuu/simplifydocs/internal/domain/model"
	"github.com/codeabuu/simplifydocs/internal/infrastructure/metrics"
)

// Webhook events that trigger reconciliation. Every other event is
// acknowledged and ignored.
const (
	EventSubscriptionCreate = "subscription.create"
	EventChargeSuccess      = "charge.success"
)

// WebhookPayload is the part of a provider delivery used to locate the
// object to verify. Nothing in it is written to the ledger directly.
type WebhookPayload struct {
	Event string      `json:"event"`
	Data  WebhookData `json:"data"`

	raw map[string]interface{}
}

// WebhookData identifies the subscription or transaction an event is about.
type WebhookData struct {
	SubscriptionCode string `json:"subscription_code"`
	Reference        string `json:"reference"`
	Subscription     *struct {
		SubscriptionCode string `json:"subscription_code"`
	} `json:"subscription,omitempty"`
}

// ParseWebhookPayload decodes a delivery body.
func ParseWebhookPayload(body []byte) (*WebhookPayload, error) {
	var payload WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, billingerrors.MalformedInput("invalid JSON payload")
	}
	payload.Event = strings.TrimSpace(payload.Event)
	if payload.Event == "" {
		return nil, billingerrors.MalformedInput("event is required")
	}
	_ = json.Unmarshal(body, &payload.raw)
	return &payload, nil
}

// SubscriptionCode returns the subscription code the event names, if any.
func (p *WebhookPayload) SubscriptionCode() string {
	if p.Data.SubscriptionCode != "" {
		return p.Data.SubscriptionCode
	}
	if p.Data.Subscription != nil {
		return p.Data.Subscription.SubscriptionCode
	}
	return ""
}

// HandleWebhook reconciles the object a delivery names. It returns the
// delivery outcome; an error means the provider should retry or the
// payload was malformed. Replays converge on the same ledger state.
func (s *ReconciliationService) HandleWebhook(ctx context.Context, payload *WebhookPayload) (model.WebhookStatus, error) {
	status, err := s.reconcileWebhook(ctx, payload)

	logger := s.logger.With(
		zap.String("event", payload.Event),
		zap.String("subscription_code", payload.SubscriptionCode()),
		zap.String("reference", payload.Data.Reference),
		zap.String("result", string(status)))
	if err != nil {
		logger.Error("Webhook reconciliation failed", zap.Error(err))
	} else {
		logger.Info("Webhook handled")
	}

	s.recordDelivery(ctx, payload, status, err)
	metrics.RecordWebhook(eventLabel(payload.Event), string(status))
	if status == model.WebhookStatusProcessed || status == model.WebhookStatusFailed {
		recordOutcome(TriggerWebhook, err)
	}
	return status, err
}

func (s *ReconciliationService) reconcileWebhook(ctx context.Context, payload *WebhookPayload) (model.WebhookStatus, error) {
	switch payload.Event {
	case EventSubscriptionCreate, EventChargeSuccess:
	default:
		return model.WebhookStatusIgnored, nil
	}

	code := payload.SubscriptionCode()
	if code == "" {
		if payload.Event == EventChargeSuccess && payload.Data.Reference != "" {
			return s.reconcileCharge(ctx, payload.Data.Reference)
		}
		return model.WebhookStatusRejected, billingerrors.MalformedInput("subscription_code is required")
	}

	remote, err := s.gateway.GetSubscription(ctx, code)
	if err != nil {
		if billingerrors.IsNotFound(err) || billingerrors.IsVerificationFailed(err) {
			s.logger.Warn("Webhook names a subscription the provider does not confirm",
				zap.String("subscription_code", code),
				zap.Error(err))
			return model.WebhookStatusIgnored, nil
		}
		return model.WebhookStatusFailed, err
	}

	userID, found, err := s.resolveSubscriber(ctx, remote)
	if err != nil {
		return model.WebhookStatusFailed, err
	}
	if !found {
		s.logger.Warn("No local user for provider subscription",
			zap.String("subscription_code", remote.Code),
			zap.String("customer_code", remote.Customer.Code))
		return model.WebhookStatusIgnored, nil
	}

	update := subscriptionUpdate(remote, userID)
	if payload.Event == EventSubscriptionCreate {
		update.UserCancelled = model.BoolPtr(false)
	}

	result, err := s.applyRemote(ctx, remote.Code, update)
	if err != nil {
		return model.WebhookStatusFailed, err
	}
	s.cancelSuperseded(ctx, result)
	return model.WebhookStatusProcessed, nil
}

// reconcileCharge finalizes a charge that carries only a transaction
// reference, through the same verified path as the checkout redirect.
func (s *ReconciliationService) reconcileCharge(ctx context.Context, reference string) (model.WebhookStatus, error) {
	_, err := s.finalize(ctx, reference)
	switch {
	case err == nil:
		return model.WebhookStatusProcessed, nil
	case billingerrors.IsNotFound(err), billingerrors.IsVerificationFailed(err):
		s.logger.Warn("Charge could not be applied to the ledger",
			zap.String("reference", reference),
			zap.Error(err))
		return model.WebhookStatusIgnored, nil
	default:
		return model.WebhookStatusFailed, err
	}
}

// eventLabel bounds the metric label to the events this service knows.
func eventLabel(event string) string {
	switch event {
	case EventSubscriptionCreate, EventChargeSuccess:
		return event
	}
	return "other"
}

func (s *ReconciliationService) recordDelivery(ctx context.Context, payload *WebhookPayload, status model.WebhookStatus, cause error) {
	event := &model.WebhookEvent{
		Event:            payload.Event,
		SubscriptionCode: model.StringPtr(payload.SubscriptionCode()),
		Reference:        model.StringPtr(payload.Data.Reference),
		Status:           status,
		Payload:          model.JSONB(payload.raw),
	}
	if cause != nil {
		event.Error = model.StringPtr(cause.Error())
	}
	if err := s.webhookEvents.Record(ctx, event); err != nil {
		s.logger.Warn("Failed to record webhook delivery",
			zap.String("event", payload.Event),
			zap.Error(err))
	}
}
