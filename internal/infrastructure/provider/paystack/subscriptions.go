package paystack

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	billingerrors "github.com/codeabuu/simplifydocs/internal/domain/errors"
	"github.com/codeabuu/simplifydocs/internal/domain/provider"
)

const (
	planPageSize = 100
	maxPlanPages = 10
)

// CreateCustomer registers a customer
// POST /customer
func (p *PaystackProvider) CreateCustomer(ctx context.Context, req *provider.CreateCustomerRequest) (string, error) {
	if req.Email == "" {
		return "", billingerrors.MalformedInput("customer email is required")
	}

	var out customerData
	if err := p.call(ctx, "create_customer", http.MethodPost, "/customer", req, &out); err != nil {
		return "", err
	}
	if out.CustomerCode == "" {
		return "", billingerrors.ProviderUnavailable("payment provider returned no customer code", nil)
	}
	return out.CustomerCode, nil
}

// CreatePlan registers a recurring plan
// POST /plan
func (p *PaystackProvider) CreatePlan(ctx context.Context, req *provider.CreatePlanRequest) (string, error) {
	if req.Name == "" || req.AmountMinor < 0 {
		return "", billingerrors.MalformedInput("plan name and a non-negative amount are required")
	}

	body := map[string]interface{}{
		"name":     req.Name,
		"amount":   req.AmountMinor,
		"interval": IntervalFor(req.Interval),
	}
	currency := req.Currency
	if currency == "" {
		currency = p.currency
	}
	if currency != "" {
		body["currency"] = currency
	}
	if req.Description != "" {
		body["description"] = req.Description
	}

	var out planData
	if err := p.call(ctx, "create_plan", http.MethodPost, "/plan", body, &out); err != nil {
		return "", err
	}
	if out.PlanCode == "" {
		return "", billingerrors.ProviderUnavailable("payment provider returned no plan code", nil)
	}

	p.logger.Info("Plan created at provider",
		zap.String("name", req.Name),
		zap.String("plan_code", out.PlanCode))
	return out.PlanCode, nil
}

// FindPlan looks for a plan created by an earlier attempt whose outcome was
// not recorded locally.
// GET /plan
func (p *PaystackProvider) FindPlan(ctx context.Context, req *provider.CreatePlanRequest) (string, error) {
	currency := req.Currency
	if currency == "" {
		currency = p.currency
	}
	interval := IntervalFor(req.Interval)

	for page := 1; page <= maxPlanPages; page++ {
		query := url.Values{}
		query.Set("perPage", strconv.Itoa(planPageSize))
		query.Set("page", strconv.Itoa(page))
		query.Set("interval", interval)
		query.Set("amount", strconv.FormatInt(req.AmountMinor, 10))

		var plans []planData
		if err := p.call(ctx, "list_plans", http.MethodGet, "/plan?"+query.Encode(), nil, &plans); err != nil {
			return "", err
		}
		for _, candidate := range plans {
			if candidate.Name == req.Name &&
				candidate.Interval == interval &&
				candidate.Amount == req.AmountMinor &&
				(currency == "" || strings.EqualFold(candidate.Currency, currency)) {
				return candidate.PlanCode, nil
			}
		}
		if len(plans) < planPageSize {
			break
		}
	}
	return "", nil
}

// GetSubscription fetches the verified state of a subscription
// GET /subscription/:code
func (p *PaystackProvider) GetSubscription(ctx context.Context, code string) (*provider.Subscription, error) {
	if code == "" {
		return nil, billingerrors.MalformedInput("subscription code is required")
	}

	var out rawObject[subscriptionData]
	if err := p.call(ctx, "get_subscription", http.MethodGet, "/subscription/"+url.PathEscape(code), nil, &out); err != nil {
		return nil, err
	}
	sub := out.Parsed.toSubscription(out.Raw)
	if sub.Code == "" {
		sub.Code = code
	}
	return sub, nil
}

// CancelSubscription disables renewal. Paystack always lets the current
// period run out, so AtPeriodEnd is informational.
// POST /subscription/disable
func (p *PaystackProvider) CancelSubscription(ctx context.Context, req *provider.CancelSubscriptionRequest) error {
	if req.Code == "" {
		return billingerrors.MalformedInput("subscription code is required")
	}

	token := req.EmailToken
	if token == "" {
		sub, err := p.GetSubscription(ctx, req.Code)
		if err != nil {
			return err
		}
		token = sub.EmailToken
	}

	body := map[string]string{"code": req.Code, "token": token}
	if err := p.call(ctx, "cancel_subscription", http.MethodPost, "/subscription/disable", body, nil); err != nil {
		return err
	}

	p.logger.Info("Subscription disabled at provider",
		zap.String("subscription_code", req.Code),
		zap.Bool("at_period_end", req.AtPeriodEnd))
	return nil
}

// ListCustomerSubscriptions lists a customer's subscriptions
// GET /customer/:code
func (p *PaystackProvider) ListCustomerSubscriptions(ctx context.Context, customerCode string, activeOnly bool) ([]*provider.Subscription, error) {
	customer, err := p.fetchCustomer(ctx, customerCode)
	if err != nil {
		return nil, err
	}

	subs := make([]*provider.Subscription, 0, len(customer.Subscriptions))
	for _, raw := range customer.Subscriptions {
		var item rawObject[subscriptionData]
		if err := json.Unmarshal(raw, &item); err != nil {
			p.logger.Warn("Skipping unreadable subscription",
				zap.String("customer_code", customerCode),
				zap.Error(err))
			continue
		}
		if activeOnly && !isLive(item.Parsed.Status) {
			continue
		}
		sub := item.Parsed.toSubscription(item.Raw)
		if sub.Customer.Code == "" {
			sub.Customer = customer.toCustomer()
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

func (p *PaystackProvider) fetchCustomer(ctx context.Context, customerCode string) (*customerData, error) {
	if customerCode == "" {
		return nil, billingerrors.MalformedInput("customer code is required")
	}
	var out customerData
	if err := p.call(ctx, "get_customer", http.MethodGet, "/customer/"+url.PathEscape(customerCode), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
