package paystack

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/codeabuu/simplifydocs/internal/domain/provider"
)

type customerData struct {
	ID            int64             `json:"id"`
	CustomerCode  string            `json:"customer_code"`
	Email         string            `json:"email"`
	FirstName     string            `json:"first_name"`
	Subscriptions []json.RawMessage `json:"subscriptions"`
}

func (c customerData) toCustomer() provider.Customer {
	return provider.Customer{Code: c.CustomerCode, Email: c.Email, FirstName: c.FirstName}
}

type planData struct {
	PlanCode string `json:"plan_code"`
	Name     string `json:"name"`
	Interval string `json:"interval"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// planRef decodes a plan given either as a bare code or as an object.
type planRef struct {
	planData
}

func (p *planRef) UnmarshalJSON(b []byte) error {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	var code string
	if err := json.Unmarshal(b, &code); err == nil {
		p.PlanCode = code
		return nil
	}
	var obj planData
	if err := json.Unmarshal(b, &obj); err != nil {
		// Paystack sends {} for transactions without a plan.
		return nil
	}
	p.planData = obj
	return nil
}

// timestamp accepts RFC 3339 strings, null and empty strings.
type timestamp struct {
	time *time.Time
}

func (t *timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil || strings.TrimSpace(s) == "" {
		return nil
	}
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	utc := parsed.UTC()
	t.time = &utc
	return nil
}

type transactionData struct {
	Reference       string       `json:"reference"`
	Status          string       `json:"status"`
	Amount          int64        `json:"amount"`
	Currency        string       `json:"currency"`
	GatewayResponse string       `json:"gateway_response"`
	Channel         string       `json:"channel"`
	PaidAt          timestamp    `json:"paid_at"`
	PaidAtCamel     timestamp    `json:"paidAt"`
	CreatedAt       timestamp    `json:"created_at"`
	CreatedAtCamel  timestamp    `json:"createdAt"`
	Plan            planRef      `json:"plan"`
	PlanObject      planRef      `json:"plan_object"`
	Customer        customerData `json:"customer"`
	Subscription    *struct {
		SubscriptionCode string `json:"subscription_code"`
	} `json:"subscription,omitempty"`
}

func (d transactionData) toTransaction(raw map[string]interface{}) *provider.Transaction {
	tx := &provider.Transaction{
		Reference:       d.Reference,
		Status:          d.Status,
		AmountMinor:     d.Amount,
		Currency:        d.Currency,
		GatewayResponse: d.GatewayResponse,
		Channel:         d.Channel,
		PaidAt:          firstTime(d.PaidAt, d.PaidAtCamel),
		CreatedAt:       firstTime(d.CreatedAt, d.CreatedAtCamel),
		PlanCode:        d.Plan.PlanCode,
		Customer:        d.Customer.toCustomer(),
		Raw:             raw,
	}
	if tx.PlanCode == "" {
		tx.PlanCode = d.PlanObject.PlanCode
	}
	if d.Subscription != nil {
		tx.SubscriptionCode = d.Subscription.SubscriptionCode
	}
	return tx
}

type subscriptionData struct {
	SubscriptionCode string       `json:"subscription_code"`
	Status           string       `json:"status"`
	EmailToken       string       `json:"email_token"`
	Amount           int64        `json:"amount"`
	NextPaymentDate  timestamp    `json:"next_payment_date"`
	CreatedAt        timestamp    `json:"createdAt"`
	CreatedAtSnake   timestamp    `json:"created_at"`
	Plan             planRef      `json:"plan"`
	Customer         customerData `json:"customer"`
}

func (d subscriptionData) toSubscription(raw map[string]interface{}) *provider.Subscription {
	status, cancelAtPeriodEnd := MapStatus(d.Status)
	return &provider.Subscription{
		Code:              d.SubscriptionCode,
		Status:            d.Status,
		LedgerStatus:      status,
		CancelAtPeriodEnd: cancelAtPeriodEnd,
		PlanCode:          d.Plan.PlanCode,
		PlanInterval:      d.Plan.Interval,
		EmailToken:        d.EmailToken,
		Customer:          d.Customer.toCustomer(),
		AmountMinor:       d.Amount,
		CreatedAt:         firstTime(d.CreatedAt, d.CreatedAtSnake),
		NextPaymentDate:   d.NextPaymentDate.time,
		Raw:               raw,
	}
}

func firstTime(values ...timestamp) *time.Time {
	for _, v := range values {
		if v.time != nil {
			return v.time
		}
	}
	return nil
}

// rawObject keeps the undecoded payload so it can be stored as provider data.
type rawObject[T any] struct {
	Parsed T
	Raw    map[string]interface{}
}

func (r *rawObject[T]) UnmarshalJSON(b []byte) error {
	if err := json.Unmarshal(b, &r.Parsed); err != nil {
		return err
	}
	return json.Unmarshal(b, &r.Raw)
}
