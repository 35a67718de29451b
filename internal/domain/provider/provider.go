package provider

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/codeabuu/simplifydocs/internal/domain/model"
)

// PaymentGateway is the recurring-billing provider the ledger reconciles
// against. Every call is bounded by a timeout and returns errors classified
// as ProviderUnavailable, VerificationFailed or NotFound.
type PaymentGateway interface {
	// CreateCustomer registers a customer and returns its customer code.
	CreateCustomer(ctx context.Context, req *CreateCustomerRequest) (string, error)

	// CreatePlan registers a recurring plan and returns its plan code.
	CreatePlan(ctx context.Context, req *CreatePlanRequest) (string, error)

	// FindPlan returns the code of an existing plan with the same name,
	// interval, amount and currency, or "" when there is none.
	FindPlan(ctx context.Context, req *CreatePlanRequest) (string, error)

	// InitializeTransaction starts a hosted checkout for a plan.
	InitializeTransaction(ctx context.Context, req *InitializeTransactionRequest) (*InitializeTransactionResponse, error)

	// VerifyTransaction fetches the authoritative state of a transaction.
	VerifyTransaction(ctx context.Context, reference string) (*Transaction, error)

	// GetSubscription fetches the authoritative state of a subscription.
	GetSubscription(ctx context.Context, code string) (*Subscription, error)

	// CancelSubscription disables renewal of a subscription.
	CancelSubscription(ctx context.Context, req *CancelSubscriptionRequest) error

	// ListCustomerSubscriptions lists a customer's subscriptions.
	ListCustomerSubscriptions(ctx context.Context, customerCode string, activeOnly bool) ([]*Subscription, error)

	// ListCustomerTransactions lists a customer's transactions, newest first.
	ListCustomerTransactions(ctx context.Context, customerCode string) ([]*Transaction, error)

	// GetProviderName returns the provider name
	GetProviderName() string
}

// CreateCustomerRequest describes a customer to register.
type CreateCustomerRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
}

// CreatePlanRequest describes a recurring plan to register.
type CreatePlanRequest struct {
	Name        string                `json:"name"`
	AmountMinor int64                 `json:"amount"`
	Interval    model.BillingInterval `json:"interval"`
	Currency    string                `json:"currency,omitempty"`
	Description string                `json:"description,omitempty"`
}

// InitializeTransactionRequest starts checkout of a plan for a customer.
type InitializeTransactionRequest struct {
	Email       string                 `json:"email"`
	AmountMinor int64                  `json:"amount"`
	PlanCode    string                 `json:"plan"`
	Currency    string                 `json:"currency,omitempty"`
	CallbackURL string                 `json:"callback_url"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}

// InitializeTransactionResponse is the hosted checkout created by the provider.
type InitializeTransactionResponse struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

// Customer identifies the payer of a transaction or subscription.
type Customer struct {
	Code      string `json:"customer_code"`
	Email     string `json:"email"`
	FirstName string `json:"first_name,omitempty"`
}

// Transaction is the verified state of a provider transaction.
type Transaction struct {
	Reference        string                 `json:"reference"`
	Status           string                 `json:"status"`
	AmountMinor      int64                  `json:"amount"`
	Currency         string                 `json:"currency"`
	GatewayResponse  string                 `json:"gateway_response,omitempty"`
	Channel          string                 `json:"channel,omitempty"`
	PaidAt           *time.Time             `json:"paid_at,omitempty"`
	CreatedAt        *time.Time             `json:"created_at,omitempty"`
	PlanCode         string                 `json:"plan_code,omitempty"`
	SubscriptionCode string                 `json:"subscription_code,omitempty"`
	Customer         Customer               `json:"customer"`
	Raw              map[string]interface{} `json:"-"`
}

// Successful reports whether the provider settled the transaction.
func (t *Transaction) Successful() bool {
	return t.Status == "success"
}

// Amount is the transaction amount in major units.
func (t *Transaction) Amount() decimal.Decimal {
	return decimal.New(t.AmountMinor, -2)
}

// Subscription is the verified state of a provider subscription. Status is
// the provider's own vocabulary; LedgerStatus is its ledger equivalent.
type Subscription struct {
	Code              string                   `json:"subscription_code"`
	Status            string                   `json:"status"`
	LedgerStatus      model.SubscriptionStatus `json:"-"`
	CancelAtPeriodEnd bool                     `json:"-"`
	PlanCode          string                   `json:"plan_code"`
	PlanInterval      string                   `json:"plan_interval,omitempty"`
	EmailToken        string                   `json:"email_token,omitempty"`
	Customer          Customer                 `json:"customer"`
	AmountMinor       int64                    `json:"amount"`
	CreatedAt         *time.Time               `json:"created_at,omitempty"`
	NextPaymentDate   *time.Time               `json:"next_payment_date,omitempty"`
	Raw               map[string]interface{}   `json:"-"`
}

// CancelSubscriptionRequest identifies a subscription to disable. When the
// email token is empty the gateway looks it up first.
type CancelSubscriptionRequest struct {
	Code        string
	EmailToken  string
	AtPeriodEnd bool
}

// ProviderType represents the type of payment provider
type ProviderType string

const (
	ProviderTypePaystack ProviderType = "paystack"
)

// ProviderError carries the provider's own description of a failed call.
type ProviderError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
}

func (e *ProviderError) Error() string {
	if e.Details != "" {
		return e.Message + ": " + e.Details
	}
	return e.Message
}
