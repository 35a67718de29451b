package entity

import (
	"time"

	"github.com/codeabuu/simplifydocs/internal/domain/model"
	"github.com/codeabuu/simplifydocs/internal/domain/provider"
)

// Payment is a recorded payment as returned by the API.
type Payment struct {
	Reference       string     `json:"reference"`
	PlanID          *int64     `json:"plan_id,omitempty"`
	Amount          string     `json:"amount"`
	Currency        string     `json:"currency"`
	Status          string     `json:"status"`
	GatewayResponse string     `json:"gateway_response,omitempty"`
	Channel         string     `json:"channel,omitempty"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// NewPayment converts a payment log row.
func NewPayment(p *model.Payment) *Payment {
	return &Payment{
		Reference:       p.Reference,
		PlanID:          p.PlanID,
		Amount:          p.Amount.StringFixed(2),
		Currency:        p.Currency,
		Status:          p.Status,
		GatewayResponse: p.GatewayResponse,
		Channel:         p.Channel,
		PaidAt:          p.PaidAt,
		CreatedAt:       p.CreatedAt,
	}
}

// ProviderTransaction is a transaction listed straight from the provider.
type ProviderTransaction struct {
	Reference       string     `json:"reference"`
	Status          string     `json:"status"`
	Amount          string     `json:"amount"`
	Currency        string     `json:"currency"`
	GatewayResponse string     `json:"gateway_response,omitempty"`
	Channel         string     `json:"channel,omitempty"`
	PlanCode        string     `json:"plan_code,omitempty"`
	PaidAt          *time.Time `json:"paid_at,omitempty"`
	CreatedAt       *time.Time `json:"created_at,omitempty"`
}

// NewProviderTransactions converts provider transactions, keeping order.
func NewProviderTransactions(txs []*provider.Transaction) []*ProviderTransaction {
	out := make([]*ProviderTransaction, 0, len(txs))
	for _, tx := range txs {
		out = append(out, &ProviderTransaction{
			Reference:       tx.Reference,
			Status:          tx.Status,
			Amount:          tx.Amount().StringFixed(2),
			Currency:        tx.Currency,
			GatewayResponse: tx.GatewayResponse,
			Channel:         tx.Channel,
			PlanCode:        tx.PlanCode,
			PaidAt:          tx.PaidAt,
			CreatedAt:       tx.CreatedAt,
		})
	}
	return out
}
