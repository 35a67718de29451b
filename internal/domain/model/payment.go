package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is a verified provider transaction recorded in the payment log.
// The reference is unique, so a transaction is recorded at most once.
type Payment struct {
	ID              int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Reference       string          `gorm:"not null;size:120;uniqueIndex" json:"reference"`
	UserID          uuid.UUID       `gorm:"type:uuid;not null;index" json:"user_id"`
	PlanID          *int64          `gorm:"index" json:"plan_id,omitempty"`
	PlanCode        *string         `gorm:"size:100" json:"plan_code,omitempty"`
	CustomerCode    *string         `gorm:"size:120" json:"customer_code,omitempty"`
	AmountMinor     int64           `gorm:"not null" json:"amount_minor"`
	Amount          decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"amount"`
	Currency        string          `gorm:"size:3" json:"currency"`
	Status          string          `gorm:"size:50;not null" json:"status"`
	GatewayResponse string          `gorm:"size:255" json:"gateway_response,omitempty"`
	Channel         string          `gorm:"size:50" json:"channel,omitempty"`
	PaidAt          *time.Time      `json:"paid_at,omitempty"`
	ProviderData    JSONB           `gorm:"type:jsonb" json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Payment) TableName() string {
	return "payments"
}
