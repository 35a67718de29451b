package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// BillingInterval is how often a plan renews.
type BillingInterval string

const (
	IntervalMonthly BillingInterval = "month"
	IntervalYearly  BillingInterval = "year"
)

// PeriodDays is the length of one billing period in days. Unknown intervals
// fall back to a month.
func (i BillingInterval) PeriodDays() int {
	if i == IntervalYearly {
		return 365
	}
	return 30
}

// CheckoutType is the value used in the post-checkout redirect.
func (i BillingInterval) CheckoutType() string {
	if i == IntervalYearly {
		return "yearly"
	}
	return "monthly"
}

// ProvisioningState tracks creation of a plan at the payment provider.
type ProvisioningState string

const (
	ProvisioningUnprovisioned ProvisioningState = "unprovisioned"
	ProvisioningInProgress    ProvisioningState = "provisioning"
	ProvisioningProvisioned   ProvisioningState = "provisioned"
	ProvisioningFailed        ProvisioningState = "failed"
)

// SubscriptionPlan is a purchasable tier mirrored at the payment provider.
type SubscriptionPlan struct {
	ID                    int64             `gorm:"primaryKey;autoIncrement" json:"id"`
	Name                  string            `gorm:"not null;size:120;default:'Subscription';uniqueIndex:idx_plan_name_interval" json:"name"`
	Description           string            `gorm:"type:text" json:"description,omitempty"`
	ProviderPlanCode      *string           `gorm:"column:provider_plan_code;uniqueIndex;size:100" json:"provider_plan_code,omitempty"`
	Interval              BillingInterval   `gorm:"column:billing_interval;not null;size:20;default:'month';uniqueIndex:idx_plan_name_interval" json:"interval"`
	Price                 decimal.Decimal   `gorm:"type:decimal(12,2);not null;default:0" json:"price"`
	Currency              string            `gorm:"not null;size:3;default:'USD'" json:"currency"`
	Features              Features          `gorm:"type:jsonb" json:"features,omitempty"`
	DisplayOrder          int               `gorm:"not null;default:-1" json:"display_order"`
	Featured              bool              `gorm:"not null;default:true" json:"featured"`
	IsActive              bool              `gorm:"not null;default:true" json:"is_active"`
	ProvisioningState     ProvisioningState `gorm:"size:20;not null;default:'unprovisioned';index" json:"provisioning_state"`
	ProvisioningClaimedAt *time.Time        `json:"-"`
	ProvisioningError     *string           `gorm:"type:text" json:"provisioning_error,omitempty"`
	CreatedAt             time.Time         `json:"created_at"`
	UpdatedAt             time.Time         `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (SubscriptionPlan) TableName() string {
	return "subscription_plans"
}

// Code returns the provider plan code or "".
func (p *SubscriptionPlan) Code() string {
	if p.ProviderPlanCode == nil {
		return ""
	}
	return *p.ProviderPlanCode
}

// Purchasable reports whether checkout can be started for the plan.
func (p *SubscriptionPlan) Purchasable() bool {
	return p.IsActive && p.ProvisioningState == ProvisioningProvisioned && p.Code() != ""
}

// AmountMinor is the price in the currency's minor unit.
func (p *SubscriptionPlan) AmountMinor() int64 {
	return p.Price.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// Features represents plan features as JSONB
type Features map[string]interface{}

// Value implements driver.Valuer interface
func (f Features) Value() (driver.Value, error) {
	if f == nil {
		return "{}", nil
	}
	return json.Marshal(f)
}

// Scan implements sql.Scanner interface
func (f *Features) Scan(src interface{}) error {
	if src == nil {
		*f = make(Features)
		return nil
	}

	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, f)
	case string:
		return json.Unmarshal([]byte(v), f)
	default:
		*f = make(Features)
		return nil
	}
}
