package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SubscriptionStatus is the provider-reported state of a user's subscription.
// The zero value means the provider has not reported a status yet.
type SubscriptionStatus string

const (
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
	SubscriptionStatusPaused            SubscriptionStatus = "paused"
)

// IsEntitling reports whether the status grants access on its own.
func (s SubscriptionStatus) IsEntitling() bool {
	return s == SubscriptionStatusActive || s == SubscriptionStatusTrialing
}

// IsValid reports whether s is one of the known statuses.
func (s SubscriptionStatus) IsValid() bool {
	switch s {
	case SubscriptionStatusActive, SubscriptionStatusTrialing, SubscriptionStatusIncomplete,
		SubscriptionStatusIncompleteExpired, SubscriptionStatusPastDue, SubscriptionStatusCanceled,
		SubscriptionStatusUnpaid, SubscriptionStatusPaused:
		return true
	}
	return false
}

// Scan implements sql.Scanner interface
func (s *SubscriptionStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*s = SubscriptionStatus(v)
	case []byte:
		*s = SubscriptionStatus(v)
	default:
		*s = ""
	}
	return nil
}

// Value implements driver.Valuer interface
func (s SubscriptionStatus) Value() (driver.Value, error) {
	if s == "" {
		return nil, nil
	}
	return string(s), nil
}

// UserSubscription is the local ledger row for one user. Every user has at
// most one row and a provider subscription code belongs to at most one row.
type UserSubscription struct {
	ID                   int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID               uuid.UUID          `gorm:"type:uuid;not null;uniqueIndex" json:"user_id"`
	PlanID               *int64             `gorm:"index" json:"plan_id,omitempty"`
	SubscriptionCode     *string            `gorm:"size:120;uniqueIndex" json:"subscription_code,omitempty"`
	CustomerCode         *string            `gorm:"size:120;index" json:"customer_code,omitempty"`
	EmailToken           *string            `gorm:"size:120" json:"-"`
	LastPaymentReference *string            `gorm:"size:120" json:"last_payment_reference,omitempty"`
	Status               SubscriptionStatus `gorm:"type:varchar(32)" json:"status,omitempty"`
	OriginalPeriodStart  *time.Time         `json:"original_period_start,omitempty"`
	CurrentPeriodStart   *time.Time         `json:"current_period_start,omitempty"`
	CurrentPeriodEnd     *time.Time         `gorm:"index" json:"current_period_end,omitempty"`
	CancelAtPeriodEnd    bool               `gorm:"not null;default:false" json:"cancel_at_period_end"`
	UserCancelled        bool               `gorm:"not null;default:false" json:"user_cancelled"`
	Active               bool               `gorm:"not null;default:true" json:"active"`
	ProviderData         JSONB              `gorm:"type:jsonb" json:"-"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`

	// Relations
	Plan *SubscriptionPlan `gorm:"foreignKey:PlanID" json:"plan,omitempty"`
}

// TableName specifies the table name for GORM
func (UserSubscription) TableName() string {
	return "user_subscriptions"
}

// IsActiveStatus reports whether the stored status is active or trialing.
func (s *UserSubscription) IsActiveStatus() bool {
	return s.Status.IsEntitling()
}

// HasActiveSubscription reports whether the user should be granted access.
// A user-initiated cancellation revokes access immediately even while the
// provider keeps the subscription running until period end.
func (s *UserSubscription) HasActiveSubscription() bool {
	return s.IsActiveStatus() && !s.UserCancelled
}

// PlanName returns the linked plan's name or nil.
func (s *UserSubscription) PlanName() *string {
	if s.Plan == nil {
		return nil
	}
	name := s.Plan.Name
	return &name
}

// Code returns the subscription code or "".
func (s *UserSubscription) Code() string {
	if s.SubscriptionCode == nil {
		return ""
	}
	return *s.SubscriptionCode
}

// BeforeSave keeps OriginalPeriodStart stamped once from the first period start.
func (s *UserSubscription) BeforeSave(*gorm.DB) error {
	s.stampOriginalPeriodStart()
	return nil
}

func (s *UserSubscription) stampOriginalPeriodStart() {
	if s.OriginalPeriodStart == nil && s.CurrentPeriodStart != nil {
		start := *s.CurrentPeriodStart
		s.OriginalPeriodStart = &start
	}
}

// Clone returns a copy that shares no pointers with s.
func (s *UserSubscription) Clone() *UserSubscription {
	if s == nil {
		return nil
	}
	c := *s
	c.PlanID = cloneInt64(s.PlanID)
	c.SubscriptionCode = cloneString(s.SubscriptionCode)
	c.CustomerCode = cloneString(s.CustomerCode)
	c.EmailToken = cloneString(s.EmailToken)
	c.LastPaymentReference = cloneString(s.LastPaymentReference)
	c.OriginalPeriodStart = cloneTime(s.OriginalPeriodStart)
	c.CurrentPeriodStart = cloneTime(s.CurrentPeriodStart)
	c.CurrentPeriodEnd = cloneTime(s.CurrentPeriodEnd)
	if s.ProviderData != nil {
		c.ProviderData = make(JSONB, len(s.ProviderData))
		for k, v := range s.ProviderData {
			c.ProviderData[k] = v
		}
	}
	if s.Plan != nil {
		plan := *s.Plan
		c.Plan = &plan
	}
	return &c
}

// JSONB represents a JSONB database type
type JSONB map[string]interface{}

// Value implements driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONB) Scan(src interface{}) error {
	if src == nil {
		*j = nil
		return nil
	}

	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		*j = make(JSONB)
		return nil
	}
}

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneInt64(p *int64) *int64 {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneTime(p *time.Time) *time.Time {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
