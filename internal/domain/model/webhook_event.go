package model

import (
	"database/sql/driver"
	"time"
)

// WebhookStatus is the outcome of handling one webhook delivery.
type WebhookStatus string

const (
	WebhookStatusProcessed WebhookStatus = "processed"
	WebhookStatusIgnored   WebhookStatus = "ignored"
	WebhookStatusRejected  WebhookStatus = "rejected"
	WebhookStatusFailed    WebhookStatus = "failed"
)

// Scan implements sql.Scanner interface
func (w *WebhookStatus) Scan(src interface{}) error {
	switch v := src.(type) {
	case string:
		*w = WebhookStatus(v)
	case []byte:
		*w = WebhookStatus(v)
	default:
		*w = WebhookStatusFailed
	}
	return nil
}

// Value implements driver.Valuer interface
func (w WebhookStatus) Value() (driver.Value, error) {
	return string(w), nil
}

// WebhookEvent is an audit record of a delivery. It is never used for
// deduplication; reconciliation is idempotent on its own.
type WebhookEvent struct {
	ID               int64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Event            string        `gorm:"not null;size:100;index" json:"event"`
	SubscriptionCode *string       `gorm:"size:120;index" json:"subscription_code,omitempty"`
	Reference        *string       `gorm:"size:120" json:"reference,omitempty"`
	Status           WebhookStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	Error            *string       `gorm:"type:text" json:"error,omitempty"`
	Payload          JSONB         `gorm:"type:jsonb" json:"payload,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
}

// TableName specifies the table name for GORM
func (WebhookEvent) TableName() string {
	return "webhook_events"
}
