package model

import (
	"time"

	"github.com/google/uuid"
)

// CancellationStatus tracks an upstream cancellation claim.
type CancellationStatus string

const (
	CancellationPending CancellationStatus = "pending"
	CancellationDone    CancellationStatus = "done"
	CancellationFailed  CancellationStatus = "failed"
)

// SubscriptionCancellation claims the upstream cancellation of a superseded
// subscription code. The unique code means only one caller ever owns it.
type SubscriptionCancellation struct {
	ID               int64              `gorm:"primaryKey;autoIncrement" json:"id"`
	SubscriptionCode string             `gorm:"not null;size:120;uniqueIndex" json:"subscription_code"`
	UserID           uuid.UUID          `gorm:"type:uuid;not null;index" json:"user_id"`
	EmailToken       *string            `gorm:"size:120" json:"-"`
	Reason           string             `gorm:"size:255" json:"reason"`
	Status           CancellationStatus `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Attempts         int                `gorm:"not null;default:0" json:"attempts"`
	LastError        *string            `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// TableName specifies the table name for GORM
func (SubscriptionCancellation) TableName() string {
	return "subscription_cancellations"
}
