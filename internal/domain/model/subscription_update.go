package model

import (
	"time"

	"github.com/google/uuid"
)

// SubscriptionUpdate names the ledger fields a write overwrites. Nil fields
// are left untouched.
type SubscriptionUpdate struct {
	UserID *uuid.UUID

	// PlanCode is resolved to PlanID by the ledger before the write.
	PlanCode  *string
	PlanID    *int64
	ClearPlan bool

	CustomerCode         *string
	EmailToken           *string
	LastPaymentReference *string
	Status               *SubscriptionStatus
	CurrentPeriodStart   *time.Time
	CurrentPeriodEnd     *time.Time
	CancelAtPeriodEnd    *bool
	UserCancelled        *bool
	Active               *bool
	ProviderData         JSONB
}

// ApplyTo overwrites the named fields on s.
func (u SubscriptionUpdate) ApplyTo(s *UserSubscription) {
	if u.UserID != nil {
		s.UserID = *u.UserID
	}
	if u.ClearPlan {
		s.PlanID = nil
		s.Plan = nil
	}
	if u.PlanID != nil {
		if s.PlanID == nil || *s.PlanID != *u.PlanID {
			s.Plan = nil
		}
		s.PlanID = cloneInt64(u.PlanID)
	}
	if u.CustomerCode != nil {
		s.CustomerCode = cloneString(u.CustomerCode)
	}
	if u.EmailToken != nil {
		s.EmailToken = cloneString(u.EmailToken)
	}
	if u.LastPaymentReference != nil {
		s.LastPaymentReference = cloneString(u.LastPaymentReference)
	}
	if u.Status != nil {
		s.Status = *u.Status
	}
	if u.CurrentPeriodStart != nil {
		s.CurrentPeriodStart = cloneTime(u.CurrentPeriodStart)
	}
	if u.CurrentPeriodEnd != nil {
		s.CurrentPeriodEnd = cloneTime(u.CurrentPeriodEnd)
	}
	if u.CancelAtPeriodEnd != nil {
		s.CancelAtPeriodEnd = *u.CancelAtPeriodEnd
	}
	if u.UserCancelled != nil {
		s.UserCancelled = *u.UserCancelled
	}
	if u.Active != nil {
		s.Active = *u.Active
	}
	if u.ProviderData != nil {
		s.ProviderData = u.ProviderData
	}
	s.stampOriginalPeriodStart()
}

// WithoutPlan returns a copy of u that leaves the plan link untouched.
func (u SubscriptionUpdate) WithoutPlan() SubscriptionUpdate {
	u.PlanCode = nil
	u.PlanID = nil
	u.ClearPlan = false
	return u
}

// StringPtr returns a pointer to v, or nil when v is empty.
func StringPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

// BoolPtr returns a pointer to v.
func BoolPtr(v bool) *bool {
	return &v
}

// StatusPtr returns a pointer to v.
func StatusPtr(v SubscriptionStatus) *SubscriptionStatus {
	return &v
}
