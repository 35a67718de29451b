package entity

import (
	"time"

	"github.com/codeabuu/simplifydocs/internal/domain/model"
)

// ProfileDateLayout formats the period end on the profile.
const ProfileDateLayout = "2006-01-02"

// Subscription is the serialized ledger row returned to its owner.
type Subscription struct {
	PlanName           *string    `json:"plan_name"`
	Status             string     `json:"status"`
	CurrentPeriodStart *time.Time `json:"current_period_start"`
	CurrentPeriodEnd   *time.Time `json:"current_period_end"`
	CancelAtPeriodEnd  bool       `json:"cancel_at_period_end"`
}

// NewSubscription serializes a ledger row. A nil row yields nil.
func NewSubscription(sub *model.UserSubscription) *Subscription {
	if sub == nil {
		return nil
	}
	return &Subscription{
		PlanName:           sub.PlanName(),
		Status:             string(sub.Status),
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
	}
}

// SubscriptionStatus answers whether the caller is entitled right now.
type SubscriptionStatus struct {
	HasActiveSubscription bool          `json:"has_active_subscription"`
	SubscriptionData      *Subscription `json:"subscription_data"`
}

// NewSubscriptionStatus builds the status answer for a possibly missing row.
func NewSubscriptionStatus(sub *model.UserSubscription) *SubscriptionStatus {
	if sub == nil {
		return &SubscriptionStatus{}
	}
	return &SubscriptionStatus{
		HasActiveSubscription: sub.HasActiveSubscription(),
		SubscriptionData:      NewSubscription(sub),
	}
}

// RefreshSummary reports a refresh of the caller's row.
type RefreshSummary struct {
	Refreshed int      `json:"refreshed"`
	Skipped   int      `json:"skipped"`
	Failed    []string `json:"failed,omitempty"`
}

// Plan is a catalog entry shown on the pricing page.
type Plan struct {
	ID           int64                  `json:"id"`
	Name         string                 `json:"name"`
	Description  string                 `json:"description,omitempty"`
	Price        string                 `json:"price"`
	Currency     string                 `json:"currency"`
	Interval     string                 `json:"interval"`
	Featured     bool                   `json:"featured"`
	Purchasable  bool                   `json:"purchasable"`
	Features     map[string]interface{} `json:"features,omitempty"`
	DisplayOrder int                    `json:"display_order"`
}

// NewPlans converts catalog rows, keeping order.
func NewPlans(plans []*model.SubscriptionPlan) []*Plan {
	out := make([]*Plan, 0, len(plans))
	for _, p := range plans {
		out = append(out, NewPlan(p))
	}
	return out
}

// NewPlan converts one catalog row.
func NewPlan(p *model.SubscriptionPlan) *Plan {
	return &Plan{
		ID:           p.ID,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price.StringFixed(2),
		Currency:     p.Currency,
		Interval:     string(p.Interval),
		Featured:     p.Featured,
		Purchasable:  p.Purchasable(),
		Features:     p.Features,
		DisplayOrder: p.DisplayOrder,
	}
}

// Profile is the account summary shown in the dashboard header.
type Profile struct {
	FirstName        string  `json:"first_name"`
	Email            string  `json:"email"`
	Plan             string  `json:"plan"`
	Status           string  `json:"status"`
	CurrentPeriodEnd *string `json:"current_period_end"`
}

// NewProfile combines the user with their ledger row, which may be nil.
func NewProfile(user *model.User, sub *model.UserSubscription) *Profile {
	profile := &Profile{
		FirstName: user.FirstName,
		Email:     user.Email,
		Plan:      "None",
		Status:    "inactive",
	}
	if sub == nil {
		return profile
	}
	if name := sub.PlanName(); name != nil {
		profile.Plan = *name
	}
	if sub.Status != "" {
		profile.Status = string(sub.Status)
	}
	if sub.CurrentPeriodEnd != nil {
		end := sub.CurrentPeriodEnd.Format(ProfileDateLayout)
		profile.CurrentPeriodEnd = &end
	}
	return profile
}
