package paystack

import "github.com/codeabuu/simplifydocs/internal/domain/model"

// MapStatus converts a Paystack subscription status into the ledger status.
// A non-renewing subscription stays active until period end, so it also
// reports cancelAtPeriodEnd.
func MapStatus(status string) (mapped model.SubscriptionStatus, cancelAtPeriodEnd bool) {
	switch status {
	case "active":
		return model.SubscriptionStatusActive, false
	case "non-renewing":
		return model.SubscriptionStatusActive, true
	case "attention":
		return model.SubscriptionStatusPastDue, false
	case "completed", "cancelled", "canceled":
		return model.SubscriptionStatusCanceled, false
	case "unpaid":
		return model.SubscriptionStatusUnpaid, false
	default:
		return model.SubscriptionStatusIncomplete, false
	}
}

// IntervalFor converts a catalog interval into Paystack's vocabulary.
func IntervalFor(interval model.BillingInterval) string {
	if interval == model.IntervalYearly {
		return "annually"
	}
	return "monthly"
}

// isLive reports whether Paystack still considers a subscription billable.
func isLive(status string) bool {
	return status == "active" || status == "non-renewing" || status == "attention"
}
