package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/codeabuu/simplifydocs/internal/domain/model"
)

// UpsertResult is the outcome of a ledger write.
type UpsertResult struct {
	// Subscription is the row after the write, with its plan loaded.
	Subscription *model.UserSubscription
	// Previous is the row as it was before the write, nil when created.
	Previous *model.UserSubscription
	Created  bool
}

// SupersededCode returns the subscription code the write replaced, or "".
func (r *UpsertResult) SupersededCode() string {
	if r == nil || r.Previous == nil || r.Subscription == nil {
		return ""
	}
	prev, next := r.Previous.Code(), r.Subscription.Code()
	if prev == "" || prev == next {
		return ""
	}
	return prev
}

// SubscriptionRepository stores the per-user subscription ledger. Writes
// are serialized per row so concurrent callers observe each other's
// results and a code never ends up on two rows.
type SubscriptionRepository interface {
	// GetByUserID returns nil, nil when the user has no row.
	GetByUserID(ctx context.Context, userID uuid.UUID) (*model.UserSubscription, error)
	// GetBySubscriptionCode returns nil, nil when no row carries the code.
	GetBySubscriptionCode(ctx context.Context, code string) (*model.UserSubscription, error)
	// GetByCustomerCode returns nil, nil when no row carries the customer code.
	GetByCustomerCode(ctx context.Context, customerCode string) (*model.UserSubscription, error)

	// GetOrCreate returns the user's row, creating an empty one if absent.
	GetOrCreate(ctx context.Context, userID uuid.UUID) (*model.UserSubscription, bool, error)

	// UpsertBySubscriptionCode writes update onto the row holding code. If no
	// row holds it, the row of update.UserID is used, or created. The code
	// is stored on the resulting row.
	UpsertBySubscriptionCode(ctx context.Context, code string, update model.SubscriptionUpdate) (*UpsertResult, error)

	// UpdateByUserID writes update onto the user's row, creating it if absent.
	UpdateByUserID(ctx context.Context, userID uuid.UUID, update model.SubscriptionUpdate) (*UpsertResult, error)

	// RecordPayment inserts payment and applies update to the payer's row in
	// one transaction. A non-empty subscriptionCode is stored on the row.
	// When the reference is already recorded nothing is written and
	// recorded is false.
	RecordPayment(ctx context.Context, payment *model.Payment, subscriptionCode string, update model.SubscriptionUpdate) (result *UpsertResult, recorded bool, err error)

	// List returns rows matching filter, ordered by id.
	List(ctx context.Context, filter SubscriptionFilter) ([]*model.UserSubscription, error)

	// ListCustomerCodes returns the distinct customer codes in the ledger.
	ListCustomerCodes(ctx context.Context) ([]string, error)
}
