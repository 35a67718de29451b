package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/codeabuu/simplifydocs/internal/domain/model"
)

// PaymentRepository reads the payment log. Writes go through
// SubscriptionRepository.RecordPayment.
type PaymentRepository interface {
	GetByReference(ctx context.Context, reference string) (*model.Payment, error)
	ListByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*model.Payment, int64, error)
}

// WebhookEventRepository keeps the delivery audit log.
type WebhookEventRepository interface {
	Record(ctx context.Context, event *model.WebhookEvent) error
}

// CancellationRepository claims upstream cancellation of superseded codes.
type CancellationRepository interface {
	// Claim inserts the cancellation if no claim for its code exists and
	// reports whether the caller now owns it.
	Claim(ctx context.Context, cancellation *model.SubscriptionCancellation) (bool, error)
	MarkDone(ctx context.Context, code string) error
	MarkFailed(ctx context.Context, code string, reason string) error
	// ListRetryable returns failed claims below maxAttempts, and pending
	// claims created before pendingBefore.
	ListRetryable(ctx context.Context, maxAttempts int, pendingBefore time.Time) ([]*model.SubscriptionCancellation, error)
}
