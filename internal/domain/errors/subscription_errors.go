// Package errors classifies billing failures onto the shared AppError codes.
package errors

import (
	apperrors "github.com/codeabuu/simplifydocs/pkg/errors"
)

// ProviderUnavailable marks a failure reaching the provider (network,
// timeout, 5xx). Callers may retry.
func ProviderUnavailable(message string, err error) error {
	return apperrors.NewAppError(apperrors.ErrUnavailable, message, err)
}

// VerificationFailed marks a provider answer that does not confirm the claim
// being checked.
func VerificationFailed(message string, err error) error {
	return apperrors.NewAppError(apperrors.ErrFailedPrecondition, message, err)
}

// NotFound marks a missing plan, user or provider object.
func NotFound(message string) error {
	return apperrors.NewAppError(apperrors.ErrNotFound, message, nil)
}

// NotFoundWrap is NotFound with a cause attached.
func NotFoundWrap(message string, err error) error {
	return apperrors.NewAppError(apperrors.ErrNotFound, message, err)
}

// MalformedInput marks an unparseable or incomplete request.
func MalformedInput(message string) error {
	return apperrors.NewAppError(apperrors.ErrInvalidArgument, message, nil)
}

// Internal marks a storage or programming failure.
func Internal(message string, err error) error {
	return apperrors.NewAppError(apperrors.ErrInternal, message, err)
}

// Conflict marks contention on a shared resource.
func Conflict(message string) error {
	return apperrors.NewAppError(apperrors.ErrConflict, message, nil)
}

func IsProviderUnavailable(err error) bool {
	return apperrors.HasCode(err, apperrors.ErrUnavailable)
}

func IsVerificationFailed(err error) bool {
	return apperrors.HasCode(err, apperrors.ErrFailedPrecondition)
}

func IsNotFound(err error) bool {
	return apperrors.HasCode(err, apperrors.ErrNotFound)
}

func IsMalformedInput(err error) bool {
	return apperrors.HasCode(err, apperrors.ErrInvalidArgument)
}

func IsConflict(err error) bool {
	return apperrors.HasCode(err, apperrors.ErrConflict)
}

var (
	// ErrNothingToCancel is returned when the user has no active subscription with a code.
	ErrNothingToCancel = apperrors.NewAppError(apperrors.ErrFailedPrecondition, "no active subscription to cancel", nil)

	// ErrPlanNotFound is returned when a plan id or code does not resolve.
	ErrPlanNotFound = apperrors.NewAppError(apperrors.ErrNotFound, "invalid subscription plan", nil)

	// ErrUserNotFound is returned when a customer does not resolve to a user.
	ErrUserNotFound = apperrors.NewAppError(apperrors.ErrNotFound, "user not found", nil)

	// ErrPlanNotPurchasable is returned for checkout of an inactive or unprovisioned plan.
	ErrPlanNotPurchasable = apperrors.NewAppError(apperrors.ErrFailedPrecondition, "plan is not available for purchase", nil)

	// ErrNoEntitlement is returned when a feature requires an active subscription.
	ErrNoEntitlement = apperrors.NewAppError(apperrors.ErrUnauthorized, "an active subscription is required", nil)

	// ErrLeaseHeld is returned when another document job holds the user's lease.
	ErrLeaseHeld = apperrors.NewAppError(apperrors.ErrConflict, "another document is being processed", nil)
)
