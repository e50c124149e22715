package service

import (
	"errors"

	"github.com/localdeals/coupon-engine/internal/benefit"
	"github.com/localdeals/coupon-engine/internal/validator"
)

var (
	// ErrCouponNotFound is returned when a coupon definition cannot be found.
	ErrCouponNotFound = errors.New("coupon not found")

	// ErrInvalidRequest is returned when request data is invalid or incomplete.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNotIssuable is returned when a claim is attempted against a stopped
	// definition or outside its issuance window.
	ErrNotIssuable = errors.New("coupon is not issuable")

	// ErrQuotaExceeded is returned when a definition's capacity is fully issued.
	ErrQuotaExceeded = errors.New("coupon quota exceeded")

	// ErrPerUserLimitExceeded is returned when the requesting user already
	// holds the maximum number of claims for a definition.
	ErrPerUserLimitExceeded = errors.New("per-user claim limit exceeded")

	// ErrCodeGenerationExhausted is returned when no unused redemption code
	// could be found within the attempt budget. It means the code space is
	// too small for the store's live claims and must be escalated.
	ErrCodeGenerationExhausted = errors.New("redemption code generation exhausted")

	// ErrCodeNotFound is returned when no unused claim carries the code.
	ErrCodeNotFound = errors.New("redemption code not found")

	// ErrCodeExpired is returned when the claim's personal expiry has passed.
	ErrCodeExpired = errors.New("redemption code expired")

	// ErrAlreadyUsed is returned to the loser of a concurrent redemption
	// race. This is the expected outcome under double submission, not a
	// corruption signal.
	ErrAlreadyUsed = errors.New("coupon already used")
)

// Validation sentinels re-exported from the leaf packages so callers can
// dispatch on service errors alone.
var (
	ErrInvalidWindow  = validator.ErrInvalidWindow
	ErrInvalidBenefit = benefit.ErrInvalidBenefit
)
