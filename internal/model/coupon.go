package model

import (
	"time"

	"github.com/google/uuid"
)

// BenefitType determines how a coupon's benefit value is interpreted.
type BenefitType string

const (
	BenefitFixedDiscount      BenefitType = "FIXED_DISCOUNT"
	BenefitPercentageDiscount BenefitType = "PERCENTAGE_DISCOUNT"
	BenefitServiceGift        BenefitType = "SERVICE_GIFT"
)

// CouponStatus is the stored status of a definition. Only ACTIVE and STOPPED
// are ever persisted; UPCOMING and EXPIRED are derived from the issuance
// window on read.
type CouponStatus string

const (
	StatusActive  CouponStatus = "ACTIVE"
	StatusStopped CouponStatus = "STOPPED"
)

// CouponDefinition is the owner-created template describing a promotional
// offer, its issuance window and its capacity.
type CouponDefinition struct {
	ID             uuid.UUID    `json:"id"`
	StoreID        string       `json:"store_id"`
	Title          string       `json:"title"`
	Description    string       `json:"description"`
	BenefitType    BenefitType  `json:"benefit_type"`
	BenefitValue   string       `json:"benefit_value"`
	MinOrderAmount int64        `json:"min_order_amount"`
	TotalQuantity  *int64       `json:"total_quantity"` // nil means unlimited
	LimitPerUser   int          `json:"limit_per_user"`
	IssueStartsAt  time.Time    `json:"issue_starts_at"`
	IssueEndsAt    time.Time    `json:"issue_ends_at"`
	ValidDays      int          `json:"valid_days"` // 0 means valid until IssueEndsAt
	Status         CouponStatus `json:"status"`
	CreatedAt      time.Time    `json:"-"`
}

// IssuedCoupon is a single patron's claim against a definition. UsedAt is
// nil until redemption and never reverts once set.
type IssuedCoupon struct {
	ID                 uuid.UUID  `json:"id"`
	CouponDefinitionID uuid.UUID  `json:"coupon_id"`
	StoreID            string     `json:"store_id"`
	UserID             string     `json:"user_id"`
	IssuedAt           time.Time  `json:"issued_at"`
	ExpiresAt          time.Time  `json:"expires_at"`
	RedemptionCode     string     `json:"redemption_code"`
	UsedAt             *time.Time `json:"used_at,omitempty"`
}

// CouponWithCounts is the list read model: a definition with its derived
// claim counters.
type CouponWithCounts struct {
	CouponDefinition
	IssuedCount int64
	UsedCount   int64
}

// RedemptionCandidate is the lookup result for an unused redemption code,
// joined with the definition fields needed for the point-of-sale snapshot.
type RedemptionCandidate struct {
	ClaimID            uuid.UUID
	CouponDefinitionID uuid.UUID
	UserID             string
	IssuedAt           time.Time
	ExpiresAt          time.Time
	Title              string
	BenefitType        BenefitType
	BenefitValue       string
}

// CreateCouponRequest is the DTO for creating a coupon definition.
type CreateCouponRequest struct {
	Title          string    `json:"title" validate:"required,notblank,max=255"`
	Description    string    `json:"description" validate:"max=2000"`
	BenefitType    string    `json:"benefit_type" validate:"required,oneof=FIXED_DISCOUNT PERCENTAGE_DISCOUNT SERVICE_GIFT"`
	BenefitValue   string    `json:"benefit_value" validate:"required,notblank,max=255"`
	MinOrderAmount *int64    `json:"min_order_amount" validate:"omitempty,gte=0"`
	TotalQuantity  *int64    `json:"total_quantity" validate:"omitempty,gte=0"`
	LimitPerUser   *int      `json:"limit_per_user" validate:"omitempty,gte=1"`
	ValidDays      *int      `json:"valid_days" validate:"omitempty,gte=0"`
	IssueStartsAt  time.Time `json:"issue_starts_at" validate:"required"`
	IssueEndsAt    time.Time `json:"issue_ends_at" validate:"required"`
	AllowPastStart bool      `json:"allow_past_start"`
}

// ClaimCouponRequest is the DTO for a patron claiming a coupon. The store and
// coupon are addressed by path, the patron by the authenticated user id.
type ClaimCouponRequest struct {
	UserID string `json:"user_id" validate:"required,notblank,max=255"`
}

// VerifyCodeRequest is the DTO for point-of-sale redemption.
type VerifyCodeRequest struct {
	Code string `json:"code" validate:"required,notblank,numeric,max=8"`
}

// CouponResponse is the API representation of a definition with its derived
// status and progress. WindowAdjusted is set on creation when the issuance
// end was pushed forward to honor the minimum window gap.
type CouponResponse struct {
	ID               uuid.UUID `json:"id"`
	StoreID          string    `json:"store_id"`
	Title            string    `json:"title"`
	Description      string    `json:"description,omitempty"`
	BenefitType      string    `json:"benefit_type"`
	BenefitValue     string    `json:"benefit_value"`
	BenefitDisplay   string    `json:"benefit_display"`
	MinOrderAmount   int64     `json:"min_order_amount"`
	TotalQuantity    *int64    `json:"total_quantity"`
	LimitPerUser     int       `json:"limit_per_user"`
	ValidDays        int       `json:"valid_days"`
	IssueStartsAt    time.Time `json:"issue_starts_at"`
	IssueEndsAt      time.Time `json:"issue_ends_at"`
	Status           string    `json:"status"`
	IssuedCount      int64     `json:"issued_count"`
	UsedCount        int64     `json:"used_count"`
	RemainingCount   *int64    `json:"remaining_count,omitempty"` // nil when unlimited
	IssuanceProgress string    `json:"issuance_progress,omitempty"`
	UsageProgress    string    `json:"usage_progress"`
	WindowAdjusted   bool      `json:"window_adjusted,omitempty"`
}

// ClaimResponse is the API representation of a freshly issued claim.
type ClaimResponse struct {
	ID             uuid.UUID `json:"id"`
	CouponID       uuid.UUID `json:"coupon_id"`
	UserID         string    `json:"user_id"`
	RedemptionCode string    `json:"redemption_code"`
	IssuedAt       time.Time `json:"issued_at"`
	ExpiresAt      time.Time `json:"expires_at"`
}

// RedemptionResult is the benefit snapshot returned to the point of sale
// after a successful redemption.
type RedemptionResult struct {
	CouponID       uuid.UUID `json:"coupon_id"`
	StoreID        string    `json:"store_id"`
	Title          string    `json:"title"`
	BenefitType    string    `json:"benefit_type"`
	BenefitValue   string    `json:"benefit_value"`
	BenefitDisplay string    `json:"benefit_display"`
	ExpiresAt      time.Time `json:"expires_at"`
	UsedAt         time.Time `json:"used_at"`
}
