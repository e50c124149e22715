package model

import (
	"errors"
	"time"
)

// Draft accumulates the answers of the multi-step coupon creation wizard
// (benefit, details, quantity, period). The engine is stateless between
// steps; the caller holds the draft, may revisit any step, and converts it
// into a CreateCouponRequest only on final confirmation.
type Draft struct {
	benefitType  BenefitType
	benefitValue string
	hasBenefit   bool

	title       string
	description string
	minOrder    int64
	hasDetails  bool

	totalQuantity *int64
	limitPerUser  int
	hasQuantity   bool

	startsAt  time.Time
	endsAt    time.Time
	validDays int
	hasPeriod bool
}

// ErrDraftIncomplete is returned by Build when a wizard step is missing.
var ErrDraftIncomplete = errors.New("coupon draft is incomplete")

// NewDraft creates an empty draft.
func NewDraft() *Draft {
	return &Draft{}
}

// WithBenefit records the benefit step. Calling it again overwrites the
// previous answer, matching back-navigation in the wizard.
func (d *Draft) WithBenefit(t BenefitType, value string) *Draft {
	d.benefitType = t
	d.benefitValue = value
	d.hasBenefit = true
	return d
}

// WithDetails records the title/description step.
func (d *Draft) WithDetails(title, description string, minOrderAmount int64) *Draft {
	d.title = title
	d.description = description
	d.minOrder = minOrderAmount
	d.hasDetails = true
	return d
}

// WithQuantity records the capacity step. A nil total means unlimited.
func (d *Draft) WithQuantity(total *int64, limitPerUser int) *Draft {
	d.totalQuantity = total
	d.limitPerUser = limitPerUser
	d.hasQuantity = true
	return d
}

// WithPeriod records the issuance window step. validDays of 0 keeps claims
// valid until the window end.
func (d *Draft) WithPeriod(startsAt, endsAt time.Time, validDays int) *Draft {
	d.startsAt = startsAt
	d.endsAt = endsAt
	d.validDays = validDays
	d.hasPeriod = true
	return d
}

// Complete reports whether every wizard step has an answer.
func (d *Draft) Complete() bool {
	return d.hasBenefit && d.hasDetails && d.hasQuantity && d.hasPeriod
}

// Build converts the draft into a creation request. Window and benefit
// validation stays with the engine; Build only checks step completeness.
func (d *Draft) Build() (*CreateCouponRequest, error) {
	if !d.Complete() {
		return nil, ErrDraftIncomplete
	}
	limit := d.limitPerUser
	minOrder := d.minOrder
	validDays := d.validDays
	return &CreateCouponRequest{
		Title:          d.title,
		Description:    d.description,
		BenefitType:    string(d.benefitType),
		BenefitValue:   d.benefitValue,
		MinOrderAmount: &minOrder,
		TotalQuantity:  d.totalQuantity,
		LimitPerUser:   &limit,
		ValidDays:      &validDays,
		IssueStartsAt:  d.startsAt,
		IssueEndsAt:    d.endsAt,
	}, nil
}
