// Package benefit encodes discount semantics: how a benefit value is
// validated, displayed, and projected onto an order subtotal.
package benefit

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/localdeals/coupon-engine/internal/model"
)

// ErrInvalidBenefit is returned when a benefit value does not fit its type.
var ErrInvalidBenefit = errors.New("invalid benefit")

// Benefit is a validated benefit ready for display and discount arithmetic.
type Benefit struct {
	Type    model.BenefitType
	amount  int64  // FIXED_DISCOUNT, currency minor units
	percent int64  // PERCENTAGE_DISCOUNT, 0..100
	gift    string // SERVICE_GIFT, free text
}

// Parse validates a raw benefit value against its type.
func Parse(t model.BenefitType, value string) (Benefit, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return Benefit{}, fmt.Errorf("%w: value is required", ErrInvalidBenefit)
	}

	switch t {
	case model.BenefitFixedDiscount:
		amount, err := strconv.ParseInt(value, 10, 64)
		if err != nil || amount < 0 {
			return Benefit{}, fmt.Errorf("%w: fixed discount must be a non-negative amount", ErrInvalidBenefit)
		}
		return Benefit{Type: t, amount: amount}, nil
	case model.BenefitPercentageDiscount:
		percent, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return Benefit{}, fmt.Errorf("%w: percentage must be numeric", ErrInvalidBenefit)
		}
		if percent < 0 || percent > 100 {
			return Benefit{}, fmt.Errorf("%w: percentage must be between 0 and 100", ErrInvalidBenefit)
		}
		return Benefit{Type: t, percent: percent}, nil
	case model.BenefitServiceGift:
		return Benefit{Type: t, gift: value}, nil
	default:
		return Benefit{}, fmt.Errorf("%w: unknown benefit type %q", ErrInvalidBenefit, string(t))
	}
}

// Display returns the canonical display string for the benefit.
func (b Benefit) Display() string {
	switch b.Type {
	case model.BenefitFixedDiscount:
		return fmt.Sprintf("%d off", b.amount)
	case model.BenefitPercentageDiscount:
		return fmt.Sprintf("%d%% off", b.percent)
	case model.BenefitServiceGift:
		return b.gift
	}
	return ""
}

// DiscountFor returns the discount the benefit grants on an order subtotal.
// The discount never exceeds the subtotal. The second return is false for
// benefits with no arithmetic projection (service gifts).
func (b Benefit) DiscountFor(subtotal int64) (int64, bool) {
	if subtotal < 0 {
		subtotal = 0
	}
	switch b.Type {
	case model.BenefitFixedDiscount:
		if b.amount > subtotal {
			return subtotal, true
		}
		return b.amount, true
	case model.BenefitPercentageDiscount:
		return subtotal * b.percent / 100, true
	}
	return 0, false
}
