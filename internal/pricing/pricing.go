// Package pricing computes order quotes from captured unit prices, coupons
// and the delivery fee rules.
package pricing

import (
	"fmt"
	"strings"
	"time"

	"delivery_api/internal/models"
	"delivery_api/pkg/apperrors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const moneyPlaces = 2

var hundred = decimal.NewFromInt(100)

type Rules struct {
	DeliveryFee decimal.Decimal
	// FreeDeliveryThreshold waives the fee when the discounted subtotal reaches
	// it. Zero disables the waiver.
	FreeDeliveryThreshold decimal.Decimal
}

func DefaultRules() Rules {
	return Rules{DeliveryFee: decimal.NewFromInt(5)}
}

type Line struct {
	ProductID uint
	Quantity  int
	UnitPrice decimal.Decimal
}

func (l Line) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))).Round(moneyPlaces)
}

type Quote struct {
	Subtotal    decimal.Decimal
	Discount    decimal.Decimal
	DeliveryFee decimal.Decimal
	Total       decimal.Decimal
}

// Quote prices the lines. coupon may be nil; a non nil coupon must already be
// valid for the subtotal (see CheckCoupon).
func (r Rules) Quote(lines []Line, coupon *models.Coupon) Quote {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Subtotal())
	}

	discount := decimal.Zero
	if coupon != nil {
		discount = CouponDiscount(coupon, subtotal)
	}

	fee := r.DeliveryFee.Round(moneyPlaces)
	if r.FreeDeliveryThreshold.IsPositive() && subtotal.Sub(discount).GreaterThanOrEqual(r.FreeDeliveryThreshold) {
		fee = decimal.Zero
	}
	if fee.IsNegative() {
		fee = decimal.Zero
	}

	return Quote{
		Subtotal:    subtotal,
		Discount:    discount,
		DeliveryFee: fee,
		Total:       subtotal.Sub(discount).Add(fee),
	}
}

// CouponDiscount is rounded to cents and never exceeds the subtotal.
func CouponDiscount(c *models.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch c.Kind {
	case models.CouponPercent:
		d = subtotal.Mul(c.Value).Div(hundred)
	case models.CouponFixed:
		d = c.Value
	default:
		return decimal.Zero
	}
	d = d.Round(moneyPlaces)
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(subtotal) {
		return subtotal
	}
	return d
}

// CheckCoupon rejects coupons that cannot be applied to an order with the
// given subtotal at time now.
func CheckCoupon(c *models.Coupon, subtotal decimal.Decimal, now time.Time) error {
	invalid := func(reason string) error {
		return apperrors.NewValidationError(fmt.Sprintf("coupon %s %s", c.Code, reason)).
			WithCode("INVALID_COUPON").
			WithDetail("coupon_code", c.Code)
	}

	switch {
	case !c.IsActive:
		return invalid("is not active")
	case c.ValidFrom != nil && now.Before(*c.ValidFrom):
		return invalid("is not valid yet")
	case c.ValidUntil != nil && now.After(*c.ValidUntil):
		return invalid("has expired")
	case c.MaxUses > 0 && c.UsedCount >= c.MaxUses:
		return invalid("has reached its usage limit")
	case subtotal.LessThan(c.MinOrderValue):
		return invalid(fmt.Sprintf("requires a minimum order of %s", c.MinOrderValue.StringFixed(moneyPlaces)))
	case c.Kind != models.CouponPercent && c.Kind != models.CouponFixed:
		return invalid("has an unknown kind")
	}
	return nil
}

// UnknownCoupon is returned when no coupon matches the submitted code.
func UnknownCoupon(code string) error {
	return apperrors.NewValidationError(fmt.Sprintf("coupon %s does not exist", code)).
		WithCode("INVALID_COUPON").
		WithDetail("coupon_code", code)
}

// trackingCodeRandomChars hex digits follow the date, 48 random bits per day.
const trackingCodeRandomChars = 12

// NewTrackingCode returns codes like DLV20261018-3F2A9C1B04D7.
func NewTrackingCode(now time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("DLV%s-%s", now.UTC().Format("20060102"), strings.ToUpper(id[:trackingCodeRandomChars]))
}
