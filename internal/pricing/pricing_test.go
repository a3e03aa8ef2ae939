package pricing

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"delivery_api/internal/models"
	"delivery_api/pkg/apperrors"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestQuote_NoCoupon(t *testing.T) {
	lines := []Line{
		{ProductID: 7, Quantity: 2, UnitPrice: dec("10.00")},
		{ProductID: 9, Quantity: 1, UnitPrice: dec("5.00")},
	}

	q := DefaultRules().Quote(lines, nil)

	assert.True(t, q.Subtotal.Equal(dec("25.00")), q.Subtotal.String())
	assert.True(t, q.Discount.IsZero())
	assert.True(t, q.DeliveryFee.Equal(dec("5.00")))
	assert.True(t, q.Total.Equal(dec("30.00")), q.Total.String())
}

func TestQuote_TotalReconciles(t *testing.T) {
	rules := Rules{DeliveryFee: dec("4.99")}
	coupon := &models.Coupon{Code: "TEN", Kind: models.CouponPercent, Value: dec("10"), IsActive: true}
	lines := []Line{
		{ProductID: 1, Quantity: 3, UnitPrice: dec("12.34")},
		{ProductID: 2, Quantity: 1, UnitPrice: dec("0.99")},
	}

	q := rules.Quote(lines, coupon)

	assert.True(t, q.Subtotal.Equal(dec("38.01")))
	assert.True(t, q.Discount.Equal(dec("3.80")))
	assert.True(t, q.Total.Equal(q.Subtotal.Sub(q.Discount).Add(q.DeliveryFee)))
	assert.False(t, q.Total.IsNegative())
}

func TestQuote_FreeDeliveryThreshold(t *testing.T) {
	rules := Rules{DeliveryFee: dec("5"), FreeDeliveryThreshold: dec("50")}

	below := rules.Quote([]Line{{ProductID: 1, Quantity: 1, UnitPrice: dec("49.99")}}, nil)
	assert.True(t, below.DeliveryFee.Equal(dec("5")))

	at := rules.Quote([]Line{{ProductID: 1, Quantity: 1, UnitPrice: dec("50")}}, nil)
	assert.True(t, at.DeliveryFee.IsZero())
	assert.True(t, at.Total.Equal(dec("50")))
}

func TestQuote_ThresholdUsesDiscountedSubtotal(t *testing.T) {
	rules := Rules{DeliveryFee: dec("5"), FreeDeliveryThreshold: dec("50")}
	coupon := &models.Coupon{Code: "FIVE", Kind: models.CouponFixed, Value: dec("5"), IsActive: true}

	q := rules.Quote([]Line{{ProductID: 1, Quantity: 1, UnitPrice: dec("52")}}, coupon)

	assert.True(t, q.DeliveryFee.Equal(dec("5")))
	assert.True(t, q.Total.Equal(dec("52")))
}

func TestCouponDiscount_CappedAtSubtotal(t *testing.T) {
	c := &models.Coupon{Kind: models.CouponFixed, Value: dec("100")}
	assert.True(t, CouponDiscount(c, dec("20")).Equal(dec("20")))

	unknown := &models.Coupon{Kind: "BOGUS", Value: dec("1")}
	assert.True(t, CouponDiscount(unknown, dec("20")).IsZero())
}

func TestCheckCoupon(t *testing.T) {
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	valid := models.Coupon{Code: "OK", Kind: models.CouponFixed, Value: dec("5"), IsActive: true, MinOrderValue: dec("10")}

	tests := []struct {
		name   string
		mutate func(c *models.Coupon)
		total  string
		ok     bool
	}{
		{"valid", func(c *models.Coupon) {}, "10", true},
		{"inactive", func(c *models.Coupon) { c.IsActive = false }, "10", false},
		{"not started", func(c *models.Coupon) { c.ValidFrom = &future }, "10", false},
		{"expired", func(c *models.Coupon) { c.ValidUntil = &past }, "10", false},
		{"exhausted", func(c *models.Coupon) { c.MaxUses = 3; c.UsedCount = 3 }, "10", false},
		{"unlimited uses", func(c *models.Coupon) { c.UsedCount = 999 }, "10", true},
		{"below minimum", func(c *models.Coupon) {}, "9.99", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			err := CheckCoupon(&c, dec(tt.total), now)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperrors.ErrValidation))
			assert.Equal(t, "INVALID_COUPON", apperrors.KindCode(err))
		})
	}
}

func TestNewTrackingCode(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^DLV20261018-[0-9A-F]{12}$`)

	seen := make(map[string]struct{})
	for i := 0; i < 200; i++ {
		code := NewTrackingCode(now)
		require.Regexp(t, pattern, code)
		_, dup := seen[code]
		require.False(t, dup, "duplicate tracking code %s", code)
		seen[code] = struct{}{}
	}
}
