package models

import (
	"strings"

	"delivery_api/internal/validation"
)

type CartItem struct {
	ProductID uint `json:"product_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"gte=1"`
}

// CartSubmission is the checkout payload. It is never stored as is; the
// store turns it into an Order and its items.
type CartSubmission struct {
	AddressID     uint          `json:"address_id" binding:"required"`
	PaymentMethod PaymentMethod `json:"payment_method" binding:"required,oneof=CASH CREDIT_CARD DEBIT_CARD PIX MEAL_VOUCHER"`
	Notes         string        `json:"notes" binding:"max=500"`
	CouponCode    string        `json:"coupon_code" binding:"max=20"`
	Items         []CartItem    `json:"items" binding:"required,min=1,dive"`
}

// Validate checks the shape of the cart only. Ownership, stock and coupons
// are checked by the store.
func (c *CartSubmission) Validate() error {
	return validation.Struct(c)
}

// Normalized returns a copy with duplicate products merged into one line,
// keeping the order in which products first appear, and a trimmed upper case
// coupon code.
func (c CartSubmission) Normalized() CartSubmission {
	out := c
	out.CouponCode = strings.ToUpper(strings.TrimSpace(c.CouponCode))
	out.Notes = strings.TrimSpace(c.Notes)

	index := make(map[uint]int, len(c.Items))
	out.Items = make([]CartItem, 0, len(c.Items))
	for _, item := range c.Items {
		if pos, ok := index[item.ProductID]; ok {
			out.Items[pos].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(out.Items)
		out.Items = append(out.Items, item)
	}
	return out
}

// ProductIDs lists the distinct products in the cart.
func (c CartSubmission) ProductIDs() []uint {
	seen := make(map[uint]struct{}, len(c.Items))
	ids := make([]uint, 0, len(c.Items))
	for _, item := range c.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}
