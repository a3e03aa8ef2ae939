package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID                 uint                 `json:"id" gorm:"primaryKey"`
	CustomerID         uint                 `json:"customer_id" gorm:"index:idx_orders_customer_created,priority:1;not null"`
	Customer           *User                `json:"customer,omitempty" gorm:"foreignKey:CustomerID"`
	AddressID          uint                 `json:"address_id" gorm:"not null"`
	Address            *Address             `json:"address,omitempty" gorm:"foreignKey:AddressID"`
	CourierID          *uint                `json:"courier_id,omitempty" gorm:"index"`
	TrackingCode       string               `json:"tracking_code" gorm:"size:40;uniqueIndex;not null"`
	Status             OrderStatus          `json:"status" gorm:"size:20;index;not null"`
	Subtotal           decimal.Decimal      `json:"subtotal" gorm:"type:decimal(10,2);not null"`
	Discount           decimal.Decimal      `json:"discount" gorm:"type:decimal(10,2);not null;default:0"`
	DeliveryFee        decimal.Decimal      `json:"delivery_fee" gorm:"type:decimal(10,2);not null;default:0"`
	Total              decimal.Decimal      `json:"total" gorm:"type:decimal(10,2);not null"`
	CouponCode         string               `json:"coupon_code,omitempty" gorm:"size:20"`
	PaymentMethod      PaymentMethod        `json:"payment_method" gorm:"size:20;not null"`
	Notes              string               `json:"notes,omitempty" gorm:"size:500"`
	CreatedAt          time.Time            `json:"created_at" gorm:"index:idx_orders_customer_created,priority:2"`
	UpdatedAt          time.Time            `json:"updated_at"`
	ConfirmedAt        *time.Time           `json:"confirmed_at"`
	DeliveredAt        *time.Time           `json:"delivered_at"`
	CancelledAt        *time.Time           `json:"cancelled_at"`
	CancellationReason *string              `json:"cancellation_reason"`
	Items              []OrderItem          `json:"items,omitempty" gorm:"foreignKey:OrderID"`
	History            []OrderStatusHistory `json:"history,omitempty" gorm:"foreignKey:OrderID"`
}

type PaymentMethod string

const (
	PaymentCash        PaymentMethod = "CASH"
	PaymentCreditCard  PaymentMethod = "CREDIT_CARD"
	PaymentDebitCard   PaymentMethod = "DEBIT_CARD"
	PaymentPix         PaymentMethod = "PIX"
	PaymentMealVoucher PaymentMethod = "MEAL_VOUCHER"
)

// OrderStatusHistory is the audit trail of an order. The first row has an
// empty FromStatus and records the creation.
type OrderStatusHistory struct {
	ID         uint        `json:"id" gorm:"primaryKey"`
	OrderID    uint        `json:"order_id" gorm:"index;not null"`
	FromStatus OrderStatus `json:"from_status,omitempty" gorm:"size:20"`
	ToStatus   OrderStatus `json:"to_status" gorm:"size:20;not null"`
	ChangedBy  uint        `json:"changed_by"`
	Note       string      `json:"note,omitempty" gorm:"size:500"`
	CreatedAt  time.Time   `json:"created_at"`
}

func (OrderStatusHistory) TableName() string {
	return "order_status_history"
}

// TrackingView is what anonymous callers see when looking an order up by its
// tracking code.
type TrackingView struct {
	TrackingCode string      `json:"tracking_code"`
	Status       OrderStatus `json:"status"`
	CreatedAt    time.Time   `json:"created_at"`
	ConfirmedAt  *time.Time  `json:"confirmed_at"`
	DeliveredAt  *time.Time  `json:"delivered_at"`
	CancelledAt  *time.Time  `json:"cancelled_at"`
}

func (o *Order) Tracking() TrackingView {
	return TrackingView{
		TrackingCode: o.TrackingCode,
		Status:       o.Status,
		CreatedAt:    o.CreatedAt,
		ConfirmedAt:  o.ConfirmedAt,
		DeliveredAt:  o.DeliveredAt,
		CancelledAt:  o.CancelledAt,
	}
}

// ItemsSubtotal sums the captured line subtotals.
func (o *Order) ItemsSubtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range o.Items {
		sum = sum.Add(item.Subtotal)
	}
	return sum
}
