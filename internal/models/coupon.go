package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CouponKind string

const (
	CouponPercent CouponKind = "PERCENT"
	CouponFixed   CouponKind = "FIXED"
)

type Coupon struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	Code          string          `json:"code" gorm:"size:20;uniqueIndex;not null"`
	Kind          CouponKind      `json:"kind" gorm:"size:10;not null"`
	Value         decimal.Decimal `json:"value" gorm:"type:decimal(10,2);not null"`
	MinOrderValue decimal.Decimal `json:"min_order_value" gorm:"type:decimal(10,2);not null;default:0"`
	ValidFrom     *time.Time      `json:"valid_from,omitempty"`
	ValidUntil    *time.Time      `json:"valid_until,omitempty"`
	MaxUses       int             `json:"max_uses" gorm:"default:0"` // 0 = unlimited
	UsedCount     int             `json:"used_count" gorm:"default:0"`
	IsActive      bool            `json:"is_active" gorm:"default:true"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
