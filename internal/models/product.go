package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"size:100;not null"`
	Description  string    `json:"description,omitempty" gorm:"type:text"`
	ImageURL     string    `json:"image_url,omitempty" gorm:"size:500"`
	DisplayOrder int       `json:"display_order" gorm:"default:0"`
	IsActive     bool      `json:"is_active" gorm:"default:true"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type Product struct {
	ID               uint                `json:"id" gorm:"primaryKey"`
	CategoryID       uint                `json:"category_id" gorm:"index;not null"`
	Category         *Category           `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	Name             string              `json:"name" gorm:"size:150;not null"`
	Description      string              `json:"description,omitempty" gorm:"type:text"`
	Price            decimal.Decimal     `json:"price" gorm:"type:decimal(10,2);not null"`
	PromotionalPrice decimal.NullDecimal `json:"promotional_price" gorm:"type:decimal(10,2)"`
	Stock            int                 `json:"stock" gorm:"not null;default:0"`
	MinStock         int                 `json:"min_stock" gorm:"default:0"`
	ImageURL         string              `json:"image_url,omitempty" gorm:"size:500"`
	IsActive         bool                `json:"is_active" gorm:"default:true"`
	Featured         bool                `json:"featured" gorm:"index;default:false"`
	PrepMinutes      int                 `json:"prep_minutes,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

// EffectivePrice is the price charged right now: the promotional price when
// it is set and lower than the list price.
func (p *Product) EffectivePrice() decimal.Decimal {
	if p.PromotionalPrice.Valid && p.PromotionalPrice.Decimal.IsPositive() && p.PromotionalPrice.Decimal.LessThan(p.Price) {
		return p.PromotionalPrice.Decimal
	}
	return p.Price
}

// ProductFilter narrows catalog listings. Zero values mean "no filter".
type ProductFilter struct {
	CategoryID uint   `json:"category_id,omitempty"`
	Featured   bool   `json:"featured,omitempty"`
	Search     string `json:"search,omitempty"`
}
