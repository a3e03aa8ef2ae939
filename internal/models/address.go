package models

import "time"

type Address struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     uint      `json:"user_id" gorm:"index;not null"`
	Title      string    `json:"title,omitempty" gorm:"size:50"`
	ZipCode    string    `json:"zip_code" gorm:"size:9;not null"`
	Street     string    `json:"street" gorm:"size:255;not null"`
	Number     string    `json:"number" gorm:"size:10;not null"`
	Complement string    `json:"complement,omitempty" gorm:"size:100"`
	District   string    `json:"district" gorm:"size:100;not null"`
	City       string    `json:"city" gorm:"size:100;not null"`
	State      string    `json:"state" gorm:"size:2;not null"`
	Reference  string    `json:"reference,omitempty" gorm:"size:500"`
	IsPrimary  bool      `json:"is_primary" gorm:"default:false"`
	IsActive   bool      `json:"-" gorm:"default:true"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
