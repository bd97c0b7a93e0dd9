package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Settings is a single row of store-wide configuration.
type Settings struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	StoreName      string          `gorm:"type:varchar(100);not null" json:"store_name"`
	Phone          string          `gorm:"type:varchar(30)" json:"phone"`
	Address        string          `gorm:"type:varchar(255)" json:"address"`
	DeliveryFee    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"delivery_fee"`
	EnableDelivery bool            `gorm:"not null" json:"enable_delivery"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func DefaultSettings() Settings {
	return Settings{
		StoreName:      "Restaurante",
		DeliveryFee:    decimal.NewFromInt(5),
		EnableDelivery: true,
	}
}
