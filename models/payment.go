package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment represents money received against an order
type Payment struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"not null;index" json:"order_id"`
	Amount    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Method    string          `gorm:"type:varchar(50);not null" json:"method"`
	Status    PaymentStatus   `gorm:"type:varchar(20);not null;default:'pago'" json:"status"`
	SplitID   *uint           `gorm:"index" json:"split_id,omitempty"`
	Reference string          `gorm:"type:varchar(64);uniqueIndex" json:"reference"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PaymentSplit is one share of an equally divided bill.
type PaymentSplit struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	OrderID       uint            `gorm:"not null;index" json:"order_id"`
	SplitNumber   int             `gorm:"not null" json:"split_number"`
	Amount        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	PaymentMethod string          `gorm:"type:varchar(50)" json:"payment_method,omitempty"`
	Paid          bool            `gorm:"not null" json:"paid"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

type ServiceChargePolicy struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"type:varchar(100);not null" json:"name"`
	Percentage  decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"percentage"`
	IsAutomatic bool            `gorm:"not null" json:"is_automatic"`
	Active      bool            `gorm:"not null" json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// OrderServiceCharge records every tip applied to an order; the order
// mirrors the latest one.
type OrderServiceCharge struct {
	ID         uint            `gorm:"primaryKey" json:"id"`
	OrderID    uint            `gorm:"not null;index" json:"order_id"`
	PolicyID   *uint           `json:"policy_id,omitempty"`
	Amount     decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Percentage decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"percentage"`
	Type       ChargeType      `gorm:"type:varchar(20);not null" json:"type"`
	CreatedAt  time.Time       `json:"created_at"`
}
