package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type CashOperationType string

const (
	// CashSangria takes money out of the drawer.
	CashSangria CashOperationType = "sangria"
	// CashSuprimento puts change money into the drawer.
	CashSuprimento CashOperationType = "suprimento"
)

func (t CashOperationType) Valid() bool {
	return t == CashSangria || t == CashSuprimento
}

// CashOperation is a manual drawer movement not tied to any order.
type CashOperation struct {
	ID          uint              `gorm:"primaryKey" json:"id"`
	Type        CashOperationType `gorm:"type:varchar(20);not null" json:"type"`
	Amount      decimal.Decimal   `gorm:"type:decimal(10,2);not null" json:"amount"`
	Reason      string            `gorm:"type:varchar(255)" json:"reason,omitempty"`
	PerformedBy *uint             `json:"performed_by,omitempty"`
	CreatedAt   time.Time         `gorm:"not null;index" json:"created_at"`
}
