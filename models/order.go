package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	TableID         *uint           `gorm:"index" json:"table_id,omitempty"`
	CustomerID      *uint           `gorm:"index" json:"customer_id,omitempty"`
	StaffID         *uint           `gorm:"index" json:"staff_id,omitempty"`
	Status          OrderStatus     `gorm:"type:varchar(20);not null;default:'pendente';index" json:"status"`
	Channel         Channel         `gorm:"type:varchar(20);not null;default:'mesa'" json:"channel"`
	Total           decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"total"`
	TipAmount       decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"tip_amount"`
	TipPercentage   decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"tip_percentage"`
	DeliveryFee     decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"delivery_fee"`
	DeliveryAddress string          `gorm:"type:varchar(255)" json:"delivery_address,omitempty"`
	PaymentMethod   string          `gorm:"type:varchar(50)" json:"payment_method,omitempty"`
	Notes           string          `gorm:"type:text" json:"notes,omitempty"`
	Version         uint            `gorm:"not null;default:1" json:"version"`
	CreatedAt       time.Time       `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null" json:"updated_at"`
	Items           []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"items"`
}

// Subtotal is the sum of item lines without delivery fee or tip.
func (o *Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, it := range o.Items {
		sum = sum.Add(it.LineTotal())
	}
	return sum
}

// TotalWithTip is what the customer pays in the end.
func (o *Order) TotalWithTip() decimal.Decimal {
	return o.Total.Add(o.TipAmount)
}

// Label identifies the order on kitchen screens and bills.
func (o *Order) Label(tableNumber int) string {
	if tableNumber > 0 {
		return fmt.Sprintf("Mesa %d", tableNumber)
	}
	return o.Channel.Label()
}
