package models

import (
	"time"

	"gorm.io/datatypes"
)

type AuditLog struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     *uint          `gorm:"index" json:"user_id,omitempty"`
	Action     string         `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityType string         `gorm:"type:varchar(50);not null;index:idx_audit_entity" json:"entity_type"`
	EntityID   uint           `gorm:"index:idx_audit_entity" json:"entity_id"`
	OldValues  datatypes.JSON `json:"old_values,omitempty"`
	NewValues  datatypes.JSON `json:"new_values,omitempty"`
	IPAddress  string         `gorm:"type:varchar(45)" json:"ip_address,omitempty"`
	UserAgent  string         `gorm:"type:varchar(255)" json:"user_agent,omitempty"`
	CreatedAt  time.Time      `gorm:"not null;index" json:"created_at"`
}

// OrderTransfer records an order handed from one staff member to another.
type OrderTransfer struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	OrderID       uint      `gorm:"not null;index" json:"order_id"`
	FromStaffID   *uint     `json:"from_staff_id,omitempty"`
	ToStaffID     uint      `gorm:"not null" json:"to_staff_id"`
	Reason        string    `gorm:"type:text" json:"reason,omitempty"`
	TransferredAt time.Time `gorm:"not null" json:"transferred_at"`
}
