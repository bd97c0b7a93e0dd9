package models

import "time"

type Table struct {
	ID             uint        `gorm:"primaryKey" json:"id"`
	Number         int         `gorm:"uniqueIndex;not null" json:"number"`
	Capacity       int         `gorm:"not null;default:4" json:"capacity"`
	Status         TableStatus `gorm:"type:varchar(20);not null;default:'livre'" json:"status"`
	CurrentOrderID *uint       `gorm:"index" json:"current_order_id,omitempty"`
	CreatedAt      time.Time   `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time   `gorm:"not null" json:"updated_at"`
}

// TableGrouping is a set of tables merged to serve one party.
type TableGrouping struct {
	ID             uint               `gorm:"primaryKey" json:"id"`
	Name           string             `gorm:"type:varchar(100)" json:"name"`
	PrimaryTableID uint               `gorm:"not null" json:"primary_table_id"`
	MergedOrderID  *uint              `json:"merged_order_id,omitempty"`
	CreatedBy      *uint              `json:"created_by,omitempty"`
	Members        []TableGroupMember `gorm:"foreignKey:GroupID;constraint:OnDelete:CASCADE" json:"members"`
	CreatedAt      time.Time          `gorm:"not null" json:"created_at"`
	DissolvedAt    *time.Time         `json:"dissolved_at,omitempty"`
}

func (g *TableGrouping) Active() bool {
	return g.DissolvedAt == nil
}

func (g *TableGrouping) TableIDs() []uint {
	ids := make([]uint, 0, len(g.Members))
	for _, m := range g.Members {
		ids = append(ids, m.TableID)
	}
	return ids
}

type TableGroupMember struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	GroupID uint `gorm:"not null;index" json:"group_id"`
	TableID uint `gorm:"not null;index" json:"table_id"`
}

const (
	MergeActionMerge = "merge"
	MergeActionSplit = "split"
)

type TableMergeHistory struct {
	ID                 uint      `gorm:"primaryKey" json:"id"`
	GroupID            uint      `gorm:"not null;index" json:"group_id"`
	SourceTableID      uint      `gorm:"not null" json:"source_table_id"`
	DestinationTableID *uint     `json:"destination_table_id,omitempty"`
	Action             string    `gorm:"type:varchar(20);not null" json:"action"`
	PerformedBy        *uint     `json:"performed_by,omitempty"`
	CreatedAt          time.Time `gorm:"not null" json:"created_at"`
}
