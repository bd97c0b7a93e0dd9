package services

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// Audit actions
const (
	AuditCreateOrder    = "create_order"
	AuditUpdateStatus   = "update_order_status"
	AuditDeleteOrder    = "delete_order"
	AuditTransferOrder  = "transfer_order"
	AuditDuplicateOrder = "duplicate_order"
	AuditOpenTable      = "open_table"
	AuditCloseTable     = "close_table"
	AuditMergeTables    = "merge_tables"
	AuditSplitTables    = "split_tables"
	AuditApplyTip       = "apply_tip"
	AuditRecordPayment  = "record_payment"
	AuditUpdateSettings = "update_settings"
	AuditCashOperation  = "cash_operation"
)

type AuditEntry struct {
	Action     string
	EntityType string
	EntityID   uint
	Old        interface{}
	New        interface{}
}

type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Record writes an audit row. It never fails the caller: errors are logged
// and dropped.
func (s *AuditService) Record(ctx context.Context, actor Actor, e AuditEntry) {
	row := models.AuditLog{
		UserID:     actor.UserID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		OldValues:  toJSON(e.Old),
		NewValues:  toJSON(e.New),
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		utils.ErrorLogger.WithFields(logrus.Fields{
			"action":    e.Action,
			"entity":    e.EntityType,
			"entity_id": e.EntityID,
		}).WithError(err).Error("audit write failed")
	}
}

func toJSON(v interface{}) datatypes.JSON {
	if v == nil {
		return nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		utils.ErrorLogger.WithError(err).Warn("audit payload not serialisable")
		return nil
	}
	return datatypes.JSON(b)
}

func (s *AuditService) Recent(ctx context.Context, limit int) ([]models.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var logs []models.AuditLog
	err := s.db.WithContext(ctx).Order("created_at desc, id desc").Limit(limit).Find(&logs).Error
	return logs, dbError(err, "list audit log")
}

func (s *AuditService) ForEntity(ctx context.Context, entityType string, id uint) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := s.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, id).
		Order("id asc").
		Find(&logs).Error
	return logs, dbError(err, "list audit log")
}
