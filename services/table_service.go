package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// TableService tracks which order, if any, holds each table.
type TableService struct {
	db    *gorm.DB
	audit *AuditService
	now   func() time.Time
}

func NewTableService(db *gorm.DB, audit *AuditService, now func() time.Time) *TableService {
	return &TableService{db: db, audit: audit, now: now}
}

func (s *TableService) CreateTable(ctx context.Context, number, capacity int) (*models.Table, error) {
	if number <= 0 {
		return nil, newError(KindInvalidRequest, "table number must be positive")
	}
	if capacity <= 0 {
		capacity = 4
	}
	var count int64
	if err := s.db.WithContext(ctx).Model(&models.Table{}).Where("number = ?", number).Count(&count).Error; err != nil {
		return nil, dbError(err, "check table number")
	}
	if count > 0 {
		return nil, newError(KindInvalidRequest, "table %d already exists", number)
	}
	table := models.Table{Number: number, Capacity: capacity, Status: models.TableLivre}
	if err := s.db.WithContext(ctx).Create(&table).Error; err != nil {
		return nil, dbError(err, "create table")
	}
	return &table, nil
}

func (s *TableService) GetTable(ctx context.Context, id uint) (*models.Table, error) {
	var table models.Table
	if err := s.db.WithContext(ctx).First(&table, id).Error; err != nil {
		return nil, findErr(err, "table", id)
	}
	return &table, nil
}

func (s *TableService) ListTables(ctx context.Context) ([]models.Table, error) {
	var tables []models.Table
	err := s.db.WithContext(ctx).Order("number asc").Find(&tables).Error
	return tables, dbError(err, "list tables")
}

// BindOrder attaches an existing order to a table. An order moving from
// another table frees it.
func (s *TableService) BindOrder(ctx context.Context, tableID, orderID uint, force bool) (*models.Table, error) {
	var bound *models.Table
	err := transact(ctx, s.db, func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		bound, err = bindTable(tx, tableID, orderID, force)
		if err != nil {
			return err
		}
		if order.TableID != nil && *order.TableID == tableID {
			return nil
		}
		if order.TableID != nil {
			prev, err := lockTable(tx, *order.TableID)
			if err != nil && !errors.Is(err, ErrNotFound) {
				return err
			}
			if err == nil && prev.CurrentOrderID != nil && *prev.CurrentOrderID == orderID {
				if err := releaseTable(tx, prev); err != nil {
					return err
				}
			}
		}
		return saveOrderFields(tx, order, map[string]interface{}{"table_id": tableID})
	})
	if err != nil {
		return nil, err
	}
	return bound, nil
}

// bindTable marks a table occupied by orderID. A table already holding a
// different open order refuses unless force is set; a binding left behind
// by a settled or cancelled order is simply replaced.
func bindTable(tx *gorm.DB, tableID, orderID uint, force bool) (*models.Table, error) {
	table, err := lockTable(tx, tableID)
	if err != nil {
		return nil, err
	}
	if table.CurrentOrderID != nil && *table.CurrentOrderID != orderID && !force {
		var current models.Order
		err := tx.Select("id", "status").First(&current, *table.CurrentOrderID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, dbError(err, "load bound order")
		}
		if err == nil && current.Status.Open() {
			return nil, newError(KindAlreadyOccupied, "table %d is held by order %d", table.Number, current.ID)
		}
	}
	err = tx.Model(table).Updates(map[string]interface{}{
		"status":           models.TableOcupada,
		"current_order_id": orderID,
	}).Error
	if err != nil {
		return nil, dbError(err, "bind table")
	}
	table.Status = models.TableOcupada
	table.CurrentOrderID = uintPtr(orderID)
	return table, nil
}

func releaseTable(tx *gorm.DB, table *models.Table) error {
	err := tx.Model(table).Updates(map[string]interface{}{
		"status":           models.TableLivre,
		"current_order_id": nil,
	}).Error
	if err != nil {
		return dbError(err, "release table")
	}
	table.Status = models.TableLivre
	table.CurrentOrderID = nil
	return nil
}

// Release frees a table unconditionally.
func (s *TableService) Release(ctx context.Context, tableID uint) (*models.Table, error) {
	var table *models.Table
	err := transact(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		if table, err = lockTable(tx, tableID); err != nil {
			return err
		}
		return releaseTable(tx, table)
	})
	if err != nil {
		return nil, err
	}
	return table, nil
}

// OpenTable seats guests before any order exists.
func (s *TableService) OpenTable(ctx context.Context, tableID uint, actor Actor) (*models.Table, error) {
	var table *models.Table
	err := transact(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		if table, err = lockTable(tx, tableID); err != nil {
			return err
		}
		if table.Status == models.TableOcupada {
			return newError(KindAlreadyOccupied, "table %d already occupied", table.Number)
		}
		table.Status = models.TableOcupada
		return dbError(tx.Model(table).Update("status", models.TableOcupada).Error, "open table")
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, AuditEntry{
		Action: AuditOpenTable, EntityType: "table", EntityID: table.ID,
		Old: map[string]interface{}{"status": models.TableLivre},
		New: map[string]interface{}{"status": models.TableOcupada},
	})
	return table, nil
}

// CloseTable frees a table once its order has been paid.
func (s *TableService) CloseTable(ctx context.Context, tableID uint, actor Actor) (*models.Table, error) {
	var (
		table     *models.Table
		oldStatus models.TableStatus
		oldOrder  *uint
	)
	err := transact(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		if table, err = lockTable(tx, tableID); err != nil {
			return err
		}
		oldStatus, oldOrder = table.Status, table.CurrentOrderID
		if table.CurrentOrderID != nil {
			var order models.Order
			err := tx.Select("id", "status").First(&order, *table.CurrentOrderID).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return dbError(err, "load bound order")
			}
			if err == nil && order.Status != models.OrderPago && order.Status != models.OrderFinalizado {
				return newError(KindPaymentNotConfirmed, "order %d is %s, not paid", order.ID, order.Status)
			}
		}
		return releaseTable(tx, table)
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, AuditEntry{
		Action: AuditCloseTable, EntityType: "table", EntityID: table.ID,
		Old: map[string]interface{}{"status": oldStatus, "current_order_id": oldOrder},
		New: map[string]interface{}{"status": models.TableLivre},
	})
	return table, nil
}

// MergeTables groups tables under the first table's current order.
func (s *TableService) MergeTables(ctx context.Context, tableIDs []uint, name string, actor Actor) (*models.TableGrouping, []models.Table, error) {
	ids := dedupe(tableIDs)
	if len(ids) < 2 {
		return nil, nil, newError(KindInvalidRequest, "select at least two tables")
	}
	if name == "" {
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = strconv.FormatUint(uint64(id), 10)
		}
		name = "Mesas " + strings.Join(parts, ",")
	}

	var (
		group  models.TableGrouping
		tables []models.Table
	)
	err := transact(ctx, s.db, func(tx *gorm.DB) error {
		tables = tables[:0]
		for _, id := range ids {
			t, err := lockTable(tx, id)
			if err != nil {
				return err
			}
			tables = append(tables, *t)
		}

		var grouped int64
		err := tx.Model(&models.TableGroupMember{}).
			Joins("JOIN table_groupings ON table_groupings.id = table_group_members.group_id").
			Where("table_group_members.table_id IN ? AND table_groupings.dissolved_at IS NULL", ids).
			Count(&grouped).Error
		if err != nil {
			return dbError(err, "check table groups")
		}
		if grouped > 0 {
			return newError(KindInvalidRequest, "a selected table already belongs to a group")
		}

		primary := tables[0]
		merged := primary.CurrentOrderID
		for _, t := range tables[1:] {
			if t.CurrentOrderID == nil || (merged != nil && *t.CurrentOrderID == *merged) {
				continue
			}
			var other models.Order
			err := tx.Select("id", "status").First(&other, *t.CurrentOrderID).Error
			if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
				return dbError(err, "load bound order")
			}
			if err == nil && other.Status.Open() {
				return newError(KindAlreadyOccupied, "table %d is held by order %d", t.Number, other.ID)
			}
		}

		group = models.TableGrouping{
			Name:           name,
			PrimaryTableID: primary.ID,
			MergedOrderID:  merged,
			CreatedBy:      actor.UserID,
			CreatedAt:      s.now(),
		}
		for _, id := range ids {
			group.Members = append(group.Members, models.TableGroupMember{TableID: id})
		}
		if err := tx.Create(&group).Error; err != nil {
			return dbError(err, "create table group")
		}

		for i := range tables {
			fields := map[string]interface{}{"status": models.TableOcupada}
			if merged != nil {
				fields["current_order_id"] = *merged
			}
			if err := tx.Model(&tables[i]).Updates(fields).Error; err != nil {
				return dbError(err, "bind merged table")
			}
			tables[i].Status = models.TableOcupada
			if merged != nil {
				tables[i].CurrentOrderID = uintPtr(*merged)
			}

			hist := models.TableMergeHistory{
				GroupID:            group.ID,
				SourceTableID:      tables[i].ID,
				DestinationTableID: uintPtr(primary.ID),
				Action:             models.MergeActionMerge,
				PerformedBy:        actor.UserID,
				CreatedAt:          s.now(),
			}
			if err := tx.Create(&hist).Error; err != nil {
				return dbError(err, "write merge history")
			}
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{"group_id": group.ID, "tables": ids}).Info("tables merged")
	s.audit.Record(ctx, actor, AuditEntry{
		Action: AuditMergeTables, EntityType: "table_grouping", EntityID: group.ID,
		New: map[string]interface{}{"table_ids": ids, "name": name, "merged_order_id": group.MergedOrderID},
	})
	return &group, tables, nil
}

// SplitGroup dissolves a group. The primary table keeps the merged order;
// every other table is freed.
func (s *TableService) SplitGroup(ctx context.Context, groupID uint, actor Actor) (*models.TableGrouping, []models.Table, error) {
	var (
		group  models.TableGrouping
		tables []models.Table
	)
	err := transact(ctx, s.db, func(tx *gorm.DB) error {
		err := tx.Preload("Members").Where("dissolved_at IS NULL").First(&group, groupID).Error
		if err != nil {
			return findErr(err, "table group", groupID)
		}

		tables = tables[:0]
		for _, id := range group.TableIDs() {
			t, err := lockTable(tx, id)
			if err != nil {
				return err
			}
			if err := splitMember(tx, t, &group); err != nil {
				return err
			}
			tables = append(tables, *t)

			hist := models.TableMergeHistory{
				GroupID:       group.ID,
				SourceTableID: t.ID,
				Action:        models.MergeActionSplit,
				PerformedBy:   actor.UserID,
				CreatedAt:     s.now(),
			}
			if err := tx.Create(&hist).Error; err != nil {
				return dbError(err, "write split history")
			}
		}

		dissolved := s.now()
		group.DissolvedAt = &dissolved
		return dbError(tx.Model(&group).Update("dissolved_at", dissolved).Error, "dissolve group")
	})
	if err != nil {
		return nil, nil, err
	}

	s.audit.Record(ctx, actor, AuditEntry{
		Action: AuditSplitTables, EntityType: "table_grouping", EntityID: group.ID,
		Old: map[string]interface{}{"table_ids": group.TableIDs(), "order_preserved_on": group.PrimaryTableID},
	})
	return &group, tables, nil
}

// splitMember settles one table of a dissolving group. Only the primary
// keeps the merged order, and only while that order is open. A table that
// was rebound to another open order in the meantime is left untouched.
func splitMember(tx *gorm.DB, t *models.Table, group *models.TableGrouping) error {
	if t.CurrentOrderID == nil {
		return releaseTable(tx, t)
	}
	var order models.Order
	err := tx.Select("id", "status").First(&order, *t.CurrentOrderID).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return dbError(err, "load bound order")
	}
	if err != nil || !order.Status.Open() {
		return releaseTable(tx, t)
	}
	merged := group.MergedOrderID != nil && *group.MergedOrderID == order.ID
	if merged && t.ID != group.PrimaryTableID {
		return releaseTable(tx, t)
	}
	return nil
}

func (s *TableService) ListGroups(ctx context.Context, activeOnly bool) ([]models.TableGrouping, error) {
	q := s.db.WithContext(ctx).Preload("Members").Order("id desc")
	if activeOnly {
		q = q.Where("dissolved_at IS NULL")
	}
	var groups []models.TableGrouping
	return groups, dbError(q.Find(&groups).Error, "list table groups")
}

func (s *TableService) History(ctx context.Context, groupID uint) ([]models.TableMergeHistory, error) {
	var rows []models.TableMergeHistory
	err := s.db.WithContext(ctx).Where("group_id = ?", groupID).Order("id asc").Find(&rows).Error
	return rows, dbError(err, "list merge history")
}

func dedupe(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
