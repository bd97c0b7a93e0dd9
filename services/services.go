package services

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// Actor is the staff member behind a request, as supplied by the auth layer.
type Actor struct {
	UserID    *uint
	IPAddress string
	UserAgent string
}

type Options struct {
	// StrictTransitions enforces the order status transition table.
	StrictTransitions bool
	Now               func() time.Time
}

// Services wires the components together over one database handle.
type Services struct {
	Orders   *OrderService
	Tables   *TableService
	Kitchen  *KitchenService
	Payments *PaymentService
	Audit    *AuditService
	Settings *SettingsService
	Catalog  *CatalogService
	Bills    *BillService
	Cashier  *CashierService
}

func New(db *gorm.DB, opts Options) *Services {
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	audit := NewAuditService(db)
	settings := NewSettingsService(db, audit)
	catalog := NewCatalogService(db)
	tables := NewTableService(db, audit, now)
	orders := NewOrderService(db, catalog, tables, settings, audit, opts.StrictTransitions, now)
	kitchen := NewKitchenService(db, now)
	payments := NewPaymentService(db, audit, now)

	return &Services{
		Orders:   orders,
		Tables:   tables,
		Kitchen:  kitchen,
		Payments: payments,
		Audit:    audit,
		Settings: settings,
		Catalog:  catalog,
		Bills:    NewBillService(db, settings),
		Cashier:  NewCashierService(db, audit, now),
	}
}

var errVersionConflict = errors.New("order version changed concurrently")

const maxVersionRetries = 3

// transact runs fn in one transaction, retrying when an optimistic version
// check on an order loses.
func transact(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	var err error
	for attempt := 0; attempt < maxVersionRetries; attempt++ {
		err = db.WithContext(ctx).Transaction(fn)
		if !errors.Is(err, errVersionConflict) {
			return dbError(err, "commit transaction")
		}
		utils.InfoLogger.WithField("attempt", attempt+1).Warn("order version conflict, retrying")
	}
	return &Error{Kind: KindStorageFailure, Message: "order kept changing, giving up", Err: err}
}

// lockOrder reads an order with a row lock. sqlite ignores the lock clause
// and serialises writers itself.
func lockOrder(tx *gorm.DB, id uint) (*models.Order, error) {
	var order models.Order
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&order, id).Error; err != nil {
		return nil, findErr(err, "order", id)
	}
	return &order, nil
}

func lockTable(tx *gorm.DB, id uint) (*models.Table, error) {
	var table models.Table
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&table, id).Error; err != nil {
		return nil, findErr(err, "table", id)
	}
	return &table, nil
}

// saveOrderFields writes fields on a locked order and bumps its version.
func saveOrderFields(tx *gorm.DB, order *models.Order, fields map[string]interface{}) error {
	fields["version"] = order.Version + 1
	res := tx.Model(&models.Order{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(fields)
	if res.Error != nil {
		return dbError(res.Error, "update order")
	}
	if res.RowsAffected == 0 {
		return errVersionConflict
	}
	order.Version++
	return nil
}

// computeTotal applies the ledger rule: sum of item lines plus the
// delivery fee for delivery orders, never below zero.
func computeTotal(order *models.Order, items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for i := range items {
		total = total.Add(items[i].LineTotal())
	}
	if order.Channel == models.ChannelEntrega {
		total = total.Add(order.DeliveryFee)
	}
	if total.IsNegative() {
		return decimal.Zero
	}
	return total.Round(2)
}

// recomputeTotal reloads the items of a locked order and persists the total.
func recomputeTotal(tx *gorm.DB, order *models.Order) error {
	var items []models.OrderItem
	if err := tx.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
		return dbError(err, "load order items")
	}
	total := computeTotal(order, items)
	if err := saveOrderFields(tx, order, map[string]interface{}{"total": total}); err != nil {
		return err
	}
	order.Total = total
	order.Items = items
	return nil
}

// releaseOrderTables frees every table still bound to orderID and returns
// them. Active groups formed around the order are dissolved with it.
func releaseOrderTables(tx *gorm.DB, orderID uint, now time.Time) ([]models.Table, error) {
	var tables []models.Table
	if err := tx.Where("current_order_id = ?", orderID).Find(&tables).Error; err != nil {
		return nil, dbError(err, "load bound tables")
	}
	if len(tables) > 0 {
		err := tx.Model(&models.Table{}).
			Where("current_order_id = ?", orderID).
			Updates(map[string]interface{}{"status": models.TableLivre, "current_order_id": nil}).Error
		if err != nil {
			return nil, dbError(err, "release tables")
		}
		for i := range tables {
			tables[i].Status = models.TableLivre
			tables[i].CurrentOrderID = nil
		}
	}
	if err := dissolveOrderGroups(tx, orderID, now); err != nil {
		return nil, err
	}
	return tables, nil
}

func dissolveOrderGroups(tx *gorm.DB, orderID uint, now time.Time) error {
	var groups []models.TableGrouping
	err := tx.Preload("Members").
		Where("merged_order_id = ? AND dissolved_at IS NULL", orderID).
		Find(&groups).Error
	if err != nil {
		return dbError(err, "load order groups")
	}
	for _, g := range groups {
		for _, id := range g.TableIDs() {
			hist := models.TableMergeHistory{
				GroupID:       g.ID,
				SourceTableID: id,
				Action:        models.MergeActionSplit,
				CreatedAt:     now,
			}
			if err := tx.Create(&hist).Error; err != nil {
				return dbError(err, "write split history")
			}
		}
		if err := tx.Model(&models.TableGrouping{}).Where("id = ?", g.ID).Update("dissolved_at", now).Error; err != nil {
			return dbError(err, "dissolve group")
		}
	}
	return nil
}

func uintPtr(v uint) *uint { return &v }
