package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// OrderService owns orders, their items and the running total.
type OrderService struct {
	db       *gorm.DB
	catalog  ProductCatalog
	tables   *TableService
	settings *SettingsService
	audit    *AuditService
	strict   bool
	now      func() time.Time
}

func NewOrderService(db *gorm.DB, catalog ProductCatalog, tables *TableService, settings *SettingsService,
	audit *AuditService, strict bool, now func() time.Time) *OrderService {
	return &OrderService{
		db:       db,
		catalog:  catalog,
		tables:   tables,
		settings: settings,
		audit:    audit,
		strict:   strict,
		now:      now,
	}
}

type CreateOrderInput struct {
	TableID         *uint          `json:"table_id"`
	CustomerID      *uint          `json:"customer_id"`
	Channel         models.Channel `json:"channel"`
	Notes           string         `json:"notes"`
	DeliveryAddress string         `json:"delivery_address"`
	Force           bool           `json:"force"`
}

// CreateOrder opens an order in pendente, binding its table when given.
func (s *OrderService) CreateOrder(ctx context.Context, in CreateOrderInput, actor Actor) (*models.Order, *models.Table, error) {
	channel := in.Channel
	if channel == "" {
		channel = models.ChannelRetirada
		if in.TableID != nil {
			channel = models.ChannelMesa
		}
	}
	if !channel.Valid() {
		return nil, nil, newError(KindInvalidRequest, "unknown channel %q", channel)
	}
	if channel == models.ChannelMesa && in.TableID == nil {
		return nil, nil, newError(KindInvalidRequest, "table orders need a table")
	}

	fee := decimal.Zero
	if channel == models.ChannelEntrega {
		st, err := s.settings.Load(ctx)
		if err != nil {
			return nil, nil, err
		}
		if !st.EnableDelivery {
			return nil, nil, newError(KindInvalidRequest, "delivery is disabled")
		}
		fee = st.DeliveryFee
	}

	order := models.Order{
		TableID:         in.TableID,
		CustomerID:      in.CustomerID,
		StaffID:         actor.UserID,
		Status:          models.OrderPendente,
		Channel:         channel,
		DeliveryFee:     fee,
		DeliveryAddress: in.DeliveryAddress,
		Notes:           in.Notes,
		Version:         1,
	}
	order.Total = computeTotal(&order, nil)

	var table *models.Table
	err := transact(ctx, s.db, func(tx *gorm.DB) error {
		order.ID = 0
		if err := tx.Create(&order).Error; err != nil {
			return dbError(err, "create order")
		}
		if in.TableID == nil {
			return nil
		}
		var err error
		table, err = bindTable(tx, *in.TableID, order.ID, in.Force)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id": order.ID,
		"channel":  order.Channel,
		"table_id": order.TableID,
	}).Info("order created")
	s.audit.Record(ctx, actor, AuditEntry{
		Action: AuditCreateOrder, EntityType: "order", EntityID: order.ID,
		New: map[string]interface{}{"channel": order.Channel, "table_id": order.TableID, "total": order.Total},
	})
	order.Items = []models.OrderItem{}
	return &order, table, nil
}

func (s *OrderService) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Items.Product").
		First(&order, id).Error
	if err != nil {
		return nil, findErr(err, "order", id)
	}
	return &order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, statuses ...models.OrderStatus) ([]models.Order, error) {
	q := s.db.WithContext(ctx).Preload("Items").Order("created_at desc, id desc")
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var orders []models.Order
	return orders, dbError(q.Find(&orders).Error, "list orders")
}

// AddItem snapshots the product price and recomputes the total under the
// order's row lock.
func (s *OrderService) AddItem(ctx context.Context, orderID, productID uint, quantity int, notes string) (*models.OrderItem, *models.Order, error) {
	if quantity <= 0 {
		return nil, nil, ErrInvalidQuantity
	}
	product, err := s.catalog.GetProduct(ctx, productID)
	if err != nil {
		return nil, nil, err
	}

	var (
		item  models.OrderItem
		order *models.Order
	)
	err = transact(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		if order, err = lockOrder(tx, orderID); err != nil {
			return err
		}
		if s.strict && order.Status.Terminal() {
			return newError(KindInvalidTransition, "order %d is %s", order.ID, order.Status)
		}
		item = models.OrderItem{
			OrderID:   order.ID,
			ProductID: product.ID,
			Quantity:  quantity,
			Price:     product.Price,
			Notes:     notes,
			Status:    models.ItemNovo,
		}
		if err := tx.Create(&item).Error; err != nil {
			return dbError(err, "create order item")
		}
		return recomputeTotal(tx, order)
	})
	if err != nil {
		return nil, nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id": orderID, "product_id": productID, "quantity": quantity, "total": order.Total.StringFixed(2),
	}).Debug("item added")
	item.Product = product
	return &item, order, nil
}

func (s *OrderService) RemoveItem(ctx context.Context, orderID, itemID uint) (*models.Order, error) {
	var order *models.Order
	err := transact(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		if order, err = lockOrder(tx, orderID); err != nil {
			return err
		}
		var item models.OrderItem
		if err := tx.First(&item, itemID).Error; err != nil {
			return findErr(err, "order item", itemID)
		}
		if item.OrderID != order.ID {
			return newError(KindItemNotInOrder, "item %d does not belong to order %d", itemID, orderID)
		}
		if err := tx.Delete(&item).Error; err != nil {
			return dbError(err, "delete order item")
		}
		return recomputeTotal(tx, order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// UpdateOrderStatus moves an order to newStatus. Entering pago, finalizado
// or cancelado frees every table still bound to the order.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, orderID uint, newStatus models.OrderStatus, actor Actor) (*models.Order, []models.Table, error) {
	if !newStatus.Valid() {
		return nil, nil, newError(KindInvalidTransition, "unknown order status %q", newStatus)
	}

	var (
		order    *models.Order
		old      models.OrderStatus
		released []models.Table
	)
	err := transact(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		if order, err = lockOrder(tx, orderID); err != nil {
			return err
		}
		old = order.Status
		if s.strict && old != newStatus && !old.CanTransition(newStatus) {
			return newError(KindInvalidTransition, "cannot move order from %s to %s", old, newStatus)
		}
		if err := saveOrderFields(tx, order, map[string]interface{}{"status": newStatus}); err != nil {
			return err
		}
		order.Status = newStatus
		if newStatus.Terminal() {
			released, err = releaseOrderTables(tx, order.ID, s.now())
			return err
		}
		released = nil
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id": orderID, "from": old, "to": newStatus, "released_tables": len(released),
	}).Info("order status changed")
	s.audit.Record(ctx, actor, AuditEntry{
		Action: AuditUpdateStatus, EntityType: "order", EntityID: orderID,
		Old: map[string]interface{}{"status": old},
		New: map[string]interface{}{"status": newStatus},
	})
	return order, released, nil
}

// DeleteOrder removes an order with everything hanging off it.
func (s *OrderService) DeleteOrder(ctx context.Context, orderID uint, actor Actor) ([]models.Table, error) {
	var (
		order    *models.Order
		released []models.Table
	)
	err := transact(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		if order, err = lockOrder(tx, orderID); err != nil {
			return err
		}
		if released, err = releaseOrderTables(tx, orderID, s.now()); err != nil {
			return err
		}
		for _, m := range []interface{}{
			&models.Payment{}, &models.PaymentSplit{}, &models.OrderServiceCharge{},
			&models.OrderTransfer{}, &models.OrderItem{},
		} {
			if err := tx.Where("order_id = ?", orderID).Delete(m).Error; err != nil {
				return dbError(err, "delete order children")
			}
		}
		return dbError(tx.Delete(&models.Order{}, orderID).Error, "delete order")
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, AuditEntry{
		Action: AuditDeleteOrder, EntityType: "order", EntityID: orderID,
		Old: map[string]interface{}{"status": order.Status, "total": order.Total},
	})
	return released, nil
}

// TransferOrder hands an order to another staff member.
func (s *OrderService) TransferOrder(ctx context.Context, orderID, toStaffID uint, reason string, actor Actor) (*models.OrderTransfer, error) {
	var (
		transfer models.OrderTransfer
		from     *uint
	)
	err := transact(ctx, s.db, func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		var staff models.User
		if err := tx.Select("id").First(&staff, toStaffID).Error; err != nil {
			return findErr(err, "staff member", toStaffID)
		}
		from = order.StaffID
		transfer = models.OrderTransfer{
			OrderID:       order.ID,
			FromStaffID:   from,
			ToStaffID:     toStaffID,
			Reason:        reason,
			TransferredAt: s.now(),
		}
		if err := tx.Create(&transfer).Error; err != nil {
			return dbError(err, "record transfer")
		}
		return saveOrderFields(tx, order, map[string]interface{}{"staff_id": toStaffID})
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actor, AuditEntry{
		Action: AuditTransferOrder, EntityType: "order", EntityID: orderID,
		Old: map[string]interface{}{"staff_id": from},
		New: map[string]interface{}{"staff_id": toStaffID, "reason": reason},
	})
	return &transfer, nil
}

// DuplicateOrder opens a new order with the same items at their original
// prices, optionally on another table.
func (s *OrderService) DuplicateOrder(ctx context.Context, orderID uint, tableID *uint, actor Actor) (*models.Order, *models.Table, error) {
	var (
		dup   models.Order
		table *models.Table
	)
	err := transact(ctx, s.db, func(tx *gorm.DB) error {
		var src models.Order
		if err := tx.Preload("Items").First(&src, orderID).Error; err != nil {
			return findErr(err, "order", orderID)
		}
		channel := src.Channel
		if tableID != nil {
			channel = models.ChannelMesa
		} else if channel == models.ChannelMesa {
			channel = models.ChannelRetirada
		}
		dup = models.Order{
			TableID:         tableID,
			CustomerID:      src.CustomerID,
			StaffID:         actor.UserID,
			Status:          models.OrderPendente,
			Channel:         channel,
			DeliveryAddress: src.DeliveryAddress,
			Notes:           src.Notes,
			Version:         1,
		}
		if channel == models.ChannelEntrega {
			dup.DeliveryFee = src.DeliveryFee
		}
		if err := tx.Create(&dup).Error; err != nil {
			return dbError(err, "create order")
		}
		for _, it := range src.Items {
			copyItem := models.OrderItem{
				OrderID:   dup.ID,
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				Price:     it.Price,
				Notes:     it.Notes,
				Status:    models.ItemNovo,
			}
			if err := tx.Create(&copyItem).Error; err != nil {
				return dbError(err, "copy order item")
			}
		}
		if tableID != nil {
			var err error
			if table, err = bindTable(tx, *tableID, dup.ID, false); err != nil {
				return err
			}
		}
		return recomputeTotal(tx, &dup)
	})
	if err != nil {
		return nil, nil, err
	}
	s.audit.Record(ctx, actor, AuditEntry{
		Action: AuditDuplicateOrder, EntityType: "order", EntityID: dup.ID,
		New: map[string]interface{}{"source_order_id": orderID, "table_id": tableID},
	})
	return &dup, table, nil
}
