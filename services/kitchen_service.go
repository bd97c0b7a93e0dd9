package services

import (
	"context"
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// PriorityFor buckets an order age in minutes.
func PriorityFor(ageMinutes int) Priority {
	switch {
	case ageMinutes > 30:
		return PriorityCritical
	case ageMinutes > 20:
		return PriorityHigh
	case ageMinutes > 10:
		return PriorityMedium
	}
	return PriorityLow
}

// AgeMinutes is whole minutes since the order was created, never negative.
func AgeMinutes(order *models.Order, now time.Time) int {
	d := now.Sub(order.CreatedAt)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}

// PrepTimeMinutes measures kitchen time for one item; an item still being
// prepared is measured against now.
func PrepTimeMinutes(item *models.OrderItem, now time.Time) int {
	if item.PrepStartedAt == nil {
		return 0
	}
	end := now
	if item.PrepCompletedAt != nil {
		end = *item.PrepCompletedAt
	}
	if end.Before(*item.PrepStartedAt) {
		return 0
	}
	return int(end.Sub(*item.PrepStartedAt) / time.Minute)
}

type Progress struct {
	Done    int     `json:"done"`
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

func progressOf(items []models.OrderItem) Progress {
	p := Progress{Total: len(items)}
	for _, it := range items {
		if it.Status.Done() {
			p.Done++
		}
	}
	if p.Total > 0 {
		p.Percent = math.Round(float64(p.Done)/float64(p.Total)*1000) / 10
	}
	return p
}

type KitchenItem struct {
	ID          uint              `json:"id"`
	ProductName string            `json:"product_name"`
	Quantity    int               `json:"quantity"`
	Status      models.ItemStatus `json:"status"`
	Notes       string            `json:"notes,omitempty"`
	PrepSection string            `json:"prep_section"`
	PrepMinutes int               `json:"prep_minutes"`
}

type KitchenOrder struct {
	ID         uint               `json:"id"`
	TableLabel string             `json:"table_label"`
	Status     models.OrderStatus `json:"status"`
	Channel    models.Channel     `json:"channel"`
	AgeMinutes int                `json:"age_minutes"`
	Priority   Priority           `json:"priority"`
	Progress   Progress           `json:"progress"`
	Notes      string             `json:"notes,omitempty"`
	Items      []KitchenItem      `json:"items"`
}

// KitchenSnapshot is what the kitchen display polls.
type KitchenSnapshot struct {
	New       []KitchenOrder `json:"new"`
	Preparing []KitchenOrder `json:"preparing"`
	Ready     []KitchenOrder `json:"ready"`
	Timestamp time.Time      `json:"timestamp"`
}

type KitchenService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewKitchenService(db *gorm.DB, now func() time.Time) *KitchenService {
	return &KitchenService{db: db, now: now}
}

// SetItemStatus moves an item forward along novo, preparando, pronto,
// entregue and stamps the time the new status was reached.
func (s *KitchenService) SetItemStatus(ctx context.Context, itemID uint, status models.ItemStatus) (*models.OrderItem, error) {
	if !status.Valid() {
		return nil, newError(KindInvalidTransition, "unknown item status %q", status)
	}
	var item models.OrderItem
	err := transact(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&item, itemID).Error; err != nil {
			return findErr(err, "order item", itemID)
		}
		if item.Status == status {
			return nil
		}
		if status.Rank() < item.Status.Rank() {
			return newError(KindInvalidTransition, "item %d cannot go back from %s to %s", itemID, item.Status, status)
		}

		now := s.now()
		fields := map[string]interface{}{"status": status}
		switch status {
		case models.ItemPreparando:
			fields["prep_started_at"] = now
			item.PrepStartedAt = &now
		case models.ItemPronto:
			fields["prep_completed_at"] = now
			item.PrepCompletedAt = &now
		case models.ItemEntregue:
			fields["delivered_at"] = now
			item.DeliveredAt = &now
		}
		if err := tx.Model(&item).Updates(fields).Error; err != nil {
			return dbError(err, "update item status")
		}
		item.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}
	utils.InfoLogger.WithFields(logrus.Fields{
		"item_id": itemID, "order_id": item.OrderID, "status": item.Status,
	}).Debug("item status changed")
	return &item, nil
}

func (s *KitchenService) OrderProgress(ctx context.Context, orderID uint) (Progress, error) {
	var order models.Order
	if err := s.db.WithContext(ctx).Preload("Items").First(&order, orderID).Error; err != nil {
		return Progress{}, findErr(err, "order", orderID)
	}
	return progressOf(order.Items), nil
}

var kitchenStatuses = []models.OrderStatus{models.OrderPendente, models.OrderPreparando, models.OrderPronto}

// Snapshot groups the open kitchen orders by status, oldest first.
func (s *KitchenService) Snapshot(ctx context.Context) (*KitchenSnapshot, error) {
	now := s.now()
	var orders []models.Order
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Items.Product").
		Where("status IN ?", kitchenStatuses).
		Order("created_at asc, id asc").
		Find(&orders).Error
	if err != nil {
		return nil, dbError(err, "load kitchen orders")
	}

	tableIDs := make([]uint, 0, len(orders))
	for _, o := range orders {
		if o.TableID != nil {
			tableIDs = append(tableIDs, *o.TableID)
		}
	}
	numbers := make(map[uint]int, len(tableIDs))
	if len(tableIDs) > 0 {
		var tables []models.Table
		if err := s.db.WithContext(ctx).Select("id", "number").Where("id IN ?", tableIDs).Find(&tables).Error; err != nil {
			return nil, dbError(err, "load tables")
		}
		for _, t := range tables {
			numbers[t.ID] = t.Number
		}
	}

	snap := &KitchenSnapshot{
		New:       []KitchenOrder{},
		Preparing: []KitchenOrder{},
		Ready:     []KitchenOrder{},
		Timestamp: now,
	}
	for i := range orders {
		o := &orders[i]
		number := 0
		if o.TableID != nil {
			number = numbers[*o.TableID]
		}
		age := AgeMinutes(o, now)
		entry := KitchenOrder{
			ID:         o.ID,
			TableLabel: o.Label(number),
			Status:     o.Status,
			Channel:    o.Channel,
			AgeMinutes: age,
			Priority:   PriorityFor(age),
			Progress:   progressOf(o.Items),
			Notes:      o.Notes,
			Items:      make([]KitchenItem, 0, len(o.Items)),
		}
		for j := range o.Items {
			it := &o.Items[j]
			ki := KitchenItem{
				ID:          it.ID,
				Quantity:    it.Quantity,
				Status:      it.Status,
				Notes:       it.Notes,
				PrepSection: "geral",
				PrepMinutes: PrepTimeMinutes(it, now),
			}
			if it.Product != nil {
				ki.ProductName = it.Product.Name
				ki.PrepSection = it.Product.PrepSection
			}
			entry.Items = append(entry.Items, ki)
		}

		switch o.Status {
		case models.OrderPendente:
			snap.New = append(snap.New, entry)
		case models.OrderPreparando:
			snap.Preparing = append(snap.Preparing, entry)
		case models.OrderPronto:
			snap.Ready = append(snap.Ready, entry)
		}
	}
	return snap, nil
}
