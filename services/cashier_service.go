package services

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// CashierService closes the day for the register: what came in per
// payment method and what was moved in and out of the drawer by hand.
type CashierService struct {
	db    *gorm.DB
	audit *AuditService
	now   func() time.Time
}

func NewCashierService(db *gorm.DB, audit *AuditService, now func() time.Time) *CashierService {
	return &CashierService{db: db, audit: audit, now: now}
}

type CashOperationInput struct {
	Type   models.CashOperationType `json:"type" binding:"required"`
	Amount decimal.Decimal          `json:"amount"`
	Reason string                   `json:"reason"`
}

func (s *CashierService) RecordCashOperation(ctx context.Context, in CashOperationInput, actor Actor) (*models.CashOperation, error) {
	if !in.Type.Valid() {
		return nil, newError(KindInvalidRequest, "unknown cash operation %q", in.Type)
	}
	if !in.Amount.IsPositive() {
		return nil, newError(KindInvalidAmount, "cash operation amount must be positive")
	}
	op := models.CashOperation{
		Type:        in.Type,
		Amount:      in.Amount.Round(2),
		Reason:      in.Reason,
		PerformedBy: actor.UserID,
		CreatedAt:   s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&op).Error; err != nil {
		return nil, dbError(err, "create cash operation")
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"type": op.Type, "amount": op.Amount.StringFixed(2),
	}).Info("cash operation recorded")
	s.audit.Record(ctx, actor, AuditEntry{
		Action: AuditCashOperation, EntityType: "cash_operation", EntityID: op.ID,
		New: map[string]interface{}{"type": op.Type, "amount": op.Amount, "reason": op.Reason},
	})
	return &op, nil
}

func (s *CashierService) ListCashOperations(ctx context.Context, day time.Time) ([]models.CashOperation, error) {
	from, to := dayBounds(day)
	var ops []models.CashOperation
	err := s.db.WithContext(ctx).
		Where("created_at >= ? AND created_at < ?", from, to).
		Order("created_at desc, id desc").
		Find(&ops).Error
	return ops, dbError(err, "list cash operations")
}

type MethodTotal struct {
	Method string          `json:"method"`
	Count  int             `json:"count"`
	Total  decimal.Decimal `json:"total"`
}

type DailySummary struct {
	Date       string          `json:"date"`
	Payments   int             `json:"payments"`
	Total      decimal.Decimal `json:"total"`
	Cash       decimal.Decimal `json:"cash"`
	Card       decimal.Decimal `json:"card"`
	Pix        decimal.Decimal `json:"pix"`
	Other      decimal.Decimal `json:"other"`
	ByMethod   []MethodTotal   `json:"by_method"`
	Sangria    decimal.Decimal `json:"sangria"`
	Suprimento decimal.Decimal `json:"suprimento"`
	// Drawer is the cash expected in the register: cash payments plus
	// suprimentos minus sangrias.
	Drawer decimal.Decimal `json:"drawer"`
}

// DailySummary totals the paid payments of one day by method. A payment
// counts on the day it became paid.
func (s *CashierService) DailySummary(ctx context.Context, day time.Time) (*DailySummary, error) {
	from, to := dayBounds(day)
	var payments []models.Payment
	err := s.db.WithContext(ctx).
		Select("id", "method", "amount").
		Where("status = ? AND updated_at >= ? AND updated_at < ?", models.PaymentPago, from, to).
		Find(&payments).Error
	if err != nil {
		return nil, dbError(err, "load day payments")
	}
	ops, err := s.ListCashOperations(ctx, day)
	if err != nil {
		return nil, err
	}

	sum := &DailySummary{
		Date:     from.Format("2006-01-02"),
		Payments: len(payments),
		ByMethod: []MethodTotal{},
	}
	perMethod := map[string]*MethodTotal{}
	for _, p := range payments {
		mt, ok := perMethod[p.Method]
		if !ok {
			mt = &MethodTotal{Method: p.Method}
			perMethod[p.Method] = mt
		}
		mt.Count++
		mt.Total = mt.Total.Add(p.Amount)
		sum.Total = sum.Total.Add(p.Amount)

		switch p.Method {
		case "dinheiro":
			sum.Cash = sum.Cash.Add(p.Amount)
		case "credito", "debito", "cartao":
			sum.Card = sum.Card.Add(p.Amount)
		case "pix":
			sum.Pix = sum.Pix.Add(p.Amount)
		default:
			sum.Other = sum.Other.Add(p.Amount)
		}
	}
	for _, mt := range perMethod {
		sum.ByMethod = append(sum.ByMethod, *mt)
	}
	sort.Slice(sum.ByMethod, func(i, j int) bool { return sum.ByMethod[i].Method < sum.ByMethod[j].Method })

	for _, op := range ops {
		if op.Type == models.CashSangria {
			sum.Sangria = sum.Sangria.Add(op.Amount)
		} else {
			sum.Suprimento = sum.Suprimento.Add(op.Amount)
		}
	}
	sum.Drawer = sum.Cash.Add(sum.Suprimento).Sub(sum.Sangria)
	return sum, nil
}

// Today is the current day on the service clock.
func (s *CashierService) Today() time.Time {
	return s.now()
}

func dayBounds(day time.Time) (time.Time, time.Time) {
	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	return from, from.AddDate(0, 0, 1)
}
