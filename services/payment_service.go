package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// DefaultTipPercentage applies when no automatic policy is active.
var DefaultTipPercentage = decimal.NewFromInt(10)

var hundred = decimal.NewFromInt(100)

// MaxTipPercentage is the largest percentage the tip columns can hold.
var MaxTipPercentage = decimal.RequireFromString("999.99")

// MaxSplitCount bounds how many shares one bill can be divided into.
const MaxSplitCount = 100

// PaymentService records payments, tips and bill splits against an order.
// It never moves the order status; settlement goes through the ledger.
type PaymentService struct {
	db    *gorm.DB
	audit *AuditService
	now   func() time.Time
}

func NewPaymentService(db *gorm.DB, audit *AuditService, now func() time.Time) *PaymentService {
	return &PaymentService{db: db, audit: audit, now: now}
}

func (s *PaymentService) RecordPayment(ctx context.Context, orderID uint, amount decimal.Decimal, method string,
	status models.PaymentStatus, actor Actor) (*models.Payment, error) {
	if !amount.IsPositive() {
		return nil, newError(KindInvalidAmount, "payment amount must be positive")
	}
	if method == "" {
		return nil, newError(KindInvalidRequest, "payment method is required")
	}
	if status == "" {
		status = models.PaymentPago
	}
	if status != models.PaymentPago && status != models.PaymentPendente {
		return nil, newError(KindInvalidRequest, "unknown payment status %q", status)
	}

	payment := models.Payment{
		Amount:    amount.Round(2),
		Method:    method,
		Status:    status,
		Reference: uuid.NewString(),
	}
	err := transact(ctx, s.db, func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		payment.ID = 0
		payment.OrderID = order.ID
		if err := tx.Create(&payment).Error; err != nil {
			return dbError(err, "create payment")
		}
		if status == models.PaymentPago {
			return saveOrderFields(tx, order, map[string]interface{}{"payment_method": method})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	utils.InfoLogger.WithFields(logrus.Fields{
		"order_id": orderID, "payment_id": payment.ID, "amount": payment.Amount.StringFixed(2), "method": method,
	}).Info("payment recorded")
	s.audit.Record(ctx, actor, AuditEntry{
		Action: AuditRecordPayment, EntityType: "order", EntityID: orderID,
		New: map[string]interface{}{"payment_id": payment.ID, "amount": payment.Amount, "method": method, "status": status},
	})
	return &payment, nil
}

// ConfirmPayment settles a pending payment; confirming twice is a no-op.
func (s *PaymentService) ConfirmPayment(ctx context.Context, paymentID uint) (*models.Payment, error) {
	var payment models.Payment
	err := transact(ctx, s.db, func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&payment, paymentID).Error; err != nil {
			return findErr(err, "payment", paymentID)
		}
		if payment.Status == models.PaymentPago {
			return nil
		}
		order, err := lockOrder(tx, payment.OrderID)
		if err != nil {
			return err
		}
		if err := tx.Model(&payment).Update("status", models.PaymentPago).Error; err != nil {
			return dbError(err, "confirm payment")
		}
		payment.Status = models.PaymentPago
		return saveOrderFields(tx, order, map[string]interface{}{"payment_method": payment.Method})
	})
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (s *PaymentService) ListPayments(ctx context.Context, orderID uint) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.WithContext(ctx).Where("order_id = ?", orderID).Order("id asc").Find(&payments).Error
	return payments, dbError(err, "list payments")
}

// PaidAmount sums the confirmed payments of an order.
func (s *PaymentService) PaidAmount(ctx context.Context, orderID uint) (decimal.Decimal, error) {
	payments, err := s.ListPayments(ctx, orderID)
	if err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, p := range payments {
		if p.Status == models.PaymentPago {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

// TipRequest is either a manual amount or an automatic percentage.
type TipRequest struct {
	Type     models.ChargeType `json:"type"`
	Amount   *decimal.Decimal  `json:"amount"`
	PolicyID *uint             `json:"policy_id"`
}

// ApplyTip records a service charge and mirrors it on the order.
func (s *PaymentService) ApplyTip(ctx context.Context, orderID uint, req TipRequest, actor Actor) (*models.OrderServiceCharge, *models.Order, error) {
	switch req.Type {
	case models.ChargeManual:
		if req.Amount == nil || req.Amount.IsNegative() {
			return nil, nil, newError(KindInvalidAmount, "manual tip needs a non-negative amount")
		}
	case models.ChargeAutomatic:
	default:
		return nil, nil, newError(KindInvalidRequest, "unknown tip type %q", req.Type)
	}

	var (
		charge models.OrderServiceCharge
		order  *models.Order
	)
	err := transact(ctx, s.db, func(tx *gorm.DB) error {
		var err error
		if order, err = lockOrder(tx, orderID); err != nil {
			return err
		}

		charge = models.OrderServiceCharge{OrderID: order.ID, Type: req.Type}
		if req.Type == models.ChargeManual {
			charge.Amount = req.Amount.Round(2)
			charge.Percentage = decimal.Zero
			if order.Total.IsPositive() {
				charge.Percentage = charge.Amount.Div(order.Total).Mul(hundred).Round(2)
			}
			if charge.Percentage.GreaterThan(MaxTipPercentage) {
				return newError(KindInvalidAmount, "tip of %s is over %s%% of the order total",
					charge.Amount.StringFixed(2), MaxTipPercentage.String())
			}
		} else {
			pct, policyID, err := automaticPercentage(tx, req.PolicyID)
			if err != nil {
				return err
			}
			charge.PolicyID = policyID
			charge.Percentage = pct
			charge.Amount = order.Total.Mul(pct).Div(hundred).Round(2)
		}

		if err := tx.Create(&charge).Error; err != nil {
			return dbError(err, "create service charge")
		}
		if err := saveOrderFields(tx, order, map[string]interface{}{
			"tip_amount":     charge.Amount,
			"tip_percentage": charge.Percentage,
		}); err != nil {
			return err
		}
		order.TipAmount, order.TipPercentage = charge.Amount, charge.Percentage
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	s.audit.Record(ctx, actor, AuditEntry{
		Action: AuditApplyTip, EntityType: "order", EntityID: orderID,
		New: map[string]interface{}{"type": charge.Type, "amount": charge.Amount, "percentage": charge.Percentage},
	})
	return &charge, order, nil
}

func automaticPercentage(tx *gorm.DB, policyID *uint) (decimal.Decimal, *uint, error) {
	var policy models.ServiceChargePolicy
	if policyID != nil {
		if err := tx.First(&policy, *policyID).Error; err != nil {
			return decimal.Zero, nil, findErr(err, "service charge policy", *policyID)
		}
		return policy.Percentage, &policy.ID, nil
	}
	res := tx.Where("is_automatic = ? AND active = ?", true, true).Order("id asc").Limit(1).Find(&policy)
	if res.Error != nil {
		return decimal.Zero, nil, dbError(res.Error, "load service charge policy")
	}
	if res.RowsAffected == 0 {
		return DefaultTipPercentage, nil, nil
	}
	return policy.Percentage, &policy.ID, nil
}

// SplitEqually divides total plus tip into n shares rounded to cents; the
// last share takes the remainder so the shares add up exactly. Splitting
// again replaces the previous shares unless one of them is already paid.
func (s *PaymentService) SplitEqually(ctx context.Context, orderID uint, n int) ([]models.PaymentSplit, error) {
	if n < 1 || n > MaxSplitCount {
		return nil, newError(KindInvalidSplitCount, "split count must be between 1 and %d", MaxSplitCount)
	}
	var splits []models.PaymentSplit
	err := transact(ctx, s.db, func(tx *gorm.DB) error {
		order, err := lockOrder(tx, orderID)
		if err != nil {
			return err
		}
		var paid int64
		if err := tx.Model(&models.PaymentSplit{}).Where("order_id = ? AND paid = ?", orderID, true).Count(&paid).Error; err != nil {
			return dbError(err, "check splits")
		}
		if paid > 0 {
			return newError(KindSplitsLocked, "order %d already has paid splits", orderID)
		}
		if err := tx.Where("order_id = ?", orderID).Delete(&models.PaymentSplit{}).Error; err != nil {
			return dbError(err, "clear splits")
		}

		splits = make([]models.PaymentSplit, 0, n)
		for i, amount := range splitAmounts(order.TotalWithTip(), n) {
			splits = append(splits, models.PaymentSplit{
				OrderID:     orderID,
				SplitNumber: i + 1,
				Amount:      amount,
			})
		}
		if err := tx.Create(&splits).Error; err != nil {
			return dbError(err, "create splits")
		}
		return saveOrderFields(tx, order, map[string]interface{}{})
	})
	if err != nil {
		return nil, err
	}
	return splits, nil
}

func splitAmounts(due decimal.Decimal, n int) []decimal.Decimal {
	count := decimal.NewFromInt(int64(n))
	others := decimal.NewFromInt(int64(n - 1))
	base := due.DivRound(count, 2)
	if base.Mul(others).GreaterThan(due) {
		base = due.Div(count).Truncate(2)
	}
	out := make([]decimal.Decimal, n)
	for i := 0; i < n-1; i++ {
		out[i] = base
	}
	out[n-1] = due.Sub(base.Mul(others))
	return out
}

type SplitPayment struct {
	Split   models.PaymentSplit `json:"split"`
	Payment *models.Payment     `json:"payment,omitempty"`
	AllPaid bool                `json:"all_paid"`
}

// MarkSplitPaid settles one share and appends the matching payment.
func (s *PaymentService) MarkSplitPaid(ctx context.Context, splitID uint, method string) (*SplitPayment, error) {
	if method == "" {
		return nil, newError(KindInvalidRequest, "payment method is required")
	}
	var out SplitPayment
	err := transact(ctx, s.db, func(tx *gorm.DB) error {
		out = SplitPayment{}
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&out.Split, splitID).Error; err != nil {
			return findErr(err, "payment split", splitID)
		}
		if !out.Split.Paid {
			now := s.now()
			err := tx.Model(&out.Split).Updates(map[string]interface{}{
				"paid": true, "paid_at": now, "payment_method": method,
			}).Error
			if err != nil {
				return dbError(err, "mark split paid")
			}
			out.Split.Paid, out.Split.PaidAt, out.Split.PaymentMethod = true, &now, method

			out.Payment = &models.Payment{
				OrderID:   out.Split.OrderID,
				Amount:    out.Split.Amount,
				Method:    method,
				Status:    models.PaymentPago,
				SplitID:   uintPtr(out.Split.ID),
				Reference: uuid.NewString(),
			}
			if err := tx.Create(out.Payment).Error; err != nil {
				return dbError(err, "create split payment")
			}
		}

		var unpaid int64
		err := tx.Model(&models.PaymentSplit{}).Where("order_id = ? AND paid = ?", out.Split.OrderID, false).Count(&unpaid).Error
		if err != nil {
			return dbError(err, "count unpaid splits")
		}
		out.AllPaid = unpaid == 0
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *PaymentService) ListSplits(ctx context.Context, orderID uint) ([]models.PaymentSplit, error) {
	var splits []models.PaymentSplit
	err := s.db.WithContext(ctx).Where("order_id = ?", orderID).Order("split_number asc").Find(&splits).Error
	return splits, dbError(err, "list splits")
}

type PolicyInput struct {
	Name        string          `json:"name" binding:"required"`
	Percentage  decimal.Decimal `json:"percentage"`
	IsAutomatic bool            `json:"is_automatic"`
	Active      *bool           `json:"active"`
}

func (s *PaymentService) CreatePolicy(ctx context.Context, in PolicyInput) (*models.ServiceChargePolicy, error) {
	if in.Percentage.IsNegative() || in.Percentage.GreaterThan(hundred) {
		return nil, newError(KindInvalidAmount, "percentage must be between 0 and 100")
	}
	p := models.ServiceChargePolicy{
		Name:        in.Name,
		Percentage:  in.Percentage.Round(2),
		IsAutomatic: in.IsAutomatic,
		Active:      in.Active == nil || *in.Active,
	}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return nil, dbError(err, "create policy")
	}
	return &p, nil
}

func (s *PaymentService) ListPolicies(ctx context.Context) ([]models.ServiceChargePolicy, error) {
	var policies []models.ServiceChargePolicy
	err := s.db.WithContext(ctx).Order("id asc").Find(&policies).Error
	return policies, dbError(err, "list policies")
}
