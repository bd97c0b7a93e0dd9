package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-pos/models"
)

func orderWithTotal(t *testing.T, svc *Services, price string, qty int) *models.Order {
	t.Helper()
	p, err := svc.Catalog.CreateProduct(bg, ProductInput{Name: "Prato " + price, Price: money(price)})
	require.NoError(t, err)
	order, _, err := svc.Orders.CreateOrder(bg, CreateOrderInput{}, Actor{})
	require.NoError(t, err)
	_, order, err = svc.Orders.AddItem(bg, order.ID, p.ID, qty, "")
	require.NoError(t, err)
	return order
}

func TestSplitAmounts(t *testing.T) {
	tests := []struct {
		due  string
		n    int
		want []string
	}{
		{"100.00", 3, []string{"33.33", "33.33", "33.34"}},
		{"100.00", 1, []string{"100.00"}},
		{"10.00", 4, []string{"2.50", "2.50", "2.50", "2.50"}},
		{"0.05", 3, []string{"0.02", "0.02", "0.01"}},
		{"0.02", 4, []string{"0.00", "0.00", "0.00", "0.02"}},
		{"0", 2, []string{"0", "0"}},
	}
	for _, tt := range tests {
		got := splitAmounts(money(tt.due), tt.n)
		require.Len(t, got, tt.n)
		sum := money("0")
		for i, want := range tt.want {
			requireMoney(t, want, got[i])
			sum = sum.Add(got[i])
		}
		requireMoney(t, tt.due, sum)
	}
}

func TestSplitEquallyIncludesTip(t *testing.T) {
	svc, _ := newTestServices(t, false)
	order := orderWithTotal(t, svc, "90.00", 1)

	_, order, err := svc.Payments.ApplyTip(bg, order.ID, TipRequest{Type: models.ChargeManual, Amount: ptrMoney("10.00")}, Actor{})
	require.NoError(t, err)

	splits, err := svc.Payments.SplitEqually(bg, order.ID, 3)
	require.NoError(t, err)
	require.Len(t, splits, 3)
	requireMoney(t, "33.33", splits[0].Amount)
	requireMoney(t, "33.33", splits[1].Amount)
	requireMoney(t, "33.34", splits[2].Amount)
	assert.Equal(t, 3, splits[2].SplitNumber)

	_, err = svc.Payments.SplitEqually(bg, order.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidSplitCount)
	_, err = svc.Payments.SplitEqually(bg, 999, 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResplitReplacesUntilPaid(t *testing.T) {
	svc, _ := newTestServices(t, false)
	order := orderWithTotal(t, svc, "60.00", 1)

	_, err := svc.Payments.SplitEqually(bg, order.ID, 3)
	require.NoError(t, err)
	splits, err := svc.Payments.SplitEqually(bg, order.ID, 2)
	require.NoError(t, err)

	stored, err := svc.Payments.ListSplits(bg, order.ID)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	requireMoney(t, "30.00", stored[0].Amount)

	res, err := svc.Payments.MarkSplitPaid(bg, splits[0].ID, "cartao")
	require.NoError(t, err)
	assert.False(t, res.AllPaid)

	_, err = svc.Payments.SplitEqually(bg, order.ID, 4)
	assert.ErrorIs(t, err, ErrSplitsLocked)
}

func TestMarkSplitPaid(t *testing.T) {
	svc, _ := newTestServices(t, false)
	order := orderWithTotal(t, svc, "50.00", 1)
	splits, err := svc.Payments.SplitEqually(bg, order.ID, 2)
	require.NoError(t, err)

	res, err := svc.Payments.MarkSplitPaid(bg, splits[0].ID, "pix")
	require.NoError(t, err)
	assert.True(t, res.Split.Paid)
	assert.Equal(t, "pix", res.Split.PaymentMethod)
	require.NotNil(t, res.Payment)
	assert.Equal(t, splits[0].ID, *res.Payment.SplitID)
	requireMoney(t, "25.00", res.Payment.Amount)
	assert.False(t, res.AllPaid)

	again, err := svc.Payments.MarkSplitPaid(bg, splits[0].ID, "dinheiro")
	require.NoError(t, err)
	assert.Nil(t, again.Payment, "paying a split twice records nothing new")
	assert.Equal(t, "pix", again.Split.PaymentMethod)

	res, err = svc.Payments.MarkSplitPaid(bg, splits[1].ID, "dinheiro")
	require.NoError(t, err)
	assert.True(t, res.AllPaid)

	paid, err := svc.Payments.PaidAmount(bg, order.ID)
	require.NoError(t, err)
	requireMoney(t, "50.00", paid)
	assert.Equal(t, models.OrderPendente, reloadOrderStatus(t, svc, order.ID))

	_, err = svc.Payments.MarkSplitPaid(bg, 999, "pix")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Payments.MarkSplitPaid(bg, splits[1].ID, "")
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestApplyTipManual(t *testing.T) {
	svc, db := newTestServices(t, false)
	order := orderWithTotal(t, svc, "80.00", 1)

	charge, updated, err := svc.Payments.ApplyTip(bg, order.ID, TipRequest{Type: models.ChargeManual, Amount: ptrMoney("12.00")}, Actor{})
	require.NoError(t, err)
	requireMoney(t, "12.00", charge.Amount)
	requireMoney(t, "15.00", charge.Percentage)
	requireMoney(t, "12.00", updated.TipAmount)
	requireMoney(t, "80.00", updated.Total)

	stored := reloadOrder(t, db, order.ID)
	requireMoney(t, "12.00", stored.TipAmount)
	requireMoney(t, "15.00", stored.TipPercentage)

	_, _, err = svc.Payments.ApplyTip(bg, order.ID, TipRequest{Type: models.ChargeManual, Amount: ptrMoney("-1")}, Actor{})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, _, err = svc.Payments.ApplyTip(bg, order.ID, TipRequest{Type: models.ChargeManual}, Actor{})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, _, err = svc.Payments.ApplyTip(bg, order.ID, TipRequest{Type: "bonus"}, Actor{})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestApplyTipManualOnEmptyOrder(t *testing.T) {
	svc, _ := newTestServices(t, false)
	order, _, err := svc.Orders.CreateOrder(bg, CreateOrderInput{}, Actor{})
	require.NoError(t, err)

	charge, _, err := svc.Payments.ApplyTip(bg, order.ID, TipRequest{Type: models.ChargeManual, Amount: ptrMoney("5")}, Actor{})
	require.NoError(t, err)
	requireMoney(t, "0", charge.Percentage)
	requireMoney(t, "5", charge.Amount)
}

func TestApplyTipAutomatic(t *testing.T) {
	svc, db := newTestServices(t, false)
	order := orderWithTotal(t, svc, "57.80", 1)

	// no policy: default ten percent
	charge, _, err := svc.Payments.ApplyTip(bg, order.ID, TipRequest{Type: models.ChargeAutomatic}, Actor{})
	require.NoError(t, err)
	requireMoney(t, "10", charge.Percentage)
	requireMoney(t, "5.78", charge.Amount)
	assert.Nil(t, charge.PolicyID)

	inactive := false
	_, err = svc.Payments.CreatePolicy(bg, PolicyInput{Name: "Antiga", Percentage: money("20"), IsAutomatic: true, Active: &inactive})
	require.NoError(t, err)
	policy, err := svc.Payments.CreatePolicy(bg, PolicyInput{Name: "Serviço", Percentage: money("12.5"), IsAutomatic: true})
	require.NoError(t, err)

	charge, updated, err := svc.Payments.ApplyTip(bg, order.ID, TipRequest{Type: models.ChargeAutomatic}, Actor{})
	require.NoError(t, err)
	assert.Equal(t, policy.ID, *charge.PolicyID)
	requireMoney(t, "7.23", charge.Amount)
	requireMoney(t, "7.23", updated.TipAmount)

	manualPolicy, err := svc.Payments.CreatePolicy(bg, PolicyInput{Name: "Evento", Percentage: money("15")})
	require.NoError(t, err)
	charge, _, err = svc.Payments.ApplyTip(bg, order.ID, TipRequest{Type: models.ChargeAutomatic, PolicyID: &manualPolicy.ID}, Actor{})
	require.NoError(t, err)
	requireMoney(t, "8.67", charge.Amount)

	missing := uint(999)
	_, _, err = svc.Payments.ApplyTip(bg, order.ID, TipRequest{Type: models.ChargeAutomatic, PolicyID: &missing}, Actor{})
	assert.ErrorIs(t, err, ErrNotFound)

	var charges int64
	db.Model(&models.OrderServiceCharge{}).Where("order_id = ?", order.ID).Count(&charges)
	assert.Equal(t, int64(3), charges)
}

func TestCreatePolicyValidation(t *testing.T) {
	svc, _ := newTestServices(t, false)
	_, err := svc.Payments.CreatePolicy(bg, PolicyInput{Name: "x", Percentage: money("101")})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	policies, err := svc.Payments.ListPolicies(bg)
	require.NoError(t, err)
	assert.Empty(t, policies)
}

func TestRecordAndConfirmPayment(t *testing.T) {
	svc, db := newTestServices(t, false)
	order := orderWithTotal(t, svc, "20.00", 1)

	_, err := svc.Payments.RecordPayment(bg, order.ID, money("0"), "pix", "", Actor{})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.Payments.RecordPayment(bg, order.ID, money("20"), "", "", Actor{})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = svc.Payments.RecordPayment(bg, 999, money("20"), "pix", "", Actor{})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Payments.RecordPayment(bg, order.ID, money("20"), "pix", "estornado", Actor{})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	pending, err := svc.Payments.RecordPayment(bg, order.ID, money("20"), "cartao", models.PaymentPendente, Actor{})
	require.NoError(t, err)
	assert.Empty(t, reloadOrder(t, db, order.ID).PaymentMethod)

	paid, err := svc.Payments.PaidAmount(bg, order.ID)
	require.NoError(t, err)
	requireMoney(t, "0", paid)

	confirmed, err := svc.Payments.ConfirmPayment(bg, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPago, confirmed.Status)
	assert.Equal(t, "cartao", reloadOrder(t, db, order.ID).PaymentMethod)

	_, err = svc.Payments.ConfirmPayment(bg, pending.ID)
	require.NoError(t, err)
	_, err = svc.Payments.ConfirmPayment(bg, 999)
	assert.ErrorIs(t, err, ErrNotFound)

	payments, err := svc.Payments.ListPayments(bg, order.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func ptrMoney(s string) *decimal.Decimal {
	d := money(s)
	return &d
}

func reloadOrderStatus(t *testing.T, svc *Services, id uint) models.OrderStatus {
	t.Helper()
	o, err := svc.Orders.GetOrder(bg, id)
	require.NoError(t, err)
	return o.Status
}

func TestSplitEquallyCapsShareCount(t *testing.T) {
	svc, db := newTestServices(t, false)
	order := orderWithTotal(t, svc, "100.00", 1)

	_, err := svc.Payments.SplitEqually(bg, order.ID, MaxSplitCount+1)
	assert.ErrorIs(t, err, ErrInvalidSplitCount)
	_, err = svc.Payments.SplitEqually(bg, order.ID, 100000000)
	assert.ErrorIs(t, err, ErrInvalidSplitCount)

	var stored int64
	require.NoError(t, db.Model(&models.PaymentSplit{}).Where("order_id = ?", order.ID).Count(&stored).Error)
	assert.Zero(t, stored)

	splits, err := svc.Payments.SplitEqually(bg, order.ID, MaxSplitCount)
	require.NoError(t, err)
	require.Len(t, splits, MaxSplitCount)
	requireMoney(t, "1.00", splits[MaxSplitCount-1].Amount)
}

func TestApplyTipRejectsOversizedPercentage(t *testing.T) {
	svc, db := newTestServices(t, false)
	order := orderWithTotal(t, svc, "1.00", 1)

	_, _, err := svc.Payments.ApplyTip(bg, order.ID, TipRequest{Type: models.ChargeManual, Amount: ptrMoney("50.00")}, Actor{})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	var charges int64
	require.NoError(t, db.Model(&models.OrderServiceCharge{}).Where("order_id = ?", order.ID).Count(&charges).Error)
	assert.Zero(t, charges)

	charge, _, err := svc.Payments.ApplyTip(bg, order.ID, TipRequest{Type: models.ChargeManual, Amount: ptrMoney("9.99")}, Actor{})
	require.NoError(t, err)
	requireMoney(t, "999.00", charge.Percentage)
}
