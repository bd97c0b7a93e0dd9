package controllers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type PaymentController struct {
	Payments *services.PaymentService
	Orders   *services.OrderService
	Bills    *services.BillService
}

func NewPaymentController(svc *services.Services) *PaymentController {
	return &PaymentController{Payments: svc.Payments, Orders: svc.Orders, Bills: svc.Bills}
}

// CreatePayment records money taken against an order. It never moves the
// order status; the cashier does that explicitly.
func (pc *PaymentController) CreatePayment(c *gin.Context) {
	orderID, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	var req struct {
		Amount decimal.Decimal      `json:"amount"`
		Method string               `json:"method" binding:"required"`
		Status models.PaymentStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	payment, err := pc.Payments.RecordPayment(c.Request.Context(), orderID, req.Amount, req.Method, req.Status, actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	kds.BroadcastPaymentUpdate(orderID, payment)
	utils.InfoLogger.Printf("Payment %s recorded for order %d (%s)", payment.Reference, orderID, utils.FormatCurrency(payment.Amount))
	utils.RespondJSON(c, http.StatusCreated, "Payment recorded", payment)
}

// GetOrderPayments lists payments with the paid and outstanding amounts.
func (pc *PaymentController) GetOrderPayments(c *gin.Context) {
	orderID, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	order, err := pc.Orders.GetOrder(ctx, orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	payments, err := pc.Payments.ListPayments(ctx, orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	paid, err := pc.Payments.PaidAmount(ctx, orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	due := order.TotalWithTip()
	remaining := due.Sub(paid)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	utils.RespondJSON(c, http.StatusOK, "List of payments", gin.H{
		"payments":  payments,
		"due":       due,
		"paid":      paid,
		"remaining": remaining,
	})
}

func (pc *PaymentController) ConfirmPayment(c *gin.Context) {
	id, ok := paramID(c, "payment_id")
	if !ok {
		return
	}
	payment, err := pc.Payments.ConfirmPayment(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	kds.BroadcastPaymentUpdate(payment.OrderID, payment)
	utils.RespondJSON(c, http.StatusOK, "Payment confirmed", payment)
}

func (pc *PaymentController) ApplyTip(c *gin.Context) {
	orderID, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	var req services.TipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	charge, order, err := pc.Payments.ApplyTip(c.Request.Context(), orderID, req, actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	kds.BroadcastOrderUpdate(*order)
	utils.RespondJSON(c, http.StatusOK, "Tip applied", gin.H{
		"charge":         charge,
		"order":          order,
		"total_with_tip": order.TotalWithTip(),
	})
}

func (pc *PaymentController) SplitOrder(c *gin.Context) {
	orderID, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	var req struct {
		Count int `json:"count"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	splits, err := pc.Payments.SplitEqually(c.Request.Context(), orderID, req.Count)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusCreated, fmt.Sprintf("Order split in %d", len(splits)), splits)
}

func (pc *PaymentController) GetSplits(c *gin.Context) {
	orderID, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	splits, err := pc.Payments.ListSplits(c.Request.Context(), orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of splits", splits)
}

func (pc *PaymentController) PaySplit(c *gin.Context) {
	id, ok := paramID(c, "split_id")
	if !ok {
		return
	}
	var req struct {
		Method string `json:"method" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := pc.Payments.MarkSplitPaid(c.Request.Context(), id, req.Method)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	kds.BroadcastPaymentUpdate(result.Split.OrderID, result)
	if result.AllPaid {
		kds.BroadcastStaffNotification(fmt.Sprintf("all splits of order %d paid", result.Split.OrderID))
	}
	utils.RespondJSON(c, http.StatusOK, "Split paid", result)
}

// GetBill -> printable PDF bill
func (pc *PaymentController) GetBill(c *gin.Context) {
	orderID, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	pdf, err := pc.Bills.RenderBill(c.Request.Context(), orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=conta-%d.pdf", orderID))
	c.Data(http.StatusOK, "application/pdf", pdf)
}
