package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-pdf/fpdf"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// BillService renders the customer bill of an order as PDF.
type BillService struct {
	db       *gorm.DB
	settings *SettingsService
}

func NewBillService(db *gorm.DB, settings *SettingsService) *BillService {
	return &BillService{db: db, settings: settings}
}

func (s *BillService) RenderBill(ctx context.Context, orderID uint) ([]byte, error) {
	st, err := s.settings.Load(ctx)
	if err != nil {
		return nil, err
	}
	var order models.Order
	err = s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id asc") }).
		Preload("Items.Product").
		First(&order, orderID).Error
	if err != nil {
		return nil, findErr(err, "order", orderID)
	}
	tableNumber := 0
	if order.TableID != nil {
		var t models.Table
		if err := s.db.WithContext(ctx).Select("id", "number").First(&t, *order.TableID).Error; err == nil {
			tableNumber = t.Number
		}
	}
	var splits []models.PaymentSplit
	if err := s.db.WithContext(ctx).Where("order_id = ?", orderID).Order("split_number asc").Find(&splits).Error; err != nil {
		return nil, dbError(err, "load splits")
	}

	pdf := fpdf.New("P", "mm", "A5", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(fmt.Sprintf("Pedido %d", order.ID), true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, tr(st.StoreName), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	if st.Address != "" {
		pdf.CellFormat(0, 5, tr(st.Address), "", 1, "C", false, 0, "")
	}
	if st.Phone != "" {
		pdf.CellFormat(0, 5, st.Phone, "", 1, "C", false, 0, "")
	}
	pdf.Ln(3)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Pedido #%d - %s", order.ID, order.Label(tableNumber))), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, order.CreatedAt.Format("02/01/2006 15:04"), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(70, 6, "Item", "B", 0, "L", false, 0, "")
	pdf.CellFormat(15, 6, "Qtd", "B", 0, "R", false, 0, "")
	pdf.CellFormat(0, 6, "Valor", "B", 1, "R", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for i := range order.Items {
		it := &order.Items[i]
		name := fmt.Sprintf("Produto %d", it.ProductID)
		if it.Product != nil {
			name = it.Product.Name
		}
		pdf.CellFormat(70, 6, tr(name), "", 0, "L", false, 0, "")
		pdf.CellFormat(15, 6, fmt.Sprintf("%d", it.Quantity), "", 0, "R", false, 0, "")
		pdf.CellFormat(0, 6, tr(utils.FormatCurrency(it.LineTotal())), "", 1, "R", false, 0, "")
	}
	pdf.Ln(2)

	line := func(label, value string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Helvetica", style, 9)
		pdf.CellFormat(85, 6, tr(label), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, tr(value), "", 1, "R", false, 0, "")
	}
	line("Subtotal", utils.FormatCurrency(order.Subtotal()), false)
	if order.Channel == models.ChannelEntrega {
		line("Taxa de entrega", utils.FormatCurrency(order.DeliveryFee), false)
	}
	if order.TipAmount.IsPositive() {
		line(fmt.Sprintf("Gorjeta (%s%%)", order.TipPercentage.StringFixed(2)), utils.FormatCurrency(order.TipAmount), false)
	}
	line("Total", utils.FormatCurrency(order.TotalWithTip()), true)

	if len(splits) > 0 {
		pdf.Ln(2)
		for _, sp := range splits {
			mark := "em aberto"
			if sp.Paid {
				mark = "pago"
			}
			line(fmt.Sprintf("Parte %d/%d (%s)", sp.SplitNumber, len(splits), mark), utils.FormatCurrency(sp.Amount), false)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &Error{Kind: KindStorageFailure, Message: "failed to render bill", Err: err}
	}
	return buf.Bytes(), nil
}
