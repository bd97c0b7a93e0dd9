package controllers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/controllers"
	"github.com/yeremiapane/restaurant-pos/models"
)

func setupCashierRouter(db *gorm.DB) *gin.Engine {
	cashierCtrl := controllers.NewCashierController(newServices(db))

	r := gin.New()
	r.Use(asStaff(3, models.RoleGerente))
	r.GET("/cashier/summary", cashierCtrl.GetDailySummary)
	r.GET("/cashier/operations", cashierCtrl.GetCashOperations)
	r.POST("/cashier/operations", cashierCtrl.CreateCashOperation)
	return r
}

func TestCashierEndpoints(t *testing.T) {
	db := setupTestDB(t)
	r := setupCashierRouter(db)
	order := orderWithItem(t, db, "45.00", 1)
	for i, method := range []string{"dinheiro", "pix"} {
		require.NoError(t, db.Create(&models.Payment{
			OrderID: order.ID, Amount: decimal.RequireFromString("22.50"), Method: method,
			Status: models.PaymentPago, Reference: "ref-" + itoa(uint(i)),
		}).Error)
	}

	w, env := doJSON(t, r, http.MethodPost, "/cashier/operations",
		map[string]interface{}{"type": "sangria", "amount": "0", "reason": "teste"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_amount", env.Code)

	w, env = doJSON(t, r, http.MethodPost, "/cashier/operations",
		map[string]interface{}{"type": "retirada", "amount": "10.00"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", env.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/cashier/operations",
		map[string]interface{}{"type": "suprimento", "amount": "50.00", "reason": "troco"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w, _ = doJSON(t, r, http.MethodPost, "/cashier/operations",
		map[string]interface{}{"type": "sangria", "amount": "20.00"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, env = doJSON(t, r, http.MethodGet, "/cashier/operations", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ops []models.CashOperation
	decodeData(t, env, &ops)
	require.Len(t, ops, 2)
	assert.Equal(t, uint(3), *ops[0].PerformedBy)

	w, env = doJSON(t, r, http.MethodGet, "/cashier/summary", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var sum struct {
		Total  decimal.Decimal `json:"total"`
		Cash   decimal.Decimal `json:"cash"`
		Pix    decimal.Decimal `json:"pix"`
		Drawer decimal.Decimal `json:"drawer"`
	}
	decodeData(t, env, &sum)
	requireMoney(t, "45.00", sum.Total)
	requireMoney(t, "22.50", sum.Cash)
	requireMoney(t, "22.50", sum.Pix)
	requireMoney(t, "52.50", sum.Drawer)

	yesterday := time.Now().UTC().AddDate(0, 0, -1).Format("2006-01-02")
	w, env = doJSON(t, r, http.MethodGet, "/cashier/summary?date="+yesterday, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decodeData(t, env, &sum)
	requireMoney(t, "0", sum.Total)

	w, env = doJSON(t, r, http.MethodGet, "/cashier/summary?date=ontem", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_request", env.Code)
}
