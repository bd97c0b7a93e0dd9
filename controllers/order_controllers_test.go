package controllers_test

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos/controllers"
	"github.com/yeremiapane/restaurant-pos/models"
)

func setupOrderRouter(db *gorm.DB) *gin.Engine {
	svc := newServices(db)
	orderCtrl := controllers.NewOrderController(svc)
	tableCtrl := controllers.NewTableController(svc)

	r := gin.New()
	r.Use(asStaff(1, models.RoleGarcom))
	r.GET("/orders", orderCtrl.GetAllOrders)
	r.POST("/orders", orderCtrl.CreateOrder)
	r.GET("/orders/:order_id", orderCtrl.GetOrderByID)
	r.DELETE("/orders/:order_id", orderCtrl.DeleteOrder)
	r.POST("/orders/:order_id/items", orderCtrl.AddItem)
	r.DELETE("/orders/:order_id/items/:item_id", orderCtrl.RemoveItem)
	r.PATCH("/orders/:order_id/status", orderCtrl.UpdateOrderStatus)
	r.GET("/orders/:order_id/progress", orderCtrl.GetOrderProgress)
	r.POST("/orders/:order_id/duplicate", orderCtrl.DuplicateOrder)
	r.POST("/tables/:table_id/close", tableCtrl.CloseTable)
	return r
}

func TestCreateOrderAndAddItems(t *testing.T) {
	db := setupTestDB(t)
	r := setupOrderRouter(db)
	table := seedTable(t, db, 5)
	burger := seedProduct(t, db, "Burger", "28.90")

	w, env := doJSON(t, r, http.MethodPost, "/orders", map[string]interface{}{"table_id": table.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var order models.Order
	decodeData(t, env, &order)
	assert.Equal(t, models.OrderPendente, order.Status)
	assert.Equal(t, models.ChannelMesa, order.Channel)
	require.NotNil(t, order.StaffID)
	assert.Equal(t, uint(1), *order.StaffID)

	w, env = doJSON(t, r, http.MethodPost, "/orders/"+itoa(order.ID)+"/items",
		map[string]interface{}{"product_id": burger.ID, "quantity": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var added struct {
		Item  models.OrderItem `json:"item"`
		Order models.Order     `json:"order"`
	}
	decodeData(t, env, &added)
	requireMoney(t, "57.80", added.Order.Total)
	assert.Equal(t, models.ItemNovo, added.Item.Status)

	w, env = doJSON(t, r, http.MethodGet, "/orders/"+itoa(order.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var detail models.Order
	decodeData(t, env, &detail)
	require.Len(t, detail.Items, 1)
	requireMoney(t, "28.90", detail.Items[0].Price)
}

func TestCreateOrderOnOccupiedTableConflicts(t *testing.T) {
	db := setupTestDB(t)
	r := setupOrderRouter(db)
	table := seedTable(t, db, 3)

	w, _ := doJSON(t, r, http.MethodPost, "/orders", map[string]interface{}{"table_id": table.ID})
	require.Equal(t, http.StatusCreated, w.Code)

	w, env := doJSON(t, r, http.MethodPost, "/orders", map[string]interface{}{"table_id": table.ID})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_occupied", env.Code)

	w, _ = doJSON(t, r, http.MethodPost, "/orders", map[string]interface{}{"table_id": table.ID, "force": true})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestOrderErrorMapping(t *testing.T) {
	db := setupTestDB(t)
	r := setupOrderRouter(db)
	burger := seedProduct(t, db, "Burger", "28.90")

	_, env := doJSON(t, r, http.MethodPost, "/orders", map[string]interface{}{"channel": "retirada"})
	var order models.Order
	decodeData(t, env, &order)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
		status int
		code   string
	}{
		{"zero quantity", http.MethodPost, "/orders/" + itoa(order.ID) + "/items",
			map[string]interface{}{"product_id": burger.ID, "quantity": 0}, http.StatusBadRequest, "invalid_quantity"},
		{"unknown product", http.MethodPost, "/orders/" + itoa(order.ID) + "/items",
			map[string]interface{}{"product_id": 999, "quantity": 1}, http.StatusNotFound, "not_found"},
		{"unknown order", http.MethodGet, "/orders/999", nil, http.StatusNotFound, "not_found"},
		{"bad id", http.MethodGet, "/orders/abc", nil, http.StatusBadRequest, "invalid_request"},
		{"unknown channel", http.MethodPost, "/orders", map[string]interface{}{"channel": "drone"},
			http.StatusBadRequest, "invalid_request"},
		{"mesa without table", http.MethodPost, "/orders", map[string]interface{}{"channel": "mesa"},
			http.StatusBadRequest, "invalid_request"},
		{"unknown item", http.MethodDelete, "/orders/" + itoa(order.ID) + "/items/999", nil,
			http.StatusNotFound, "not_found"},
		{"unknown status filter", http.MethodGet, "/orders?status=perdido", nil,
			http.StatusBadRequest, "invalid_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, env := doJSON(t, r, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Equal(t, tt.code, env.Code)
			assert.False(t, env.Status)
		})
	}
}

func TestStatusPagoReleasesTable(t *testing.T) {
	db := setupTestDB(t)
	r := setupOrderRouter(db)
	table := seedTable(t, db, 5)

	_, env := doJSON(t, r, http.MethodPost, "/orders", map[string]interface{}{"table_id": table.ID})
	var order models.Order
	decodeData(t, env, &order)

	w, env := doJSON(t, r, http.MethodPost, "/tables/"+itoa(table.ID)+"/close", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "payment_not_confirmed", env.Code)

	w, _ = doJSON(t, r, http.MethodPatch, "/orders/"+itoa(order.ID)+"/status", map[string]string{"status": "pago"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var reloaded models.Table
	require.NoError(t, db.First(&reloaded, table.ID).Error)
	assert.Equal(t, models.TableLivre, reloaded.Status)
	assert.Nil(t, reloaded.CurrentOrderID)

	w, env = doJSON(t, r, http.MethodGet, "/orders?status=pago", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var orders []models.Order
	decodeData(t, env, &orders)
	assert.Len(t, orders, 1)
}

func TestOrderProgressAndDuplicate(t *testing.T) {
	db := setupTestDB(t)
	r := setupOrderRouter(db)
	burger := seedProduct(t, db, "Burger", "10.00")

	_, env := doJSON(t, r, http.MethodPost, "/orders", map[string]interface{}{"channel": "retirada"})
	var order models.Order
	decodeData(t, env, &order)
	for i := 0; i < 2; i++ {
		doJSON(t, r, http.MethodPost, "/orders/"+itoa(order.ID)+"/items",
			map[string]interface{}{"product_id": burger.ID, "quantity": 1})
	}

	w, env := doJSON(t, r, http.MethodGet, "/orders/"+itoa(order.ID)+"/progress", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var progress struct {
		Done    int     `json:"done"`
		Total   int     `json:"total"`
		Percent float64 `json:"percent"`
	}
	decodeData(t, env, &progress)
	assert.Equal(t, 2, progress.Total)
	assert.Equal(t, 0.0, progress.Percent)

	w, env = doJSON(t, r, http.MethodPost, "/orders/"+itoa(order.ID)+"/duplicate", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var copyOrder models.Order
	decodeData(t, env, &copyOrder)
	assert.NotEqual(t, order.ID, copyOrder.ID)
	requireMoney(t, "20.00", copyOrder.Total)

	w, _ = doJSON(t, r, http.MethodDelete, "/orders/"+itoa(order.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = doJSON(t, r, http.MethodGet, "/orders/"+itoa(order.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRemoveItemOfAnotherOrder(t *testing.T) {
	db := setupTestDB(t)
	r := setupOrderRouter(db)
	burger := seedProduct(t, db, "Burger", "10.00")

	var first, second models.Order
	_, env := doJSON(t, r, http.MethodPost, "/orders", map[string]interface{}{"channel": "retirada"})
	decodeData(t, env, &first)
	_, env = doJSON(t, r, http.MethodPost, "/orders", map[string]interface{}{"channel": "retirada"})
	decodeData(t, env, &second)

	_, env = doJSON(t, r, http.MethodPost, "/orders/"+itoa(second.ID)+"/items",
		map[string]interface{}{"product_id": burger.ID, "quantity": 1})
	var added struct {
		Item models.OrderItem `json:"item"`
	}
	decodeData(t, env, &added)

	w, env := doJSON(t, r, http.MethodDelete, "/orders/"+itoa(first.ID)+"/items/"+itoa(added.Item.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "item_not_in_order", env.Code)

	w, env = doJSON(t, r, http.MethodDelete, "/orders/"+itoa(second.ID)+"/items/"+itoa(added.Item.ID), nil)
	require.Equal(t, http.StatusOK, w.Code)
	var emptied models.Order
	decodeData(t, env, &emptied)
	assert.True(t, emptied.Total.IsZero())
}
