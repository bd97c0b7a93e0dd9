package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type OrderController struct {
	Orders  *services.OrderService
	Kitchen *services.KitchenService
}

func NewOrderController(svc *services.Services) *OrderController {
	return &OrderController{Orders: svc.Orders, Kitchen: svc.Kitchen}
}

// GetAllOrders -> list orders, optionally ?status=pendente,preparando
func (oc *OrderController) GetAllOrders(c *gin.Context) {
	var statuses []models.OrderStatus
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			st := models.OrderStatus(strings.TrimSpace(s))
			if !st.Valid() {
				respondBindError(c, &CustomError{"unknown order status " + s})
				return
			}
			statuses = append(statuses, st)
		}
	}

	orders, err := oc.Orders.ListOrders(c.Request.Context(), statuses...)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of orders", orders)
}

func (oc *OrderController) CreateOrder(c *gin.Context) {
	var in services.CreateOrderInput
	if err := c.ShouldBindJSON(&in); err != nil {
		respondBindError(c, err)
		return
	}
	if in.Channel != "" && !in.Channel.Valid() {
		respondBindError(c, &CustomError{"unknown channel " + string(in.Channel)})
		return
	}

	order, table, err := oc.Orders.CreateOrder(c.Request.Context(), in, actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	kds.BroadcastOrderUpdate(*order)
	if table != nil {
		kds.BroadcastTableUpdate(*table)
	}
	utils.RespondJSON(c, http.StatusCreated, "Order created", order)
}

func (oc *OrderController) GetOrderByID(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	order, err := oc.Orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order detail", order)
}

func (oc *OrderController) DeleteOrder(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	tables, err := oc.Orders.DeleteOrder(c.Request.Context(), id, actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	kds.BroadcastTableUpdate(tables...)
	kds.BroadcastKitchenUpdate(gin.H{"order_id": id, "deleted": true})
	utils.RespondJSON(c, http.StatusOK, "Order deleted", gin.H{"order_id": id})
}

func (oc *OrderController) AddItem(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	var req struct {
		ProductID uint   `json:"product_id" binding:"required"`
		Quantity  int    `json:"quantity"`
		Notes     string `json:"notes"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	item, order, err := oc.Orders.AddItem(c.Request.Context(), id, req.ProductID, req.Quantity, req.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	kds.BroadcastOrderUpdate(*order)
	kds.BroadcastKitchenUpdate(gin.H{"order_id": id, "item_id": item.ID})
	utils.RespondJSON(c, http.StatusCreated, "Item added", gin.H{
		"item":  item,
		"order": order,
	})
}

func (oc *OrderController) RemoveItem(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	itemID, ok := paramID(c, "item_id")
	if !ok {
		return
	}

	order, err := oc.Orders.RemoveItem(c.Request.Context(), id, itemID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	kds.BroadcastOrderUpdate(*order)
	kds.BroadcastKitchenUpdate(gin.H{"order_id": id, "item_id": itemID, "removed": true})
	utils.RespondJSON(c, http.StatusOK, "Item removed", order)
}

func (oc *OrderController) UpdateOrderStatus(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	var req struct {
		Status models.OrderStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, released, err := oc.Orders.UpdateOrderStatus(c.Request.Context(), id, req.Status, actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	kds.BroadcastOrderUpdate(*order)
	if len(released) > 0 {
		kds.BroadcastTableUpdate(released...)
	}
	utils.RespondJSON(c, http.StatusOK, "Order status updated", order)
}

func (oc *OrderController) GetOrderProgress(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	progress, err := oc.Kitchen.OrderProgress(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Order progress", progress)
}

func (oc *OrderController) TransferOrder(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	var req struct {
		ToStaffID uint   `json:"to_staff_id" binding:"required"`
		Reason    string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	transfer, err := oc.Orders.TransferOrder(c.Request.Context(), id, req.ToStaffID, req.Reason, actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	kds.BroadcastStaffNotification("order transferred")
	utils.RespondJSON(c, http.StatusOK, "Order transferred", transfer)
}

func (oc *OrderController) DuplicateOrder(c *gin.Context) {
	id, ok := paramID(c, "order_id")
	if !ok {
		return
	}
	var req struct {
		TableID *uint `json:"table_id"`
	}
	// empty body duplicates without a table
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBindError(c, err)
			return
		}
	}

	order, table, err := oc.Orders.DuplicateOrder(c.Request.Context(), id, req.TableID, actorFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	kds.BroadcastOrderUpdate(*order)
	if table != nil {
		kds.BroadcastTableUpdate(*table)
	}
	utils.RespondJSON(c, http.StatusCreated, "Order duplicated", order)
}
