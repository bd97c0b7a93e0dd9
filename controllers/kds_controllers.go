package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type KDSController struct {
	Kitchen *services.KitchenService
	Hub     *kds.Hub
	// AllowedOrigin is the CORS origin; "" or "*" accepts any.
	AllowedOrigin string

	upgrader websocket.Upgrader
}

func NewKDSController(svc *services.Services, hub *kds.Hub, allowedOrigin string) *KDSController {
	kc := &KDSController{Kitchen: svc.Kitchen, Hub: hub, AllowedOrigin: allowedOrigin}
	kc.upgrader = websocket.Upgrader{CheckOrigin: kc.checkOrigin}
	return kc
}

func (kc *KDSController) checkOrigin(r *http.Request) bool {
	if kc.AllowedOrigin == "" || kc.AllowedOrigin == "*" {
		return true
	}
	origin := r.Header.Get("Origin")
	return origin == "" || strings.EqualFold(origin, kc.AllowedOrigin)
}

// GetKitchenDisplay -> polling snapshot grouped into novo, preparando, pronto
func (kc *KDSController) GetKitchenDisplay(c *gin.Context) {
	snap, err := kc.Kitchen.Snapshot(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Kitchen display", snap)
}

func (kc *KDSController) UpdateItemStatus(c *gin.Context) {
	itemID, ok := paramID(c, "item_id")
	if !ok {
		return
	}
	var req struct {
		Status models.ItemStatus `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	item, err := kc.Kitchen.SetItemStatus(c.Request.Context(), itemID, req.Status)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	kds.BroadcastItemUpdate(*item)
	if progress, err := kc.Kitchen.OrderProgress(c.Request.Context(), item.OrderID); err == nil {
		kds.BroadcastKitchenUpdate(gin.H{"order_id": item.OrderID, "progress": progress})
	}
	utils.RespondJSON(c, http.StatusOK, "Item status updated", item)
}

// KDSHandler -> websocket endpoint; the first frame is the current snapshot.
func (kc *KDSController) KDSHandler(c *gin.Context) {
	role := c.GetString("role")
	switch role {
	case models.RoleAdmin, models.RoleGerente, models.RoleCozinha, models.RoleGarcom:
	default:
		c.AbortWithStatus(http.StatusForbidden)
		return
	}

	snap, err := kc.Kitchen.Snapshot(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	ws, err := kc.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := ws.WriteJSON(kds.Message{Event: kds.EventKitchenUpdate, Data: snap}); err != nil {
		ws.Close()
		return
	}
	kc.Hub.Register(ws, role)

	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			break
		}
	}

	kc.Hub.Unregister(ws)
}
