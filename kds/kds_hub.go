package kds

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// Event types
const (
	EventOrderUpdate   = "order_update"
	EventItemUpdate    = "item_update"
	EventKitchenUpdate = "kitchen_update"
	EventTableUpdate   = "table_update"
	EventTableGroup    = "table_group_update"
	EventPaymentUpdate = "payment_update"
	EventStaffNotif    = "staff_notification"
)

const writeWait = 5 * time.Second

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub holds the connected kitchen and floor screens.
type Hub struct {
	clients map[*websocket.Conn]string // conn -> role
	mutex   sync.Mutex
}

func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]string)}
}

var defaultHub = NewHub()

// Default is the process-wide hub used by the HTTP handlers.
func Default() *Hub { return defaultHub }

func (h *Hub) Register(conn *websocket.Conn, role string) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clients[conn] = role
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
}

func (h *Hub) Count() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Broadcast sends msg to every client. Delivery is best-effort; a client
// that cannot be written to is dropped.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		utils.ErrorLogger.WithError(err).WithField("event", msg.Event).Error("kds: marshal failed")
		return
	}

	h.mutex.Lock()
	defer h.mutex.Unlock()
	for conn, role := range h.clients {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			utils.InfoLogger.WithFields(logrus.Fields{"role": role, "event": msg.Event}).
				WithError(err).Warn("kds: dropping client")
			delete(h.clients, conn)
			conn.Close()
		}
	}
}

// BroadcastOrderUpdate -> order header changed (status, total, tip)
func BroadcastOrderUpdate(order models.Order) {
	defaultHub.Broadcast(Message{Event: EventOrderUpdate, Data: order})
}

// BroadcastItemUpdate -> kitchen moved an item
func BroadcastItemUpdate(item models.OrderItem) {
	defaultHub.Broadcast(Message{Event: EventItemUpdate, Data: item})
}

// BroadcastKitchenUpdate -> a fresh kitchen snapshot is available
func BroadcastKitchenUpdate(data interface{}) {
	defaultHub.Broadcast(Message{Event: EventKitchenUpdate, Data: data})
}

func BroadcastTableUpdate(tables ...models.Table) {
	for _, t := range tables {
		defaultHub.Broadcast(Message{Event: EventTableUpdate, Data: t})
	}
}

func BroadcastTableGroup(group models.TableGrouping) {
	defaultHub.Broadcast(Message{Event: EventTableGroup, Data: group})
}

func BroadcastPaymentUpdate(orderID uint, data interface{}) {
	defaultHub.Broadcast(Message{
		Event: EventPaymentUpdate,
		Data: map[string]interface{}{
			"order_id": orderID,
			"payment":  data,
		},
	})
}

func BroadcastStaffNotification(message string) {
	defaultHub.Broadcast(Message{Event: EventStaffNotif, Data: message})
}
