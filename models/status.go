package models

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderPendente   OrderStatus = "pendente"
	OrderPreparando OrderStatus = "preparando"
	OrderPronto     OrderStatus = "pronto"
	OrderEntregue   OrderStatus = "entregue"
	OrderPago       OrderStatus = "pago"
	OrderFinalizado OrderStatus = "finalizado"
	OrderCancelado  OrderStatus = "cancelado"
)

// orderRank orders the forward path; cancelado sits outside it.
var orderRank = map[OrderStatus]int{
	OrderPendente:   0,
	OrderPreparando: 1,
	OrderPronto:     2,
	OrderEntregue:   3,
	OrderPago:       4,
	OrderFinalizado: 5,
}

func (s OrderStatus) Valid() bool {
	if s == OrderCancelado {
		return true
	}
	_, ok := orderRank[s]
	return ok
}

// Terminal reports whether an order in this status no longer holds a table.
func (s OrderStatus) Terminal() bool {
	return s == OrderPago || s == OrderFinalizado || s == OrderCancelado
}

// Open reports whether the order still counts as active for a table binding.
// pago stays closed for binding purposes even though finalizado may follow.
func (s OrderStatus) Open() bool {
	return s.Valid() && !s.Terminal()
}

// CanTransition is the strict transition table: forward moves along the
// main path (skipping allowed), cancelado from any non-terminal status,
// and pago -> finalizado.
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	if !s.Valid() || !to.Valid() || s == to {
		return false
	}
	if to == OrderCancelado {
		return !s.Terminal()
	}
	if s == OrderCancelado || s == OrderFinalizado {
		return false
	}
	return orderRank[to] > orderRank[s]
}

// ItemStatus is the kitchen state of a single order line.
type ItemStatus string

const (
	ItemNovo       ItemStatus = "novo"
	ItemPreparando ItemStatus = "preparando"
	ItemPronto     ItemStatus = "pronto"
	ItemEntregue   ItemStatus = "entregue"
)

var itemRank = map[ItemStatus]int{
	ItemNovo:       0,
	ItemPreparando: 1,
	ItemPronto:     2,
	ItemEntregue:   3,
}

func (s ItemStatus) Valid() bool {
	_, ok := itemRank[s]
	return ok
}

// Rank returns the position on the kitchen path, -1 when unknown.
func (s ItemStatus) Rank() int {
	r, ok := itemRank[s]
	if !ok {
		return -1
	}
	return r
}

// Done counts towards order progress.
func (s ItemStatus) Done() bool {
	return s == ItemPronto || s == ItemEntregue
}

// Channel is how the order reaches the customer.
type Channel string

const (
	ChannelMesa     Channel = "mesa"
	ChannelRetirada Channel = "retirada"
	ChannelEntrega  Channel = "entrega"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelMesa, ChannelRetirada, ChannelEntrega:
		return true
	}
	return false
}

// Label is what the kitchen screen shows for orders without a table.
func (c Channel) Label() string {
	switch c {
	case ChannelRetirada:
		return "Retirada"
	case ChannelEntrega:
		return "Entrega"
	}
	return "Balcão"
}

type TableStatus string

const (
	TableLivre   TableStatus = "livre"
	TableOcupada TableStatus = "ocupada"
)

type PaymentStatus string

const (
	PaymentPendente PaymentStatus = "pendente"
	PaymentPago     PaymentStatus = "pago"
)

type ChargeType string

const (
	ChargeManual    ChargeType = "manual"
	ChargeAutomatic ChargeType = "automatic"
)

// Staff roles
const (
	RoleAdmin   = "admin"
	RoleGerente = "gerente"
	RoleGarcom  = "garcom"
	RoleCozinha = "cozinha"
	RoleCaixa   = "caixa"
)

func ValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleGerente, RoleGarcom, RoleCozinha, RoleCaixa:
		return true
	}
	return false
}
