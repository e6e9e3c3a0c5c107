package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusForShipping OrderStatus = "for_shipping"
	OrderStatusDelivered   OrderStatus = "delivered"
	OrderStatusCancelled   OrderStatus = "cancelled"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusForShipping, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether an order may move from s to next.
// Delivered and Cancelled are terminal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	return s == OrderStatusForShipping &&
		(next == OrderStatusDelivered || next == OrderStatusCancelled)
}

// OrderItem is a priced line. On an order the unit price is the one captured at checkout.
type OrderItem struct {
	ProductID string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

func (i OrderItem) LineTotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Order struct {
	ID          string
	RemoteID    string
	UserKey     string
	Items       []OrderItem
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	TaxFee      decimal.Decimal
	Total       decimal.Decimal
	Status      OrderStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (o Order) StockRequests() []StockRequest {
	items := make([]StockRequest, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, StockRequest{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return items
}

// PartitionOrders splits orders into active (awaiting delivery) and completed ones,
// preserving their relative order.
func PartitionOrders(orders []Order) (active, completed []Order) {
	for _, o := range orders {
		if o.Status == OrderStatusForShipping {
			active = append(active, o)
		} else {
			completed = append(completed, o)
		}
	}
	return active, completed
}
