package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
)

// JSON shapes shared by the HTTP and gRPC transports.

type AddToCartRequest struct {
	UserKey   string `json:"user_key,omitempty"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type SetQuantityRequest struct {
	Quantity int `json:"quantity"`
}

type SelectAllRequest struct {
	UserKey  string `json:"user_key,omitempty"`
	Selected bool   `json:"selected"`
}

type TotalsResponse struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	TaxFee      decimal.Decimal `json:"tax_fee"`
	Total       decimal.Decimal `json:"total"`
}

type CartLineResponse struct {
	ID         string          `json:"id"`
	ProductID  string          `json:"product_id"`
	Name       string          `json:"name,omitempty"`
	Quantity   int             `json:"quantity"`
	Selected   bool            `json:"selected"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	LineTotal  decimal.Decimal `json:"line_total"`
	MaxAddable int             `json:"max_addable"`
	AddedAt    time.Time       `json:"added_at"`
	Removed    bool            `json:"removed,omitempty"`
}

type CartResponse struct {
	UserKey string             `json:"user_key"`
	Lines   []CartLineResponse `json:"lines"`
	Totals  TotalsResponse     `json:"totals"`
}

type StockResponse struct {
	ProductID string `json:"product_id"`
	Available int    `json:"available"`
}

type ProductResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Available int             `json:"available"`
}

type OrderItemResponse struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type OrderResponse struct {
	ID          string              `json:"id"`
	RemoteID    string              `json:"remote_id"`
	Status      domain.OrderStatus  `json:"status"`
	Items       []OrderItemResponse `json:"items"`
	Subtotal    decimal.Decimal     `json:"subtotal"`
	ShippingFee decimal.Decimal     `json:"shipping_fee"`
	TaxFee      decimal.Decimal     `json:"tax_fee"`
	Total       decimal.Decimal     `json:"total"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

type OrdersResponse struct {
	Active    []OrderResponse `json:"active"`
	Completed []OrderResponse `json:"completed"`
}

type ErrorResponse struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	Available  *int   `json:"available,omitempty"`
	MaxAddable *int   `json:"max_addable,omitempty"`
}

func toTotals(t domain.Totals) TotalsResponse {
	return TotalsResponse{
		Subtotal:    t.Subtotal,
		ShippingFee: t.ShippingFee,
		TaxFee:      t.TaxFee,
		Total:       t.Total,
	}
}

func toCart(view domain.CartView) CartResponse {
	resp := CartResponse{
		UserKey: view.UserKey,
		Lines:   make([]CartLineResponse, 0, len(view.Lines)),
		Totals:  toTotals(view.Totals),
	}
	for _, line := range view.Lines {
		resp.Lines = append(resp.Lines, CartLineResponse{
			ID:         line.ID,
			ProductID:  line.ProductID,
			Name:       line.Name,
			Quantity:   line.Quantity,
			Selected:   line.Selected,
			UnitPrice:  line.UnitPrice,
			LineTotal:  line.LineTotal,
			MaxAddable: line.MaxAddable,
			AddedAt:    line.AddedAt,
		})
	}
	return resp
}

func toCartLine(line domain.CartLine) CartLineResponse {
	return CartLineResponse{
		ID:        line.ID,
		ProductID: line.ProductID,
		Quantity:  line.Quantity,
		Selected:  line.Selected,
		AddedAt:   line.AddedAt,
	}
}

func toOrder(o domain.Order) OrderResponse {
	resp := OrderResponse{
		ID:          o.ID,
		RemoteID:    o.RemoteID,
		Status:      o.Status,
		Items:       make([]OrderItemResponse, 0, len(o.Items)),
		Subtotal:    o.Subtotal,
		ShippingFee: o.ShippingFee,
		TaxFee:      o.TaxFee,
		Total:       o.Total,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, OrderItemResponse{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return resp
}

func toOrders(orders []domain.Order) OrdersResponse {
	active, completed := domain.PartitionOrders(orders)
	resp := OrdersResponse{
		Active:    make([]OrderResponse, 0, len(active)),
		Completed: make([]OrderResponse, 0, len(completed)),
	}
	for _, o := range active {
		resp.Active = append(resp.Active, toOrder(o))
	}
	for _, o := range completed {
		resp.Completed = append(resp.Completed, toOrder(o))
	}
	return resp
}
