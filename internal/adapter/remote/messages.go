package remote

import (
	"github.com/shopspring/decimal"

	"github.com/rl1809/storefront/internal/core/domain"
)

// Wire types of commerce.v1.CheckoutService, encoded with the rpcjson codec.

type SubmitOrderItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type SubmitOrderRequest struct {
	OrderID     string            `json:"order_id"`
	UserKey     string            `json:"user_key"`
	Items       []SubmitOrderItem `json:"items"`
	Subtotal    decimal.Decimal   `json:"subtotal"`
	ShippingFee decimal.Decimal   `json:"shipping_fee"`
	TaxFee      decimal.Decimal   `json:"tax_fee"`
	Total       decimal.Decimal   `json:"total"`
}

type SubmitOrderResponse struct {
	Accepted bool   `json:"accepted"`
	RemoteID string `json:"remote_id"`
	Reason   string `json:"reason,omitempty"`
}

func newSubmitOrderRequest(order domain.Order) *SubmitOrderRequest {
	req := &SubmitOrderRequest{
		OrderID:     order.ID,
		UserKey:     order.UserKey,
		Items:       make([]SubmitOrderItem, 0, len(order.Items)),
		Subtotal:    order.Subtotal,
		ShippingFee: order.ShippingFee,
		TaxFee:      order.TaxFee,
		Total:       order.Total,
	}
	for _, item := range order.Items {
		req.Items = append(req.Items, SubmitOrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return req
}
