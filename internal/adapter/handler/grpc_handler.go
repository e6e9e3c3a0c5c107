package handler

import (
	"context"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	// Messages are plain structs carried by the JSON codec.
	_ "github.com/rl1809/storefront/internal/adapter/rpcjson"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
	"github.com/rl1809/storefront/internal/port"
)

const StorefrontServiceName = "storefront.v1.StorefrontService"

type SessionRequest struct {
	UserKey string `json:"user_key"`
}

type LineRequest struct {
	UserKey  string `json:"user_key"`
	LineID   string `json:"line_id"`
	Quantity int    `json:"quantity,omitempty"`
}

type OrderRequest struct {
	UserKey string `json:"user_key"`
	OrderID string `json:"order_id"`
}

type StockRequest struct {
	ProductID string `json:"product_id"`
}

type ReconcileRequest struct{}

type ReconcileResponse struct {
	Products int `json:"products"`
}

// StorefrontServer is the server side of storefront.v1.StorefrontService.
type StorefrontServer interface {
	GetStock(ctx context.Context, req *StockRequest) (*StockResponse, error)
	GetCart(ctx context.Context, req *SessionRequest) (*CartResponse, error)
	AddToCart(ctx context.Context, req *AddToCartRequest) (*CartLineResponse, error)
	SetQuantity(ctx context.Context, req *LineRequest) (*CartLineResponse, error)
	ToggleLine(ctx context.Context, req *LineRequest) (*CartLineResponse, error)
	DecrementLine(ctx context.Context, req *LineRequest) (*CartLineResponse, error)
	SelectAll(ctx context.Context, req *SelectAllRequest) (*CartResponse, error)
	RemoveLine(ctx context.Context, req *LineRequest) (*CartResponse, error)
	Checkout(ctx context.Context, req *SessionRequest) (*OrderResponse, error)
	ListOrders(ctx context.Context, req *SessionRequest) (*OrdersResponse, error)
	ConfirmDelivery(ctx context.Context, req *OrderRequest) (*OrderResponse, error)
	CancelOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error)
	ReconcileCatalog(ctx context.Context, req *ReconcileRequest) (*ReconcileResponse, error)
}

type GRPCHandler struct {
	front    *service.Storefront
	requests *service.CartRequests
	catalog  port.Catalog
	logger   *zap.Logger
}

var _ StorefrontServer = (*GRPCHandler)(nil)

func NewGRPCHandler(front *service.Storefront, requests *service.CartRequests, catalog port.Catalog, logger *zap.Logger) *GRPCHandler {
	return &GRPCHandler{front: front, requests: requests, catalog: catalog, logger: logger.Named("grpc")}
}

func RegisterStorefrontServer(s grpc.ServiceRegistrar, srv StorefrontServer) {
	s.RegisterService(&storefrontServiceDesc, srv)
}

func (h *GRPCHandler) GetStock(ctx context.Context, req *StockRequest) (*StockResponse, error) {
	var stock int
	err := h.front.Exec(func() error {
		var err error
		stock, err = h.front.Ledger.GetStock(ctx, req.ProductID)
		return err
	})
	if err != nil {
		return nil, h.statusError(err)
	}
	return &StockResponse{ProductID: req.ProductID, Available: stock}, nil
}

func (h *GRPCHandler) GetCart(ctx context.Context, req *SessionRequest) (*CartResponse, error) {
	var view domain.CartView
	err := h.front.Exec(func() error {
		var err error
		view, err = h.front.Carts.View(ctx, req.UserKey)
		return err
	})
	if err != nil {
		return nil, h.statusError(err)
	}
	resp := toCart(view)
	return &resp, nil
}

func (h *GRPCHandler) AddToCart(ctx context.Context, req *AddToCartRequest) (*CartLineResponse, error) {
	line, err := h.requests.Request(ctx, req.UserKey, req.ProductID, req.Quantity)
	if err != nil {
		return nil, h.statusError(err)
	}
	resp := toCartLine(line)
	return &resp, nil
}

func (h *GRPCHandler) SetQuantity(ctx context.Context, req *LineRequest) (*CartLineResponse, error) {
	return h.lineOp(func() (domain.CartLine, error) {
		return h.front.Carts.SetQuantity(ctx, req.UserKey, req.LineID, req.Quantity)
	})
}

func (h *GRPCHandler) ToggleLine(ctx context.Context, req *LineRequest) (*CartLineResponse, error) {
	return h.lineOp(func() (domain.CartLine, error) {
		return h.front.Carts.ToggleSelected(ctx, req.UserKey, req.LineID)
	})
}

func (h *GRPCHandler) DecrementLine(ctx context.Context, req *LineRequest) (*CartLineResponse, error) {
	var resp CartLineResponse
	err := h.front.Exec(func() error {
		line, removed, err := h.front.Carts.Decrement(ctx, req.UserKey, req.LineID)
		resp = toCartLine(line)
		resp.Removed = removed
		return err
	})
	if err != nil {
		return nil, h.statusError(err)
	}
	return &resp, nil
}

func (h *GRPCHandler) SelectAll(ctx context.Context, req *SelectAllRequest) (*CartResponse, error) {
	err := h.front.Exec(func() error {
		return h.front.Carts.SelectAll(ctx, req.UserKey, req.Selected)
	})
	if err != nil {
		return nil, h.statusError(err)
	}
	return h.GetCart(ctx, &SessionRequest{UserKey: req.UserKey})
}

func (h *GRPCHandler) RemoveLine(ctx context.Context, req *LineRequest) (*CartResponse, error) {
	err := h.front.Exec(func() error {
		return h.front.Carts.RemoveLine(ctx, req.UserKey, req.LineID)
	})
	if err != nil {
		return nil, h.statusError(err)
	}
	return h.GetCart(ctx, &SessionRequest{UserKey: req.UserKey})
}

func (h *GRPCHandler) Checkout(ctx context.Context, req *SessionRequest) (*OrderResponse, error) {
	return h.orderOp(func() (domain.Order, error) {
		return h.front.Orders.Checkout(ctx, req.UserKey)
	})
}

func (h *GRPCHandler) ListOrders(ctx context.Context, req *SessionRequest) (*OrdersResponse, error) {
	var orders []domain.Order
	err := h.front.Exec(func() error {
		var err error
		orders, err = h.front.Orders.ListForUser(ctx, req.UserKey)
		return err
	})
	if err != nil {
		return nil, h.statusError(err)
	}
	resp := toOrders(orders)
	return &resp, nil
}

func (h *GRPCHandler) ConfirmDelivery(ctx context.Context, req *OrderRequest) (*OrderResponse, error) {
	return h.orderOp(func() (domain.Order, error) {
		return h.front.Orders.ConfirmDelivery(ctx, req.UserKey, req.OrderID)
	})
}

func (h *GRPCHandler) CancelOrder(ctx context.Context, req *OrderRequest) (*OrderResponse, error) {
	return h.orderOp(func() (domain.Order, error) {
		return h.front.Orders.Cancel(ctx, req.UserKey, req.OrderID)
	})
}

// ReconcileCatalog re-applies declared catalog stock to the ledger.
func (h *GRPCHandler) ReconcileCatalog(ctx context.Context, _ *ReconcileRequest) (*ReconcileResponse, error) {
	var count int
	err := h.front.Exec(func() error {
		products, err := h.catalog.Products(ctx)
		if err != nil {
			return err
		}
		count = len(products)
		return h.front.Ledger.ReconcileCatalog(ctx, products)
	})
	if err != nil {
		return nil, h.statusError(err)
	}
	return &ReconcileResponse{Products: count}, nil
}

func (h *GRPCHandler) lineOp(op func() (domain.CartLine, error)) (*CartLineResponse, error) {
	var line domain.CartLine
	err := h.front.Exec(func() error {
		var err error
		line, err = op()
		return err
	})
	if err != nil {
		return nil, h.statusError(err)
	}
	resp := toCartLine(line)
	return &resp, nil
}

func (h *GRPCHandler) orderOp(op func() (domain.Order, error)) (*OrderResponse, error) {
	var order domain.Order
	err := h.front.Exec(func() error {
		var err error
		order, err = op()
		return err
	})
	if err != nil {
		return nil, h.statusError(err)
	}
	resp := toOrder(order)
	return &resp, nil
}

func (h *GRPCHandler) statusError(err error) error {
	m, body := classify(err)
	if m.grpc == codes.Internal {
		h.logger.Error("call failed", zap.Error(err))
	}
	return status.Error(m.grpc, body.Message)
}

func unary[Req, Resp any](method string, call func(StorefrontServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + StorefrontServiceName + "/" + method
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(StorefrontServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(StorefrontServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

var storefrontServiceDesc = grpc.ServiceDesc{
	ServiceName: StorefrontServiceName,
	HandlerType: (*StorefrontServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetStock", StorefrontServer.GetStock),
		unary("GetCart", StorefrontServer.GetCart),
		unary("AddToCart", StorefrontServer.AddToCart),
		unary("SetQuantity", StorefrontServer.SetQuantity),
		unary("ToggleLine", StorefrontServer.ToggleLine),
		unary("DecrementLine", StorefrontServer.DecrementLine),
		unary("SelectAll", StorefrontServer.SelectAll),
		unary("RemoveLine", StorefrontServer.RemoveLine),
		unary("Checkout", StorefrontServer.Checkout),
		unary("ListOrders", StorefrontServer.ListOrders),
		unary("ConfirmDelivery", StorefrontServer.ConfirmDelivery),
		unary("CancelOrder", StorefrontServer.CancelOrder),
		unary("ReconcileCatalog", StorefrontServer.ReconcileCatalog),
	},
	Streams: []grpc.StreamDesc{},
}
