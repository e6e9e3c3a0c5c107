package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// OrderService turns checked-out carts into orders and drives their lifecycle.
// It is the only writer of order status and the only component that returns
// stock to the ledger.
type OrderService struct {
	ledger  *InventoryLedger
	carts   *CartService
	orders  port.OrderRepository
	gateway port.CheckoutGateway
	policy  domain.FeePolicy
	logger  *zap.Logger
	now     func() time.Time
}

func NewOrderService(
	ledger *InventoryLedger,
	carts *CartService,
	orders port.OrderRepository,
	gateway port.CheckoutGateway,
	policy domain.FeePolicy,
	logger *zap.Logger,
) *OrderService {
	return &OrderService{
		ledger:  ledger,
		carts:   carts,
		orders:  orders,
		gateway: gateway,
		policy:  policy,
		logger:  logger.Named("orders"),
		now:     time.Now,
	}
}

// Checkout places an order for the selected cart lines. Stock for every line is
// reserved in one step; if the reservation, the remote submission or the order
// write fails, no order exists afterwards and stock is back where it was.
func (s *OrderService) Checkout(ctx context.Context, userKey string) (domain.Order, error) {
	items, err := s.carts.Snapshot(ctx, userKey)
	if err != nil {
		return domain.Order{}, err
	}

	totals := domain.ComputeTotals(items, s.policy)
	now := s.now()
	order := domain.Order{
		ID:          uuid.NewString(),
		UserKey:     userKey,
		Items:       items,
		Subtotal:    totals.Subtotal,
		ShippingFee: totals.ShippingFee,
		TaxFee:      totals.TaxFee,
		Total:       totals.Total,
		Status:      domain.OrderStatusForShipping,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.ledger.Reserve(ctx, order.StockRequests()); err != nil {
		return domain.Order{}, err
	}

	remoteID, err := s.gateway.Submit(ctx, order)
	if err != nil {
		s.rollback(ctx, order, "remote submission failed")
		return domain.Order{}, fmt.Errorf("%w: %v", domain.ErrCheckoutRejected, err)
	}
	order.RemoteID = remoteID

	// The backend has accepted the order; record it even if the caller has gone.
	wctx, cancel := detach(ctx)
	defer cancel()
	if err := s.orders.CreateOrder(wctx, order); err != nil {
		s.rollback(ctx, order, "order write failed")
		return domain.Order{}, fmt.Errorf("save order: %w", err)
	}

	productIDs := make([]string, 0, len(items))
	for _, item := range items {
		productIDs = append(productIDs, item.ProductID)
	}
	if err := s.carts.RemoveProducts(ctx, userKey, productIDs); err != nil {
		// The order is committed; a stale cart only costs the user a manual removal.
		s.logger.Warn("failed to clear ordered lines",
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}

	s.logger.Info("order placed",
		zap.String("order_id", order.ID),
		zap.String("remote_id", order.RemoteID),
		zap.String("user_key", userKey),
		zap.String("total", order.Total.StringFixed(2)),
	)
	return order, nil
}

// compensationTimeout bounds stock writes that run after the caller's context is gone.
const compensationTimeout = 10 * time.Second

// detach keeps ctx's values but drops its cancellation, so a write that must
// land once started is not abandoned when the caller disconnects.
func detach(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
}

func (s *OrderService) rollback(ctx context.Context, order domain.Order, reason string) {
	rctx, cancel := detach(ctx)
	defer cancel()

	if err := s.ledger.Release(rctx, order.StockRequests()); err != nil {
		s.logger.Error("CRITICAL rollback failed",
			zap.String("order_id", order.ID),
			zap.String("reason", reason),
			zap.Error(err),
		)
		return
	}
	s.logger.Warn("rolled back stock", zap.String("order_id", order.ID), zap.String("reason", reason))
}

// ConfirmDelivery marks a shipping order as delivered. Stock is untouched.
func (s *OrderService) ConfirmDelivery(ctx context.Context, userKey, orderID string) (domain.Order, error) {
	order, err := s.allowed(ctx, userKey, orderID, domain.OrderStatusDelivered)
	if err != nil {
		return domain.Order{}, err
	}
	order, err = s.commitStatus(ctx, userKey, order, domain.OrderStatusDelivered)
	if err != nil {
		return domain.Order{}, err
	}
	s.logger.Info("order delivered", zap.String("order_id", orderID))
	return order, nil
}

// Cancel cancels a shipping order and returns every item to stock.
//
// Stock goes back before the status write. If the write loses or fails the
// stock is taken again, so the order stays cancellable and a retry restocks
// exactly once.
func (s *OrderService) Cancel(ctx context.Context, userKey, orderID string) (domain.Order, error) {
	order, err := s.allowed(ctx, userKey, orderID, domain.OrderStatusCancelled)
	if err != nil {
		return domain.Order{}, err
	}

	wctx, cancel := detach(ctx)
	defer cancel()

	items := order.StockRequests()
	if err := s.ledger.Release(wctx, items); err != nil {
		return domain.Order{}, fmt.Errorf("restock order %s: %w", orderID, err)
	}

	cancelled, err := s.commitStatus(wctx, userKey, order, domain.OrderStatusCancelled)
	if err != nil {
		if takeErr := s.ledger.Reserve(wctx, items); takeErr != nil {
			s.logger.Error("CRITICAL failed to undo restock",
				zap.String("order_id", orderID),
				zap.NamedError("status_error", err),
				zap.Error(takeErr),
			)
		}
		return domain.Order{}, err
	}

	s.logger.Info("order cancelled", zap.String("order_id", orderID), zap.Int("items", len(cancelled.Items)))
	return cancelled, nil
}

// ListForUser returns the user's orders oldest first.
func (s *OrderService) ListForUser(ctx context.Context, userKey string) ([]domain.Order, error) {
	if userKey == "" {
		return nil, domain.ErrNoSession
	}
	orders, err := s.orders.ListOrdersByUser(ctx, userKey)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

func (s *OrderService) get(ctx context.Context, userKey, orderID string) (domain.Order, error) {
	if userKey == "" {
		return domain.Order{}, domain.ErrNoSession
	}
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return domain.Order{}, fmt.Errorf("get order: %w", err)
	}
	// Another user's order is reported the same as a missing one.
	if order == nil || order.UserKey != userKey {
		return domain.Order{}, &domain.NotFoundError{Kind: "order", ID: orderID}
	}
	return *order, nil
}

// allowed loads the user's order and checks that it may move to status to.
func (s *OrderService) allowed(ctx context.Context, userKey, orderID string, to domain.OrderStatus) (domain.Order, error) {
	order, err := s.get(ctx, userKey, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	if !order.Status.CanTransitionTo(to) {
		return domain.Order{}, &domain.InvalidTransitionError{OrderID: orderID, From: order.Status, To: to}
	}
	return order, nil
}

// commitStatus moves order to status to, provided nobody moved it first.
func (s *OrderService) commitStatus(ctx context.Context, userKey string, order domain.Order, to domain.OrderStatus) (domain.Order, error) {
	now := s.now()
	err := s.orders.UpdateStatus(ctx, order.ID, order.Status, to, now)
	if errors.Is(err, port.ErrStatusConflict) {
		current, getErr := s.get(ctx, userKey, order.ID)
		if getErr != nil {
			return domain.Order{}, getErr
		}
		return domain.Order{}, &domain.InvalidTransitionError{OrderID: order.ID, From: current.Status, To: to}
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("update order status: %w", err)
	}

	order.Status = to
	order.UpdatedAt = now
	return order, nil
}
