package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
)

const cartRequestTimeout = 5 * time.Second

// AddToCartRequest asks the cart host to add units of a product to a user's cart.
// Reply, when set, receives exactly one result and must have room for it.
type AddToCartRequest struct {
	UserKey   string
	ProductID string
	Quantity  int
	Reply     chan<- AddToCartResult
}

type AddToCartResult struct {
	Line domain.CartLine
	Err  error
}

// CartRequests is the channel through which any component can ask for an
// add-to-cart without holding a reference to the cart itself.
type CartRequests struct {
	queue chan AddToCartRequest
}

func NewCartRequests(queueSize int) *CartRequests {
	return &CartRequests{queue: make(chan AddToCartRequest, queueSize)}
}

// Publish enqueues the request, waiting for room until ctx is done.
func (r *CartRequests) Publish(ctx context.Context, req AddToCartRequest) error {
	select {
	case r.queue <- req:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Request publishes an add-to-cart and waits for the host's answer.
func (r *CartRequests) Request(ctx context.Context, userKey, productID string, quantity int) (domain.CartLine, error) {
	reply := make(chan AddToCartResult, 1)
	err := r.Publish(ctx, AddToCartRequest{
		UserKey:   userKey,
		ProductID: productID,
		Quantity:  quantity,
		Reply:     reply,
	})
	if err != nil {
		return domain.CartLine{}, err
	}

	select {
	case res := <-reply:
		return res.Line, res.Err
	case <-ctx.Done():
		return domain.CartLine{}, ctx.Err()
	}
}

func (r *CartRequests) Requests() <-chan AddToCartRequest {
	return r.queue
}

func (r *CartRequests) Close() {
	close(r.queue)
}

// ServeCartRequests hosts the cart for published requests until the queue is closed.
func (s *Storefront) ServeCartRequests(id int, queue <-chan AddToCartRequest, logger *zap.Logger) {
	for req := range queue {
		ctx, cancel := context.WithTimeout(context.Background(), cartRequestTimeout)

		var line domain.CartLine
		err := s.Exec(func() error {
			var err error
			line, err = s.Carts.AddOrIncrement(ctx, req.UserKey, req.ProductID, req.Quantity)
			return err
		})
		if err != nil {
			logger.Debug("add to cart rejected",
				zap.Int("worker", id),
				zap.String("user_key", req.UserKey),
				zap.String("product_id", req.ProductID),
				zap.Error(err),
			)
		}

		if req.Reply != nil {
			req.Reply <- AddToCartResult{Line: line, Err: err}
		}
		cancel()
	}
}
