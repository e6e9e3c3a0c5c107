package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

// CheckoutGateway submits a placed order to the remote commerce backend.
// A nil error means the remote accepted the order; it is the commit point of checkout.
type CheckoutGateway interface {
	Submit(ctx context.Context, order domain.Order) (remoteID string, err error)
}
