package port

import (
	"context"
	"errors"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
)

// ErrStatusConflict is returned by UpdateStatus when the stored status is not the expected one.
var ErrStatusConflict = errors.New("order status conflict")

type OrderRepository interface {
	CreateOrder(ctx context.Context, order domain.Order) error

	// GetOrder returns nil when the order does not exist
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)

	// UpdateStatus moves the order from one status to another, failing with
	// ErrStatusConflict if the current status is not from
	UpdateStatus(ctx context.Context, orderID string, from, to domain.OrderStatus, at time.Time) error

	// ListOrdersByUser returns the user's orders oldest first
	ListOrdersByUser(ctx context.Context, userKey string) ([]domain.Order, error)
}
