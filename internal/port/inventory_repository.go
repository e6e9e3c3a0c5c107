package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

type InventoryRepository interface {
	// GetInventory returns nil when the product has never been tracked
	GetInventory(ctx context.Context, productID string) (*domain.Inventory, error)

	// InitStock stores quantity only if the product is untracked and returns the tracked quantity
	InitStock(ctx context.Context, productID string, quantity int) (int, error)

	// SetStock overwrites the tracked quantity
	SetStock(ctx context.Context, productID string, quantity int) error

	// DecrementStock atomically decreases stock for every item or for none of them.
	// A shortfall is reported as *domain.InsufficientStockError.
	DecrementStock(ctx context.Context, items []domain.StockRequest) error

	// IncrementStock restores stock for every item
	IncrementStock(ctx context.Context, items []domain.StockRequest) error
}
