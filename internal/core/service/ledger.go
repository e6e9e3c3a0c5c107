package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// InventoryLedger owns available stock per product.
type InventoryLedger struct {
	repo    port.InventoryRepository
	catalog port.Catalog
	logger  *zap.Logger
}

func NewInventoryLedger(repo port.InventoryRepository, catalog port.Catalog, logger *zap.Logger) *InventoryLedger {
	return &InventoryLedger{
		repo:    repo,
		catalog: catalog,
		logger:  logger.Named("ledger"),
	}
}

// GetStock returns the available quantity, seeding it from the catalog the first
// time the product is seen.
func (l *InventoryLedger) GetStock(ctx context.Context, productID string) (int, error) {
	inv, err := l.repo.GetInventory(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("get inventory %s: %w", productID, err)
	}
	if inv != nil {
		return inv.Quantity, nil
	}

	product, err := l.catalog.Product(ctx, productID)
	if err != nil {
		return 0, err
	}

	quantity, err := l.repo.InitStock(ctx, productID, product.Baseline())
	if err != nil {
		return 0, fmt.Errorf("init stock %s: %w", productID, err)
	}
	l.logger.Debug("seeded stock", zap.String("product_id", productID), zap.Int("quantity", quantity))

	return quantity, nil
}

// ReconcileCatalog seeds untracked products and restores depleted ones the catalog
// now declares in stock. It never lowers stock.
func (l *InventoryLedger) ReconcileCatalog(ctx context.Context, products []domain.Product) error {
	for _, p := range products {
		inv, err := l.repo.GetInventory(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("get inventory %s: %w", p.ID, err)
		}

		if inv == nil {
			if _, err := l.repo.InitStock(ctx, p.ID, p.Baseline()); err != nil {
				return fmt.Errorf("init stock %s: %w", p.ID, err)
			}
			continue
		}

		if inv.Quantity == 0 && p.DeclaresPositiveStock() {
			if err := l.repo.SetStock(ctx, p.ID, *p.DeclaredStock); err != nil {
				return fmt.Errorf("reset stock %s: %w", p.ID, err)
			}
			l.logger.Info("restocked from catalog",
				zap.String("product_id", p.ID),
				zap.Int("quantity", *p.DeclaredStock),
			)
		}
	}
	return nil
}

// Reserve takes every item out of stock, or nothing at all.
func (l *InventoryLedger) Reserve(ctx context.Context, items []domain.StockRequest) error {
	items, err := l.prepare(ctx, items)
	if err != nil {
		return err
	}
	if err := l.repo.DecrementStock(ctx, items); err != nil {
		return err
	}
	return nil
}

// Restock returns quantity units of the product to stock.
func (l *InventoryLedger) Restock(ctx context.Context, productID string, quantity int) error {
	return l.Release(ctx, []domain.StockRequest{{ProductID: productID, Quantity: quantity}})
}

// Release returns reserved items to stock in one batch.
func (l *InventoryLedger) Release(ctx context.Context, items []domain.StockRequest) error {
	items, err := l.prepare(ctx, items)
	if err != nil {
		return err
	}
	if err := l.repo.IncrementStock(ctx, items); err != nil {
		return fmt.Errorf("increment stock: %w", err)
	}
	return nil
}

// prepare validates quantities, merges duplicate products and makes sure every
// product has a baseline before its stock is touched.
func (l *InventoryLedger) prepare(ctx context.Context, items []domain.StockRequest) ([]domain.StockRequest, error) {
	for _, item := range items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: %s has %d", domain.ErrInvalidQuantity, item.ProductID, item.Quantity)
		}
	}
	items = domain.MergeStockRequests(items)
	for _, item := range items {
		if _, err := l.GetStock(ctx, item.ProductID); err != nil {
			return nil, err
		}
	}
	return items, nil
}
