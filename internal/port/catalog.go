package port

import (
	"context"

	"github.com/rl1809/storefront/internal/core/domain"
)

type Catalog interface {
	// Products lists the catalog in display order
	Products(ctx context.Context) ([]domain.Product, error)

	// Product fails with *domain.NotFoundError for unknown ids
	Product(ctx context.Context, productID string) (domain.Product, error)
}
