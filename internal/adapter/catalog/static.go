package catalog

import (
	"context"
	"fmt"

	"github.com/rl1809/storefront/internal/core/domain"
)

// StaticCatalog serves a fixed product list, typically loaded from configuration.
type StaticCatalog struct {
	products []domain.Product
	byID     map[string]int
}

func NewStaticCatalog(products []domain.Product) (*StaticCatalog, error) {
	c := &StaticCatalog{
		products: append([]domain.Product(nil), products...),
		byID:     make(map[string]int, len(products)),
	}
	for i, p := range c.products {
		if p.ID == "" {
			return nil, fmt.Errorf("product %d has no id", i)
		}
		if _, dup := c.byID[p.ID]; dup {
			return nil, fmt.Errorf("duplicate product id %q", p.ID)
		}
		if p.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("product %q has negative price", p.ID)
		}
		c.byID[p.ID] = i
	}
	return c, nil
}

func (c *StaticCatalog) Products(ctx context.Context) ([]domain.Product, error) {
	return append([]domain.Product(nil), c.products...), nil
}

func (c *StaticCatalog) Product(ctx context.Context, productID string) (domain.Product, error) {
	i, ok := c.byID[productID]
	if !ok {
		return domain.Product{}, &domain.NotFoundError{Kind: "product", ID: productID}
	}
	return c.products[i], nil
}
