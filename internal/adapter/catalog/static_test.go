package catalog

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/storefront/internal/core/domain"
)

func TestStaticCatalog(t *testing.T) {
	stock := 3
	c, err := NewStaticCatalog([]domain.Product{
		{ID: "mug", Name: "Mug", UnitPrice: decimal.NewFromInt(10), DeclaredStock: &stock},
		{ID: "tee", Name: "Tee", UnitPrice: decimal.NewFromInt(20)},
	})
	require.NoError(t, err)

	products, err := c.Products(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "mug", products[0].ID)

	tee, err := c.Product(context.Background(), "tee")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultStock, tee.Baseline())

	_, err = c.Product(context.Background(), "hat")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStaticCatalog_RejectsDuplicates(t *testing.T) {
	_, err := NewStaticCatalog([]domain.Product{{ID: "a"}, {ID: "a"}})
	assert.Error(t, err)

	_, err = NewStaticCatalog([]domain.Product{{ID: ""}})
	assert.Error(t, err)
}
