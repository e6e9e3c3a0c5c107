package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/storefront/internal/core/domain"
)

func TestGetStock_SeedsFromCatalog(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	stock, err := env.ledger.GetStock(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, 10, stock)
	assert.Equal(t, 10, env.inventory.quantity("p"), "baseline must be persisted")

	stock, err = env.ledger.GetStock(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultStock, stock)
}

func TestGetStock_UnknownProduct(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.ledger.GetStock(context.Background(), "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetStock_KeepsTrackedValue(t *testing.T) {
	env := newTestEnv(t)
	env.inventory.SetStock(context.Background(), "p", 2)

	stock, err := env.ledger.GetStock(context.Background(), "p")
	require.NoError(t, err)
	assert.Equal(t, 2, stock)
}

func TestReconcileCatalog(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.inventory.SetStock(ctx, "p", 0) // depleted, catalog declares 10
	env.inventory.SetStock(ctx, "q", 2) // partially sold, must not change

	require.NoError(t, env.ledger.ReconcileCatalog(ctx, testProducts()))

	assert.Equal(t, 10, env.inventory.quantity("p"))
	assert.Equal(t, 2, env.inventory.quantity("q"))
	assert.Equal(t, domain.DefaultStock, env.inventory.quantity("u"))
}

func TestReconcileCatalog_NeverDecreases(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.inventory.SetStock(ctx, "p", 40)

	require.NoError(t, env.ledger.ReconcileCatalog(ctx, testProducts()))

	assert.Equal(t, 40, env.inventory.quantity("p"))
}

func TestReconcileCatalog_ZeroStockWithoutDeclaration(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.inventory.SetStock(ctx, "u", 0)

	require.NoError(t, env.ledger.ReconcileCatalog(ctx, testProducts()))

	assert.Equal(t, 0, env.inventory.quantity("u"))
}

func TestReserve_AllOrNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.ledger.Reserve(ctx, []domain.StockRequest{
		{ProductID: "p", Quantity: 4},
		{ProductID: "q", Quantity: 6},
	})

	var short *domain.InsufficientStockError
	require.True(t, errors.As(err, &short), "got %v", err)
	assert.Equal(t, "q", short.ProductID)
	assert.Equal(t, 6, short.Requested)
	assert.Equal(t, 5, short.Available)
	assert.Equal(t, 10, env.inventory.quantity("p"))
	assert.Equal(t, 5, env.inventory.quantity("q"))
}

func TestReserve_MergesDuplicates(t *testing.T) {
	env := newTestEnv(t)

	err := env.ledger.Reserve(context.Background(), []domain.StockRequest{
		{ProductID: "q", Quantity: 3},
		{ProductID: "q", Quantity: 3},
	})

	assert.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, 5, env.inventory.quantity("q"))
}

func TestReserve_RejectsNonPositive(t *testing.T) {
	env := newTestEnv(t)

	err := env.ledger.Reserve(context.Background(), []domain.StockRequest{{ProductID: "p", Quantity: 0}})

	assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	assert.Equal(t, 0, env.inventory.decrementCalls)
}

func TestRestock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.ledger.Restock(ctx, "p", 3))
	assert.Equal(t, 13, env.inventory.quantity("p"), "restock of an unseen product starts from its baseline")

	assert.ErrorIs(t, env.ledger.Restock(ctx, "p", -1), domain.ErrInvalidQuantity)
	assert.Equal(t, 13, env.inventory.quantity("p"))
}
