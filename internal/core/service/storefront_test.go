package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/adapter/catalog"
	"github.com/rl1809/storefront/internal/adapter/remote"
	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

// newSQLiteStorefront builds the core over a fresh SQLite database so state
// survives between service instances sharing the same adapter.
func newSQLiteStorefront(t *testing.T, adapter *storage.SQLAdapter) *service.Storefront {
	t.Helper()

	stock := 10
	c, err := catalog.NewStaticCatalog([]domain.Product{
		{ID: "p", Name: "Pen", UnitPrice: decimal.NewFromInt(100), DeclaredStock: &stock},
	})
	require.NoError(t, err)

	logger := zap.NewNop()
	policy := domain.RatePolicy{
		ShippingRate: decimal.RequireFromString("0.10"),
		TaxRate:      decimal.RequireFromString("0.12"),
	}
	ledger := service.NewInventoryLedger(adapter, c, logger)
	carts := service.NewCartService(adapter, ledger, c, policy, logger)
	orders := service.NewOrderService(ledger, carts, adapter, remote.LocalGateway{}, policy, logger)
	return service.NewStorefront(ledger, carts, orders)
}

func newSQLAdapter(t *testing.T) *storage.SQLAdapter {
	t.Helper()
	db, err := storage.OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, storage.Migrate(context.Background(), db, storage.DialectSQLite))
	return storage.NewSQLAdapter(db, storage.DialectSQLite)
}

func TestStorefront_SurvivesReload(t *testing.T) {
	ctx := context.Background()
	adapter := newSQLAdapter(t)

	front := newSQLiteStorefront(t, adapter)
	_, err := front.Carts.AddOrIncrement(ctx, "alice", "p", 7)
	require.NoError(t, err)

	_, err = front.Carts.AddOrIncrement(ctx, "alice", "p", 5)
	assert.ErrorIs(t, err, domain.ErrExceedsAvailableStock)

	// A new instance over the same store sees the same cart and bounds.
	reloaded := newSQLiteStorefront(t, adapter)
	maxAdd, err := reloaded.Carts.MaxAddable(ctx, "alice", "p")
	require.NoError(t, err)
	assert.Equal(t, 3, maxAdd)

	totals, err := reloaded.Carts.ComputeTotals(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, totals.Total.Equal(decimal.NewFromInt(854)))

	order, err := reloaded.Orders.Checkout(ctx, "alice")
	require.NoError(t, err)

	stock, err := reloaded.Ledger.GetStock(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, 3, stock)

	_, err = front.Orders.Cancel(ctx, "alice", order.ID)
	require.NoError(t, err)

	_, err = reloaded.Orders.ConfirmDelivery(ctx, "alice", order.ID)
	var invalid *domain.InvalidTransitionError
	require.True(t, errors.As(err, &invalid), "got %v", err)
	assert.Equal(t, domain.OrderStatusCancelled, invalid.From)

	stock, err = front.Ledger.GetStock(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, 10, stock)
}

func TestStorefront_Exec(t *testing.T) {
	front := newSQLiteStorefront(t, newSQLAdapter(t))
	sentinel := errors.New("boom")

	assert.ErrorIs(t, front.Exec(func() error { return sentinel }), sentinel)
	assert.NoError(t, front.Exec(func() error { return nil }))
}
