package handler

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/adapter/catalog"
	"github.com/rl1809/storefront/internal/adapter/remote"
	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

type testStack struct {
	front    *service.Storefront
	requests *service.CartRequests
	catalog  *catalog.StaticCatalog
	store    *storage.MemoryAdapter
}

// newTestStack wires the core over in-memory storage with one product "p"
// priced 100 and stocked 10.
func newTestStack(t *testing.T) *testStack {
	t.Helper()

	stock := 10
	c, err := catalog.NewStaticCatalog([]domain.Product{
		{ID: "p", Name: "Pen", UnitPrice: decimal.NewFromInt(100), DeclaredStock: &stock},
	})
	require.NoError(t, err)

	logger := zap.NewNop()
	store := storage.NewMemoryAdapter()
	policy := domain.RatePolicy{
		ShippingRate: decimal.RequireFromString("0.10"),
		TaxRate:      decimal.RequireFromString("0.12"),
	}

	ledger := service.NewInventoryLedger(store, c, logger)
	carts := service.NewCartService(store, ledger, c, policy, logger)
	orders := service.NewOrderService(ledger, carts, store, remote.LocalGateway{}, policy, logger)
	front := service.NewStorefront(ledger, carts, orders)

	requests := service.NewCartRequests(8)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		front.ServeCartRequests(0, requests.Requests(), logger)
	}()
	t.Cleanup(func() {
		requests.Close()
		wg.Wait()
	})

	return &testStack{front: front, requests: requests, catalog: c, store: store}
}
