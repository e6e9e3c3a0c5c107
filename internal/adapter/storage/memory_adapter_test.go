package storage

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

func TestMemoryAdapter_DecrementStock_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	m.SetStock(ctx, "a", 5)
	m.SetStock(ctx, "b", 1)

	err := m.DecrementStock(ctx, []domain.StockRequest{
		{ProductID: "a", Quantity: 3},
		{ProductID: "b", Quantity: 2},
	})

	var short *domain.InsufficientStockError
	require.True(t, errors.As(err, &short))
	assert.Equal(t, "b", short.ProductID)
	assert.Equal(t, 1, short.Available)

	a, _ := m.GetInventory(ctx, "a")
	b, _ := m.GetInventory(ctx, "b")
	assert.Equal(t, 5, a.Quantity)
	assert.Equal(t, 1, b.Quantity)
}

func TestMemoryAdapter_InitStock_KeepsExisting(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()

	qty, err := m.InitStock(ctx, "a", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, qty)

	qty, err = m.InitStock(ctx, "a", 99)
	require.NoError(t, err)
	assert.Equal(t, 10, qty)

	inv, err := m.GetInventory(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, inv)
}

func TestMemoryAdapter_DecrementStock_Concurrent(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	m.SetStock(ctx, "item", 20)

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.DecrementStock(ctx, []domain.StockRequest{{ProductID: "item", Quantity: 1}}); err == nil {
				successCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(20), successCount.Load())
	inv, _ := m.GetInventory(ctx, "item")
	assert.Equal(t, 0, inv.Quantity)
}

func TestMemoryAdapter_CartIsCopied(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()

	cart := domain.Cart{UserKey: "u", Lines: []domain.CartLine{{ID: "l1", ProductID: "a", Quantity: 1}}}
	require.NoError(t, m.SaveCart(ctx, cart))
	cart.Lines[0].Quantity = 42

	loaded, err := m.LoadCart(ctx, "u")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Lines[0].Quantity)

	empty, err := m.LoadCart(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, "other", empty.UserKey)
	assert.Empty(t, empty.Lines)
}

func TestMemoryAdapter_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	require.NoError(t, m.CreateOrder(ctx, domain.Order{ID: "o1", UserKey: "u", Status: domain.OrderStatusForShipping}))
	assert.ErrorIs(t, m.CreateOrder(ctx, domain.Order{ID: "o1"}), ErrDuplicateOrder)

	at := time.Now()
	require.NoError(t, m.UpdateStatus(ctx, "o1", domain.OrderStatusForShipping, domain.OrderStatusDelivered, at))

	err := m.UpdateStatus(ctx, "o1", domain.OrderStatusForShipping, domain.OrderStatusCancelled, at)
	assert.ErrorIs(t, err, port.ErrStatusConflict)

	order, err := m.GetOrder(ctx, "o1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusDelivered, order.Status)
}

func TestMemoryAdapter_ListOrdersByUser_OldestFirst(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryAdapter()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, m.CreateOrder(ctx, domain.Order{ID: "late", UserKey: "u", CreatedAt: base.Add(time.Hour)}))
	require.NoError(t, m.CreateOrder(ctx, domain.Order{ID: "early", UserKey: "u", CreatedAt: base}))
	require.NoError(t, m.CreateOrder(ctx, domain.Order{ID: "other", UserKey: "v", CreatedAt: base}))

	orders, err := m.ListOrdersByUser(ctx, "u")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "early", orders[0].ID)
	assert.Equal(t, "late", orders[1].ID)
}
