package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/core/domain"
)

func startCartHost(t *testing.T, env *testEnv, workers int) *CartRequests {
	t.Helper()

	requests := NewCartRequests(16)
	front := NewStorefront(env.ledger, env.cart, env.order)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			front.ServeCartRequests(id, requests.Requests(), zap.NewNop())
		}(i)
	}
	t.Cleanup(func() {
		requests.Close()
		wg.Wait()
	})
	return requests
}

func TestCartRequests_Request(t *testing.T) {
	env := newTestEnv(t)
	requests := startCartHost(t, env, 1)
	ctx := context.Background()

	line, err := requests.Request(ctx, "alice", "p", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, line.Quantity)

	_, err = requests.Request(ctx, "alice", "p", 5)
	assert.ErrorIs(t, err, domain.ErrExceedsAvailableStock)

	cart, _ := env.carts.LoadCart(ctx, "alice")
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 7, cart.Lines[0].Quantity)
}

func TestCartRequests_ConcurrentPublishers(t *testing.T) {
	env := newTestEnv(t)
	requests := startCartHost(t, env, 4)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := requests.Request(ctx, "alice", "p", 1)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, rejected int
	for err := range errs {
		if err == nil {
			ok++
		} else {
			assert.ErrorIs(t, err, domain.ErrExceedsAvailableStock)
			rejected++
		}
	}
	assert.Equal(t, 10, ok)
	assert.Equal(t, 10, rejected)

	cart, _ := env.carts.LoadCart(ctx, "alice")
	assert.Equal(t, 10, cart.QuantityOf("p"))
}

func TestCartRequests_FireAndForget(t *testing.T) {
	env := newTestEnv(t)
	requests := startCartHost(t, env, 1)
	ctx := context.Background()

	require.NoError(t, requests.Publish(ctx, AddToCartRequest{UserKey: "bob", ProductID: "q", Quantity: 2}))

	assert.Eventually(t, func() bool {
		cart, _ := env.carts.LoadCart(ctx, "bob")
		return cart.QuantityOf("q") == 2
	}, time.Second, 10*time.Millisecond)
}

func TestCartRequests_PublishHonoursContext(t *testing.T) {
	requests := NewCartRequests(0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := requests.Publish(ctx, AddToCartRequest{UserKey: "alice", ProductID: "p", Quantity: 1})
	assert.ErrorIs(t, err, context.Canceled)
}
