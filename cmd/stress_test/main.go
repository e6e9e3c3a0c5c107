package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/adapter/catalog"
	"github.com/rl1809/storefront/internal/adapter/remote"
	"github.com/rl1809/storefront/internal/adapter/storage"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/core/service"
)

const productID = "flash-sale-item"

func main() {
	redisAddr := flag.String("redis", "localhost:6379", "redis address")
	initialStock := flag.Int("stock", 20, "initial stock")
	totalUsers := flag.Int("users", 50, "concurrent shoppers")
	flag.Parse()

	ctx := context.Background()
	log := zap.NewNop()

	rdb := redis.NewClient(&redis.Options{Addr: *redisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect redis: %v\n", err)
		os.Exit(1)
	}
	defer rdb.Close()

	// Clear previous run
	rdb.Del(ctx, storage.StockKey(productID))

	stock := *initialStock
	products := []domain.Product{
		{ID: productID, Name: "Flash sale item", UnitPrice: decimal.NewFromInt(10), DeclaredStock: &stock},
	}
	cat, err := catalog.NewStaticCatalog(products)
	if err != nil {
		fmt.Fprintf(os.Stderr, "catalog: %v\n", err)
		os.Exit(1)
	}

	// Stock lives in Redis; carts and orders stay in process.
	redisAdapter := storage.NewRedisAdapter(rdb)
	mem := storage.NewMemoryAdapter()
	policy := domain.RatePolicy{ShippingRate: decimal.RequireFromString("0.10"), TaxRate: decimal.RequireFromString("0.12")}

	ledger := service.NewInventoryLedger(redisAdapter, cat, log)
	carts := service.NewCartService(mem, ledger, cat, policy, log)
	orders := service.NewOrderService(ledger, carts, mem, remote.LocalGateway{}, policy, log)

	if err := ledger.ReconcileCatalog(ctx, products); err != nil {
		fmt.Fprintf(os.Stderr, "seed stock: %v\n", err)
		os.Exit(1)
	}

	// Every shopper fills a cart first; soft reservations let all of them in.
	for i := 0; i < *totalUsers; i++ {
		if _, err := carts.AddOrIncrement(ctx, userKey(i), productID, 1); err != nil {
			fmt.Fprintf(os.Stderr, "add to cart: %v\n", err)
			os.Exit(1)
		}
	}

	var successCount atomic.Int32
	var soldOutCount atomic.Int32
	var otherCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *totalUsers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()

			_, err := orders.Checkout(ctx, userKey(id))
			switch {
			case err == nil:
				successCount.Add(1)
			case errors.Is(err, domain.ErrInsufficientStock):
				soldOutCount.Add(1)
			default:
				otherCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)

	success := int(successCount.Load())
	soldOut := int(soldOutCount.Load())
	expectedSuccess := min(*initialStock, *totalUsers)

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", *initialStock)
	fmt.Printf("Shoppers:         %d\n", *totalUsers)
	fmt.Printf("Orders placed:    %d\n", success)
	fmt.Printf("Sold out:         %d\n", soldOut)
	fmt.Printf("Other errors:     %d\n", otherCount.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	failed := false
	if success == expectedSuccess && soldOut == *totalUsers-expectedSuccess {
		fmt.Printf("PASS: exactly %d orders placed, %d sold out\n", success, soldOut)
	} else {
		fmt.Printf("FAIL: expected %d placed/%d sold out, got %d/%d\n",
			expectedSuccess, *totalUsers-expectedSuccess, success, soldOut)
		failed = true
	}

	finalStock, _ := rdb.Get(ctx, storage.StockKey(productID)).Int()
	fmt.Printf("Final Redis Stock: %d\n", finalStock)
	if finalStock == *initialStock-expectedSuccess {
		fmt.Println("PASS: stock never went negative")
	} else {
		fmt.Printf("FAIL: expected stock %d, got %d\n", *initialStock-expectedSuccess, finalStock)
		failed = true
	}

	if failed {
		os.Exit(1)
	}
}

func userKey(i int) string {
	return fmt.Sprintf("user-%d", i)
}
