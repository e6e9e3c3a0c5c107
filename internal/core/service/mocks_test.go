package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/storefront/internal/adapter/catalog"
	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// Mock InventoryRepository
type mockInventoryRepo struct {
	mu             sync.Mutex
	stock          map[string]int
	decrementCalls int
	incrementCalls int
	incrementErr   error
}

func newMockInventoryRepo() *mockInventoryRepo {
	return &mockInventoryRepo{stock: make(map[string]int)}
}

func (m *mockInventoryRepo) GetInventory(ctx context.Context, productID string) (*domain.Inventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	qty, ok := m.stock[productID]
	if !ok {
		return nil, nil
	}
	return &domain.Inventory{ProductID: productID, Quantity: qty}, nil
}

func (m *mockInventoryRepo) InitStock(ctx context.Context, productID string, quantity int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if qty, ok := m.stock[productID]; ok {
		return qty, nil
	}
	m.stock[productID] = quantity
	return quantity, nil
}

func (m *mockInventoryRepo) SetStock(ctx context.Context, productID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stock[productID] = quantity
	return nil
}

func (m *mockInventoryRepo) DecrementStock(ctx context.Context, items []domain.StockRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decrementCalls++
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, item := range items {
		if m.stock[item.ProductID] < item.Quantity {
			return &domain.InsufficientStockError{
				ProductID: item.ProductID,
				Requested: item.Quantity,
				Available: m.stock[item.ProductID],
			}
		}
	}
	for _, item := range items {
		m.stock[item.ProductID] -= item.Quantity
	}
	return nil
}

func (m *mockInventoryRepo) IncrementStock(ctx context.Context, items []domain.StockRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.incrementCalls++
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.incrementErr != nil {
		return m.incrementErr
	}
	for _, item := range items {
		m.stock[item.ProductID] += item.Quantity
	}
	return nil
}

func (m *mockInventoryRepo) quantity(productID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stock[productID]
}

// Mock CartRepository
type mockCartRepo struct {
	mu    sync.Mutex
	carts map[string]domain.Cart
	saves int
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{carts: make(map[string]domain.Cart)}
}

func (m *mockCartRepo) LoadCart(ctx context.Context, userKey string) (domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cart := m.carts[userKey]
	cart.Lines = append([]domain.CartLine(nil), cart.Lines...)
	return cart, nil
}

func (m *mockCartRepo) SaveCart(ctx context.Context, cart domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	cart.Lines = append([]domain.CartLine(nil), cart.Lines...)
	m.carts[cart.UserKey] = cart
	return nil
}

// Mock OrderRepository
type mockOrderRepo struct {
	mu        sync.Mutex
	orders    map[string]domain.Order
	createErr error
	updateErr error

	// beforeUpdate and afterUpdate run around each status write.
	beforeUpdate func()
	afterUpdate  func()
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[string]domain.Order)}
}

func (m *mockOrderRepo) CreateOrder(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.createErr != nil {
		return m.createErr
	}
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepo) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order, ok := m.orders[orderID]
	if !ok {
		return nil, nil
	}
	return &order, nil
}

func (m *mockOrderRepo) UpdateStatus(ctx context.Context, orderID string, from, to domain.OrderStatus, at time.Time) error {
	if m.beforeUpdate != nil {
		m.beforeUpdate()
	}
	if err := m.applyStatus(ctx, orderID, from, to, at); err != nil {
		return err
	}
	if m.afterUpdate != nil {
		m.afterUpdate()
	}
	return nil
}

func (m *mockOrderRepo) applyStatus(ctx context.Context, orderID string, from, to domain.OrderStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.updateErr != nil {
		return m.updateErr
	}
	order, ok := m.orders[orderID]
	if !ok || order.Status != from {
		return port.ErrStatusConflict
	}
	order.Status = to
	order.UpdatedAt = at
	m.orders[orderID] = order
	return nil
}

func (m *mockOrderRepo) status(orderID string) domain.OrderStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.orders[orderID].Status
}

// setStatus moves an order behind the service's back.
func (m *mockOrderRepo) setStatus(orderID string, status domain.OrderStatus) {
	m.mu.Lock()
	defer m.mu.Unlock()
	order := m.orders[orderID]
	order.Status = status
	m.orders[orderID] = order
}

func (m *mockOrderRepo) ListOrdersByUser(ctx context.Context, userKey string) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var orders []domain.Order
	for _, o := range m.orders {
		if o.UserKey == userKey {
			orders = append(orders, o)
		}
	}
	sort.Slice(orders, func(i, j int) bool { return orders[i].CreatedAt.Before(orders[j].CreatedAt) })
	return orders, nil
}

func (m *mockOrderRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

// Mock CheckoutGateway
type mockGateway struct {
	mu        sync.Mutex
	err       error
	submitted []domain.Order

	// onSubmit, when set, runs first and its error rejects the order.
	onSubmit func(ctx context.Context) error
}

func (m *mockGateway) Submit(ctx context.Context, order domain.Order) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.onSubmit != nil {
		if err := m.onSubmit(ctx); err != nil {
			return "", err
		}
	}
	if m.err != nil {
		return "", m.err
	}
	m.submitted = append(m.submitted, order)
	return "remote-" + order.ID, nil
}

var errRemoteDown = errors.New("remote down")

type testEnv struct {
	inventory *mockInventoryRepo
	carts     *mockCartRepo
	orders    *mockOrderRepo
	gateway   *mockGateway
	ledger    *InventoryLedger
	cart      *CartService
	order     *OrderService
}

func intPtr(v int) *int { return &v }

// testProducts: "p" costs 100 with 10 declared, "q" costs 50 with 5 declared,
// "u" costs 1 and declares nothing.
func testProducts() []domain.Product {
	return []domain.Product{
		{ID: "p", Name: "Pen", UnitPrice: decimal.NewFromInt(100), DeclaredStock: intPtr(10)},
		{ID: "q", Name: "Quill", UnitPrice: decimal.NewFromInt(50), DeclaredStock: intPtr(5)},
		{ID: "u", Name: "Unlimited", UnitPrice: decimal.NewFromInt(1)},
	}
}

func testPolicy() domain.FeePolicy {
	return domain.RatePolicy{
		ShippingRate: decimal.RequireFromString("0.10"),
		TaxRate:      decimal.RequireFromString("0.12"),
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	c, err := catalog.NewStaticCatalog(testProducts())
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	env := &testEnv{
		inventory: newMockInventoryRepo(),
		carts:     newMockCartRepo(),
		orders:    newMockOrderRepo(),
		gateway:   &mockGateway{},
	}
	logger := zap.NewNop()
	env.ledger = NewInventoryLedger(env.inventory, c, logger)
	env.cart = NewCartService(env.carts, env.ledger, c, testPolicy(), logger)
	env.order = NewOrderService(env.ledger, env.cart, env.orders, env.gateway, testPolicy(), logger)
	return env
}
