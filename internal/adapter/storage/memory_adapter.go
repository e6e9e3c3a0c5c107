package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rl1809/storefront/internal/core/domain"
	"github.com/rl1809/storefront/internal/port"
)

// MemoryAdapter keeps inventory, carts and orders in process memory.
// It is safe for concurrent use.
type MemoryAdapter struct {
	mu     sync.Mutex
	stock  map[string]int
	carts  map[string]domain.Cart
	orders map[string]domain.Order
}

func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		stock:  make(map[string]int),
		carts:  make(map[string]domain.Cart),
		orders: make(map[string]domain.Order),
	}
}

func (m *MemoryAdapter) GetInventory(ctx context.Context, productID string) (*domain.Inventory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	qty, ok := m.stock[productID]
	if !ok {
		return nil, nil
	}
	return &domain.Inventory{ProductID: productID, Quantity: qty}, nil
}

func (m *MemoryAdapter) InitStock(ctx context.Context, productID string, quantity int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if qty, ok := m.stock[productID]; ok {
		return qty, nil
	}
	m.stock[productID] = quantity
	return quantity, nil
}

func (m *MemoryAdapter) SetStock(ctx context.Context, productID string, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stock[productID] = quantity
	return nil
}

func (m *MemoryAdapter) DecrementStock(ctx context.Context, items []domain.StockRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, item := range items {
		if available := m.stock[item.ProductID]; available < item.Quantity {
			return &domain.InsufficientStockError{
				ProductID: item.ProductID,
				Requested: item.Quantity,
				Available: available,
			}
		}
	}
	for _, item := range items {
		m.stock[item.ProductID] -= item.Quantity
	}
	return nil
}

func (m *MemoryAdapter) IncrementStock(ctx context.Context, items []domain.StockRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, item := range items {
		m.stock[item.ProductID] += item.Quantity
	}
	return nil
}

func (m *MemoryAdapter) LoadCart(ctx context.Context, userKey string) (domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cart, ok := m.carts[userKey]
	if !ok {
		return domain.Cart{UserKey: userKey}, nil
	}
	return copyCart(cart), nil
}

func (m *MemoryAdapter) SaveCart(ctx context.Context, cart domain.Cart) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.carts[cart.UserKey] = copyCart(cart)
	return nil
}

func (m *MemoryAdapter) CreateOrder(ctx context.Context, order domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.orders[order.ID]; exists {
		return ErrDuplicateOrder
	}
	m.orders[order.ID] = copyOrder(order)
	return nil
}

func (m *MemoryAdapter) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok {
		return nil, nil
	}
	order = copyOrder(order)
	return &order, nil
}

func (m *MemoryAdapter) UpdateStatus(ctx context.Context, orderID string, from, to domain.OrderStatus, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	order, ok := m.orders[orderID]
	if !ok || order.Status != from {
		return port.ErrStatusConflict
	}
	order.Status = to
	order.UpdatedAt = at
	m.orders[orderID] = order
	return nil
}

func (m *MemoryAdapter) ListOrdersByUser(ctx context.Context, userKey string) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var orders []domain.Order
	for _, o := range m.orders {
		if o.UserKey == userKey {
			orders = append(orders, copyOrder(o))
		}
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].ID < orders[j].ID
		}
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	return orders, nil
}

func copyCart(c domain.Cart) domain.Cart {
	c.Lines = append([]domain.CartLine(nil), c.Lines...)
	return c
}

func copyOrder(o domain.Order) domain.Order {
	o.Items = append([]domain.OrderItem(nil), o.Items...)
	return o
}
