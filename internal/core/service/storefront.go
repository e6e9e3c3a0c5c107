package service

import "sync"

// Storefront groups the three core services. The services themselves do no locking;
// transports run every call through Exec so one operation finishes before the next starts.
type Storefront struct {
	mu     sync.Mutex
	Ledger *InventoryLedger
	Carts  *CartService
	Orders *OrderService
}

func NewStorefront(ledger *InventoryLedger, carts *CartService, orders *OrderService) *Storefront {
	return &Storefront{Ledger: ledger, Carts: carts, Orders: orders}
}

func (s *Storefront) Exec(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn()
}
