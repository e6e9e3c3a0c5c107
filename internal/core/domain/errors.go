package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInsufficientStock     = errors.New("insufficient stock")
	ErrExceedsAvailableStock = errors.New("exceeds available stock")
	ErrInvalidTransition     = errors.New("invalid order transition")
	ErrNotFound              = errors.New("not found")
	ErrInvalidQuantity       = errors.New("quantity must be at least 1")
	ErrNothingSelected       = errors.New("no cart lines selected for checkout")
	ErrNoSession             = errors.New("no session")
	ErrCheckoutRejected      = errors.New("checkout rejected")
)

// InsufficientStockError is returned by the ledger when a reservation exceeds stock.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, only %d remain",
		e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// ExceedsAvailableStockError is returned by the cart before any reservation happens.
type ExceedsAvailableStockError struct {
	ProductID string
	Requested int
	InCart    int
	Available int
}

// MaxAddable is how many more units the cart could take.
func (e *ExceedsAvailableStockError) MaxAddable() int {
	if n := e.Available - e.InCart; n > 0 {
		return n
	}
	return 0
}

func (e *ExceedsAvailableStockError) Error() string {
	return fmt.Sprintf("cannot add %d of %s: only %d remain", e.Requested, e.ProductID, e.MaxAddable())
}

func (e *ExceedsAvailableStockError) Is(target error) bool {
	return target == ErrExceedsAvailableStock
}

type InvalidTransitionError struct {
	OrderID string
	From    OrderStatus
	To      OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %s cannot move from %s to %s", e.OrderID, e.From, e.To)
}

func (e *InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
