package domain

import "github.com/shopspring/decimal"

type Product struct {
	ID        string
	Name      string
	UnitPrice decimal.Decimal
	// DeclaredStock is nil when the catalog does not track stock for the product.
	DeclaredStock *int
}

// Baseline is the stock the ledger starts from the first time it sees the product.
func (p Product) Baseline() int {
	if p.DeclaredStock == nil {
		return DefaultStock
	}
	if *p.DeclaredStock < 0 {
		return 0
	}
	return *p.DeclaredStock
}

// DeclaresPositiveStock reports whether the catalog announces stock for the product.
func (p Product) DeclaresPositiveStock() bool {
	return p.DeclaredStock != nil && *p.DeclaredStock > 0
}
