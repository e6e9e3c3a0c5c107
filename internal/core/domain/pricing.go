package domain

import "github.com/shopspring/decimal"

type Totals struct {
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	TaxFee      decimal.Decimal
	Total       decimal.Decimal
}

// FeePolicy derives shipping and tax from a subtotal.
type FeePolicy interface {
	Fees(subtotal decimal.Decimal) (shipping, tax decimal.Decimal)
}

// RatePolicy charges shipping and tax as fractions of the subtotal.
type RatePolicy struct {
	ShippingRate decimal.Decimal
	TaxRate      decimal.Decimal
}

func (p RatePolicy) Fees(subtotal decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	return subtotal.Mul(p.ShippingRate).Round(2), subtotal.Mul(p.TaxRate).Round(2)
}

// FlatShippingPolicy charges a fixed shipping fee on non-empty orders plus a tax rate.
type FlatShippingPolicy struct {
	ShippingFee decimal.Decimal
	TaxRate     decimal.Decimal
}

func (p FlatShippingPolicy) Fees(subtotal decimal.Decimal) (decimal.Decimal, decimal.Decimal) {
	if !subtotal.IsPositive() {
		return decimal.Zero, decimal.Zero
	}
	return p.ShippingFee, subtotal.Mul(p.TaxRate).Round(2)
}

// ComputeTotals folds the items into a subtotal and applies the policy.
func ComputeTotals(items []OrderItem, policy FeePolicy) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	shipping, tax := policy.Fees(subtotal)
	return Totals{
		Subtotal:    subtotal,
		ShippingFee: shipping,
		TaxFee:      tax,
		Total:       subtotal.Add(shipping).Add(tax),
	}
}
