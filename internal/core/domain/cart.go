package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CartLine struct {
	ID        string    `json:"id"`
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	Selected  bool      `json:"selected"`
	AddedAt   time.Time `json:"added_at"`
}

// Cart holds at most one line per product, in insertion order.
type Cart struct {
	UserKey string     `json:"user_key"`
	Lines   []CartLine `json:"lines"`
}

func (c Cart) LineIndex(lineID string) (int, bool) {
	for i, line := range c.Lines {
		if line.ID == lineID {
			return i, true
		}
	}
	return -1, false
}

func (c Cart) ProductIndex(productID string) (int, bool) {
	for i, line := range c.Lines {
		if line.ProductID == productID {
			return i, true
		}
	}
	return -1, false
}

// QuantityOf returns how many units of the product sit in the cart.
func (c Cart) QuantityOf(productID string) int {
	total := 0
	for _, line := range c.Lines {
		if line.ProductID == productID {
			total += line.Quantity
		}
	}
	return total
}

func (c Cart) SelectedLines() []CartLine {
	var lines []CartLine
	for _, line := range c.Lines {
		if line.Selected {
			lines = append(lines, line)
		}
	}
	return lines
}

func (c *Cart) RemoveAt(i int) {
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
}

// RemoveProducts drops every line for the given products and returns how many were removed.
func (c *Cart) RemoveProducts(productIDs []string) int {
	drop := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		drop[id] = struct{}{}
	}
	kept := c.Lines[:0]
	removed := 0
	for _, line := range c.Lines {
		if _, ok := drop[line.ProductID]; ok {
			removed++
			continue
		}
		kept = append(kept, line)
	}
	c.Lines = kept
	return removed
}

// CartLineView is a cart line resolved against the catalog and the ledger for rendering.
type CartLineView struct {
	CartLine
	Name       string
	UnitPrice  decimal.Decimal
	LineTotal  decimal.Decimal
	MaxAddable int
	Available  int
}

type CartView struct {
	UserKey string
	Lines   []CartLineView
	Totals  Totals
}
