package domain

// DefaultStock is the baseline for products whose catalog entry declares no stock.
// It is large enough to behave as unlimited for a single storefront.
const DefaultStock = 1_000_000

type Inventory struct {
	ProductID string
	Quantity  int
}

// StockRequest is a quantity of one product to take from or return to the ledger.
type StockRequest struct {
	ProductID string
	Quantity  int
}

// MergeStockRequests folds requests for the same product into one entry,
// keeping the order in which products first appear.
func MergeStockRequests(items []StockRequest) []StockRequest {
	merged := make([]StockRequest, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		if i, ok := index[item.ProductID]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return merged
}
